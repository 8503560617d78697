package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/audit"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/repository"
	"github.com/wabridge/relay-server-go/internal/util"
)

type Route string

const (
	RouteAI       Route = "ai"
	RouteOperator Route = "operator"
	RouteQueued   Route = "queued"
)

// Dispatcher routes a persisted message to the AI workflow or, when a human
// has taken over the conversation, to the assigned operator. It only reads
// ai_enabled; the flag is changed by the operator API.
type Dispatcher struct {
	workflow  WorkflowTrigger
	sender    ChannelSender
	operators repository.OperatorRepository
	handoffs  repository.HandoffLogRepository
}

func NewDispatcher(
	workflow WorkflowTrigger,
	sender ChannelSender,
	operators repository.OperatorRepository,
	handoffs repository.HandoffLogRepository,
) *Dispatcher {
	return &Dispatcher{
		workflow:  workflow,
		sender:    sender,
		operators: operators,
		handoffs:  handoffs,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, conv *model.Conversation, contact *model.Contact, instance *model.Instance, msg *model.InboundMessage) (Route, error) {
	if conv.AIEnabled {
		if err := d.workflow.Trigger(ctx, buildWorkflowPayload(contact, instance, msg)); err != nil {
			return RouteAI, fmt.Errorf("trigger workflow: %w", err)
		}
		return RouteAI, nil
	}

	if conv.AssignedOperatorID == nil {
		return RouteQueued, nil
	}

	op, err := d.operators.FindByID(ctx, *conv.AssignedOperatorID)
	if err != nil {
		return RouteQueued, fmt.Errorf("find operator: %w", err)
	}
	if op == nil || !op.Reachable() {
		log.Debug().
			Str("conversationId", conv.ID).
			Str("operatorId", *conv.AssignedOperatorID).
			Msg("assigned operator unreachable, message queued")
		return RouteQueued, nil
	}

	return RouteOperator, d.notifyOperator(ctx, conv, contact, instance, msg, op)
}

func (d *Dispatcher) notifyOperator(ctx context.Context, conv *model.Conversation, contact *model.Contact, instance *model.Instance, msg *model.InboundMessage, op *model.Operator) error {
	var errs []error

	sendErr := d.sender.SendText(ctx, instance.Name, *op.PhoneNumber, formatOperatorNotification(contact, instance, msg))
	if sendErr != nil {
		errs = append(errs, fmt.Errorf("notify operator: %w", sendErr))
	}

	if _, err := d.handoffs.Create(ctx, model.CreateHandoffLogParams{
		ConversationID: conv.ID,
		OperatorID:     op.ID,
		CustomerPhone:  contact.PhoneNumber,
		Content:        msg.Text,
	}); err != nil {
		errs = append(errs, fmt.Errorf("record handoff: %w", err))
	}

	audit.Log(ctx, audit.Event{
		Type:           audit.EventHandoffNotified,
		UserID:         instance.UserID,
		OperatorID:     op.ID,
		ConversationID: conv.ID,
		Details: map[string]interface{}{
			"instance": instance.Name,
			"notified": sendErr == nil,
		},
	})

	return errors.Join(errs...)
}

func buildWorkflowPayload(contact *model.Contact, instance *model.Instance, msg *model.InboundMessage) WorkflowPayload {
	return WorkflowPayload{
		InstanceName:     instance.Name,
		MessageType:      "conversation",
		Message:          WorkflowMessage{Conversation: msg.Text},
		Key:              WorkflowKey{RemoteJid: msg.FromAddress, ID: msg.MessageID},
		MessageTimestamp: msg.Timestamp.Unix(),
		PushName:         contact.DisplayName(),
		CustomPrompt:     instance.CustomPrompt,
	}
}

func formatOperatorNotification(contact *model.Contact, instance *model.Instance, msg *model.InboundMessage) string {
	return fmt.Sprintf("New message from %s (+%s) on %s:\n%s",
		contact.DisplayName(), util.NormalizePhone(contact.PhoneNumber), instance.Name, msg.Text)
}
