package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/audit"
	apperrors "github.com/wabridge/relay-server-go/internal/errors"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/sse"
)

type ConsoleStore interface {
	FindConversationForUser(ctx context.Context, id, userID string) (*model.ConversationSummary, error)
	ListConversations(ctx context.Context, params model.ListConversationsParams) ([]model.ConversationSummary, int, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int, error)
	SetIntervention(ctx context.Context, conversationID string, operatorID *string) (*model.Conversation, error)
	Close(ctx context.Context, conversationID string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
	Touch(ctx context.Context, conversationID string) error
}

// ConsoleService backs the operator API: listing threads, the human
// intervention toggle, operator replies and closing threads. Operators only
// see conversations of instances owned by their user.
type ConsoleService struct {
	store  ConsoleStore
	sender ChannelSender
	events EventPublisher
}

func NewConsoleService(store ConsoleStore, sender ChannelSender, events EventPublisher) *ConsoleService {
	return &ConsoleService{
		store:  store,
		sender: sender,
		events: events,
	}
}

type ConversationPage struct {
	Conversations []model.ConversationSummary `json:"conversations"`
	Total         int                         `json:"total"`
	HasMore       bool                        `json:"hasMore"`
}

type MessagePage struct {
	Messages []model.Message `json:"messages"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"hasMore"`
}

func (s *ConsoleService) ListConversations(ctx context.Context, op *model.Operator, params model.ListConversationsParams) (*ConversationPage, error) {
	params.UserID = op.UserID
	convs, total, err := s.store.ListConversations(ctx, params)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []model.ConversationSummary{}
	}
	return &ConversationPage{
		Conversations: convs,
		Total:         total,
		HasMore:       params.Offset+len(convs) < total,
	}, nil
}

func (s *ConsoleService) conversation(ctx context.Context, op *model.Operator, conversationID string) (*model.ConversationSummary, error) {
	conv, err := s.store.FindConversationForUser(ctx, conversationID, op.UserID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperrors.ConversationNotFound()
	}
	return conv, nil
}

// ListMessages also resets the unread counter, since the operator has now seen the thread.
func (s *ConsoleService) ListMessages(ctx context.Context, op *model.Operator, conversationID string, limit, offset int) (*MessagePage, error) {
	if _, err := s.conversation(ctx, op, conversationID); err != nil {
		return nil, err
	}

	messages, total, err := s.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}

	if offset == 0 {
		if err := s.store.MarkRead(ctx, conversationID); err != nil {
			log.Warn().Err(err).Str("conversationId", conversationID).Msg("failed to mark conversation read")
		}
	}

	return &MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  offset+len(messages) < total,
	}, nil
}

// SetIntervention moves the conversation between AI_ACTIVE and HUMAN_ACTIVE.
// enabled=true hands it to the calling operator; enabled=false returns it to AI.
func (s *ConsoleService) SetIntervention(ctx context.Context, op *model.Operator, conversationID string, enabled bool) (*model.Conversation, error) {
	current, err := s.conversation(ctx, op, conversationID)
	if err != nil {
		return nil, err
	}

	if enabled && !current.AIEnabled && current.AssignedOperatorID != nil && *current.AssignedOperatorID != op.ID {
		return nil, apperrors.Conflict("Conversation is already handled by another operator")
	}

	var operatorID *string
	eventType := audit.EventInterventionEnded
	if enabled {
		operatorID = &op.ID
		eventType = audit.EventInterventionStarted
	}

	conv, err := s.store.SetIntervention(ctx, conversationID, operatorID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperrors.ConversationNotFound()
	}

	audit.Log(ctx, audit.Event{
		Type:           eventType,
		UserID:         op.UserID,
		OperatorID:     op.ID,
		ConversationID: conversationID,
	})
	s.publish(ctx, op.UserID, sse.EventConversationUpdated, conv)

	return conv, nil
}

// Reply sends an operator-authored message to the counterpart. The message is
// stored even when the gateway rejects it, with status failed.
func (s *ConsoleService) Reply(ctx context.Context, op *model.Operator, conversationID, text string) (*model.Message, error) {
	conv, err := s.conversation(ctx, op, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == model.ConversationStatusClosed {
		return nil, apperrors.ConversationState("Conversation is closed")
	}

	status := model.MessageStatusSent
	sendErr := s.sender.SendText(ctx, conv.InstanceName, conv.ContactPhone, text)
	if sendErr != nil {
		status = model.MessageStatusFailed
	}

	msg, err := s.store.AppendMessage(ctx, model.CreateMessageParams{
		ConversationID: conversationID,
		Content:        text,
		Direction:      model.MessageDirectionOutbound,
		IsFromBot:      false,
		Status:         status,
		SenderPhone:    op.PhoneNumber,
		SentAt:         time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, apperrors.Upstream("gateway", sendErr)
	}

	if err := s.store.Touch(ctx, conversationID); err != nil {
		log.Warn().Err(err).Str("conversationId", conversationID).Msg("failed to touch conversation")
	}

	audit.Log(ctx, audit.Event{
		Type:           audit.EventOperatorReply,
		UserID:         op.UserID,
		OperatorID:     op.ID,
		ConversationID: conversationID,
	})
	s.publish(ctx, op.UserID, sse.EventMessage, map[string]any{
		"instance": conv.InstanceName,
		"message":  msg.ToSSEEventData(),
	})

	return msg, nil
}

func (s *ConsoleService) Close(ctx context.Context, op *model.Operator, conversationID string) (*model.Conversation, error) {
	if _, err := s.conversation(ctx, op, conversationID); err != nil {
		return nil, err
	}

	conv, err := s.store.Close(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperrors.ConversationNotFound()
	}

	audit.Log(ctx, audit.Event{
		Type:           audit.EventConversationClosed,
		UserID:         op.UserID,
		OperatorID:     op.ID,
		ConversationID: conversationID,
	})
	s.publish(ctx, op.UserID, sse.EventConversationUpdated, conv)

	return conv, nil
}

func (s *ConsoleService) publish(ctx context.Context, userID string, eventType sse.EventType, data any) {
	event, err := sse.NewEvent(eventType, data)
	if err != nil {
		log.Error().Err(err).Msg("failed to build live event")
		return
	}
	if err := s.events.Publish(ctx, userID, event); err != nil {
		log.Warn().Err(err).Str("eventType", string(eventType)).Msg("failed to publish live event")
	}
}
