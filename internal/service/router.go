package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/metrics"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/sse"
)

type ConversationStorer interface {
	FindInstance(ctx context.Context, name string) (*model.Instance, error)
	UpdateConnectionStatus(ctx context.Context, name string, status model.ConnectionStatus) (*model.Instance, error)
	UpsertContact(ctx context.Context, instanceID, phoneNumber, displayName string) (*model.Contact, error)
	RecordInbound(ctx context.Context, instanceID, contactID string, params model.CreateMessageParams) (*model.Conversation, *model.Message, error)
}

type InboxForwarder interface {
	ForwardToInbox(ctx context.Context, instanceName string, msg *model.InboundMessage, ownerUserID string, channelType model.ChannelType) (*model.BridgeLink, error)
}

type MessageDispatcher interface {
	Dispatch(ctx context.Context, conv *model.Conversation, contact *model.Contact, instance *model.Instance, msg *model.InboundMessage) (Route, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, userID string, event sse.Event) error
}

// Router runs each normalized gateway message through dedupe, persistence,
// inbox mirroring and dispatch. Persistence failures stop the pipeline for
// that message; mirroring and dispatch failures are logged only.
type Router struct {
	store      ConversationStorer
	dedupe     Deduper
	bridge     InboxForwarder
	dispatcher MessageDispatcher
	events     EventPublisher
}

func NewRouter(
	store ConversationStorer,
	dedupe Deduper,
	bridge InboxForwarder,
	dispatcher MessageDispatcher,
	events EventPublisher,
) *Router {
	return &Router{
		store:      store,
		dedupe:     dedupe,
		bridge:     bridge,
		dispatcher: dispatcher,
		events:     events,
	}
}

func (r *Router) FindInstance(ctx context.Context, name string) (*model.Instance, error) {
	return r.store.FindInstance(ctx, name)
}

// Route never panics; a panic in any stage becomes a Failed outcome.
func (r *Router) Route(ctx context.Context, instance *model.Instance, msg *model.InboundMessage) (out Outcome) {
	logger := log.With().
		Str("instance", instance.Name).
		Str("messageId", msg.MessageID).
		Logger()

	var claimed bool
	defer func() {
		if p := recover(); p != nil {
			out = Failed(ReasonPanic, fmt.Errorf("panic: %v", p))
		}
		if claimed && out.Kind == OutcomeFailed {
			// Released even when the request context is already cancelled.
			if err := r.dedupe.Release(context.WithoutCancel(ctx), instance.Name, msg.MessageID); err != nil {
				logger.Warn().Err(err).Msg("dedupe release failed")
			}
		}
		metrics.EnvelopesTotal.WithLabelValues(out.Kind.String(), out.Reason).Inc()
		if out.Kind == OutcomeOK {
			metrics.RoutesTotal.WithLabelValues(string(out.Route)).Inc()
		}
	}()

	if msg.PhoneNumber == "" {
		return Skip(ReasonNoAddress)
	}

	claimed, err := r.dedupe.Claim(ctx, instance.Name, msg.MessageID)
	if err != nil {
		logger.Warn().Err(err).Msg("dedupe claim failed, processing anyway")
		claimed = true
	}
	if !claimed {
		logger.Debug().Msg("duplicate message skipped")
		return Skip(ReasonDuplicate)
	}

	return r.persistAndRoute(ctx, instance, msg)
}

func (r *Router) persistAndRoute(ctx context.Context, instance *model.Instance, msg *model.InboundMessage) Outcome {
	logger := log.With().
		Str("instance", instance.Name).
		Str("messageId", msg.MessageID).
		Logger()

	contact, err := r.store.UpsertContact(ctx, instance.ID, msg.PhoneNumber, msg.SenderName)
	if err != nil {
		return Failed(ReasonPersistContact, err)
	}
	if contact.Blocked {
		logger.Debug().Str("contactId", contact.ID).Msg("message from blocked contact skipped")
		return Skip(ReasonBlocked)
	}

	var gatewayID *string
	if msg.MessageID != "" {
		gatewayID = &msg.MessageID
	}
	conv, stored, err := r.store.RecordInbound(ctx, instance.ID, contact.ID, model.CreateMessageParams{
		Content:          msg.Text,
		Direction:        model.MessageDirectionInbound,
		IsFromBot:        false,
		Status:           model.MessageStatusReceived,
		SenderPhone:      &contact.PhoneNumber,
		GatewayMessageID: gatewayID,
		SentAt:           msg.Timestamp,
	})
	if errors.Is(err, ErrDuplicateMessage) {
		logger.Debug().Msg("message already stored, skipped")
		return Skip(ReasonDuplicate)
	}
	if err != nil {
		var perr *PersistError
		if errors.As(err, &perr) {
			return Failed(perr.Reason, err)
		}
		return Failed(ReasonPersistConv, err)
	}

	r.publish(ctx, instance.UserID, sse.EventMessage, map[string]any{
		"instance":     instance.Name,
		"conversation": conv,
		"contact":      contact,
		"message":      stored.ToSSEEventData(),
	})

	if link, err := r.bridge.ForwardToInbox(ctx, instance.Name, msg, instance.UserID, model.ChannelTypeWhatsApp); err != nil {
		logger.Warn().Err(err).Msg("inbox mirroring failed")
	} else if link != nil {
		logger.Debug().Int64("inboxConversationId", link.InboxConversationID).Msg("message bridged")
	}

	route, err := r.dispatcher.Dispatch(ctx, conv, contact, instance, msg)
	if err != nil {
		logger.Warn().Err(err).Str("route", string(route)).Msg("dispatch failed")
	}

	logger.Info().
		Str("conversationId", conv.ID).
		Str("route", string(route)).
		Bool("newConversation", conv.Created).
		Msg("message routed")

	return OK(route)
}

// UpdateConnectionState records the gateway connection state. It reports false
// when the instance is unknown.
func (r *Router) UpdateConnectionState(ctx context.Context, instanceName, state string) (bool, error) {
	status := model.ParseConnectionStatus(state)
	instance, err := r.store.UpdateConnectionStatus(ctx, instanceName, status)
	if err != nil {
		return false, err
	}
	if instance == nil {
		return false, nil
	}

	log.Info().
		Str("instance", instanceName).
		Str("state", string(status)).
		Msg("connection state updated")

	r.publish(ctx, instance.UserID, sse.EventConnectionState, map[string]any{
		"instance": instanceName,
		"state":    status,
	})
	return true, nil
}

func (r *Router) publish(ctx context.Context, userID string, eventType sse.EventType, data any) {
	if r.events == nil {
		return
	}
	event, err := sse.NewEvent(eventType, data)
	if err != nil {
		log.Error().Err(err).Msg("failed to build live event")
		return
	}
	if err := r.events.Publish(ctx, userID, event); err != nil {
		log.Warn().Err(err).Str("eventType", string(eventType)).Msg("failed to publish live event")
	}
}
