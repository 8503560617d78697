package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/repository"
)

// ErrDuplicateMessage reports a gateway message id that is already stored for
// the conversation.
var ErrDuplicateMessage = errors.New("duplicate gateway message")

// PersistError tags a persistence failure with the pipeline reason it maps to.
type PersistError struct {
	Reason string
	Err    error
}

func (e *PersistError) Error() string {
	return e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// ConversationStore persists instances, contacts, conversations and messages.
// Uniqueness of (instance, phone) and (instance, contact) is enforced by the
// database; every upsert here is a single statement.
type ConversationStore struct {
	db            database.TxRunner
	instances     repository.InstanceRepository
	contacts      repository.ContactRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func NewConversationStore(
	db database.TxRunner,
	instances repository.InstanceRepository,
	contacts repository.ContactRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
) *ConversationStore {
	return &ConversationStore{
		db:            db,
		instances:     instances,
		contacts:      contacts,
		conversations: conversations,
		messages:      messages,
	}
}

func (s *ConversationStore) FindInstance(ctx context.Context, name string) (*model.Instance, error) {
	instance, err := s.instances.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find instance: %w", err)
	}
	return instance, nil
}

func (s *ConversationStore) UpdateConnectionStatus(ctx context.Context, name string, status model.ConnectionStatus) (*model.Instance, error) {
	instance, err := s.instances.UpdateConnectionStatus(ctx, name, status)
	if err != nil {
		return nil, fmt.Errorf("update connection status: %w", err)
	}
	return instance, nil
}

func (s *ConversationStore) UpsertContact(ctx context.Context, instanceID, phoneNumber, displayName string) (*model.Contact, error) {
	contact, err := s.contacts.Upsert(ctx, model.UpsertContactParams{
		InstanceID:  instanceID,
		PhoneNumber: phoneNumber,
		Name:        displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert contact: %w", err)
	}
	return contact, nil
}

// RecordInbound upserts the conversation and appends the inbound message in
// one transaction. A redelivered gateway message id rolls the conversation
// update back, so unread_count and last_message_at stay untouched, and returns
// ErrDuplicateMessage.
func (s *ConversationStore) RecordInbound(ctx context.Context, instanceID, contactID string, params model.CreateMessageParams) (*model.Conversation, *model.Message, error) {
	var conv *model.Conversation
	var msg *model.Message

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		c, err := s.conversations.WithTx(tx).Upsert(ctx, model.UpsertConversationParams{
			InstanceID:    instanceID,
			ContactID:     contactID,
			LastMessageAt: params.SentAt,
		})
		if err != nil {
			return &PersistError{Reason: ReasonPersistConv, Err: fmt.Errorf("upsert conversation: %w", err)}
		}

		params.ConversationID = c.ID
		m, err := s.messages.WithTx(tx).Create(ctx, params)
		if err != nil {
			return &PersistError{Reason: ReasonPersistMessage, Err: fmt.Errorf("append message: %w", err)}
		}
		if m == nil {
			return ErrDuplicateMessage
		}

		conv, msg = c, m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if conv.Created {
		log.Info().
			Str("conversationId", conv.ID).
			Str("instanceId", instanceID).
			Msg("conversation created")
	}
	return conv, msg, nil
}

// AppendMessage returns (nil, nil) when the gateway message id was already
// stored for this conversation.
func (s *ConversationStore) AppendMessage(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	msg, err := s.messages.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (s *ConversationStore) FindConversationForUser(ctx context.Context, id, userID string) (*model.ConversationSummary, error) {
	conv, err := s.conversations.FindSummaryForUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) ListConversations(ctx context.Context, params model.ListConversationsParams) ([]model.ConversationSummary, int, error) {
	convs, err := s.conversations.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	total, err := s.conversations.Count(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}
	return convs, total, nil
}

func (s *ConversationStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, int, error) {
	messages, err := s.messages.FindByConversationID(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	total, err := s.messages.CountByConversationID(ctx, conversationID)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return messages, total, nil
}

// SetIntervention assigns operatorID and disables AI, or with a nil operatorID
// re-enables AI and clears the assignment.
func (s *ConversationStore) SetIntervention(ctx context.Context, conversationID string, operatorID *string) (*model.Conversation, error) {
	conv, err := s.conversations.SetIntervention(ctx, conversationID, operatorID)
	if err != nil {
		return nil, fmt.Errorf("set intervention: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) Close(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversations.UpdateStatus(ctx, conversationID, model.ConversationStatusClosed)
	if err != nil {
		return nil, fmt.Errorf("close conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) MarkRead(ctx context.Context, conversationID string) error {
	if err := s.conversations.MarkRead(ctx, conversationID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (s *ConversationStore) Touch(ctx context.Context, conversationID string) error {
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}
