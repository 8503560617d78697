package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/model"
)

type MessageRepository interface {
	FindByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	CountByConversationID(ctx context.Context, conversationID string) (int, error)
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageRepo struct {
	db database.DBTX
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) FindByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return messages, err
}

func (r *messageRepo) CountByConversationID(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1
	`, conversationID)
	return count, err
}

// Create always inserts. A redelivered gateway message id within the same
// conversation hits the partial unique index and yields (nil, nil).
func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages
			(conversation_id, content, direction, is_from_bot, status, sender_phone, gateway_message_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (conversation_id, gateway_message_id) WHERE gateway_message_id IS NOT NULL DO NOTHING
		RETURNING *
	`, params.ConversationID, params.Content, params.Direction, params.IsFromBot, params.Status,
		params.SenderPhone, params.GatewayMessageID, params.SentAt)
	return HandleNotFound(&msg, err)
}
