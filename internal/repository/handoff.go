package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/model"
)

type HandoffLogRepository interface {
	Create(ctx context.Context, params model.CreateHandoffLogParams) (*model.HandoffLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type handoffLogRepo struct {
	db *sqlx.DB
}

func NewHandoffLogRepository(db *sqlx.DB) HandoffLogRepository {
	return &handoffLogRepo{db: db}
}

func (r *handoffLogRepo) Create(ctx context.Context, params model.CreateHandoffLogParams) (*model.HandoffLog, error) {
	var entry model.HandoffLog
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO handoff_conversation_log (conversation_id, operator_id, customer_phone, content)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ConversationID, params.OperatorID, params.CustomerPhone, params.Content)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *handoffLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM handoff_conversation_log WHERE created_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
