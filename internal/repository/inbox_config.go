package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/model"
)

type InboxConfigRepository interface {
	Find(ctx context.Context, userID, instanceName string, channelType model.ChannelType) (*model.InboxConfig, error)
}

type inboxConfigRepo struct {
	db *sqlx.DB
}

func NewInboxConfigRepository(db *sqlx.DB) InboxConfigRepository {
	return &inboxConfigRepo{db: db}
}

func (r *inboxConfigRepo) Find(ctx context.Context, userID, instanceName string, channelType model.ChannelType) (*model.InboxConfig, error) {
	var cfg model.InboxConfig
	err := r.db.GetContext(ctx, &cfg, `
		SELECT * FROM inbox_configs
		WHERE user_id = $1 AND instance_name = $2 AND channel_type = $3
	`, userID, instanceName, channelType)
	return HandleNotFound(&cfg, err)
}
