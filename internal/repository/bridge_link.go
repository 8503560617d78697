package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/model"
)

type BridgeLinkRepository interface {
	// FindLatest returns the most recent link for the thread regardless of status.
	FindLatest(ctx context.Context, key model.BridgeKey) (*model.BridgeLink, error)
	FindOpen(ctx context.Context, key model.BridgeKey) (*model.BridgeLink, error)
	FindByInboxConversation(ctx context.Context, instanceName string, inboxConversationID int64) (*model.BridgeLink, error)
	Create(ctx context.Context, params model.CreateBridgeLinkParams) (*model.BridgeLink, error)
	UpdateStatus(ctx context.Context, id string, status model.InboxConversationStatus) error
	UpdateStatusByInboxConversation(ctx context.Context, instanceName string, inboxConversationID int64, status model.InboxConversationStatus) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) BridgeLinkRepository
}

type bridgeLinkRepo struct {
	db database.DBTX
}

func NewBridgeLinkRepository(db *sqlx.DB) BridgeLinkRepository {
	return &bridgeLinkRepo{db: db}
}

func (r *bridgeLinkRepo) WithTx(tx *sqlx.Tx) BridgeLinkRepository {
	return &bridgeLinkRepo{db: tx}
}

func (r *bridgeLinkRepo) FindLatest(ctx context.Context, key model.BridgeKey) (*model.BridgeLink, error) {
	var link model.BridgeLink
	err := r.db.GetContext(ctx, &link, `
		SELECT * FROM bridge_links
		WHERE user_id = $1 AND instance_name = $2 AND phone_number = $3 AND channel_type = $4
		ORDER BY created_at DESC
		LIMIT 1
	`, key.UserID, key.InstanceName, key.PhoneNumber, key.ChannelType)
	return HandleNotFound(&link, err)
}

func (r *bridgeLinkRepo) FindOpen(ctx context.Context, key model.BridgeKey) (*model.BridgeLink, error) {
	var link model.BridgeLink
	err := r.db.GetContext(ctx, &link, `
		SELECT * FROM bridge_links
		WHERE user_id = $1 AND instance_name = $2 AND phone_number = $3 AND channel_type = $4
		AND conversation_status = 'open'
	`, key.UserID, key.InstanceName, key.PhoneNumber, key.ChannelType)
	return HandleNotFound(&link, err)
}

func (r *bridgeLinkRepo) FindByInboxConversation(ctx context.Context, instanceName string, inboxConversationID int64) (*model.BridgeLink, error) {
	var link model.BridgeLink
	err := r.db.GetContext(ctx, &link, `
		SELECT * FROM bridge_links
		WHERE instance_name = $1 AND inbox_conversation_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, instanceName, inboxConversationID)
	return HandleNotFound(&link, err)
}

func (r *bridgeLinkRepo) Create(ctx context.Context, params model.CreateBridgeLinkParams) (*model.BridgeLink, error) {
	var link model.BridgeLink
	err := r.db.GetContext(ctx, &link, `
		INSERT INTO bridge_links
			(user_id, instance_name, phone_number, channel_type, inbox_contact_id, inbox_conversation_id, conversation_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING *
	`, params.UserID, params.InstanceName, params.PhoneNumber, params.ChannelType,
		params.InboxContactID, params.InboxConversationID)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *bridgeLinkRepo) UpdateStatus(ctx context.Context, id string, status model.InboxConversationStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bridge_links SET
			conversation_status = $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}

func (r *bridgeLinkRepo) UpdateStatusByInboxConversation(ctx context.Context, instanceName string, inboxConversationID int64, status model.InboxConversationStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bridge_links SET
			conversation_status = $3,
			updated_at = NOW()
		WHERE instance_name = $1 AND inbox_conversation_id = $2
	`, instanceName, inboxConversationID, status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
