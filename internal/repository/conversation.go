package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/database"
	"github.com/wabridge/relay-server-go/internal/model"
)

type ConversationRepository interface {
	FindSummaryForUser(ctx context.Context, id, userID string) (*model.ConversationSummary, error)
	List(ctx context.Context, params model.ListConversationsParams) ([]model.ConversationSummary, error)
	Count(ctx context.Context, params model.ListConversationsParams) (int, error)
	Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error)
	SetIntervention(ctx context.Context, id string, operatorID *string) (*model.Conversation, error)
	UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) (*model.Conversation, error)
	MarkRead(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ConversationRepository
}

type conversationRepo struct {
	db database.DBTX
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) WithTx(tx *sqlx.Tx) ConversationRepository {
	return &conversationRepo{db: tx}
}

const conversationSummarySelect = `
	SELECT c.*,
		ct.phone_number AS contact_phone,
		ct.name AS contact_name,
		i.name AS instance_name
	FROM conversations c
	JOIN contacts ct ON ct.id = c.contact_id
	JOIN instances i ON i.id = c.instance_id
`

func (r *conversationRepo) FindSummaryForUser(ctx context.Context, id, userID string) (*model.ConversationSummary, error) {
	var conv model.ConversationSummary
	err := r.db.GetContext(ctx, &conv, conversationSummarySelect+`
		WHERE c.id = $1 AND i.user_id = $2
	`, id, userID)
	return HandleNotFound(&conv, err)
}

func listFilter(params model.ListConversationsParams) (string, []any) {
	clauses := []string{"i.user_id = $1"}
	args := []any{params.UserID}
	if params.InstanceName != "" {
		args = append(args, params.InstanceName)
		clauses = append(clauses, "i.name = $"+strconv.Itoa(len(args)))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		clauses = append(clauses, "c.status = $"+strconv.Itoa(len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *conversationRepo) List(ctx context.Context, params model.ListConversationsParams) ([]model.ConversationSummary, error) {
	where, args := listFilter(params)
	args = append(args, params.Limit, params.Offset)
	query := conversationSummarySelect + where +
		" ORDER BY c.last_message_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	var convs []model.ConversationSummary
	err := r.db.SelectContext(ctx, &convs, query, args...)
	return convs, err
}

func (r *conversationRepo) Count(ctx context.Context, params model.ListConversationsParams) (int, error) {
	where, args := listFilter(params)
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations c
		JOIN instances i ON i.id = c.instance_id
	`+where, args...)
	return count, err
}

// Upsert inserts a new active thread or, for an existing one, bumps the unread
// counter and reactivates it. ai_enabled and assigned_operator_id are never
// touched here. xmax = 0 only holds for freshly inserted rows.
func (r *conversationRepo) Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations
			(instance_id, contact_id, status, ai_enabled, unread_count, last_message_at)
		VALUES ($1, $2, 'active', true, 1, $3)
		ON CONFLICT (instance_id, contact_id) DO UPDATE SET
			unread_count = conversations.unread_count + 1,
			last_message_at = EXCLUDED.last_message_at,
			status = 'active',
			updated_at = NOW()
		RETURNING *, (xmax = 0) AS created
	`, params.InstanceID, params.ContactID, params.LastMessageAt)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// SetIntervention hands the thread to operatorID (disabling AI) or, with a nil
// operatorID, returns it to AI. Both columns change in one statement.
func (r *conversationRepo) SetIntervention(ctx context.Context, id string, operatorID *string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		UPDATE conversations SET
			ai_enabled = ($2::uuid IS NULL),
			assigned_operator_id = $2::uuid,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, operatorID)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		UPDATE conversations SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, status)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET unread_count = 0, updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

// Touch records outbound activity without counting it as unread.
func (r *conversationRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = NOW(), updated_at = NOW() WHERE id = $1
	`, id)
	return err
}
