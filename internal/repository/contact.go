package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/model"
)

type ContactRepository interface {
	Upsert(ctx context.Context, params model.UpsertContactParams) (*model.Contact, error)
}

type contactRepo struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepo{db: db}
}

// Upsert relies on the (instance_id, phone_number) unique constraint so two
// concurrent first messages from the same address resolve to one row. The
// stored name only changes when a non-empty, different name arrives.
func (r *contactRepo) Upsert(ctx context.Context, params model.UpsertContactParams) (*model.Contact, error) {
	var contact model.Contact
	err := r.db.GetContext(ctx, &contact, `
		INSERT INTO contacts (instance_id, phone_number, name, blocked)
		VALUES ($1, $2, NULLIF($3, ''), false)
		ON CONFLICT (instance_id, phone_number) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, contacts.name),
			updated_at = CASE
				WHEN EXCLUDED.name IS NOT NULL AND EXCLUDED.name IS DISTINCT FROM contacts.name THEN NOW()
				ELSE contacts.updated_at
			END
		RETURNING *
	`, params.InstanceID, params.PhoneNumber, params.Name)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
