package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/model"
)

type InstanceRepository interface {
	FindByName(ctx context.Context, name string) (*model.Instance, error)
	UpdateConnectionStatus(ctx context.Context, name string, status model.ConnectionStatus) (*model.Instance, error)
}

type instanceRepo struct {
	db *sqlx.DB
}

func NewInstanceRepository(db *sqlx.DB) InstanceRepository {
	return &instanceRepo{db: db}
}

func (r *instanceRepo) FindByName(ctx context.Context, name string) (*model.Instance, error) {
	var instance model.Instance
	err := r.db.GetContext(ctx, &instance, `
		SELECT * FROM instances WHERE name = $1
	`, name)
	return HandleNotFound(&instance, err)
}

func (r *instanceRepo) UpdateConnectionStatus(ctx context.Context, name string, status model.ConnectionStatus) (*model.Instance, error) {
	var instance model.Instance
	err := r.db.GetContext(ctx, &instance, `
		UPDATE instances SET
			connection_status = $2,
			updated_at = NOW()
		WHERE name = $1
		RETURNING *
	`, name, status)
	return HandleNotFound(&instance, err)
}
