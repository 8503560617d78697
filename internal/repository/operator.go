package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/wabridge/relay-server-go/internal/model"
)

type OperatorRepository interface {
	FindByID(ctx context.Context, id string) (*model.Operator, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Operator, error)
}

type operatorRepo struct {
	db *sqlx.DB
}

func NewOperatorRepository(db *sqlx.DB) OperatorRepository {
	return &operatorRepo{db: db}
}

func (r *operatorRepo) FindByID(ctx context.Context, id string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.GetContext(ctx, &op, `
		SELECT * FROM operators WHERE id = $1
	`, id)
	return HandleNotFound(&op, err)
}

func (r *operatorRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.GetContext(ctx, &op, `
		SELECT * FROM operators WHERE api_token_hash = $1
	`, tokenHash)
	return HandleNotFound(&op, err)
}
