package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/quantfolio/portfolio-server-go/internal/model"
)

type TokenRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.AuthToken, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.AuthToken, error)
	Create(ctx context.Context, params model.CreateTokenParams) (*model.AuthToken, error)
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TokenRepository
}

type tokenRepo struct {
	db sqlxDB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) WithTx(tx *sqlx.Tx) TokenRepository {
	return &tokenRepo{db: tx}
}

func (r *tokenRepo) FindByUserID(ctx context.Context, userID int64) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.GetContext(ctx, &token, `
		SELECT * FROM auth_tokens WHERE user_id = $1
	`, userID)
	return HandleNotFound(&token, err)
}

func (r *tokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.GetContext(ctx, &token, `
		SELECT * FROM auth_tokens WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&token, err)
}

func (r *tokenRepo) Create(ctx context.Context, params model.CreateTokenParams) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.GetContext(ctx, &token, `
		INSERT INTO auth_tokens (user_id, token, token_hash)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.UserID, params.Token, params.TokenHash)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
