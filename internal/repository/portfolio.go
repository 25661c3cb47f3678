package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/quantfolio/portfolio-server-go/internal/model"
)

type PortfolioRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.Portfolio, error)
	LatestByUserID(ctx context.Context, userID int64) (*model.Portfolio, error)
	Create(ctx context.Context, params model.CreatePortfolioParams) (*model.Portfolio, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PortfolioRepository
}

type portfolioRepo struct {
	db sqlxDB
}

func NewPortfolioRepository(db *sqlx.DB) PortfolioRepository {
	return &portfolioRepo{db: db}
}

func (r *portfolioRepo) WithTx(tx *sqlx.Tx) PortfolioRepository {
	return &portfolioRepo{db: tx}
}

func (r *portfolioRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Portfolio, error) {
	var portfolios []model.Portfolio
	err := r.db.SelectContext(ctx, &portfolios, `
		SELECT * FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return portfolios, nil
}

func (r *portfolioRepo) LatestByUserID(ctx context.Context, userID int64) (*model.Portfolio, error) {
	var portfolio model.Portfolio
	err := r.db.GetContext(ctx, &portfolio, `
		SELECT * FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID)
	return HandleNotFound(&portfolio, err)
}

func (r *portfolioRepo) Create(ctx context.Context, params model.CreatePortfolioParams) (*model.Portfolio, error) {
	var portfolio model.Portfolio
	err := r.db.GetContext(ctx, &portfolio, `
		INSERT INTO portfolios (user_id, name, sectors, commodities, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.UserID, params.Name, params.Sectors, params.Commodities, params.Result)
	if err != nil {
		return nil, err
	}
	return &portfolio, nil
}
