package service

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"github.com/rs/zerolog/log"

	apperrors "github.com/quantfolio/portfolio-server-go/internal/errors"
	"github.com/quantfolio/portfolio-server-go/internal/model"
	"github.com/quantfolio/portfolio-server-go/internal/repository"
)

type PortfolioService struct {
	portfolioRepo repository.PortfolioRepository
}

func NewPortfolioService(portfolioRepo repository.PortfolioRepository) *PortfolioService {
	return &PortfolioService{portfolioRepo: portfolioRepo}
}

type CreatePortfolioInput struct {
	UserID      int64
	Name        string
	Sectors     json.RawMessage
	Commodities json.RawMessage
	Result      json.RawMessage
}

// List returns every portfolio owned by the user, newest-created first.
func (s *PortfolioService) List(ctx context.Context, userID int64) ([]model.Portfolio, error) {
	portfolios, err := s.portfolioRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if portfolios == nil {
		portfolios = []model.Portfolio{}
	}
	return portfolios, nil
}

// Create stores a new portfolio record. Result is opaque and stored
// verbatim; its internal shape is never inspected.
func (s *PortfolioService) Create(ctx context.Context, input CreatePortfolioInput) (*model.Portfolio, error) {
	portfolio, err := s.portfolioRepo.Create(ctx, model.CreatePortfolioParams{
		UserID:      input.UserID,
		Name:        input.Name,
		Sectors:     asJSONColumn(input.Sectors),
		Commodities: asJSONColumn(input.Commodities),
		Result:      types.JSONText(input.Result),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Int64("userId", input.UserID).
		Int64("portfolioId", portfolio.ID).
		Msg("portfolio saved")

	return portfolio, nil
}

// Latest returns the most recently created portfolio for the user,
// or a not-found error if they have none.
func (s *PortfolioService) Latest(ctx context.Context, userID int64) (*model.Portfolio, error) {
	portfolio, err := s.portfolioRepo.LatestByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if portfolio == nil {
		return nil, apperrors.NotFound("No saved portfolio for this user.")
	}
	return portfolio, nil
}

// asJSONColumn maps an absent request field to a NULL column.
func asJSONColumn(raw json.RawMessage) *types.JSONText {
	if raw == nil {
		return nil
	}
	j := types.JSONText(raw)
	return &j
}
