package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quantfolio/portfolio-server-go/internal/errors"
	"github.com/quantfolio/portfolio-server-go/internal/model"
	"github.com/quantfolio/portfolio-server-go/internal/repository"
)

type mockPortfolioRepo struct {
	listByUserIDFunc   func(ctx context.Context, userID int64) ([]model.Portfolio, error)
	latestByUserIDFunc func(ctx context.Context, userID int64) (*model.Portfolio, error)
	createFunc         func(ctx context.Context, params model.CreatePortfolioParams) (*model.Portfolio, error)
}

func (m *mockPortfolioRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Portfolio, error) {
	if m.listByUserIDFunc != nil {
		return m.listByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockPortfolioRepo) LatestByUserID(ctx context.Context, userID int64) (*model.Portfolio, error) {
	if m.latestByUserIDFunc != nil {
		return m.latestByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockPortfolioRepo) Create(ctx context.Context, params model.CreatePortfolioParams) (*model.Portfolio, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockPortfolioRepo) WithTx(tx *sqlx.Tx) repository.PortfolioRepository {
	return m
}

func TestPortfolioList(t *testing.T) {
	ctx := context.Background()

	t.Run("user with no portfolios gets an empty list", func(t *testing.T) {
		svc := NewPortfolioService(&mockPortfolioRepo{})

		portfolios, err := svc.List(ctx, 1)

		require.NoError(t, err)
		assert.NotNil(t, portfolios)
		assert.Empty(t, portfolios)
	})

	t.Run("preserves repository ordering", func(t *testing.T) {
		repo := &mockPortfolioRepo{
			listByUserIDFunc: func(ctx context.Context, userID int64) ([]model.Portfolio, error) {
				return []model.Portfolio{{ID: 3}, {ID: 2}, {ID: 1}}, nil
			},
		}
		svc := NewPortfolioService(repo)

		portfolios, err := svc.List(ctx, 1)

		require.NoError(t, err)
		require.Len(t, portfolios, 3)
		assert.Equal(t, int64(3), portfolios[0].ID)
		assert.Equal(t, int64(1), portfolios[2].ID)
	})

	t.Run("wraps repository failure", func(t *testing.T) {
		repo := &mockPortfolioRepo{
			listByUserIDFunc: func(ctx context.Context, userID int64) ([]model.Portfolio, error) {
				return nil, errors.New("connection refused")
			},
		}
		svc := NewPortfolioService(repo)

		_, err := svc.List(ctx, 1)

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})
}

func TestPortfolioCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("absent sectors and commodities become nil columns", func(t *testing.T) {
		var captured model.CreatePortfolioParams
		repo := &mockPortfolioRepo{
			createFunc: func(ctx context.Context, params model.CreatePortfolioParams) (*model.Portfolio, error) {
				captured = params
				return &model.Portfolio{ID: 1, UserID: params.UserID, Result: params.Result}, nil
			},
		}
		svc := NewPortfolioService(repo)

		portfolio, err := svc.Create(ctx, CreatePortfolioInput{
			UserID: 42,
			Name:   "balanced",
			Result: json.RawMessage(`{"weights":{"AAPL":0.5}}`),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(42), captured.UserID)
		assert.Nil(t, captured.Sectors)
		assert.Nil(t, captured.Commodities)
		assert.JSONEq(t, `{"weights":{"AAPL":0.5}}`, string(portfolio.Result))
	})

	t.Run("provided selections are stored verbatim", func(t *testing.T) {
		var captured model.CreatePortfolioParams
		repo := &mockPortfolioRepo{
			createFunc: func(ctx context.Context, params model.CreatePortfolioParams) (*model.Portfolio, error) {
				captured = params
				return &model.Portfolio{ID: 1}, nil
			},
		}
		svc := NewPortfolioService(repo)

		_, err := svc.Create(ctx, CreatePortfolioInput{
			UserID:      42,
			Sectors:     json.RawMessage(`["tech","energy"]`),
			Commodities: json.RawMessage(`["gold"]`),
			Result:      json.RawMessage(`{}`),
		})

		require.NoError(t, err)
		require.NotNil(t, captured.Sectors)
		assert.JSONEq(t, `["tech","energy"]`, string(*captured.Sectors))
		require.NotNil(t, captured.Commodities)
		assert.JSONEq(t, `["gold"]`, string(*captured.Commodities))
	})
}

func TestPortfolioLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the newest portfolio", func(t *testing.T) {
		repo := &mockPortfolioRepo{
			latestByUserIDFunc: func(ctx context.Context, userID int64) (*model.Portfolio, error) {
				return &model.Portfolio{ID: 9, UserID: userID, Result: types.JSONText(`{}`)}, nil
			},
		}
		svc := NewPortfolioService(repo)

		portfolio, err := svc.Latest(ctx, 42)

		require.NoError(t, err)
		assert.Equal(t, int64(9), portfolio.ID)
	})

	t.Run("no portfolios is a not-found error", func(t *testing.T) {
		svc := NewPortfolioService(&mockPortfolioRepo{})

		_, err := svc.Latest(ctx, 42)

		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
		assert.Equal(t, "No saved portfolio for this user.", appErr.Message)
	})
}
