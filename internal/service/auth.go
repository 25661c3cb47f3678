package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/quantfolio/portfolio-server-go/internal/config"
	"github.com/quantfolio/portfolio-server-go/internal/database"
	apperrors "github.com/quantfolio/portfolio-server-go/internal/errors"
	"github.com/quantfolio/portfolio-server-go/internal/model"
	"github.com/quantfolio/portfolio-server-go/internal/redis"
	"github.com/quantfolio/portfolio-server-go/internal/repository"
	"github.com/quantfolio/portfolio-server-go/internal/util"
)

// TxRunner is satisfied by *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type AuthService struct {
	db         TxRunner
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	cache      *redis.Client
	bcryptCost int
}

func NewAuthService(
	db TxRunner,
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	cache *redis.Client,
	bcryptCost int,
) *AuthService {
	return &AuthService{
		db:         db,
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		cache:      cache,
		bcryptCost: bcryptCost,
	}
}

type SignupParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Signup registers a new user and issues their bearer token. The duplicate
// pre-checks give friendly messages; the unique constraints on users are the
// authority, and a racing insert is reported through the same messages.
func (s *AuthService) Signup(ctx context.Context, params SignupParams) (*model.User, string, error) {
	existing, err := s.userRepo.FindByUsername(ctx, params.Username)
	if err != nil {
		return nil, "", apperrors.Internal(err.Error())
	}
	if existing != nil {
		return nil, "", apperrors.AlreadyExists("Username already exists")
	}

	existing, err = s.userRepo.FindByEmail(ctx, params.Email)
	if err != nil {
		return nil, "", apperrors.Internal(err.Error())
	}
	if existing != nil {
		return nil, "", apperrors.AlreadyExists("Email already registered")
	}

	passwordHash, err := util.HashPassword(params.Password, s.bcryptCost)
	if err != nil {
		return nil, "", apperrors.Internal(err.Error())
	}

	var user *model.User
	var token string

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		created, err := s.userRepo.WithTx(tx).Create(ctx, model.CreateUserParams{
			Username:     params.Username,
			Email:        params.Email,
			PasswordHash: passwordHash,
			FirstName:    params.FirstName,
			LastName:     params.LastName,
		})
		if err != nil {
			if repository.IsUniqueViolation(err, repository.UserUsernameConstraint) {
				return apperrors.AlreadyExists("Username already exists")
			}
			if repository.IsUniqueViolation(err, repository.UserEmailConstraint) {
				return apperrors.AlreadyExists("Email already registered")
			}
			return apperrors.Internal(err.Error())
		}

		generated, err := util.GenerateToken()
		if err != nil {
			return apperrors.Internal(err.Error())
		}

		if _, err := s.tokenRepo.WithTx(tx).Create(ctx, model.CreateTokenParams{
			UserID:    created.ID,
			Token:     generated,
			TokenHash: util.HashToken(generated),
		}); err != nil {
			return apperrors.Internal(err.Error())
		}

		user = created
		token = generated
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, "", appErr
		}
		return nil, "", apperrors.Internal(err.Error())
	}

	log.Info().Int64("userId", user.ID).Str("username", user.Username).Msg("user registered")

	return user, token, nil
}

// Login verifies credentials and returns the user's existing token,
// creating one only if none exists. Unknown username and wrong password
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", apperrors.Internal(err.Error())
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", apperrors.InvalidCredentials()
	}

	token, err := s.GetOrCreateToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// GetOrCreateToken returns the user's live token, minting one if absent.
// Tokens are never rotated implicitly; a concurrent mint loses to the
// unique user_id constraint and reuses the winner's row.
func (s *AuthService) GetOrCreateToken(ctx context.Context, userID int64) (string, error) {
	existing, err := s.tokenRepo.FindByUserID(ctx, userID)
	if err != nil {
		return "", apperrors.Internal(err.Error())
	}
	if existing != nil {
		return existing.Token, nil
	}

	generated, err := util.GenerateToken()
	if err != nil {
		return "", apperrors.Internal(err.Error())
	}

	created, err := s.tokenRepo.Create(ctx, model.CreateTokenParams{
		UserID:    userID,
		Token:     generated,
		TokenHash: util.HashToken(generated),
	})
	if err != nil {
		if repository.IsUniqueViolation(err, "") {
			winner, ferr := s.tokenRepo.FindByUserID(ctx, userID)
			if ferr == nil && winner != nil {
				return winner.Token, nil
			}
		}
		return "", apperrors.Internal(err.Error())
	}

	return created.Token, nil
}

// ResolveToken maps a bearer token to its user, consulting the Redis cache
// before the database. Returns (nil, nil) for an unknown token.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	tokenHash := util.HashToken(token)

	if s.cache != nil {
		cached, err := s.cache.GetCachedUser(ctx, tokenHash)
		if err != nil {
			log.Warn().Err(err).Msg("token cache lookup failed, falling back to database")
		} else if cached != nil {
			return cached, nil
		}
	}

	row, err := s.tokenRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, row.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.CacheUser(ctx, tokenHash, user, config.TokenCacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache resolved token")
		}
	}

	return user, nil
}

// Logout hard-deletes the user's token. The now-deleted token is also
// evicted from the cache so it stops authenticating immediately.
func (s *AuthService) Logout(ctx context.Context, userID int64, tokenHash string) error {
	deleted, err := s.tokenRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return apperrors.Internal(err.Error())
	}
	if deleted == 0 {
		return apperrors.Internal("no active token for user")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateToken(ctx, tokenHash); err != nil {
			log.Warn().Err(err).Int64("userId", userID).Msg("failed to evict token from cache")
		}
	}

	log.Info().Int64("userId", userID).Msg("user logged out")

	return nil
}
