package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quantfolio/portfolio-server-go/internal/database"
	"github.com/quantfolio/portfolio-server-go/internal/middleware"
	"github.com/quantfolio/portfolio-server-go/internal/model"
	"github.com/quantfolio/portfolio-server-go/internal/repository"
	"github.com/quantfolio/portfolio-server-go/internal/service"
	"github.com/quantfolio/portfolio-server-go/internal/util"
)

// Mock repositories

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockTokenRepo struct {
	mock.Mock
}

func (m *mockTokenRepo) FindByUserID(ctx context.Context, userID int64) (*model.AuthToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthToken), args.Error(1)
}

func (m *mockTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AuthToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthToken), args.Error(1)
}

func (m *mockTokenRepo) Create(ctx context.Context, params model.CreateTokenParams) (*model.AuthToken, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthToken), args.Error(1)
}

func (m *mockTokenRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokenRepo) WithTx(tx *sqlx.Tx) repository.TokenRepository {
	return m
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

func newAuthHandler(userRepo *mockUserRepo, tokenRepo *mockTokenRepo) *AuthHandler {
	svc := service.NewAuthService(fakeTxRunner{}, userRepo, tokenRepo, nil, bcrypt.MinCost)
	return NewAuthHandler(svc)
}

// Helper to add an authenticated user to the request context
func withUser(ctx context.Context, user *model.User, tokenHash string) context.Context {
	ctx = context.WithValue(ctx, middleware.UserContextKey, user)
	return context.WithValue(ctx, middleware.TokenHashContextKey, tokenHash)
}

func unmarshalBody(rec *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("returns 400 when request body is invalid", func(t *testing.T) {
		handler := newAuthHandler(new(mockUserRepo), new(mockTokenRepo))

		body := bytes.NewBufferString(`{invalid json}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
		rec := httptest.NewRecorder()

		handler.Signup(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("returns 400 when required fields are missing", func(t *testing.T) {
		handler := newAuthHandler(new(mockUserRepo), new(mockTokenRepo))

		body := bytes.NewBufferString(`{"username": "alice"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
		rec := httptest.NewRecorder()

		handler.Signup(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Username, email, and password are required")
	})

	t.Run("returns 400 when username is taken", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByUsername", mock.Anything, "alice").
			Return(&model.User{ID: 1, Username: "alice"}, nil)

		handler := newAuthHandler(userRepo, new(mockTokenRepo))

		body := bytes.NewBufferString(`{"username": "alice", "email": "alice@example.com", "password": "hunter2"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
		rec := httptest.NewRecorder()

		handler.Signup(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Username already exists")
		userRepo.AssertExpectations(t)
	})

	t.Run("returns 400 when email is registered", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByUsername", mock.Anything, "alice").Return(nil, nil)
		userRepo.On("FindByEmail", mock.Anything, "alice@example.com").
			Return(&model.User{ID: 1, Email: "alice@example.com"}, nil)

		handler := newAuthHandler(userRepo, new(mockTokenRepo))

		body := bytes.NewBufferString(`{"username": "alice", "email": "alice@example.com", "password": "hunter2"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
		rec := httptest.NewRecorder()

		handler.Signup(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Email already registered")
	})

	t.Run("returns 201 with token and user on success", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByUsername", mock.Anything, "alice").Return(nil, nil)
		userRepo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, nil)
		userRepo.On("Create", mock.Anything, mock.Anything).
			Return(&model.User{
				ID:        1,
				Username:  "alice",
				Email:     "alice@example.com",
				FirstName: "Alice",
			}, nil)

		tokenRepo := new(mockTokenRepo)
		tokenRepo.On("Create", mock.Anything, mock.Anything).Return(&model.AuthToken{ID: 1}, nil)

		handler := newAuthHandler(userRepo, tokenRepo)

		body := bytes.NewBufferString(`{"username": "alice", "email": "alice@example.com", "password": "hunter2", "first_name": "Alice"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
		rec := httptest.NewRecorder()

		handler.Signup(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, unmarshalBody(rec, &resp))
		assert.NotEmpty(t, resp["token"])
		assert.Equal(t, float64(1), resp["user_id"])
		assert.Equal(t, "alice", resp["username"])
		assert.Equal(t, "Alice", resp["first_name"])
		userRepo.AssertExpectations(t)
		tokenRepo.AssertExpectations(t)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	passwordHash, err := util.HashPassword("correct-password", bcrypt.MinCost)
	require.NoError(t, err)

	testUser := &model.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: passwordHash,
	}

	t.Run("returns 400 when fields are missing", func(t *testing.T) {
		handler := newAuthHandler(new(mockUserRepo), new(mockTokenRepo))

		body := bytes.NewBufferString(`{"username": "alice"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Username and password are required")
	})

	t.Run("returns 401 for unknown username", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByUsername", mock.Anything, "nobody").Return(nil, nil)

		handler := newAuthHandler(userRepo, new(mockTokenRepo))

		body := bytes.NewBufferString(`{"username": "nobody", "password": "whatever"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
	})

	t.Run("returns 401 for wrong password", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByUsername", mock.Anything, "alice").Return(testUser, nil)

		handler := newAuthHandler(userRepo, new(mockTokenRepo))

		body := bytes.NewBufferString(`{"username": "alice", "password": "wrong-password"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
	})

	t.Run("returns 200 with existing token on success", func(t *testing.T) {
		userRepo := new(mockUserRepo)
		userRepo.On("FindByUsername", mock.Anything, "alice").Return(testUser, nil)

		tokenRepo := new(mockTokenRepo)
		tokenRepo.On("FindByUserID", mock.Anything, int64(1)).
			Return(&model.AuthToken{UserID: 1, Token: "existing-token"}, nil)

		handler := newAuthHandler(userRepo, tokenRepo)

		body := bytes.NewBufferString(`{"username": "alice", "password": "correct-password"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		rec := httptest.NewRecorder()

		handler.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, unmarshalBody(rec, &resp))
		assert.Equal(t, "existing-token", resp["token"])
		assert.Equal(t, "alice", resp["username"])
		tokenRepo.AssertExpectations(t)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	testUser := &model.User{ID: 1, Username: "alice"}

	t.Run("returns 200 and deletes the token", func(t *testing.T) {
		tokenRepo := new(mockTokenRepo)
		tokenRepo.On("DeleteByUserID", mock.Anything, int64(1)).Return(int64(1), nil)

		handler := newAuthHandler(new(mockUserRepo), tokenRepo)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req = req.WithContext(withUser(req.Context(), testUser, "token-hash"))
		rec := httptest.NewRecorder()

		handler.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Successfully logged out")
		tokenRepo.AssertExpectations(t)
	})

	t.Run("returns 500 when no token row exists", func(t *testing.T) {
		tokenRepo := new(mockTokenRepo)
		tokenRepo.On("DeleteByUserID", mock.Anything, int64(1)).Return(int64(0), nil)

		handler := newAuthHandler(new(mockUserRepo), tokenRepo)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req = req.WithContext(withUser(req.Context(), testUser, "token-hash"))
		rec := httptest.NewRecorder()

		handler.Logout(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("returns the authenticated user without token", func(t *testing.T) {
		handler := newAuthHandler(new(mockUserRepo), new(mockTokenRepo))

		user := &model.User{
			ID:        7,
			Username:  "alice",
			Email:     "alice@example.com",
			FirstName: "Alice",
			LastName:  "Smith",
		}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req = req.WithContext(withUser(req.Context(), user, "token-hash"))
		rec := httptest.NewRecorder()

		handler.Me(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, unmarshalBody(rec, &resp))
		assert.Equal(t, float64(7), resp["user_id"])
		assert.Equal(t, "alice", resp["username"])
		assert.Equal(t, "Smith", resp["last_name"])
		assert.NotContains(t, resp, "token")
	})
}
