package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quantfolio/portfolio-server-go/internal/audit"
	apperrors "github.com/quantfolio/portfolio-server-go/internal/errors"
	"github.com/quantfolio/portfolio-server-go/internal/httputil"
	"github.com/quantfolio/portfolio-server-go/internal/middleware"
	"github.com/quantfolio/portfolio-server-go/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, apperrors.MissingRequired("Username, email, and password are required"))
		return
	}

	user, token, err := h.authService.Signup(r.Context(), service.SignupParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventSignup,
		UserID:   user.ID,
		Username: user.Username,
	})

	writeJSON(w, http.StatusCreated, authPayload(user, token))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, apperrors.MissingRequired("Username and password are required"))
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeInvalidCredentials {
			audit.LogFromRequest(r, audit.Event{
				Type:     audit.EventLoginFailure,
				Username: req.Username,
			})
		}
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventLoginSuccess,
		UserID:   user.ID,
		Username: user.Username,
	})

	writeJSON(w, http.StatusOK, authPayload(user, token))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	tokenHash := middleware.GetTokenHash(r.Context())

	if err := h.authService.Logout(r.Context(), user.ID, tokenHash); err != nil {
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventLogout,
		UserID:   user.ID,
		Username: user.Username,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully logged out",
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	writeJSON(w, http.StatusOK, userPayload(user))
}
