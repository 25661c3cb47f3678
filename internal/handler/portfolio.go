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

type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	portfolios, err := h.portfolioService.List(r.Context(), user.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, portfolios)
}

type createPortfolioRequest struct {
	Name        string          `json:"name"`
	Sectors     json.RawMessage `json:"sectors"`
	Commodities json.RawMessage `json:"commodities"`
	Result      json.RawMessage `json:"result"`
}

func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if jsonAbsent(req.Result) {
		httputil.WriteError(w, apperrors.MissingRequired("'result' field is required"))
		return
	}

	input := service.CreatePortfolioInput{
		UserID: user.ID,
		Name:   req.Name,
		Result: req.Result,
	}
	if !jsonAbsent(req.Sectors) {
		input.Sectors = req.Sectors
	}
	if !jsonAbsent(req.Commodities) {
		input.Commodities = req.Commodities
	}

	portfolio, err := h.portfolioService.Create(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventPortfolioCreate,
		UserID: user.ID,
		Details: map[string]interface{}{
			"portfolio_id": portfolio.ID,
		},
	})

	writeJSON(w, http.StatusCreated, portfolio)
}

func (h *PortfolioHandler) Latest(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	portfolio, err := h.portfolioService.Latest(r.Context(), user.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, portfolio)
}
