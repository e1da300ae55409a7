// Package handlers provides HTTP handlers for portfolio operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
	"github.com/nkoutso/portico/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	repo    *portfolio.Repository
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *portfolio.Repository, service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

type portfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleList handles GET /api/portfolios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		http.Error(w, "failed to list portfolios", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": list})
}

// HandleCreate handles POST /api/portfolios
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(domain.Portfolio{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create portfolio")
		http.Error(w, "failed to create portfolio", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /api/portfolios/{portfolioID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Get(chi.URLParam(r, "portfolioID"))
	if err != nil {
		http.Error(w, "portfolio not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /api/portfolios/{portfolioID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(chi.URLParam(r, "portfolioID")); err != nil {
		http.Error(w, "portfolio not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDashboard handles GET /api/portfolios/{portfolioID}/dashboard
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	if _, err := h.repo.Get(portfolioID); err != nil {
		http.Error(w, "portfolio not found", http.StatusNotFound)
		return
	}

	dashboard, err := h.service.Dashboard(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to build dashboard")
		http.Error(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
