// Package handlers provides HTTP handlers for price alert operations.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/modules/alerts"
)

// Handler handles alert HTTP requests
type Handler struct {
	repo *alerts.Repository
	log  zerolog.Logger
}

// NewHandler creates a new alert handler
func NewHandler(repo *alerts.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "alerts").Logger(),
	}
}

type alertRequest struct {
	AssetID   string  `json:"assetId"`
	Direction string  `json:"direction"`
	Threshold float64 `json:"threshold"`
}

// HandleList handles GET /api/alerts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list alerts")
		http.Error(w, "failed to list alerts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list})
}

// HandleCreate handles POST /api/alerts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AssetID == "" {
		http.Error(w, "assetId is required", http.StatusBadRequest)
		return
	}
	direction := alerts.Direction(req.Direction)
	if !direction.Valid() {
		http.Error(w, "direction must be 'above' or 'below'", http.StatusBadRequest)
		return
	}
	if req.Threshold <= 0 {
		http.Error(w, "threshold must be greater than 0", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(alerts.Alert{
		AssetID:   req.AssetID,
		Direction: direction,
		Threshold: req.Threshold,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create alert")
		http.Error(w, "failed to create alert", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleDelete handles DELETE /api/alerts/{alertID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(chi.URLParam(r, "alertID")); err != nil {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
