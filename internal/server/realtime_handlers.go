package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/realtime"
)

// RealtimeHandlers exposes the price channel manager over HTTP: the UI polls
// the connection state and drives watch/unwatch/reconnect from here.
type RealtimeHandlers struct {
	manager *realtime.Manager
	log     zerolog.Logger
}

func NewRealtimeHandlers(manager *realtime.Manager, log zerolog.Logger) *RealtimeHandlers {
	return &RealtimeHandlers{
		manager: manager,
		log:     log.With().Str("component", "realtime_handlers").Logger(),
	}
}

// RegisterRoutes registers the realtime control routes.
func (h *RealtimeHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/realtime", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Post("/watch", h.HandleWatch)
		r.Post("/stop", h.HandleStop)
		r.Post("/reconnect", h.HandleReconnect)
	})
}

// HandleStatus returns the current connection state.
// GET /api/realtime/status
func (h *RealtimeHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.manager.State())
}

// HandleWatch starts streaming prices for a portfolio.
// POST /api/realtime/watch {"portfolio_id": "..."}
func (h *RealtimeHandlers) HandleWatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PortfolioID string `json:"portfolio_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PortfolioID == "" {
		http.Error(w, "portfolio_id is required", http.StatusBadRequest)
		return
	}

	h.manager.Start(req.PortfolioID)
	h.writeJSON(w, h.manager.State())
}

// HandleStop tears the subscription down.
// POST /api/realtime/stop
func (h *RealtimeHandlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	h.writeJSON(w, h.manager.State())
}

// HandleReconnect re-dials the current portfolio's channel.
// POST /api/realtime/reconnect
func (h *RealtimeHandlers) HandleReconnect(w http.ResponseWriter, r *http.Request) {
	h.manager.Reconnect()
	h.writeJSON(w, h.manager.State())
}

func (h *RealtimeHandlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
