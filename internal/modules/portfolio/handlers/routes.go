package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{portfolioID}", h.HandleGet)
		r.Delete("/{portfolioID}", h.HandleDelete)
		r.Get("/{portfolioID}/dashboard", h.HandleDashboard)
	})
}
