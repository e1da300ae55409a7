package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all asset routes under a portfolio.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios/{portfolioID}/assets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Put("/{assetID}", h.HandleUpdate)
		r.Delete("/{assetID}", h.HandleDelete)
	})
}
