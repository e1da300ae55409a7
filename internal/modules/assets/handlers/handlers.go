// Package handlers provides HTTP handlers for asset operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
	"github.com/nkoutso/portico/internal/modules/assets"
)

// PriceOverlay merges realtime shadow prices into a persisted asset
// snapshot. Implemented by the realtime price book.
type PriceOverlay interface {
	Overlay([]domain.Asset) []domain.Asset
}

// Tracker is notified after mutations so a live realtime subscription can
// pick up added and removed assets. Implemented by the channel manager.
type Tracker interface {
	RefreshTracked() error
}

// Handler handles asset HTTP requests
type Handler struct {
	repo    *assets.Repository
	overlay PriceOverlay
	tracker Tracker
	log     zerolog.Logger
}

// NewHandler creates a new asset handler. tracker may be nil.
func NewHandler(repo *assets.Repository, overlay PriceOverlay, tracker Tracker, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		overlay: overlay,
		tracker: tracker,
		log:     log.With().Str("handler", "assets").Logger(),
	}
}

func (h *Handler) refreshTracked() {
	if h.tracker == nil {
		return
	}
	if err := h.tracker.RefreshTracked(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to refresh realtime tracked set")
	}
}

// assetRequest is the create/update payload.
type assetRequest struct {
	AssetType     string  `json:"assetType"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	PurchasePrice float64 `json:"purchasePrice"`
	CurrentPrice  float64 `json:"currentPrice"`
	PurchaseDate  string  `json:"purchaseDate"`
}

func (req *assetRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.Quantity <= 0 {
		return "quantity must be greater than 0"
	}
	if req.PurchasePrice < 0 || req.CurrentPrice < 0 {
		return "prices must not be negative"
	}
	return ""
}

func (req *assetRequest) toAsset() domain.Asset {
	a := domain.Asset{
		AssetType:     domain.AssetType(req.AssetType).Normalize(),
		Symbol:        strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Name:          strings.TrimSpace(req.Name),
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		CurrentPrice:  req.CurrentPrice,
	}
	if ts, err := time.Parse("2006-01-02", req.PurchaseDate); err == nil {
		a.PurchaseDate = ts
	}
	return a
}

// HandleList handles GET /api/portfolios/{portfolioID}/assets.
// Query params: search, type, sort (name|value|performance), order (asc|desc).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")

	list, err := h.repo.ListByPortfolio(portfolioID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Failed to list assets")
		http.Error(w, "failed to list assets", http.StatusInternalServerError)
		return
	}
	if h.overlay != nil {
		list = h.overlay.Overlay(list)
	}

	q := assets.Query{
		Search:    r.URL.Query().Get("search"),
		Type:      r.URL.Query().Get("type"),
		SortBy:    assets.SortField(r.URL.Query().Get("sort")),
		Ascending: r.URL.Query().Get("order") == "asc",
	}

	writeJSON(w, http.StatusOK, map[string]any{"assets": assets.Apply(list, q)})
}

// HandleCreate handles POST /api/portfolios/{portfolioID}/assets
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	a := req.toAsset()
	a.PortfolioID = chi.URLParam(r, "portfolioID")

	created, err := h.repo.Create(a)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create asset")
		http.Error(w, "failed to create asset", http.StatusInternalServerError)
		return
	}

	h.refreshTracked()
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /api/portfolios/{portfolioID}/assets/{assetID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	a := req.toAsset()
	a.ID = chi.URLParam(r, "assetID")
	a.PortfolioID = chi.URLParam(r, "portfolioID")

	updated, err := h.repo.Update(a)
	if err != nil {
		h.log.Warn().Err(err).Str("asset_id", a.ID).Msg("Failed to update asset")
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /api/portfolios/{portfolioID}/assets/{assetID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	if err := h.repo.Delete(assetID); err != nil {
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}
	h.refreshTracked()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
