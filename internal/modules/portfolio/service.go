package portfolio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
	"github.com/nkoutso/portico/internal/modules/metrics"
)

// AssetSource supplies the point-in-time asset snapshot for a portfolio.
type AssetSource interface {
	ListByPortfolio(portfolioID string) ([]domain.Asset, error)
}

// PriceOverlay merges the realtime shadow prices into a snapshot.
type PriceOverlay interface {
	Overlay([]domain.Asset) []domain.Asset
}

// Dashboard is everything the summary screen renders for one portfolio.
type Dashboard struct {
	PortfolioID string                   `json:"portfolioId"`
	Summary     metrics.PortfolioSummary `json:"summary"`
	Allocation  []metrics.AllocationItem `json:"allocation"`
	RiskScore   int                      `json:"riskScore"`
	Dispersion  float64                  `json:"dispersion"`
	AssetCount  int                      `json:"assetCount"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// Service assembles dashboards from persisted assets plus realtime prices.
type Service struct {
	assets  AssetSource
	overlay PriceOverlay
	log     zerolog.Logger
}

// NewService creates a new dashboard service.
func NewService(assets AssetSource, overlay PriceOverlay, log zerolog.Logger) *Service {
	return &Service{
		assets:  assets,
		overlay: overlay,
		log:     log.With().Str("component", "portfolio_service").Logger(),
	}
}

// Dashboard recomputes the derived views for a portfolio. The result is
// ephemeral: nothing here is written back to storage.
func (s *Service) Dashboard(portfolioID string) (Dashboard, error) {
	assets, err := s.assets.ListByPortfolio(portfolioID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to load assets: %w", err)
	}
	if s.overlay != nil {
		assets = s.overlay.Overlay(assets)
	}

	allocation := metrics.Allocation(assets)
	return Dashboard{
		PortfolioID: portfolioID,
		Summary:     metrics.Summary(assets),
		Allocation:  allocation,
		RiskScore:   metrics.Risk(allocation),
		Dispersion:  metrics.Dispersion(assets),
		AssetCount:  len(assets),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
