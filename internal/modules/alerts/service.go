package alerts

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
)

// Service evaluates armed alerts against fresh prices. Alerts are one-shot:
// once triggered they stay triggered until the user deletes them.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new alert service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "alert_service").Logger(),
	}
}

// Evaluate checks every armed alert against the given priced assets and
// marks the ones that crossed their threshold. Returns the alerts that
// fired during this pass.
func (s *Service) Evaluate(assets []domain.Asset) ([]Alert, error) {
	armed, err := s.repo.ListArmed()
	if err != nil {
		return nil, fmt.Errorf("failed to load armed alerts: %w", err)
	}
	if len(armed) == 0 {
		return nil, nil
	}

	prices := make(map[string]float64, len(assets))
	for _, a := range assets {
		prices[a.ID] = a.UnitPrice()
	}

	now := time.Now().UTC()
	var fired []Alert
	for _, alert := range armed {
		price, ok := prices[alert.AssetID]
		if !ok {
			continue
		}
		if !crossed(alert, price) {
			continue
		}
		if err := s.repo.MarkTriggered(alert.ID, now); err != nil {
			s.log.Error().Err(err).Str("alert_id", alert.ID).Msg("Failed to mark alert triggered")
			continue
		}
		alert.Triggered = true
		alert.TriggeredAt = &now
		fired = append(fired, alert)
		s.log.Info().
			Str("alert_id", alert.ID).
			Str("asset_id", alert.AssetID).
			Float64("price", price).
			Float64("threshold", alert.Threshold).
			Msg("Price alert triggered")
	}
	return fired, nil
}

func crossed(a Alert, price float64) bool {
	switch a.Direction {
	case Above:
		return price >= a.Threshold
	case Below:
		return price <= a.Threshold
	default:
		return false
	}
}
