// Package jobs holds the scheduled background work: the pull refresh that
// keeps stored prices current between realtime updates.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
	"github.com/nkoutso/portico/internal/modules/alerts"
	"github.com/nkoutso/portico/internal/realtime"
)

// QuoteSource fetches current prices keyed by symbol.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) (map[string]float64, error)
}

// AssetStore is the slice of the asset repository the refresh needs.
type AssetStore interface {
	ListAll() ([]domain.Asset, error)
	UpdateCurrentPrice(id string, price float64) error
}

// AlertEvaluator re-checks armed alerts after prices move.
type AlertEvaluator interface {
	Evaluate(assets []domain.Asset) ([]alerts.Alert, error)
}

// PriceRefresh walks every stored asset, pulls fresh quotes and writes them
// back to both the database and the shadow price book.
type PriceRefresh struct {
	assets AssetStore
	quotes QuoteSource
	book   *realtime.PriceBook
	alerts AlertEvaluator
	log    zerolog.Logger
}

// NewPriceRefresh wires a refresh job. alerts may be nil when alerting is
// disabled.
func NewPriceRefresh(assets AssetStore, quotes QuoteSource, book *realtime.PriceBook, alerts AlertEvaluator, log zerolog.Logger) *PriceRefresh {
	return &PriceRefresh{
		assets: assets,
		quotes: quotes,
		book:   book,
		alerts: alerts,
		log:    log.With().Str("component", "price_refresh").Logger(),
	}
}

// Run executes one refresh pass. Partial failures are logged and skipped so
// one bad symbol never blocks the rest of the batch.
func (j *PriceRefresh) Run(ctx context.Context) error {
	assets, err := j.assets.ListAll()
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	// Dedupe symbols; multiple assets can reference the same instrument.
	seen := make(map[string]struct{}, len(assets))
	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.Symbol]; ok {
			continue
		}
		seen[a.Symbol] = struct{}{}
		symbols = append(symbols, a.Symbol)
	}

	quotes, err := j.quotes.Quotes(ctx, symbols)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	updated := 0
	for i := range assets {
		price, ok := quotes[assets[i].Symbol]
		if !ok || price <= 0 {
			continue
		}
		if err := j.assets.UpdateCurrentPrice(assets[i].ID, price); err != nil {
			j.log.Warn().Err(err).Str("asset_id", assets[i].ID).Msg("Failed to persist refreshed price")
			continue
		}
		j.book.Apply(assets[i].ID, price, now)
		assets[i].CurrentPrice = price
		updated++
	}

	if j.alerts != nil && updated > 0 {
		fired, err := j.alerts.Evaluate(assets)
		if err != nil {
			j.log.Warn().Err(err).Msg("Alert evaluation failed after refresh")
		} else if len(fired) > 0 {
			j.log.Info().Int("fired", len(fired)).Msg("Alerts triggered by refresh")
		}
	}

	j.log.Info().Int("assets", len(assets)).Int("updated", updated).Msg("Price refresh complete")
	return nil
}
