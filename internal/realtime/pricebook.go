// Package realtime owns the live price subscription for the tracked
// portfolio: the connection state machine, the in-memory shadow copy of
// current prices, and the manual reconnect control surface.
package realtime

import (
	"sync"
	"time"

	"github.com/nkoutso/portico/internal/domain"
)

// PricePoint is one entry in the shadow price book.
type PricePoint struct {
	Price float64   `json:"price" msgpack:"price"`
	At    time.Time `json:"at" msgpack:"at"`
}

// PriceBook is the in-memory mirror of current prices, keyed by asset ID.
// It is separate from the authoritative records in sqlite: realtime events
// land here first and are merged into snapshots on read. Writes come from
// the channel manager and the refresh job; reads from the HTTP layer.
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]PricePoint
}

// NewPriceBook creates an empty price book.
func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]PricePoint)}
}

// Apply records a price for an asset. Events are applied in arrival order;
// the latest write wins regardless of its timestamp.
func (b *PriceBook) Apply(assetID string, price float64, at time.Time) {
	b.mu.Lock()
	b.prices[assetID] = PricePoint{Price: price, At: at}
	b.mu.Unlock()
}

// Get returns the shadow price for an asset, if any.
func (b *PriceBook) Get(assetID string) (PricePoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[assetID]
	return p, ok
}

// Len returns the number of assets with a shadow price.
func (b *PriceBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}

// Overlay returns a copy of the assets with shadow prices merged into
// CurrentPrice. Assets without a shadow entry are returned unchanged.
func (b *PriceBook) Overlay(assets []domain.Asset) []domain.Asset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Asset, len(assets))
	copy(out, assets)
	for i := range out {
		if p, ok := b.prices[out[i].ID]; ok {
			out[i].CurrentPrice = p.Price
		}
	}
	return out
}

// Snapshot returns a copy of the book contents.
func (b *PriceBook) Snapshot() map[string]PricePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]PricePoint, len(b.prices))
	for k, v := range b.prices {
		out[k] = v
	}
	return out
}

// Restore replaces the book contents. Used when loading a persisted
// snapshot at startup.
func (b *PriceBook) Restore(prices map[string]PricePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prices = make(map[string]PricePoint, len(prices))
	for k, v := range prices {
		b.prices[k] = v
	}
}
