// Package domain holds the core types shared across modules. It is pure:
// no infrastructure dependencies, no side effects.
package domain

import "time"

// AssetType classifies a holding for allocation and risk purposes.
type AssetType string

const (
	AssetStock       AssetType = "stock"
	AssetCrypto      AssetType = "crypto"
	AssetCommodity   AssetType = "commodity"
	AssetRealEstate  AssetType = "real_estate"
	AssetFixedIncome AssetType = "fixed_income"
	AssetOther       AssetType = "other"
)

// AllTypes lists every recognized asset type, in display order.
var AllTypes = []AssetType{
	AssetStock,
	AssetCrypto,
	AssetCommodity,
	AssetRealEstate,
	AssetFixedIncome,
	AssetOther,
}

// Valid reports whether t is one of the recognized types.
func (t AssetType) Valid() bool {
	switch t {
	case AssetStock, AssetCrypto, AssetCommodity, AssetRealEstate, AssetFixedIncome, AssetOther:
		return true
	}
	return false
}

// Normalize maps unrecognized types to AssetOther so downstream grouping
// never has to handle arbitrary strings.
func (t AssetType) Normalize() AssetType {
	if t.Valid() {
		return t
	}
	return AssetOther
}

// Asset is a single holding inside a portfolio.
type Asset struct {
	ID            string    `json:"id"`
	PortfolioID   string    `json:"portfolioId"`
	AssetType     AssetType `json:"assetType"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Quantity      float64   `json:"quantity"`
	PurchasePrice float64   `json:"purchasePrice"`
	CurrentPrice  float64   `json:"currentPrice"`
	PurchaseDate  time.Time `json:"purchaseDate"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UnitPrice is the price a valuation uses: the current price when one is
// known, otherwise the purchase price. A zero current price means "no quote
// yet", never "worthless".
func (a Asset) UnitPrice() float64 {
	if a.CurrentPrice != 0 {
		return a.CurrentPrice
	}
	return a.PurchasePrice
}

// MarketValue is the holding's present value.
func (a Asset) MarketValue() float64 {
	return a.UnitPrice() * a.Quantity
}

// CostBasis is what was originally paid for the holding.
func (a Asset) CostBasis() float64 {
	return a.PurchasePrice * a.Quantity
}

// ChangePercent is the gain or loss relative to cost. A non-positive cost
// basis yields zero rather than a division blowup.
func (a Asset) ChangePercent() float64 {
	cost := a.CostBasis()
	if cost <= 0 {
		return 0
	}
	return (a.MarketValue() - cost) / cost * 100
}

// Portfolio is a named collection of assets.
type Portfolio struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PriceEvent is one realtime price update from the feed. A zero Timestamp
// means the feed did not date it; receivers substitute their receipt time.
type PriceEvent struct {
	AssetID   string
	Price     float64
	Timestamp time.Time
}
