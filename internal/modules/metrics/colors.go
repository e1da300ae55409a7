package metrics

import "github.com/nkoutso/portico/internal/domain"

// typeColors assigns a fixed chart color to every asset type. The mapping is
// total: anything unrecognized normalizes to "other" before lookup, so the
// chart legend never renders an uncolored slice.
var typeColors = map[domain.AssetType]string{
	domain.AssetStock:       "#2563EB",
	domain.AssetCrypto:      "#F59E0B",
	domain.AssetCommodity:   "#D97706",
	domain.AssetRealEstate:  "#10B981",
	domain.AssetFixedIncome: "#6366F1",
	domain.AssetOther:       "#9CA3AF",
}

// TypeColor returns the presentation color for an asset type.
func TypeColor(t domain.AssetType) string {
	return typeColors[t.Normalize()]
}
