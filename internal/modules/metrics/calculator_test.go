package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkoutso/portico/internal/domain"
)

func asset(t domain.AssetType, name string, qty, purchase, current float64) domain.Asset {
	return domain.Asset{
		ID:            name,
		AssetType:     t,
		Name:          name,
		Quantity:      qty,
		PurchasePrice: purchase,
		CurrentPrice:  current,
	}
}

// threeAssetPortfolio is the reference scenario used across the summary,
// allocation, and risk tests: stock +25%, crypto -10%, fixed income flat.
func threeAssetPortfolio() []domain.Asset {
	return []domain.Asset{
		asset(domain.AssetStock, "Vanguard ETF", 10, 80, 100),
		asset(domain.AssetCrypto, "Bitcoin", 2, 1000, 900),
		asset(domain.AssetFixedIncome, "T-Bills", 50, 10, 10),
	}
}

func TestSummary_ThreeAssetScenario(t *testing.T) {
	s := Summary(threeAssetPortfolio())

	assert.InDelta(t, 3300, s.TotalValue, 0.01)
	assert.InDelta(t, 3300, s.TotalInvested, 0.01)
	assert.InDelta(t, 0, s.TodayChange, 0.01)
	assert.InDelta(t, 0, s.TodayChangePercent, 0.01)

	require.NotNil(t, s.BestPerformer)
	require.NotNil(t, s.WorstPerformer)
	assert.Equal(t, "Vanguard ETF", s.BestPerformer.Name)
	assert.InDelta(t, 25, s.BestPerformer.ChangePercent, 0.01)
	assert.Equal(t, "Bitcoin", s.WorstPerformer.Name)
	assert.InDelta(t, -10, s.WorstPerformer.ChangePercent, 0.01)
}

func TestSummary_EmptyInputIsZeroTerminal(t *testing.T) {
	s := Summary(nil)

	assert.Zero(t, s.TotalValue)
	assert.Zero(t, s.TotalInvested)
	assert.Zero(t, s.TodayChange)
	assert.Zero(t, s.TodayChangePercent)
	assert.Nil(t, s.BestPerformer)
	assert.Nil(t, s.WorstPerformer)
}

func TestSummary_SingleAssetPerformersCoincide(t *testing.T) {
	s := Summary([]domain.Asset{asset(domain.AssetStock, "Solo", 5, 100, 110)})

	require.NotNil(t, s.BestPerformer)
	require.NotNil(t, s.WorstPerformer)
	assert.Equal(t, s.BestPerformer.Name, s.WorstPerformer.Name)
	assert.Equal(t, s.BestPerformer.ChangePercent, s.WorstPerformer.ChangePercent)
}

func TestSummary_TiesKeepFirstEncountered(t *testing.T) {
	// Both assets at +10%: strict comparisons must keep the first one.
	s := Summary([]domain.Asset{
		asset(domain.AssetStock, "First", 1, 100, 110),
		asset(domain.AssetStock, "Second", 2, 50, 55),
	})

	require.NotNil(t, s.BestPerformer)
	assert.Equal(t, "First", s.BestPerformer.Name)
	assert.Equal(t, "First", s.WorstPerformer.Name)
}

func TestSummary_ZeroCurrentPriceFallsBackToPurchase(t *testing.T) {
	// A present-but-zero current price values the holding at purchase price,
	// not zero. Known conflation of "free" and "unpriced"; preserved on
	// purpose because clients already depend on it.
	s := Summary([]domain.Asset{asset(domain.AssetCrypto, "Unpriced", 3, 200, 0)})

	assert.InDelta(t, 600, s.TotalValue, 0.01)
	assert.InDelta(t, 0, s.BestPerformer.ChangePercent, 0.01)
}

func TestSummary_ZeroCostAssetReportsZeroChange(t *testing.T) {
	s := Summary([]domain.Asset{asset(domain.AssetOther, "Airdrop", 100, 0, 2)})

	assert.InDelta(t, 200, s.TotalValue, 0.01)
	assert.Zero(t, s.TotalInvested)
	assert.Zero(t, s.TodayChangePercent)
	assert.Zero(t, s.BestPerformer.ChangePercent)
}

func TestSummary_ValueAdditivity(t *testing.T) {
	assets := threeAssetPortfolio()
	assets = append(assets,
		asset(domain.AssetRealEstate, "REIT", 12, 55.5, 61.25),
		asset(domain.AssetCommodity, "Gold", 0.75, 1800, 0),
	)

	var want float64
	for _, a := range assets {
		want += a.MarketValue()
	}

	assert.InDelta(t, want, Summary(assets).TotalValue, 0.01)
}

func TestSummary_PerformerBounds(t *testing.T) {
	assets := threeAssetPortfolio()
	s := Summary(assets)

	require.NotNil(t, s.BestPerformer)
	require.NotNil(t, s.WorstPerformer)
	assert.GreaterOrEqual(t, s.BestPerformer.ChangePercent, s.WorstPerformer.ChangePercent)
	for _, a := range assets {
		assert.LessOrEqual(t, a.ChangePercent(), s.BestPerformer.ChangePercent)
		assert.GreaterOrEqual(t, a.ChangePercent(), s.WorstPerformer.ChangePercent)
	}
}

func TestSummary_Idempotent(t *testing.T) {
	assets := threeAssetPortfolio()
	first := Summary(assets)
	second := Summary(assets)

	assert.Equal(t, first.TotalValue, second.TotalValue)
	assert.Equal(t, first.TotalInvested, second.TotalInvested)
	assert.Equal(t, *first.BestPerformer, *second.BestPerformer)
	assert.Equal(t, *first.WorstPerformer, *second.WorstPerformer)
}

func TestAllocation_InsertionOrderAndClosure(t *testing.T) {
	items := Allocation(threeAssetPortfolio())

	require.Len(t, items, 3)
	assert.Equal(t, domain.AssetStock, items[0].Type)
	assert.Equal(t, domain.AssetCrypto, items[1].Type)
	assert.Equal(t, domain.AssetFixedIncome, items[2].Type)

	assert.InDelta(t, 30.30, items[0].Percentage, 0.01)
	assert.InDelta(t, 54.55, items[1].Percentage, 0.01)
	assert.InDelta(t, 15.15, items[2].Percentage, 0.01)

	var totalPct float64
	for _, item := range items {
		totalPct += item.Percentage
	}
	assert.InDelta(t, 100, totalPct, 1e-9)
}

func TestAllocation_GroupsRepeatedTypes(t *testing.T) {
	items := Allocation([]domain.Asset{
		asset(domain.AssetCrypto, "BTC", 1, 100, 100),
		asset(domain.AssetStock, "AAPL", 1, 100, 100),
		asset(domain.AssetCrypto, "ETH", 1, 100, 100),
	})

	require.Len(t, items, 2)
	assert.Equal(t, domain.AssetCrypto, items[0].Type)
	assert.InDelta(t, 200, items[0].Value, 0.01)
	assert.Equal(t, domain.AssetStock, items[1].Type)
}

func TestAllocation_UnknownTypeBucketsIntoOther(t *testing.T) {
	items := Allocation([]domain.Asset{
		asset(domain.AssetType("collectible"), "Card", 1, 50, 0),
	})

	require.Len(t, items, 1)
	assert.Equal(t, domain.AssetOther, items[0].Type)
	assert.Equal(t, TypeColor(domain.AssetOther), items[0].Color)
}

func TestAllocation_ZeroTotalValueYieldsZeroPercentages(t *testing.T) {
	items := Allocation([]domain.Asset{
		asset(domain.AssetStock, "Worthless", 10, 0, 0),
	})

	require.Len(t, items, 1)
	assert.Zero(t, items[0].Percentage)
}

func TestAllocation_Empty(t *testing.T) {
	assert.Empty(t, Allocation(nil))
}

func TestRisk(t *testing.T) {
	tests := []struct {
		name       string
		allocation []AllocationItem
		want       int
	}{
		{
			name:       "empty allocation defaults to 5",
			allocation: nil,
			want:       5,
		},
		{
			name: "zero total percentage defaults to 5",
			allocation: []AllocationItem{
				{Type: domain.AssetStock, Percentage: 0},
			},
			want: 5,
		},
		{
			name: "pure crypto",
			allocation: []AllocationItem{
				{Type: domain.AssetCrypto, Percentage: 100},
			},
			want: 9,
		},
		{
			name: "pure fixed income",
			allocation: []AllocationItem{
				{Type: domain.AssetFixedIncome, Percentage: 100},
			},
			want: 2,
		},
		{
			name: "unknown type weighs like other",
			allocation: []AllocationItem{
				{Type: domain.AssetType("mystery"), Percentage: 100},
			},
			want: 5,
		},
		{
			name: "reference scenario rounds to 7",
			allocation: []AllocationItem{
				{Type: domain.AssetStock, Percentage: 30.30},
				{Type: domain.AssetCrypto, Percentage: 54.55},
				{Type: domain.AssetFixedIncome, Percentage: 15.15},
			},
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Risk(tt.allocation))
		})
	}
}

func TestRisk_FromComputedAllocation(t *testing.T) {
	assert.Equal(t, 7, Risk(Allocation(threeAssetPortfolio())))
}

func TestDispersion(t *testing.T) {
	assert.Zero(t, Dispersion(nil))
	assert.Zero(t, Dispersion([]domain.Asset{asset(domain.AssetStock, "Solo", 1, 10, 12)}))

	// +25, -10 and 0 percent changes: mean 5, population std dev ~14.72.
	got := Dispersion(threeAssetPortfolio())
	assert.InDelta(t, 14.72, got, 0.01)
}
