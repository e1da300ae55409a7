// Package metrics derives portfolio-level views from a raw asset collection.
//
// Every function here is pure: identical inputs always produce identical
// outputs, nothing is mutated, and no input can make them return an error.
// Validation of asset fields happens at the HTTP boundary, not here.
package metrics

import (
	"math"

	"github.com/nkoutso/portico/internal/domain"
)

// Performer identifies the best or worst holding on the dashboard.
type Performer struct {
	Name          string  `json:"name"`
	ChangePercent float64 `json:"changePercent"`
}

// PortfolioSummary is the aggregate view rendered at the top of the
// dashboard. It is recomputed on every call and never persisted.
type PortfolioSummary struct {
	TotalValue         float64    `json:"totalValue"`
	TotalInvested      float64    `json:"totalInvested"`
	TodayChange        float64    `json:"todayChange"`
	TodayChangePercent float64    `json:"todayChangePercent"`
	BestPerformer      *Performer `json:"bestPerformer"`
	WorstPerformer     *Performer `json:"worstPerformer"`
}

// AllocationItem is the value share of one asset type.
type AllocationItem struct {
	Type       domain.AssetType `json:"type"`
	Value      float64          `json:"value"`
	Percentage float64          `json:"percentage"`
	Color      string           `json:"color"`
}

// Summary computes the aggregate portfolio view in a single pass.
//
// Best/worst performers are tracked with strict comparisons seeded by the
// first asset, so ties keep the first-encountered holding. An empty input
// yields the zero summary with both performers nil; that is a defined
// terminal case, not an error.
func Summary(assets []domain.Asset) PortfolioSummary {
	var s PortfolioSummary

	for i, a := range assets {
		s.TotalValue += a.MarketValue()
		s.TotalInvested += a.CostBasis()

		change := a.ChangePercent()
		if i == 0 {
			s.BestPerformer = &Performer{Name: a.Name, ChangePercent: change}
			s.WorstPerformer = &Performer{Name: a.Name, ChangePercent: change}
			continue
		}
		if change > s.BestPerformer.ChangePercent {
			s.BestPerformer = &Performer{Name: a.Name, ChangePercent: change}
		}
		if change < s.WorstPerformer.ChangePercent {
			s.WorstPerformer = &Performer{Name: a.Name, ChangePercent: change}
		}
	}

	s.TodayChange = s.TotalValue - s.TotalInvested
	if s.TotalInvested > 0 {
		s.TodayChangePercent = s.TodayChange / s.TotalInvested * 100
	}

	return s
}

// Allocation groups assets by type and computes each type's share of total
// value. The returned slice is ordered by first occurrence of each type in
// the input; chart legends depend on that order being deterministic.
// Unrecognized types bucket into "other".
func Allocation(assets []domain.Asset) []AllocationItem {
	var (
		order  []domain.AssetType
		values = make(map[domain.AssetType]float64)
		total  float64
	)

	for _, a := range assets {
		t := a.AssetType.Normalize()
		if _, seen := values[t]; !seen {
			order = append(order, t)
		}
		v := a.MarketValue()
		values[t] += v
		total += v
	}

	items := make([]AllocationItem, 0, len(order))
	for _, t := range order {
		item := AllocationItem{
			Type:  t,
			Value: values[t],
			Color: TypeColor(t),
		}
		if total > 0 {
			item.Percentage = values[t] / total * 100
		}
		items = append(items, item)
	}
	return items
}

// riskWeights scores each asset type on a 0-10 scale.
var riskWeights = map[domain.AssetType]float64{
	domain.AssetCrypto:      9,
	domain.AssetStock:       6,
	domain.AssetCommodity:   5,
	domain.AssetRealEstate:  4,
	domain.AssetFixedIncome: 2,
	domain.AssetOther:       5,
}

// defaultRiskScore is reported when there is nothing to weigh.
const defaultRiskScore = 5

// Risk computes the 0-10 composite risk score as the percentage-weighted
// average of per-type risk weights. It deliberately takes the allocation
// rather than raw assets so callers can cache and reuse the allocation.
func Risk(allocation []AllocationItem) int {
	var weighted, totalPct float64
	for _, item := range allocation {
		weight, ok := riskWeights[item.Type.Normalize()]
		if !ok {
			weight = riskWeights[domain.AssetOther]
		}
		weighted += weight * item.Percentage
		totalPct += item.Percentage
	}
	if totalPct == 0 {
		return defaultRiskScore
	}
	return int(math.Round(weighted / totalPct))
}
