// Package assets provides asset persistence and the list-view query
// pipeline (search, type filter, sort).
package assets

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nkoutso/portico/internal/domain"
)

// SortField selects the sort key for list views.
type SortField string

const (
	SortByName        SortField = "name"
	SortByValue       SortField = "value"
	SortByPerformance SortField = "performance"
)

// TypeAll disables the type filter.
const TypeAll = "all"

// Query describes one list-view request.
type Query struct {
	// Search is matched case-insensitively as a substring of name or symbol.
	Search string
	// Type is an exact asset-type filter; "all" or empty disables it.
	Type string
	// SortBy defaults to name ordering when empty.
	SortBy SortField
	// Ascending flips the comparator; value and performance sorts are
	// descending by default.
	Ascending bool
}

// nameCollator compares names the way the platform's list views do:
// language-neutral, ignoring case and diacritics. Collators are not safe for
// concurrent use, so each Apply call takes its own.
func nameCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics)
}

// Apply runs the query pipeline over a snapshot of assets and returns a new
// slice; the input is never reordered. Sorting is stable so rows with equal
// keys keep their relative order across recomputations instead of jittering.
func Apply(assets []domain.Asset, q Query) []domain.Asset {
	out := make([]domain.Asset, 0, len(assets))

	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, a := range assets {
		if q.Type != "" && q.Type != TypeAll && domain.AssetType(q.Type) != a.AssetType {
			continue
		}
		if search != "" && !matchesSearch(a, search) {
			continue
		}
		out = append(out, a)
	}

	sortAssets(out, q)
	return out
}

func matchesSearch(a domain.Asset, loweredSearch string) bool {
	if strings.Contains(strings.ToLower(a.Name), loweredSearch) {
		return true
	}
	return a.Symbol != "" && strings.Contains(strings.ToLower(a.Symbol), loweredSearch)
}

func sortAssets(assets []domain.Asset, q Query) {
	switch q.SortBy {
	case SortByValue:
		sortByFloat(assets, q.Ascending, domain.Asset.MarketValue)
	case SortByPerformance:
		sortByFloat(assets, q.Ascending, domain.Asset.ChangePercent)
	default:
		coll := nameCollator()
		sort.SliceStable(assets, func(i, j int) bool {
			cmp := coll.CompareString(assets[i].Name, assets[j].Name)
			if q.Ascending {
				return cmp < 0
			}
			return cmp > 0
		})
	}
}

// sortByFloat sorts descending by key unless ascending is requested. The
// key functions reuse the same valuation helpers as the metrics calculator,
// which keeps list ordering numerically consistent with the dashboard.
func sortByFloat(assets []domain.Asset, ascending bool, key func(domain.Asset) float64) {
	sort.SliceStable(assets, func(i, j int) bool {
		if ascending {
			return key(assets[i]) < key(assets[j])
		}
		return key(assets[i]) > key(assets[j])
	})
}
