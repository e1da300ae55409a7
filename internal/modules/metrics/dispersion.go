package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/nkoutso/portico/internal/domain"
)

// Dispersion measures how unevenly the holdings are performing: the
// population standard deviation of per-asset change percentages. A portfolio
// where everything moves together scores near zero; one winner and one
// crater scores high. Fewer than two assets always yield 0.
func Dispersion(assets []domain.Asset) float64 {
	if len(assets) < 2 {
		return 0
	}
	changes := make([]float64, len(assets))
	for i, a := range assets {
		changes[i] = a.ChangePercent()
	}
	return stat.PopStdDev(changes, nil)
}
