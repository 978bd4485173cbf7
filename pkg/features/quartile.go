package features

import (
	"math"
	"sort"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// ComputeBounds derives the cohort-relative S/F quartile cut points from
// the flagged cohort's onset severities. Boundaries are a property of the
// cohort, not fixed thresholds, and must be recomputed whenever the cohort
// changes. ok is false when no stay contributed an S/F value.
func ComputeBounds(values []float64) (models.QuartileBounds, bool) {
	if len(values) == 0 {
		return models.QuartileBounds{}, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return models.QuartileBounds{
		Q1: percentile(sorted, 0.25),
		Q2: percentile(sorted, 0.50),
		Q3: percentile(sorted, 0.75),
	}, true
}

// percentile interpolates linearly between order statistics, matching the
// published analysis. Input must be sorted ascending.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// AssignQuartile maps an onset S/F to its severity quartile, 1 being the
// most severe. The lower bound is inclusive: a value exactly at a cut
// point is assigned to the more severe quartile.
func AssignQuartile(sf float64, bounds models.QuartileBounds) int {
	switch {
	case sf <= bounds.Q1:
		return 1
	case sf <= bounds.Q2:
		return 2
	case sf <= bounds.Q3:
		return 3
	default:
		return 4
	}
}
