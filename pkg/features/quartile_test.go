package features

import (
	"testing"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

func TestComputeBoundsMonotonic(t *testing.T) {
	values := []float64{310, 95, 180, 140, 220, 88, 150, 260, 120, 205}
	bounds, ok := ComputeBounds(values)
	if !ok {
		t.Fatal("expected bounds to be computable")
	}
	if bounds.Q1 > bounds.Q2 || bounds.Q2 > bounds.Q3 {
		t.Fatalf("expected Q1 <= Q2 <= Q3, got %+v", bounds)
	}
}

func TestComputeBoundsEmpty(t *testing.T) {
	if _, ok := ComputeBounds(nil); ok {
		t.Fatal("expected no bounds for an empty cohort")
	}
}

func TestComputeBoundsDoesNotMutateInput(t *testing.T) {
	values := []float64{300, 100, 200}
	ComputeBounds(values)
	if values[0] != 300 || values[1] != 100 || values[2] != 200 {
		t.Fatalf("expected input order preserved, got %v", values)
	}
}

// A value exactly at a cutoff lands in the more severe quartile.
func TestAssignQuartileInclusiveLowerBound(t *testing.T) {
	bounds := models.QuartileBounds{Q1: 100, Q2: 160, Q3: 210}

	cases := []struct {
		sf   float64
		want int
	}{
		{80, 1},
		{100, 1}, // exactly at Q1
		{100.01, 2},
		{160, 2}, // exactly at Q2
		{210, 3}, // exactly at Q3
		{210.5, 4},
	}
	for _, c := range cases {
		if got := AssignQuartile(c.sf, bounds); got != c.want {
			t.Fatalf("AssignQuartile(%v) = %d, want %d", c.sf, got, c.want)
		}
	}
}
