package stats

import (
	"math"
	"testing"
)

func TestWelchTIdenticalGroups(t *testing.T) {
	x := []float64{10, 12, 14, 16, 18}
	res := WelchT(x, x)
	if res.Statistic != 0 {
		t.Fatalf("expected zero statistic, got %v", res.Statistic)
	}
	if res.PValue < 0.99 {
		t.Fatalf("expected p-value near 1, got %v", res.PValue)
	}
}

func TestWelchTSeparatedGroups(t *testing.T) {
	x := []float64{10, 11, 12, 11, 10, 12, 11, 10}
	y := []float64{30, 31, 32, 31, 30, 32, 31, 30}
	res := WelchT(x, y)
	if res.Statistic >= 0 {
		t.Fatalf("expected negative statistic (x below y), got %v", res.Statistic)
	}
	if res.PValue > 0.001 {
		t.Fatalf("expected tiny p-value for separated groups, got %v", res.PValue)
	}
	if res.DF <= 0 {
		t.Fatalf("expected positive degrees of freedom, got %v", res.DF)
	}
}

func TestWelchTTooFewSamples(t *testing.T) {
	res := WelchT([]float64{1}, []float64{2, 3})
	if res.PValue != 1 {
		t.Fatalf("expected p-value 1 for degenerate input, got %v", res.PValue)
	}
}

func TestChiSquareIndependence(t *testing.T) {
	// Perfectly proportional table: no association.
	res := ChiSquare2x2(20, 80, 10, 40)
	if res.Statistic != 0 {
		t.Fatalf("expected zero statistic, got %v", res.Statistic)
	}
	if res.PValue != 1 {
		t.Fatalf("expected p-value 1, got %v", res.PValue)
	}
}

func TestChiSquareAssociation(t *testing.T) {
	res := ChiSquare2x2(90, 10, 10, 90)
	if res.Statistic < 100 {
		t.Fatalf("expected large statistic, got %v", res.Statistic)
	}
	if res.PValue > 1e-6 {
		t.Fatalf("expected tiny p-value, got %v", res.PValue)
	}
}

func TestChiSquareKnownValue(t *testing.T) {
	// chi2 = 1 with 1 df has an upper tail of ~0.3173.
	p := chiSquarePValue(1, 1)
	if math.Abs(p-0.3173) > 0.001 {
		t.Fatalf("expected ~0.3173, got %v", p)
	}
}

func TestChiSquareEmptyTable(t *testing.T) {
	if res := ChiSquare2x2(0, 0, 0, 0); res.PValue != 1 {
		t.Fatalf("expected p-value 1 for empty table, got %v", res.PValue)
	}
}
