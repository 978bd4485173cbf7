package features

import (
	"math"
	"strconv"
	"testing"

	"github.com/sccm-datasci/ards-platform/pkg/stats"
)

// Synthetic single-center cohort mirroring published counts: 4,252 flagged
// stays, mean age 60.6, mortality 23.5%, a Q1 cutoff of 100.0 with 575
// stays in the most severe quartile and none proned early. The fixture is
// built so these numbers hold by construction; the test pins them against
// the derivation and summary code.
func singleCenterFixture() []Flagged {
	const total = 4252

	var sfValues []float64
	for i := 0; i < 574; i++ {
		sfValues = append(sfValues, 80.0)
	}
	sfValues = append(sfValues, 97.0, 101.0)
	for i := 0; i < 862; i++ {
		sfValues = append(sfValues, 140.0)
	}
	for i := 0; i < 862; i++ {
		sfValues = append(sfValues, 250.0)
	}

	flagged := make([]Flagged, 0, total)
	for i := 0; i < total; i++ {
		var f Flagged
		id := "stay-" + strconv.Itoa(i)
		if i < len(sfValues) {
			f = flaggedStay(id, sfValues[i], 10)
		} else {
			f = flaggedStay(id, 0, 10)
			f.Record.Observations = nil
		}
		f.Record.Patient.AgeAtAdmission = 60.6
		f.Record.Patient.Died = i < 999
		flagged = append(flagged, f)
	}
	return flagged
}

func TestSingleCenterCohortCounts(t *testing.T) {
	records, bounds := Derive(singleCenterFixture(), "icu_db", 48)

	if len(records) != 4252 {
		t.Fatalf("expected 4252 rows, got %d", len(records))
	}
	if bounds.Q1 != 100.0 {
		t.Fatalf("expected Q1 cutoff 100.0, got %v", bounds.Q1)
	}

	q1 := 0
	for _, rec := range records {
		if rec.Quartile != nil && *rec.Quartile == 1 {
			q1++
		}
	}
	if q1 != 575 {
		t.Fatalf("expected 575 stays in Q1, got %d", q1)
	}

	summary := stats.Summarize("overall", records)
	if math.Abs(summary.AgeMean-60.6) > 1e-9 {
		t.Fatalf("expected mean age 60.6, got %v", summary.AgeMean)
	}
	if summary.MortalityPct != 23.5 {
		t.Fatalf("expected mortality 23.5%%, got %v", summary.MortalityPct)
	}
	if summary.EarlyProneN != 0 {
		t.Fatalf("expected 0 early-proned stays, got %d", summary.EarlyProneN)
	}
}

// Synthetic multi-center distribution: quartile cutoffs 100.0 / 163.3 /
// 206.7 with 2,531 stays in Q1, of which 186 proned early, an early rate
// of exactly 7.3% under the rounding rule.
func TestMultiCenterQuartileCounts(t *testing.T) {
	var values []float64
	appendN := func(v float64, n int) {
		for i := 0; i < n; i++ {
			values = append(values, v)
		}
	}
	appendN(80.0, 2530)
	appendN(97.0, 1)
	appendN(101.0, 1)
	appendN(120.0, 2529)
	appendN(163.3, 2)
	appendN(180.0, 2529)
	appendN(206.7, 2)
	appendN(300.0, 2530)

	if len(values) != 10124 {
		t.Fatalf("fixture size mismatch: %d", len(values))
	}

	bounds, ok := ComputeBounds(values)
	if !ok {
		t.Fatal("expected bounds to be computable")
	}
	if bounds.Q1 != 100.0 {
		t.Fatalf("expected Q1 = 100.0, got %v", bounds.Q1)
	}
	if bounds.Q2 != 163.3 {
		t.Fatalf("expected Q2 = 163.3, got %v", bounds.Q2)
	}
	if bounds.Q3 != 206.7 {
		t.Fatalf("expected Q3 = 206.7, got %v", bounds.Q3)
	}

	q1 := 0
	for _, v := range values {
		if AssignQuartile(v, bounds) == 1 {
			q1++
		}
	}
	if q1 != 2531 {
		t.Fatalf("expected 2531 stays in Q1, got %d", q1)
	}

	if rate := stats.Percent(186, q1); rate != 7.3 {
		t.Fatalf("expected early-prone rate 7.3, got %v", rate)
	}
}
