package source

import (
	"context"
	"testing"
	"time"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

func TestMemorySourceOrdersOutput(t *testing.T) {
	base := time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)

	records := []models.StayRecord{
		{
			Stay: models.ICUStay{ID: "stay-b", ICUInTime: base},
			Observations: []models.Observation{
				{StayID: "stay-b", Time: base.Add(5 * time.Hour), Kind: models.ObsPEEP, Value: 8},
				{StayID: "stay-b", Time: base.Add(1 * time.Hour), Kind: models.ObsPEEP, Value: 6},
			},
			Reports: []models.RadiologyReport{
				{StayID: "stay-b", Time: base.Add(9 * time.Hour), Text: "later"},
				{StayID: "stay-b", Time: base.Add(2 * time.Hour), Text: "earlier"},
			},
		},
		{Stay: models.ICUStay{ID: "stay-a", ICUInTime: base}},
	}

	src := NewMemory("memory", records)
	out, err := src.FetchStays(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if out[0].Stay.ID != "stay-a" || out[1].Stay.ID != "stay-b" {
		t.Fatalf("expected stays ordered by ID, got %s, %s", out[0].Stay.ID, out[1].Stay.ID)
	}
	obs := out[1].Observations
	if !obs[0].Time.Before(obs[1].Time) {
		t.Fatal("expected observations in chronological order")
	}
	reps := out[1].Reports
	if reps[0].Text != "earlier" {
		t.Fatalf("expected reports in chronological order, got %s first", reps[0].Text)
	}
}

func TestMemorySourceLeavesInputUntouched(t *testing.T) {
	base := time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)

	records := []models.StayRecord{
		{
			Stay: models.ICUStay{ID: "stay-x", ICUInTime: base},
			Observations: []models.Observation{
				{StayID: "stay-x", Time: base.Add(5 * time.Hour), Kind: models.ObsPEEP, Value: 8},
				{StayID: "stay-x", Time: base.Add(1 * time.Hour), Kind: models.ObsPEEP, Value: 6},
			},
			Reports: []models.RadiologyReport{
				{StayID: "stay-x", Time: base.Add(9 * time.Hour), Text: "later"},
				{StayID: "stay-x", Time: base.Add(2 * time.Hour), Text: "earlier"},
			},
			ProneEvents: []models.ProneEvent{
				{StayID: "stay-x", StartTime: base.Add(30 * time.Hour)},
				{StayID: "stay-x", StartTime: base.Add(10 * time.Hour)},
			},
		},
	}

	src := NewMemory("memory", records)
	if _, err := src.FetchStays(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if records[0].Observations[0].Value != 8 {
		t.Fatal("fetch reordered the caller's observation slice")
	}
	if records[0].Reports[0].Text != "later" {
		t.Fatal("fetch reordered the caller's report slice")
	}
	if !records[0].ProneEvents[0].StartTime.Equal(base.Add(30 * time.Hour)) {
		t.Fatal("fetch reordered the caller's prone event slice")
	}
}

func TestMemorySourceName(t *testing.T) {
	if name := NewMemory("icu_db", nil).Name(); name != "icu_db" {
		t.Fatalf("name = %s", name)
	}
}
