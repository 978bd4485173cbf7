package stats

import (
	"testing"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// comparisonRecords builds two clearly separated groups: six early-prone
// survivors who extubate quickly, six late-or-none stays who are older and
// die early in the admission.
func comparisonRecords() []models.AnalysisRecord {
	var records []models.AnalysisRecord
	for i := 0; i < 6; i++ {
		sf := 200.0 + float64(i)
		hours := 48.0 + float64(i)
		records = append(records, models.AnalysisRecord{
			StayID:            "early-" + string(rune('a'+i)),
			AgeAtAdmission:    40 + 2*float64(i),
			Sex:               "F",
			SFAtOnset:         &sf,
			ProneTiming:       models.ProneEarly,
			HospitalLOSDays:   20 + float64(i),
			HoursToExtubation: &hours,
		})
	}
	for i := 0; i < 6; i++ {
		sf := 110.0 + float64(i)
		hours := 200.0 + float64(i)
		records = append(records, models.AnalysisRecord{
			StayID:             "other-" + string(rune('a'+i)),
			AgeAtAdmission:     70 + 2*float64(i),
			Sex:                "M",
			SFAtOnset:          &sf,
			ProneTiming:        models.ProneNone,
			Mortality:          true,
			HospitalLOSDays:    2 + float64(i),
			HoursToExtubation:  &hours,
			ExtubationCensored: true,
		})
	}
	return records
}

func TestCompareProneTimingGroups(t *testing.T) {
	cmp := CompareProneTiming(comparisonRecords())
	if cmp.EarlyN != 6 || cmp.OtherN != 6 {
		t.Fatalf("group sizes = %d / %d, want 6 / 6", cmp.EarlyN, cmp.OtherN)
	}
}

func TestCompareProneTimingDetectsSeparation(t *testing.T) {
	cmp := CompareProneTiming(comparisonRecords())

	if cmp.AgeWelch.PValue >= 0.01 {
		t.Fatalf("age p = %v, want < 0.01 for separated means", cmp.AgeWelch.PValue)
	}
	if cmp.SFAtOnsetWelch.PValue >= 0.01 {
		t.Fatalf("S/F p = %v, want < 0.01", cmp.SFAtOnsetWelch.PValue)
	}
	// 0/6 versus 6/6 deaths gives chi-square 12 exactly.
	if cmp.MortalityChi2.Statistic != 12 {
		t.Fatalf("mortality chi2 = %v, want 12", cmp.MortalityChi2.Statistic)
	}
	if cmp.MortalityChi2.PValue >= 0.01 {
		t.Fatalf("mortality p = %v, want < 0.01", cmp.MortalityChi2.PValue)
	}
	if cmp.MortalityLogRank.PValue >= 0.01 {
		t.Fatalf("mortality log-rank p = %v, want < 0.01", cmp.MortalityLogRank.PValue)
	}
	if cmp.ExtubationLogRank.DF != 1 {
		t.Fatalf("extubation log-rank df = %v, want 1", cmp.ExtubationLogRank.DF)
	}
}

func TestCompareProneTimingEmptyTable(t *testing.T) {
	cmp := CompareProneTiming(nil)
	if cmp.EarlyN != 0 || cmp.OtherN != 0 {
		t.Fatalf("expected empty groups, got %d / %d", cmp.EarlyN, cmp.OtherN)
	}
	for name, res := range map[string]TestResult{
		"age":                cmp.AgeWelch,
		"sf":                 cmp.SFAtOnsetWelch,
		"mortality_chi2":     cmp.MortalityChi2,
		"mortality_logrank":  cmp.MortalityLogRank,
		"extubation_logrank": cmp.ExtubationLogRank,
	} {
		if res.PValue != 1 {
			t.Fatalf("%s p = %v, want 1 on an empty table", name, res.PValue)
		}
	}
}

func TestMortalitySamplesCensorSurvivors(t *testing.T) {
	records := []models.AnalysisRecord{
		{StayID: "a", Mortality: true, HospitalLOSDays: 3},
		{StayID: "b", Mortality: false, HospitalLOSDays: 14},
	}
	samples := MortalitySamples(records)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if !samples[0].Event || samples[0].Time != 3 {
		t.Fatalf("unexpected death sample: %+v", samples[0])
	}
	if samples[1].Event || samples[1].Time != 14 {
		t.Fatalf("survivor must be censored at discharge: %+v", samples[1])
	}
}

func TestExtubationSamplesDropMissingHours(t *testing.T) {
	hours := 72.0
	records := []models.AnalysisRecord{
		{StayID: "a", HoursToExtubation: &hours},
		{StayID: "b"},
	}
	samples := ExtubationSamples(records)
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if !samples[0].Event || samples[0].Time != 72 {
		t.Fatalf("unexpected sample: %+v", samples[0])
	}
}
