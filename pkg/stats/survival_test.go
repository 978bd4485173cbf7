package stats

import (
	"math"
	"testing"
)

func TestKaplanMeierSteps(t *testing.T) {
	samples := []SurvivalSample{
		{Time: 1, Event: true},
		{Time: 2, Event: false}, // censored, no step
		{Time: 3, Event: true},
		{Time: 4, Event: true},
	}
	curve := KaplanMeier(samples)
	if len(curve) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(curve))
	}

	// S(1) = 3/4; S(3) = 3/4 * 1/2; S(4) = 3/8 * 0 = 0.
	if curve[0].Survival != 0.75 {
		t.Fatalf("S(1) = %v, want 0.75", curve[0].Survival)
	}
	if curve[0].AtRisk != 4 {
		t.Fatalf("at risk at t=1: %d, want 4", curve[0].AtRisk)
	}
	if math.Abs(curve[1].Survival-0.375) > 1e-12 {
		t.Fatalf("S(3) = %v, want 0.375", curve[1].Survival)
	}
	if curve[2].Survival != 0 {
		t.Fatalf("S(4) = %v, want 0", curve[2].Survival)
	}
}

func TestKaplanMeierMonotone(t *testing.T) {
	samples := []SurvivalSample{
		{Time: 5, Event: true}, {Time: 1, Event: true}, {Time: 9, Event: false},
		{Time: 3, Event: true}, {Time: 3, Event: false}, {Time: 7, Event: true},
	}
	curve := KaplanMeier(samples)
	prev := 1.0
	for _, pt := range curve {
		if pt.Survival > prev {
			t.Fatalf("survival increased at t=%v", pt.Time)
		}
		prev = pt.Survival
	}
}

func TestKaplanMeierEmpty(t *testing.T) {
	if curve := KaplanMeier(nil); curve != nil {
		t.Fatalf("expected nil curve, got %v", curve)
	}
}

func TestLogRankIdenticalGroups(t *testing.T) {
	group := []SurvivalSample{
		{Time: 1, Event: true}, {Time: 2, Event: true},
		{Time: 3, Event: false}, {Time: 4, Event: true},
	}
	res := LogRank(group, group)
	if res.Statistic > 1e-9 {
		t.Fatalf("expected near-zero statistic, got %v", res.Statistic)
	}
	if res.PValue < 0.99 {
		t.Fatalf("expected p-value near 1, got %v", res.PValue)
	}
}

func TestLogRankSeparatedGroups(t *testing.T) {
	early := make([]SurvivalSample, 0, 20)
	late := make([]SurvivalSample, 0, 20)
	for i := 0; i < 20; i++ {
		early = append(early, SurvivalSample{Time: float64(30 + i), Event: true})
		late = append(late, SurvivalSample{Time: float64(1 + i), Event: true})
	}
	res := LogRank(early, late)
	if res.PValue > 0.001 {
		t.Fatalf("expected tiny p-value for separated groups, got %v", res.PValue)
	}
}

func TestLogRankEmptyGroup(t *testing.T) {
	res := LogRank(nil, []SurvivalSample{{Time: 1, Event: true}})
	if res.PValue != 1 {
		t.Fatalf("expected p-value 1, got %v", res.PValue)
	}
}
