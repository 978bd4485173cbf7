package stats

import (
	"math"
	"sort"
)

// SurvivalSample is one subject's follow-up: time on study and whether the
// event of interest occurred (false means censored at that time).
type SurvivalSample struct {
	Time  float64 `json:"time"`
	Event bool    `json:"event"`
}

// KMPoint is one step of the Kaplan-Meier curve.
type KMPoint struct {
	Time     float64 `json:"time"`
	AtRisk   int     `json:"at_risk"`
	Events   int     `json:"events"`
	Survival float64 `json:"survival"`
}

// KaplanMeier estimates the survival function. The returned curve has one
// point per distinct event time; censored-only times move the risk set but
// add no step.
func KaplanMeier(samples []SurvivalSample) []KMPoint {
	if len(samples) == 0 {
		return nil
	}
	sorted := make([]SurvivalSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var curve []KMPoint
	survival := 1.0
	atRisk := len(sorted)
	i := 0
	for i < len(sorted) {
		t := sorted[i].Time
		events, removed := 0, 0
		for i < len(sorted) && sorted[i].Time == t {
			if sorted[i].Event {
				events++
			}
			removed++
			i++
		}
		if events > 0 {
			survival *= 1 - float64(events)/float64(atRisk)
			curve = append(curve, KMPoint{Time: t, AtRisk: atRisk, Events: events, Survival: survival})
		}
		atRisk -= removed
	}
	return curve
}

// LogRank compares the survival experience of two groups, returning a
// chi-square statistic with one degree of freedom.
func LogRank(a, b []SurvivalSample) TestResult {
	type entry struct {
		time  float64
		event bool
		group int
	}
	all := make([]entry, 0, len(a)+len(b))
	for _, s := range a {
		all = append(all, entry{s.Time, s.Event, 0})
	}
	for _, s := range b {
		all = append(all, entry{s.Time, s.Event, 1})
	}
	if len(a) == 0 || len(b) == 0 {
		return TestResult{PValue: 1}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].time < all[j].time })

	nA, nB := len(a), len(b)
	var observedA, expectedA, variance float64

	i := 0
	for i < len(all) {
		t := all[i].time
		eventsA, events, removedA, removed := 0, 0, 0, 0
		for i < len(all) && all[i].time == t {
			if all[i].event {
				events++
				if all[i].group == 0 {
					eventsA++
				}
			}
			removed++
			if all[i].group == 0 {
				removedA++
			}
			i++
		}
		n := nA + nB
		if events > 0 && n > 1 {
			observedA += float64(eventsA)
			expectedA += float64(events) * float64(nA) / float64(n)
			variance += float64(events) * float64(nA) * float64(nB) * float64(n-events) /
				(float64(n) * float64(n) * float64(n-1))
		}
		nA -= removedA
		nB -= removed - removedA
	}

	if variance == 0 {
		return TestResult{PValue: 1}
	}
	chi2 := math.Pow(observedA-expectedA, 2) / variance
	return TestResult{Statistic: chi2, DF: 1, PValue: chiSquarePValue(chi2, 1)}
}
