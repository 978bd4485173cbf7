package stats

import (
	"math"
	"sort"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SD is the sample standard deviation (n-1 denominator).
func SD(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Median interpolates between the two middle order statistics.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Quantile uses linear interpolation between order statistics, the same
// method the quartile boundaries use.
func Quantile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
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

// Percent renders k out of n as a percentage rounded to one decimal, the
// rounding rule used throughout the published tables (186/2531 -> 7.3).
func Percent(k, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(k)/float64(n)*1000) / 10
}

// GroupSummary is one "Table 1" column: descriptive characteristics for a
// subgroup of analysis records.
type GroupSummary struct {
	Name string `json:"name"`
	N    int    `json:"n"`

	AgeMean float64 `json:"age_mean"`
	AgeSD   float64 `json:"age_sd"`

	FemaleN   int     `json:"female_n"`
	FemalePct float64 `json:"female_pct"`

	SFAtOnsetMean float64 `json:"sf_at_onset_mean"`
	SFAtOnsetSD   float64 `json:"sf_at_onset_sd"`

	// QuartileN[0] is Q1 (most severe); UnassignedN counts stays with no
	// S/F at onset, which are excluded from quartile-dependent analyses
	// but kept in N.
	QuartileN   [4]int `json:"quartile_n"`
	UnassignedN int    `json:"unassigned_n"`

	EarlyProneN   int     `json:"early_prone_n"`
	EarlyPronePct float64 `json:"early_prone_pct"`

	MortalityN   int     `json:"mortality_n"`
	MortalityPct float64 `json:"mortality_pct"`

	HospitalLOSMedian float64 `json:"hospital_los_median"`
	HospitalLOSQ1     float64 `json:"hospital_los_q1"`
	HospitalLOSQ3     float64 `json:"hospital_los_q3"`

	VentFreeDays28Median float64 `json:"vfd28_median"`
}

// Summarize builds one Table 1 column from a record subset.
func Summarize(name string, records []models.AnalysisRecord) GroupSummary {
	s := GroupSummary{Name: name, N: len(records)}

	var ages, sfs, losDays, vfds []float64
	for _, rec := range records {
		ages = append(ages, rec.AgeAtAdmission)
		losDays = append(losDays, rec.HospitalLOSDays)
		vfds = append(vfds, rec.VentFreeDays28)
		if rec.Sex == "F" {
			s.FemaleN++
		}
		if rec.SFAtOnset != nil {
			sfs = append(sfs, *rec.SFAtOnset)
		}
		if rec.Quartile != nil {
			s.QuartileN[*rec.Quartile-1]++
		} else {
			s.UnassignedN++
		}
		if rec.ProneTiming == models.ProneEarly {
			s.EarlyProneN++
		}
		if rec.Mortality {
			s.MortalityN++
		}
	}

	s.AgeMean = Mean(ages)
	s.AgeSD = SD(ages)
	s.FemalePct = Percent(s.FemaleN, s.N)
	s.SFAtOnsetMean = Mean(sfs)
	s.SFAtOnsetSD = SD(sfs)
	s.EarlyPronePct = Percent(s.EarlyProneN, s.N)
	s.MortalityPct = Percent(s.MortalityN, s.N)
	s.HospitalLOSMedian = Median(losDays)
	s.HospitalLOSQ1 = Quantile(losDays, 0.25)
	s.HospitalLOSQ3 = Quantile(losDays, 0.75)
	s.VentFreeDays28Median = Median(vfds)

	return s
}

// TableOne summarizes the whole cohort plus the early versus late/none
// proning groups, the comparison the analysis is built around.
func TableOne(records []models.AnalysisRecord) []GroupSummary {
	var early, other []models.AnalysisRecord
	for _, rec := range records {
		if rec.ProneTiming == models.ProneEarly {
			early = append(early, rec)
		} else {
			other = append(other, rec)
		}
	}
	return []GroupSummary{
		Summarize("overall", records),
		Summarize("early_prone", early),
		Summarize("late_or_none", other),
	}
}

// QuartileSummary is the per-quartile severity breakdown, including the
// early-proning rate inside each quartile.
func QuartileSummary(records []models.AnalysisRecord) []GroupSummary {
	groups := make([][]models.AnalysisRecord, 4)
	for _, rec := range records {
		if rec.Quartile == nil {
			continue
		}
		q := *rec.Quartile - 1
		groups[q] = append(groups[q], rec)
	}
	names := []string{"Q1", "Q2", "Q3", "Q4"}
	out := make([]GroupSummary, 0, 4)
	for i, group := range groups {
		out = append(out, Summarize(names[i], group))
	}
	return out
}
