package stats

import "github.com/sccm-datasci/ards-platform/pkg/common/models"

// Comparison holds the early-prone versus late-or-none analyses over one
// run's analysis table: group sizes, the unadjusted hypothesis tests, and
// the log-rank comparisons of the two survival endpoints.
type Comparison struct {
	EarlyN int `json:"early_n"`
	OtherN int `json:"other_n"`

	AgeWelch          TestResult `json:"age_welch_t"`
	SFAtOnsetWelch    TestResult `json:"sf_at_onset_welch_t"`
	MortalityChi2     TestResult `json:"mortality_chi_square"`
	MortalityLogRank  TestResult `json:"mortality_log_rank"`
	ExtubationLogRank TestResult `json:"extubation_log_rank"`
}

// ExtubationSamples maps the analysis table to the time-to-extubation
// endpoint. Time runs from ARDS onset; stays with no recorded hours are
// dropped, censored stays enter with Event false.
func ExtubationSamples(records []models.AnalysisRecord) []SurvivalSample {
	var samples []SurvivalSample
	for _, rec := range records {
		if rec.HoursToExtubation == nil {
			continue
		}
		samples = append(samples, SurvivalSample{
			Time:  *rec.HoursToExtubation,
			Event: !rec.ExtubationCensored,
		})
	}
	return samples
}

// MortalitySamples maps the analysis table to the in-hospital mortality
// endpoint. Time is hospital length of stay in days; survivors are
// censored at discharge.
func MortalitySamples(records []models.AnalysisRecord) []SurvivalSample {
	samples := make([]SurvivalSample, 0, len(records))
	for _, rec := range records {
		samples = append(samples, SurvivalSample{
			Time:  rec.HospitalLOSDays,
			Event: rec.Mortality,
		})
	}
	return samples
}

// CompareProneTiming splits the table into early-prone and late-or-none
// groups and runs the unadjusted comparisons between them. Degenerate
// groups fall through to each test's own guard, which reports p = 1.
func CompareProneTiming(records []models.AnalysisRecord) Comparison {
	var early, other []models.AnalysisRecord
	for _, rec := range records {
		if rec.ProneTiming == models.ProneEarly {
			early = append(early, rec)
		} else {
			other = append(other, rec)
		}
	}

	cmp := Comparison{EarlyN: len(early), OtherN: len(other)}
	cmp.AgeWelch = WelchT(ages(early), ages(other))
	cmp.SFAtOnsetWelch = WelchT(onsetSFs(early), onsetSFs(other))

	earlyDied, otherDied := deaths(early), deaths(other)
	cmp.MortalityChi2 = ChiSquare2x2(earlyDied, len(early)-earlyDied, otherDied, len(other)-otherDied)

	cmp.MortalityLogRank = LogRank(MortalitySamples(early), MortalitySamples(other))
	cmp.ExtubationLogRank = LogRank(ExtubationSamples(early), ExtubationSamples(other))
	return cmp
}

func ages(records []models.AnalysisRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.AgeAtAdmission)
	}
	return out
}

func onsetSFs(records []models.AnalysisRecord) []float64 {
	var out []float64
	for _, rec := range records {
		if rec.SFAtOnset != nil {
			out = append(out, *rec.SFAtOnset)
		}
	}
	return out
}

func deaths(records []models.AnalysisRecord) int {
	var n int
	for _, rec := range records {
		if rec.Mortality {
			n++
		}
	}
	return n
}
