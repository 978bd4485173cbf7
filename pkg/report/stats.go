package report

import (
	"encoding/csv"
	"io"

	"github.com/sccm-datasci/ards-platform/pkg/stats"
)

// WriteStatsCSV writes the early-vs-late comparison, one row per
// hypothesis test plus the group sizes.
func WriteStatsCSV(w io.Writer, cmp stats.Comparison) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"analysis", "early_n", "other_n", "statistic", "df", "p_value"}); err != nil {
		return err
	}
	rows := []struct {
		name string
		res  stats.TestResult
	}{
		{"age_welch_t", cmp.AgeWelch},
		{"sf_at_onset_welch_t", cmp.SFAtOnsetWelch},
		{"mortality_chi_square", cmp.MortalityChi2},
		{"mortality_log_rank", cmp.MortalityLogRank},
		{"extubation_log_rank", cmp.ExtubationLogRank},
	}
	earlyN, otherN := formatInt(cmp.EarlyN), formatInt(cmp.OtherN)
	for _, row := range rows {
		record := []string{
			row.name, earlyN, otherN,
			formatFloat(row.res.Statistic),
			formatFloat(row.res.DF),
			formatFloat(row.res.PValue),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteMortalityModelCSV writes the adjusted model's standardized
// coefficients together with each covariate's centering and scale, so the
// model can be applied outside the code.
func WriteMortalityModelCSV(w io.Writer, model stats.LogisticModel) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"term", "coefficient", "mean", "scale"}); err != nil {
		return err
	}
	if err := writer.Write([]string{"intercept", formatFloat(model.Weights.Bias), "", ""}); err != nil {
		return err
	}
	for i, name := range model.FeatureNames {
		row := []string{
			name,
			formatFloat(model.Weights.Coefficients[i]),
			formatFloat(model.Means[i]),
			formatFloat(model.Scales[i]),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSurvivalCSV writes both Kaplan-Meier curves in long form, one row
// per step, keyed by endpoint. Mortality time is hospital days, extubation
// time is hours from ARDS onset.
func WriteSurvivalCSV(w io.Writer, mortality, extubation []stats.KMPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"endpoint", "time", "at_risk", "events", "survival"}); err != nil {
		return err
	}
	write := func(endpoint string, curve []stats.KMPoint) error {
		for _, pt := range curve {
			row := []string{
				endpoint,
				formatFloat(pt.Time),
				formatInt(pt.AtRisk),
				formatInt(pt.Events),
				formatFloat(pt.Survival),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write("mortality", mortality); err != nil {
		return err
	}
	if err := write("extubation", extubation); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
