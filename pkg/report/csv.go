package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"github.com/sccm-datasci/ards-platform/pkg/stats"
)

// analysisHeader is the column order of the persisted analysis table.
var analysisHeader = []string{
	"stay_id", "patient_id", "source", "age_at_admission", "sex",
	"ards_onset_dttm", "sf_at_onset", "severity_quartile", "prone_timing",
	"mortality", "hospital_los_days", "icu_los_days", "ventilator_free_days_28",
	"hours_to_extubation", "extubation_censored",
}

// WriteAnalysisCSV streams the analysis table as the checked-in delimited
// artifact. Row order follows the input, which the pipeline keeps sorted
// by stay ID, so re-runs over unchanged data produce identical bytes.
func WriteAnalysisCSV(w io.Writer, records []models.AnalysisRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(analysisHeader); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.StayID,
			rec.PatientID,
			rec.Source,
			formatFloat(rec.AgeAtAdmission),
			rec.Sex,
			rec.ARDSOnset.UTC().Format(time.RFC3339),
			formatOptFloat(rec.SFAtOnset),
			formatOptInt(rec.Quartile),
			rec.ProneTiming,
			strconv.FormatBool(rec.Mortality),
			formatFloat(rec.HospitalLOSDays),
			formatFloat(rec.ICULOSDays),
			formatFloat(rec.VentFreeDays28),
			formatOptFloat(rec.HoursToExtubation),
			strconv.FormatBool(rec.ExtubationCensored),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTableOneCSV writes the group characteristics table, one row per
// summary column of the published Table 1.
func WriteTableOneCSV(w io.Writer, groups []stats.GroupSummary) error {
	writer := csv.NewWriter(w)
	header := []string{
		"group", "n", "age_mean", "age_sd", "female_n", "female_pct",
		"sf_at_onset_mean", "sf_at_onset_sd",
		"q1_n", "q2_n", "q3_n", "q4_n", "unassigned_n",
		"early_prone_n", "early_prone_pct",
		"mortality_n", "mortality_pct",
		"hospital_los_median", "hospital_los_q1", "hospital_los_q3",
		"vfd28_median",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, g := range groups {
		row := []string{
			g.Name,
			strconv.Itoa(g.N),
			formatFloat(g.AgeMean),
			formatFloat(g.AgeSD),
			strconv.Itoa(g.FemaleN),
			formatFloat(g.FemalePct),
			formatFloat(g.SFAtOnsetMean),
			formatFloat(g.SFAtOnsetSD),
			strconv.Itoa(g.QuartileN[0]),
			strconv.Itoa(g.QuartileN[1]),
			strconv.Itoa(g.QuartileN[2]),
			strconv.Itoa(g.QuartileN[3]),
			strconv.Itoa(g.UnassignedN),
			strconv.Itoa(g.EarlyProneN),
			formatFloat(g.EarlyPronePct),
			strconv.Itoa(g.MortalityN),
			formatFloat(g.MortalityPct),
			formatFloat(g.HospitalLOSMedian),
			formatFloat(g.HospitalLOSQ1),
			formatFloat(g.HospitalLOSQ3),
			formatFloat(g.VentFreeDays28Median),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Artifacts bundles everything the report stage writes for one run.
// Model is only written when ModelOK is true, matching FitMortality's
// single-class refusal.
type Artifacts struct {
	Records    []models.AnalysisRecord
	TableOne   []stats.GroupSummary
	Comparison stats.Comparison
	Model      stats.LogisticModel
	ModelOK    bool
}

// WriteArtifacts persists the delimited outputs of one run under dir: the
// analysis table, Table 1, the early-vs-late test results, both survival
// curves, and the adjusted mortality model when one was fitted.
func WriteArtifacts(dir, sourceName string, a Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	write := func(name string, fn func(io.Writer) error) error {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%s_%s.csv", name, sourceName)))
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if err := write("analysis_table", func(w io.Writer) error {
		return WriteAnalysisCSV(w, a.Records)
	}); err != nil {
		return err
	}
	if err := write("table_one", func(w io.Writer) error {
		return WriteTableOneCSV(w, a.TableOne)
	}); err != nil {
		return err
	}
	if err := write("stats", func(w io.Writer) error {
		return WriteStatsCSV(w, a.Comparison)
	}); err != nil {
		return err
	}
	mortality := stats.KaplanMeier(stats.MortalitySamples(a.Records))
	extubation := stats.KaplanMeier(stats.ExtubationSamples(a.Records))
	if err := write("survival", func(w io.Writer) error {
		return WriteSurvivalCSV(w, mortality, extubation)
	}); err != nil {
		return err
	}
	if a.ModelOK {
		if err := write("mortality_model", func(w io.Writer) error {
			return WriteMortalityModelCSV(w, a.Model)
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
