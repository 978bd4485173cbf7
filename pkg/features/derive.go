package features

import (
	"time"

	"github.com/sccm-datasci/ards-platform/pkg/ards"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// Flagged pairs a cohort-eligible stay with its identification verdict.
type Flagged struct {
	Record models.StayRecord
	Flag   models.ARDSFlag
}

const hoursPerDay = 24.0

// Derive builds the terminal analysis table for one source: one row per
// ARDS-positive stay, with severity quartile, prone timing and outcomes.
// Quartile boundaries are recomputed here from scratch on every call.
// Stays with no S/F observation at or before onset keep a nil quartile and
// remain in the table so raw cohort counts are preserved.
func Derive(flagged []Flagged, sourceName string, windowHours int) ([]models.AnalysisRecord, models.QuartileBounds) {
	rows := make([]models.AnalysisRecord, 0, len(flagged))
	var severities []float64

	for _, f := range flagged {
		if !f.Flag.Positive {
			continue
		}
		row := baseRecord(f, sourceName, windowHours)
		if sf, ok := sfAtOnset(f.Record.Observations, f.Flag.OnsetTime); ok {
			row.SFAtOnset = &sf
			severities = append(severities, sf)
		}
		rows = append(rows, row)
	}

	bounds, haveBounds := ComputeBounds(severities)
	if haveBounds {
		for i := range rows {
			if rows[i].SFAtOnset != nil {
				q := AssignQuartile(*rows[i].SFAtOnset, bounds)
				rows[i].Quartile = &q
			}
		}
	}

	logger.Stage("features").WithFields(map[string]interface{}{
		"source":    sourceName,
		"rows":      len(rows),
		"with_sf":   len(severities),
		"q1_cutoff": bounds.Q1,
	}).Info("Analysis table derived")

	return rows, bounds
}

func baseRecord(f Flagged, sourceName string, windowHours int) models.AnalysisRecord {
	rec := f.Record
	row := models.AnalysisRecord{
		StayID:         rec.Stay.ID,
		PatientID:      rec.Patient.ID,
		Source:         sourceName,
		AgeAtAdmission: rec.Patient.AgeAtAdmission,
		Sex:            rec.Patient.Sex,
		ARDSOnset:      f.Flag.OnsetTime,
		Mortality:      rec.Patient.Died,
	}

	row.ProneTiming = proneTiming(rec, f.Flag.OnsetTime, windowHours)

	if !rec.Patient.DischargeTime.IsZero() && !rec.Patient.AdmissionTime.IsZero() {
		row.HospitalLOSDays = rec.Patient.DischargeTime.Sub(rec.Patient.AdmissionTime).Hours() / hoursPerDay
	}
	if !rec.Stay.ICUOutTime.IsZero() {
		row.ICULOSDays = rec.Stay.ICUOutTime.Sub(rec.Stay.ICUInTime).Hours() / hoursPerDay
	}

	row.HoursToExtubation, row.ExtubationCensored = timeToExtubation(rec, f.Flag.OnsetTime)
	row.VentFreeDays28 = ventFreeDays28(rec, f.Flag.OnsetTime)

	return row
}

// sfAtOnset returns the S/F ratio charted at, or nearest before, the
// qualifying timestamp.
func sfAtOnset(observations []models.Observation, onset time.Time) (float64, bool) {
	var value float64
	found := false
	for _, point := range ards.SFSeries(observations) {
		if point.Time.After(onset) {
			break
		}
		value = point.SF
		found = true
	}
	return value, found
}

// proneTiming classifies the first prone event of the stay. "early" means
// the event starts at or after the qualifying timestamp and still inside
// the diagnosis window; an event that started strictly before onset is
// treated as late, never early.
func proneTiming(rec models.StayRecord, onset time.Time, windowHours int) string {
	if len(rec.ProneEvents) == 0 {
		return models.ProneNone
	}
	first := rec.ProneEvents[0]
	window := ards.NewWindow(rec.Stay.ICUInTime, windowHours)
	if !first.StartTime.Before(onset) && window.Contains(first.StartTime) {
		return models.ProneEarly
	}
	return models.ProneLate
}

// timeToExtubation measures hours from onset to the first recorded
// extubation (a closed ventilation episode ending after onset). Without
// one, the value is censored at ICU discharge when available.
func timeToExtubation(rec models.StayRecord, onset time.Time) (*float64, bool) {
	for _, episode := range rec.Ventilation {
		if episode.End == nil || episode.End.Before(onset) {
			continue
		}
		hours := episode.End.Sub(onset).Hours()
		return &hours, false
	}
	if rec.Stay.ICUOutTime.IsZero() || rec.Stay.ICUOutTime.Before(onset) {
		return nil, true
	}
	hours := rec.Stay.ICUOutTime.Sub(onset).Hours()
	return &hours, true
}

// ventFreeDays28 is days alive and free of invasive ventilation in the 28
// days following onset. Deaths score zero by convention.
func ventFreeDays28(rec models.StayRecord, onset time.Time) float64 {
	if rec.Patient.Died {
		return 0
	}
	horizon := onset.Add(28 * hoursPerDay * time.Hour)
	ventHours := 0.0
	for _, episode := range rec.Ventilation {
		start := episode.Start
		if start.Before(onset) {
			start = onset
		}
		end := horizon
		if episode.End != nil && episode.End.Before(horizon) {
			end = *episode.End
		}
		if end.After(start) {
			ventHours += end.Sub(start).Hours()
		}
	}
	days := 28 - ventHours/hoursPerDay
	if days < 0 {
		return 0
	}
	return days
}
