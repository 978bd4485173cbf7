package ards

import (
	"time"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// Clinical thresholds used by cohort eligibility and ARDS identification.
const (
	MinPEEP     = 5.0   // cmH2O
	SFThreshold = 315.0 // S/F below this indicates impaired oxygenation
)

// SFSeries derives the S/F ratio at every charted timestamp where both SpO2
// and FiO2 are present. The ratio is recomputed on every run and never
// persisted upstream. FiO2 charted as a percentage (value > 1) is converted
// to a fraction first; a zero FiO2 is unusable and the sample is dropped.
func SFSeries(observations []models.Observation) []models.SFPoint {
	spo2 := make(map[time.Time]float64)
	fio2 := make(map[time.Time]float64)
	order := make([]time.Time, 0, len(observations))
	seen := make(map[time.Time]struct{})

	for _, obs := range observations {
		switch obs.Kind {
		case models.ObsSpO2:
			spo2[obs.Time] = obs.Value
		case models.ObsFiO2:
			fio2[obs.Time] = obs.Value
		default:
			continue
		}
		if _, ok := seen[obs.Time]; !ok {
			seen[obs.Time] = struct{}{}
			order = append(order, obs.Time)
		}
	}

	var points []models.SFPoint
	for _, ts := range order {
		s, okS := spo2[ts]
		f, okF := fio2[ts]
		if !okS || !okF {
			continue
		}
		if f > 1 {
			f = f / 100
		}
		if f <= 0 {
			continue
		}
		points = append(points, models.SFPoint{Time: ts, SF: s / f})
	}
	return points
}

// PEEPSeries extracts the PEEP settings from a mixed observation series.
func PEEPSeries(observations []models.Observation) []models.Observation {
	var out []models.Observation
	for _, obs := range observations {
		if obs.Kind == models.ObsPEEP {
			out = append(out, obs)
		}
	}
	return out
}
