package ards

import (
	"time"

	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// Options fix the identification behavior for one pipeline run.
type Options struct {
	WindowHours int
	// Policy selects how the structured criterion combines PEEP and S/F:
	// config.PolicyJoint requires the prevailing PEEP to qualify at the
	// S/F sample's timestamp; config.PolicyWindow accepts each criterion
	// anywhere in the window.
	Policy string
}

// Identifier produces the ARDS flag for cohort-eligible stays.
type Identifier struct {
	opts    Options
	matcher *Matcher
}

func NewIdentifier(opts Options, matcher *Matcher) *Identifier {
	if opts.WindowHours <= 0 {
		opts.WindowHours = 48
	}
	if opts.Policy == "" {
		opts.Policy = config.PolicyJoint
	}
	return &Identifier{opts: opts, matcher: matcher}
}

// Identify returns the episode flag and, when positive, the qualifying
// timestamp: the earliest instant at which the structured and textual
// criteria have both been satisfied inside the diagnosis window. That
// timestamp anchors all downstream timing, so it is never revised.
func (id *Identifier) Identify(rec models.StayRecord) models.ARDSFlag {
	flag := models.ARDSFlag{StayID: rec.Stay.ID}

	if rec.Stay.ICUInTime.IsZero() {
		logger.Log.WithField("stay_id", rec.Stay.ID).Warn("stay has no ICU admission timestamp, excluded from identification")
		return flag
	}
	window := NewWindow(rec.Stay.ICUInTime, id.opts.WindowHours)

	structuredAt, ok := id.structuredTime(rec.Observations, window)
	if !ok {
		return flag
	}

	textAt, ok := id.evidenceTime(rec.Reports, window)
	if !ok {
		return flag
	}

	onset := structuredAt
	if textAt.After(onset) {
		onset = textAt
	}

	flag.Positive = true
	flag.OnsetTime = onset
	return flag
}

// structuredTime finds the earliest in-window instant satisfying
// PEEP >= 5 and S/F < 315 under the configured policy. Missing
// measurements simply fail the criterion; they are never an error.
func (id *Identifier) structuredTime(observations []models.Observation, window Window) (time.Time, bool) {
	sf := SFSeries(observations)
	peep := PEEPSeries(observations)

	if id.opts.Policy == config.PolicyWindow {
		var peepAt, sfAt time.Time
		var havePEEP, haveSF bool
		for _, obs := range peep {
			if window.Contains(obs.Time) && obs.Value >= MinPEEP {
				peepAt = obs.Time
				havePEEP = true
				break
			}
		}
		for _, point := range sf {
			if window.Contains(point.Time) && point.SF < SFThreshold {
				sfAt = point.Time
				haveSF = true
				break
			}
		}
		if !havePEEP || !haveSF {
			return time.Time{}, false
		}
		if peepAt.After(sfAt) {
			return peepAt, true
		}
		return sfAt, true
	}

	// Joint policy: the PEEP prevailing at the S/F sample's timestamp must
	// qualify. PEEP is a ventilator setting, so the last value charted at
	// or before the sample is the one in effect.
	for _, point := range sf {
		if !window.Contains(point.Time) || point.SF >= SFThreshold {
			continue
		}
		if prevailingPEEP(peep, point.Time) >= MinPEEP {
			return point.Time, true
		}
	}
	return time.Time{}, false
}

func (id *Identifier) evidenceTime(reports []models.RadiologyReport, window Window) (time.Time, bool) {
	for _, report := range reports {
		if !window.Contains(report.Time) {
			continue
		}
		if id.matcher.Match(report.Text) {
			return report.Time, true
		}
	}
	return time.Time{}, false
}

func prevailingPEEP(peep []models.Observation, at time.Time) float64 {
	value := -1.0
	for _, obs := range peep {
		if obs.Time.After(at) {
			break
		}
		value = obs.Value
	}
	return value
}
