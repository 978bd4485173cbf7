package cohort

import (
	"github.com/sccm-datasci/ards-platform/pkg/ards"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// StayFilter is a single eligibility predicate over one ICU stay. Filters
// are evaluated independently: a stay qualifying for PEEP and S/F at
// different timestamps inside the window still passes both.
type StayFilter func(rec models.StayRecord) bool

// Definition is the cohort contract for one run. Stays must satisfy every
// inclusion predicate and no exclusion predicate. Missing measurements make
// a criterion unsatisfied; they are never an error, so a stay without any
// FiO2 simply fails the S/F criterion. Patients with several stays are
// evaluated per stay and may contribute zero, one or many qualifying stays.
type Definition struct {
	MinAge      float64
	WindowHours int
}

func DefaultDefinition(windowHours int) Definition {
	return Definition{MinAge: 18, WindowHours: windowHours}
}

// Inclusion returns the inclusion predicates in a fixed order:
// adult age, PEEP >= 5 inside the window, S/F < 315 at least once inside
// the window, and at least one radiology report for the stay.
func (d Definition) Inclusion() []StayFilter {
	return []StayFilter{
		AdultFilter(d.MinAge),
		PEEPFilter(d.WindowHours),
		SFFilter(d.WindowHours),
		ReportPresentFilter(),
	}
}

// Exclusion returns predicates that disqualify a stay when true.
func (d Definition) Exclusion() []StayFilter {
	return []StayFilter{
		func(rec models.StayRecord) bool { return rec.Patient.Pregnant },
		func(rec models.StayRecord) bool { return rec.Patient.HeartFailure },
	}
}

// Eligible applies the full definition to one stay.
func (d Definition) Eligible(rec models.StayRecord) bool {
	for _, filter := range d.Inclusion() {
		if !filter(rec) {
			return false
		}
	}
	for _, filter := range d.Exclusion() {
		if filter(rec) {
			return false
		}
	}
	return true
}

// Apply filters a population down to the eligible cohort.
func Apply(def Definition, stays []models.StayRecord) []models.StayRecord {
	eligible := make([]models.StayRecord, 0, len(stays))
	for _, rec := range stays {
		if def.Eligible(rec) {
			eligible = append(eligible, rec)
		}
	}
	logger.Stage("cohort").WithFields(map[string]interface{}{
		"screened": len(stays),
		"eligible": len(eligible),
	}).Info("Cohort definition applied")
	return eligible
}

func AdultFilter(minAge float64) StayFilter {
	return func(rec models.StayRecord) bool {
		return rec.Patient.AgeAtAdmission >= minAge
	}
}

// PEEPFilter requires a PEEP >= 5 charted within the first WindowHours of
// the ICU stay. A stay without an ICU admission timestamp cannot anchor
// the window and fails the criterion.
func PEEPFilter(windowHours int) StayFilter {
	return func(rec models.StayRecord) bool {
		if rec.Stay.ICUInTime.IsZero() {
			logger.Log.WithField("stay_id", rec.Stay.ID).Warn("stay has no ICU admission timestamp, excluded from temporal criteria")
			return false
		}
		window := ards.NewWindow(rec.Stay.ICUInTime, windowHours)
		for _, obs := range ards.PEEPSeries(rec.Observations) {
			if window.Contains(obs.Time) && obs.Value >= ards.MinPEEP {
				return true
			}
		}
		return false
	}
}

// SFFilter requires at least one derived S/F ratio below 315 inside the
// window. It is evaluated independently of PEEPFilter; the two need not
// hold at the same instant for cohort eligibility.
func SFFilter(windowHours int) StayFilter {
	return func(rec models.StayRecord) bool {
		if rec.Stay.ICUInTime.IsZero() {
			return false
		}
		window := ards.NewWindow(rec.Stay.ICUInTime, windowHours)
		for _, point := range ards.SFSeries(rec.Observations) {
			if window.Contains(point.Time) && point.SF < ards.SFThreshold {
				return true
			}
		}
		return false
	}
}

func ReportPresentFilter() StayFilter {
	return func(rec models.StayRecord) bool {
		return len(rec.Reports) > 0
	}
}
