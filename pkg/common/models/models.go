package models

import "time"

// Observation kinds as charted in both source systems.
const (
	ObsPEEP = "peep_set"
	ObsSpO2 = "spo2"
	ObsFiO2 = "fio2_set"
)

// Prone timing classes relative to ARDS onset.
const (
	ProneEarly = "early"
	ProneLate  = "late"
	ProneNone  = "none"
)

// Patient is one hospitalization as exported by the source EHR. Immutable
// once ingested; the external database is the source of truth.
type Patient struct {
	ID             string    `json:"patient_id"`
	AgeAtAdmission float64   `json:"age_at_admission"`
	Sex            string    `json:"sex"` // "F" or "M"
	AdmissionTime  time.Time `json:"admission_datetime"`
	DischargeTime  time.Time `json:"discharge_datetime"`
	Pregnant       bool      `json:"pregnant"`
	HeartFailure   bool      `json:"heart_failure"`
	Died           bool      `json:"mortality"` // in-hospital death
}

// ICUStay scopes all analysis windows. One patient may have several stays.
type ICUStay struct {
	ID         string    `json:"stay_id"`
	PatientID  string    `json:"patient_id"`
	ICUInTime  time.Time `json:"icu_in_time"`
	ICUOutTime time.Time `json:"icu_out_time"`
}

// Observation is a single charted vital or ventilator setting. Append-only
// time series; never mutated after export.
type Observation struct {
	StayID string    `json:"stay_id"`
	Time   time.Time `json:"recorded_dttm"`
	Kind   string    `json:"kind"`
	Value  float64   `json:"value"`
}

// RadiologyReport carries the free-text impression used as ARDS evidence.
type RadiologyReport struct {
	StayID string    `json:"stay_id"`
	Time   time.Time `json:"charted_dttm"`
	Text   string    `json:"text"`
}

// ProneEvent records the start (and optionally end) of prone positioning.
type ProneEvent struct {
	StayID    string     `json:"stay_id"`
	StartTime time.Time  `json:"start_dttm"`
	EndTime   *time.Time `json:"end_dttm,omitempty"`
}

// VentilationEpisode is a contiguous interval of invasive ventilation.
// An open episode (nil End) means the patient was never extubated.
type VentilationEpisode struct {
	StayID string     `json:"stay_id"`
	Start  time.Time  `json:"start_dttm"`
	End    *time.Time `json:"end_dttm,omitempty"`
}

// StayRecord bundles everything the pipeline needs for one ICU stay.
// Sources return observations sorted by time.
type StayRecord struct {
	Patient      Patient              `json:"patient"`
	Stay         ICUStay              `json:"stay"`
	Observations []Observation        `json:"observations"`
	Reports      []RadiologyReport    `json:"reports"`
	ProneEvents  []ProneEvent         `json:"prone_events"`
	Ventilation  []VentilationEpisode `json:"ventilation"`
}

// SFPoint is one derived S/F ratio sample, computed per run and never
// written back to the source.
type SFPoint struct {
	Time time.Time `json:"time"`
	SF   float64   `json:"sf_ratio"`
}

// ARDSFlag is the identification verdict for one stay. Once computed it is
// not revised by later stages.
type ARDSFlag struct {
	StayID    string    `json:"stay_id"`
	Positive  bool      `json:"positive"`
	OnsetTime time.Time `json:"onset_dttm,omitempty"`
}

// AnalysisRecord is one row of the terminal analysis table: one eligible,
// ARDS-flagged stay joined with severity, prone timing and outcomes. The
// table is regenerated wholesale on every pipeline run.
type AnalysisRecord struct {
	StayID         string    `json:"stay_id"`
	PatientID      string    `json:"patient_id"`
	Source         string    `json:"source"`
	AgeAtAdmission float64   `json:"age_at_admission"`
	Sex            string    `json:"sex"`
	ARDSOnset      time.Time `json:"ards_onset_dttm"`

	// SFAtOnset and Quartile are nil for stays with no qualifying S/F
	// observation; such stays remain in cohort counts but are excluded from
	// quartile-dependent analyses.
	SFAtOnset *float64 `json:"sf_at_onset,omitempty"`
	Quartile  *int     `json:"severity_quartile,omitempty"` // 1 = most severe

	ProneTiming string `json:"prone_timing"` // early, late, none

	Mortality       bool    `json:"mortality"`
	HospitalLOSDays float64 `json:"hospital_los_days"`
	ICULOSDays      float64 `json:"icu_los_days"`
	VentFreeDays28  float64 `json:"ventilator_free_days_28"`

	// HoursToExtubation is measured from ARDS onset. When no extubation is
	// recorded the value is censored at ICU discharge.
	HoursToExtubation  *float64 `json:"hours_to_extubation,omitempty"`
	ExtubationCensored bool     `json:"extubation_censored"`
}

// QuartileBounds are cohort-relative S/F cut points (Q1 <= Q2 <= Q3),
// recomputed whenever the flagged cohort changes.
type QuartileBounds struct {
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// TrajectoryPoint is one dashboard sample for the longitudinal plots.
type TrajectoryPoint struct {
	Time               time.Time `json:"time"`
	HoursFromAdmission float64   `json:"hours_from_icu_admission"`
	HoursFromOnset     *float64  `json:"hours_from_ards_onset,omitempty"`
	SF                 *float64  `json:"sf_ratio,omitempty"`
	PEEP               *float64  `json:"peep,omitempty"`
	Prone              bool      `json:"prone"`
}

// Trajectory is the per-stay series served by the dashboard.
type Trajectory struct {
	StayID          string            `json:"stay_id"`
	ICUInTime       time.Time         `json:"icu_in_time"`
	ICUOutTime      time.Time         `json:"icu_out_time"`
	ARDSOnset       *time.Time        `json:"ards_onset_dttm,omitempty"`
	Points          []TrajectoryPoint `json:"points"`
	ProneStartHours []float64         `json:"prone_start_hours,omitempty"`
}
