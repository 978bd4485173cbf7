package source

import (
	"context"
	"fmt"
	"time"

	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"gorm.io/gorm"
)

type patientRow struct {
	PatientID      string     `gorm:"column:patient_id;primaryKey"`
	AgeAtAdmission float64    `gorm:"column:age_at_admission"`
	Sex            string     `gorm:"column:sex"`
	AdmissionTime  time.Time  `gorm:"column:admission_datetime"`
	DischargeTime  *time.Time `gorm:"column:discharge_datetime"`
	Pregnant       bool       `gorm:"column:pregnant"`
	HeartFailure   bool       `gorm:"column:heart_failure"`
	Mortality      bool       `gorm:"column:mortality"`
}

func (patientRow) TableName() string { return "patients" }

type stayRow struct {
	StayID     string     `gorm:"column:stay_id;primaryKey"`
	PatientID  string     `gorm:"column:patient_id"`
	ICUInTime  time.Time  `gorm:"column:icu_in_time"`
	ICUOutTime *time.Time `gorm:"column:icu_out_time"`
}

func (stayRow) TableName() string { return "icu_stays" }

type observationRow struct {
	StayID string    `gorm:"column:stay_id"`
	Time   time.Time `gorm:"column:recorded_dttm"`
	Kind   string    `gorm:"column:kind"`
	Value  float64   `gorm:"column:value"`
}

func (observationRow) TableName() string { return "observations" }

type reportRow struct {
	StayID string    `gorm:"column:stay_id"`
	Time   time.Time `gorm:"column:charted_dttm"`
	Text   string    `gorm:"column:report_text"`
}

func (reportRow) TableName() string { return "radiology_reports" }

type proneRow struct {
	StayID    string     `gorm:"column:stay_id"`
	StartTime time.Time  `gorm:"column:start_dttm"`
	EndTime   *time.Time `gorm:"column:end_dttm"`
}

func (proneRow) TableName() string { return "prone_events" }

type ventilationRow struct {
	StayID string     `gorm:"column:stay_id"`
	Start  time.Time  `gorm:"column:start_dttm"`
	End    *time.Time `gorm:"column:end_dttm"`
}

func (ventilationRow) TableName() string { return "ventilation_episodes" }

// Postgres reads the relational ICU database. All tables are read-only; the
// pipeline never writes back to this schema.
type Postgres struct {
	db         *gorm.DB
	sourceName string
}

func NewPostgres(db *gorm.DB, sourceName string) *Postgres {
	return &Postgres{db: db, sourceName: sourceName}
}

func (p *Postgres) Name() string {
	return p.sourceName
}

// requiredTables is checked up front so a misconfigured database fails the
// run with a descriptive error instead of an empty cohort.
var requiredTables = []string{
	"patients", "icu_stays", "observations", "radiology_reports",
}

func (p *Postgres) FetchStays(ctx context.Context) ([]models.StayRecord, error) {
	for _, table := range requiredTables {
		if !p.db.Migrator().HasTable(table) {
			return nil, fmt.Errorf("source %s: required input table %q is absent", p.sourceName, table)
		}
	}

	var patients []patientRow
	if err := p.db.WithContext(ctx).Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("loading patients: %w", err)
	}
	patientsByID := make(map[string]patientRow, len(patients))
	for _, row := range patients {
		patientsByID[row.PatientID] = row
	}

	var stays []stayRow
	if err := p.db.WithContext(ctx).Find(&stays).Error; err != nil {
		return nil, fmt.Errorf("loading icu stays: %w", err)
	}

	var observations []observationRow
	if err := p.db.WithContext(ctx).Order("stay_id, recorded_dttm").Find(&observations).Error; err != nil {
		return nil, fmt.Errorf("loading observations: %w", err)
	}
	obsByStay := make(map[string][]models.Observation)
	for _, row := range observations {
		obsByStay[row.StayID] = append(obsByStay[row.StayID], models.Observation{
			StayID: row.StayID, Time: row.Time, Kind: row.Kind, Value: row.Value,
		})
	}

	var reports []reportRow
	if err := p.db.WithContext(ctx).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("loading radiology reports: %w", err)
	}
	reportsByStay := make(map[string][]models.RadiologyReport)
	for _, row := range reports {
		reportsByStay[row.StayID] = append(reportsByStay[row.StayID], models.RadiologyReport{
			StayID: row.StayID, Time: row.Time, Text: row.Text,
		})
	}

	proneByStay := make(map[string][]models.ProneEvent)
	if p.db.Migrator().HasTable("prone_events") {
		var prones []proneRow
		if err := p.db.WithContext(ctx).Find(&prones).Error; err != nil {
			return nil, fmt.Errorf("loading prone events: %w", err)
		}
		for _, row := range prones {
			proneByStay[row.StayID] = append(proneByStay[row.StayID], models.ProneEvent{
				StayID: row.StayID, StartTime: row.StartTime, EndTime: row.EndTime,
			})
		}
	}

	ventByStay := make(map[string][]models.VentilationEpisode)
	if p.db.Migrator().HasTable("ventilation_episodes") {
		var vents []ventilationRow
		if err := p.db.WithContext(ctx).Find(&vents).Error; err != nil {
			return nil, fmt.Errorf("loading ventilation episodes: %w", err)
		}
		for _, row := range vents {
			ventByStay[row.StayID] = append(ventByStay[row.StayID], models.VentilationEpisode{
				StayID: row.StayID, Start: row.Start, End: row.End,
			})
		}
	}

	records := make([]models.StayRecord, 0, len(stays))
	for _, stay := range stays {
		patient, ok := patientsByID[stay.PatientID]
		if !ok {
			logger.Log.WithField("stay_id", stay.StayID).Warn("stay references unknown patient, skipping")
			continue
		}
		rec := models.StayRecord{
			Patient: models.Patient{
				ID:             patient.PatientID,
				AgeAtAdmission: patient.AgeAtAdmission,
				Sex:            patient.Sex,
				AdmissionTime:  patient.AdmissionTime,
				Pregnant:       patient.Pregnant,
				HeartFailure:   patient.HeartFailure,
				Died:           patient.Mortality,
			},
			Stay: models.ICUStay{
				ID:        stay.StayID,
				PatientID: stay.PatientID,
				ICUInTime: stay.ICUInTime,
			},
			Observations: obsByStay[stay.StayID],
			Reports:      reportsByStay[stay.StayID],
			ProneEvents:  proneByStay[stay.StayID],
			Ventilation:  ventByStay[stay.StayID],
		}
		if patient.DischargeTime != nil {
			rec.Patient.DischargeTime = *patient.DischargeTime
		}
		if stay.ICUOutTime != nil {
			rec.Stay.ICUOutTime = *stay.ICUOutTime
		}
		records = append(records, rec)
	}

	sortStays(records)
	logger.Log.WithFields(map[string]interface{}{
		"source": p.sourceName,
		"stays":  len(records),
	}).Info("Fetched stays from PostgreSQL")

	return records, nil
}
