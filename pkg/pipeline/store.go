package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	runStatusRunning   = "running"
	runStatusCompleted = "completed"
	runStatusFailed    = "failed"
)

type runRecord struct {
	ID           uuid.UUID      `gorm:"primaryKey;column:id"`
	Source       string         `gorm:"column:source"`
	Policy       string         `gorm:"column:criteria_policy"`
	WindowHours  int            `gorm:"column:window_hours"`
	Status       string         `gorm:"column:status"`
	Screened     int            `gorm:"column:screened"`
	Eligible     int            `gorm:"column:eligible"`
	Flagged      int            `gorm:"column:flagged"`
	Bounds       datatypes.JSON `gorm:"column:quartile_bounds"`
	ErrorMessage string         `gorm:"column:error_message"`
	StartedAt    time.Time      `gorm:"column:started_at"`
	CompletedAt  *time.Time     `gorm:"column:completed_at"`
}

func (runRecord) TableName() string { return "pipeline_runs" }

type analysisRow struct {
	StayID             string    `gorm:"primaryKey;column:stay_id"`
	Source             string    `gorm:"primaryKey;column:source"`
	PatientID          string    `gorm:"column:patient_id"`
	AgeAtAdmission     float64   `gorm:"column:age_at_admission"`
	Sex                string    `gorm:"column:sex"`
	ARDSOnset          time.Time `gorm:"column:ards_onset_dttm"`
	SFAtOnset          *float64  `gorm:"column:sf_at_onset"`
	Quartile           *int      `gorm:"column:severity_quartile"`
	ProneTiming        string    `gorm:"column:prone_timing"`
	Mortality          bool      `gorm:"column:mortality"`
	HospitalLOSDays    float64   `gorm:"column:hospital_los_days"`
	ICULOSDays         float64   `gorm:"column:icu_los_days"`
	VentFreeDays28     float64   `gorm:"column:ventilator_free_days_28"`
	HoursToExtubation  *float64  `gorm:"column:hours_to_extubation"`
	ExtubationCensored bool      `gorm:"column:extubation_censored"`
}

func (analysisRow) TableName() string { return "analysis_records" }

// Store persists run metadata and the derived analysis table. The analysis
// table is replaced wholesale per source on every run; there is no
// incremental update path.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&runRecord{}, &analysisRow{})
}

func (s *Store) createRun(ctx context.Context, rec *runRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) updateRun(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&runRecord{}).Where("id = ?", id).Updates(updates).Error
}

// ReplaceRecords swaps the whole analysis table for one source inside a
// transaction so readers never observe a partial table.
func (s *Store) ReplaceRecords(ctx context.Context, sourceName string, records []models.AnalysisRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source = ?", sourceName).Delete(&analysisRow{}).Error; err != nil {
			return err
		}
		for _, rec := range records {
			row := analysisRow{
				StayID:             rec.StayID,
				Source:             rec.Source,
				PatientID:          rec.PatientID,
				AgeAtAdmission:     rec.AgeAtAdmission,
				Sex:                rec.Sex,
				ARDSOnset:          rec.ARDSOnset,
				SFAtOnset:          rec.SFAtOnset,
				Quartile:           rec.Quartile,
				ProneTiming:        rec.ProneTiming,
				Mortality:          rec.Mortality,
				HospitalLOSDays:    rec.HospitalLOSDays,
				ICULOSDays:         rec.ICULOSDays,
				VentFreeDays28:     rec.VentFreeDays28,
				HoursToExtubation:  rec.HoursToExtubation,
				ExtubationCensored: rec.ExtubationCensored,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRecords reads the persisted analysis table back, ordered by stay ID
// for deterministic output. An empty sourceName loads every source.
func (s *Store) LoadRecords(ctx context.Context, sourceName string) ([]models.AnalysisRecord, error) {
	query := s.db.WithContext(ctx).Order("stay_id")
	if sourceName != "" {
		query = query.Where("source = ?", sourceName)
	}
	var rows []analysisRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]models.AnalysisRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.AnalysisRecord{
			StayID:             row.StayID,
			PatientID:          row.PatientID,
			Source:             row.Source,
			AgeAtAdmission:     row.AgeAtAdmission,
			Sex:                row.Sex,
			ARDSOnset:          row.ARDSOnset,
			SFAtOnset:          row.SFAtOnset,
			Quartile:           row.Quartile,
			ProneTiming:        row.ProneTiming,
			Mortality:          row.Mortality,
			HospitalLOSDays:    row.HospitalLOSDays,
			ICULOSDays:         row.ICULOSDays,
			VentFreeDays28:     row.VentFreeDays28,
			HoursToExtubation:  row.HoursToExtubation,
			ExtubationCensored: row.ExtubationCensored,
		})
	}
	return records, nil
}

func marshalBounds(bounds models.QuartileBounds) datatypes.JSON {
	data, _ := json.Marshal(bounds)
	return datatypes.JSON(data)
}
