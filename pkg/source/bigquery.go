package source

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/sccm-datasci/ards-platform/pkg/common/database"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"google.golang.org/api/iterator"
)

type bqPatient struct {
	PatientID      string                 `bigquery:"patient_id"`
	AgeAtAdmission float64                `bigquery:"age_at_admission"`
	Sex            string                 `bigquery:"sex"`
	AdmissionTime  bigquery.NullTimestamp `bigquery:"admission_datetime"`
	DischargeTime  bigquery.NullTimestamp `bigquery:"discharge_datetime"`
	Pregnant       bool                   `bigquery:"pregnant"`
	HeartFailure   bool                   `bigquery:"heart_failure"`
	Mortality      bool                   `bigquery:"mortality"`
}

type bqStay struct {
	StayID     string                 `bigquery:"stay_id"`
	PatientID  string                 `bigquery:"patient_id"`
	ICUInTime  bigquery.NullTimestamp `bigquery:"icu_in_time"`
	ICUOutTime bigquery.NullTimestamp `bigquery:"icu_out_time"`
}

type bqObservation struct {
	StayID string                 `bigquery:"stay_id"`
	Time   bigquery.NullTimestamp `bigquery:"recorded_dttm"`
	Kind   string                 `bigquery:"kind"`
	Value  float64                `bigquery:"value"`
}

type bqReport struct {
	StayID string                 `bigquery:"stay_id"`
	Time   bigquery.NullTimestamp `bigquery:"charted_dttm"`
	Text   string                 `bigquery:"report_text"`
}

type bqInterval struct {
	StayID string                 `bigquery:"stay_id"`
	Start  bigquery.NullTimestamp `bigquery:"start_dttm"`
	End    bigquery.NullTimestamp `bigquery:"end_dttm"`
}

// BigQuery reads the multi-center ICU export through the columnar query
// service. Rows with unparseable or null event timestamps are dropped from
// temporal series with a warning, matching the relational source.
type BigQuery struct {
	bq         *database.WrappedBigQuery
	sourceName string
}

func NewBigQuery(bq *database.WrappedBigQuery, sourceName string) *BigQuery {
	return &BigQuery{bq: bq, sourceName: sourceName}
}

func (b *BigQuery) Name() string {
	return b.sourceName
}

func (b *BigQuery) FetchStays(ctx context.Context) ([]models.StayRecord, error) {
	patients := make(map[string]models.Patient)
	if err := b.readAll(ctx, "patients", func() interface{} { return &bqPatient{} }, func(v interface{}) {
		row := v.(*bqPatient)
		patient := models.Patient{
			ID:             row.PatientID,
			AgeAtAdmission: row.AgeAtAdmission,
			Sex:            row.Sex,
			Pregnant:       row.Pregnant,
			HeartFailure:   row.HeartFailure,
			Died:           row.Mortality,
		}
		if row.AdmissionTime.Valid {
			patient.AdmissionTime = row.AdmissionTime.Timestamp
		}
		if row.DischargeTime.Valid {
			patient.DischargeTime = row.DischargeTime.Timestamp
		}
		patients[row.PatientID] = patient
	}); err != nil {
		return nil, err
	}

	records := make(map[string]*models.StayRecord)
	if err := b.readAll(ctx, "icu_stays", func() interface{} { return &bqStay{} }, func(v interface{}) {
		row := v.(*bqStay)
		patient, ok := patients[row.PatientID]
		if !ok {
			logger.Log.WithField("stay_id", row.StayID).Warn("stay references unknown patient, skipping")
			return
		}
		if !row.ICUInTime.Valid {
			logger.Log.WithField("stay_id", row.StayID).Warn("stay has no ICU admission timestamp, skipping")
			return
		}
		rec := &models.StayRecord{
			Patient: patient,
			Stay: models.ICUStay{
				ID:        row.StayID,
				PatientID: row.PatientID,
				ICUInTime: row.ICUInTime.Timestamp,
			},
		}
		if row.ICUOutTime.Valid {
			rec.Stay.ICUOutTime = row.ICUOutTime.Timestamp
		}
		records[row.StayID] = rec
	}); err != nil {
		return nil, err
	}

	if err := b.readAll(ctx, "observations", func() interface{} { return &bqObservation{} }, func(v interface{}) {
		row := v.(*bqObservation)
		rec, ok := records[row.StayID]
		if !ok || !row.Time.Valid {
			return
		}
		rec.Observations = append(rec.Observations, models.Observation{
			StayID: row.StayID, Time: row.Time.Timestamp, Kind: row.Kind, Value: row.Value,
		})
	}); err != nil {
		return nil, err
	}

	if err := b.readAll(ctx, "radiology_reports", func() interface{} { return &bqReport{} }, func(v interface{}) {
		row := v.(*bqReport)
		rec, ok := records[row.StayID]
		if !ok || !row.Time.Valid {
			return
		}
		rec.Reports = append(rec.Reports, models.RadiologyReport{
			StayID: row.StayID, Time: row.Time.Timestamp, Text: row.Text,
		})
	}); err != nil {
		return nil, err
	}

	if err := b.readAll(ctx, "prone_events", func() interface{} { return &bqInterval{} }, func(v interface{}) {
		row := v.(*bqInterval)
		rec, ok := records[row.StayID]
		if !ok || !row.Start.Valid {
			return
		}
		event := models.ProneEvent{StayID: row.StayID, StartTime: row.Start.Timestamp}
		if row.End.Valid {
			end := row.End.Timestamp
			event.EndTime = &end
		}
		rec.ProneEvents = append(rec.ProneEvents, event)
	}); err != nil {
		return nil, err
	}

	if err := b.readAll(ctx, "ventilation_episodes", func() interface{} { return &bqInterval{} }, func(v interface{}) {
		row := v.(*bqInterval)
		rec, ok := records[row.StayID]
		if !ok || !row.Start.Valid {
			return
		}
		episode := models.VentilationEpisode{StayID: row.StayID, Start: row.Start.Timestamp}
		if row.End.Valid {
			end := row.End.Timestamp
			episode.End = &end
		}
		rec.Ventilation = append(rec.Ventilation, episode)
	}); err != nil {
		return nil, err
	}

	out := make([]models.StayRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	sortStays(out)

	logger.Log.WithFields(map[string]interface{}{
		"source": b.sourceName,
		"stays":  len(out),
	}).Info("Fetched stays from BigQuery")

	return out, nil
}

// readAll streams one table through the iterator, feeding each decoded row
// to collect. A missing table surfaces as a query error and fails the run.
func (b *BigQuery) readAll(ctx context.Context, table string, newRow func() interface{}, collect func(interface{})) error {
	query := b.bq.Client.Query(fmt.Sprintf("SELECT * FROM `%s.%s`", b.bq.Dataset, table))

	itr, err := query.Read(ctx)
	if err != nil {
		return fmt.Errorf("source %s: reading table %q: %w", b.sourceName, table, err)
	}
	for {
		row := newRow()
		err := itr.Next(row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("source %s: scanning table %q: %w", b.sourceName, table, err)
		}
		collect(row)
	}
	return nil
}
