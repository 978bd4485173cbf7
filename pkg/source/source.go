package source

import (
	"context"
	"sort"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// Source is read-only access to one EHR export. Implementations must return
// every ICU stay with its full observation, report, prone and ventilation
// series; all filtering happens downstream so the pipeline stages stay
// testable against in-memory data.
type Source interface {
	Name() string
	FetchStays(ctx context.Context) ([]models.StayRecord, error)
}

// sortStay puts every per-stay series in chronological order. Downstream
// stages rely on this when picking earliest qualifying timestamps.
func sortStay(rec *models.StayRecord) {
	sort.Slice(rec.Observations, func(i, j int) bool {
		return rec.Observations[i].Time.Before(rec.Observations[j].Time)
	})
	sort.Slice(rec.Reports, func(i, j int) bool {
		return rec.Reports[i].Time.Before(rec.Reports[j].Time)
	})
	sort.Slice(rec.ProneEvents, func(i, j int) bool {
		return rec.ProneEvents[i].StartTime.Before(rec.ProneEvents[j].StartTime)
	})
	sort.Slice(rec.Ventilation, func(i, j int) bool {
		return rec.Ventilation[i].Start.Before(rec.Ventilation[j].Start)
	})
}

// sortStays additionally fixes the stay order itself so that a re-run over
// unchanged input assembles an identical slice.
func sortStays(recs []models.StayRecord) {
	for i := range recs {
		sortStay(&recs[i])
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Stay.ID < recs[j].Stay.ID
	})
}

// Memory is a Source over already-materialized records, used by tests and
// by the dashboard when replaying a frozen extract.
type Memory struct {
	SourceName string
	Records    []models.StayRecord
}

func NewMemory(name string, records []models.StayRecord) *Memory {
	return &Memory{SourceName: name, Records: records}
}

func (m *Memory) Name() string {
	return m.SourceName
}

func (m *Memory) FetchStays(ctx context.Context) ([]models.StayRecord, error) {
	// Per-stay series are copied so sorting never reorders the caller's
	// backing slices.
	out := make([]models.StayRecord, len(m.Records))
	for i, rec := range m.Records {
		rec.Observations = append([]models.Observation(nil), rec.Observations...)
		rec.Reports = append([]models.RadiologyReport(nil), rec.Reports...)
		rec.ProneEvents = append([]models.ProneEvent(nil), rec.ProneEvents...)
		rec.Ventilation = append([]models.VentilationEpisode(nil), rec.Ventilation...)
		out[i] = rec
	}
	sortStays(out)
	return out, nil
}
