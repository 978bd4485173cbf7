package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sccm-datasci/ards-platform/pkg/ards"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"github.com/sccm-datasci/ards-platform/pkg/source"
	"github.com/sccm-datasci/ards-platform/pkg/stats"
)

var ErrStayNotFound = errors.New("stay not found")

// RecordStore is the read side of the persisted analysis table.
type RecordStore interface {
	LoadRecords(ctx context.Context, sourceName string) ([]models.AnalysisRecord, error)
}

// RecordFilter narrows the analysis table for the records endpoint. Zero
// values mean the dimension is not filtered.
type RecordFilter struct {
	MinAge      float64
	MaxAge      float64
	Sex         string
	Quartile    int
	ProneTiming string
	Mortality   *bool
}

// Summary is the aggregate payload backing the overview panels. The two
// Kaplan-Meier curves cover the study endpoints: mortality over hospital
// days and extubation over hours from ARDS onset.
type Summary struct {
	Source       string               `json:"source"`
	Total        int                  `json:"total"`
	Groups       []stats.GroupSummary `json:"groups"`
	ByQuartile   []stats.GroupSummary `json:"by_quartile"`
	MortalityKM  []stats.KMPoint      `json:"mortality_survival,omitempty"`
	ExtubationKM []stats.KMPoint      `json:"extubation_survival,omitempty"`
}

// Service serves read-only views over the persisted analysis table. It
// never mutates pipeline outputs; the only writes it performs are cache
// entries in redis.
type Service struct {
	store RecordStore
	src   source.Source
	cache *redis.Client
	ttl   time.Duration
}

func NewService(store RecordStore, src source.Source, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{store: store, src: src, cache: cache, ttl: ttl}
}

// Records returns the analysis table filtered in memory. An empty result is
// an empty slice, never an error.
func (s *Service) Records(ctx context.Context, sourceName string, filter RecordFilter) ([]models.AnalysisRecord, error) {
	records, err := s.store.LoadRecords(ctx, sourceName)
	if err != nil {
		return nil, fmt.Errorf("load analysis records: %w", err)
	}
	out := make([]models.AnalysisRecord, 0, len(records))
	for _, rec := range records {
		if !matches(rec, filter) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Summarize builds the overview aggregates from whatever is currently
// persisted. With no records it returns zero counts and empty groups so the
// front end can render its no-data state.
func (s *Service) Summarize(ctx context.Context, sourceName string) (*Summary, error) {
	records, err := s.store.LoadRecords(ctx, sourceName)
	if err != nil {
		return nil, fmt.Errorf("load analysis records: %w", err)
	}
	summary := &Summary{
		Source:     sourceName,
		Total:      len(records),
		Groups:     stats.TableOne(records),
		ByQuartile: stats.QuartileSummary(records),
	}
	summary.MortalityKM = stats.KaplanMeier(stats.MortalitySamples(records))
	summary.ExtubationKM = stats.KaplanMeier(stats.ExtubationSamples(records))
	return summary, nil
}

// Trajectory assembles the longitudinal S/F and PEEP series for one stay.
// Assembly walks the raw source, so results are cached in redis under a
// per-stay key for TrajectoryTTL. The onset marker comes from the analysis
// table scoped to sourceName, since stay IDs are only unique per source.
func (s *Service) Trajectory(ctx context.Context, sourceName, stayID string) (*models.Trajectory, error) {
	key := "trajectory:" + sourceName + ":" + stayID
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var traj models.Trajectory
			if err := json.Unmarshal(cached, &traj); err == nil {
				return &traj, nil
			}
		}
	}

	stays, err := s.src.FetchStays(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stays: %w", err)
	}
	var rec *models.StayRecord
	for i := range stays {
		if stays[i].Stay.ID == stayID {
			rec = &stays[i]
			break
		}
	}
	if rec == nil {
		return nil, ErrStayNotFound
	}

	traj := s.buildTrajectory(ctx, sourceName, rec)
	if s.cache != nil {
		if data, err := json.Marshal(traj); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
				logger.Log.WithError(err).Warn("Failed to cache trajectory")
			}
		}
	}
	return traj, nil
}

func (s *Service) buildTrajectory(ctx context.Context, sourceName string, rec *models.StayRecord) *models.Trajectory {
	traj := &models.Trajectory{
		StayID:     rec.Stay.ID,
		ICUInTime:  rec.Stay.ICUInTime,
		ICUOutTime: rec.Stay.ICUOutTime,
	}
	if onset := s.onsetFor(ctx, sourceName, rec.Stay.ID); onset != nil {
		traj.ARDSOnset = onset
	}

	sfByTime := make(map[time.Time]float64)
	for _, pt := range ards.SFSeries(rec.Observations) {
		sfByTime[pt.Time] = pt.SF
	}
	peepByTime := make(map[time.Time]float64)
	for _, obs := range ards.PEEPSeries(rec.Observations) {
		peepByTime[obs.Time] = obs.Value
	}

	seen := make(map[time.Time]struct{})
	for _, obs := range rec.Observations {
		ts := obs.Time
		if _, ok := seen[ts]; ok {
			continue
		}
		seen[ts] = struct{}{}
		_, hasSF := sfByTime[ts]
		_, hasPEEP := peepByTime[ts]
		if !hasSF && !hasPEEP {
			continue
		}
		point := models.TrajectoryPoint{
			Time:               ts,
			HoursFromAdmission: ts.Sub(rec.Stay.ICUInTime).Hours(),
			Prone:              proneAt(rec.ProneEvents, ts),
		}
		if hasSF {
			v := sfByTime[ts]
			point.SF = &v
		}
		if hasPEEP {
			v := peepByTime[ts]
			point.PEEP = &v
		}
		if traj.ARDSOnset != nil {
			h := ts.Sub(*traj.ARDSOnset).Hours()
			point.HoursFromOnset = &h
		}
		traj.Points = append(traj.Points, point)
	}

	for _, ev := range rec.ProneEvents {
		traj.ProneStartHours = append(traj.ProneStartHours, ev.StartTime.Sub(rec.Stay.ICUInTime).Hours())
	}
	return traj
}

// onsetFor looks the stay up in the persisted analysis table. Stays that
// never qualified simply have no onset marker.
func (s *Service) onsetFor(ctx context.Context, sourceName, stayID string) *time.Time {
	records, err := s.store.LoadRecords(ctx, sourceName)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to load analysis records for onset lookup")
		return nil
	}
	for _, rec := range records {
		if rec.StayID == stayID {
			onset := rec.ARDSOnset
			return &onset
		}
	}
	return nil
}

func matches(rec models.AnalysisRecord, filter RecordFilter) bool {
	if filter.MinAge > 0 && rec.AgeAtAdmission < filter.MinAge {
		return false
	}
	if filter.MaxAge > 0 && rec.AgeAtAdmission > filter.MaxAge {
		return false
	}
	if filter.Sex != "" && rec.Sex != filter.Sex {
		return false
	}
	if filter.Quartile != 0 {
		if rec.Quartile == nil || *rec.Quartile != filter.Quartile {
			return false
		}
	}
	if filter.ProneTiming != "" && rec.ProneTiming != filter.ProneTiming {
		return false
	}
	if filter.Mortality != nil && rec.Mortality != *filter.Mortality {
		return false
	}
	return true
}

func proneAt(events []models.ProneEvent, ts time.Time) bool {
	for _, ev := range events {
		if ts.Before(ev.StartTime) {
			continue
		}
		if ev.EndTime == nil || !ts.After(*ev.EndTime) {
			return true
		}
	}
	return false
}
