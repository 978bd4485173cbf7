package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sccm-datasci/ards-platform/pkg/ards"
	"github.com/sccm-datasci/ards-platform/pkg/cohort"
	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/kafka"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"github.com/sccm-datasci/ards-platform/pkg/features"
	"github.com/sccm-datasci/ards-platform/pkg/report"
	"github.com/sccm-datasci/ards-platform/pkg/source"
	"github.com/sccm-datasci/ards-platform/pkg/stats"
)

// Result carries the outputs of a completed run. Counts are reported per
// stage so a rerun against unchanged source data can be compared line by
// line.
type Result struct {
	RunID      uuid.UUID
	Source     string
	Screened   int
	Eligible   int
	Flagged    int
	Records    []models.AnalysisRecord
	Bounds     models.QuartileBounds
	TableOne   []stats.GroupSummary
	ByQuartile []stats.GroupSummary
	Comparison stats.Comparison
	Model      stats.LogisticModel
	ModelOK    bool
}

// Runner executes the full cohort pipeline as a fixed sequence of stages:
// extract, cohort, identify, derive, persist, report. Stages run in order
// and the first error aborts the run.
type Runner struct {
	cfg        *config.Config
	src        source.Source
	definition cohort.Definition
	identifier *ards.Identifier
	store      *Store
	producer   *kafka.Producer
}

func NewRunner(cfg *config.Config, src source.Source, identifier *ards.Identifier, store *Store, producer *kafka.Producer) *Runner {
	return &Runner{
		cfg:        cfg,
		src:        src,
		definition: cohort.DefaultDefinition(cfg.WindowHours),
		identifier: identifier,
		store:      store,
		producer:   producer,
	}
}

func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:  uuid.New(),
		Source: r.src.Name(),
	}
	startedAt := time.Now().UTC()

	if r.store != nil {
		run := &runRecord{
			ID:          result.RunID,
			Source:      result.Source,
			Policy:      r.cfg.CriteriaPolicy,
			WindowHours: r.cfg.WindowHours,
			Status:      runStatusRunning,
			StartedAt:   startedAt,
		}
		if err := r.store.createRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create run record: %w", err)
		}
	}

	err := r.execute(ctx, result)
	if r.store != nil {
		completedAt := time.Now().UTC()
		updates := map[string]interface{}{
			"status":          runStatusCompleted,
			"screened":        result.Screened,
			"eligible":        result.Eligible,
			"flagged":         result.Flagged,
			"quartile_bounds": marshalBounds(result.Bounds),
			"completed_at":    completedAt,
		}
		if err != nil {
			updates["status"] = runStatusFailed
			updates["error_message"] = err.Error()
		}
		if dbErr := r.store.updateRun(ctx, result.RunID, updates); dbErr != nil {
			logger.Stage("pipeline").WithError(dbErr).Error("Failed to update run record")
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Runner) execute(ctx context.Context, result *Result) error {
	runID := result.RunID.String()

	// extract
	r.announce(ctx, runID, "extract", "started", nil)
	stays, err := r.src.FetchStays(ctx)
	if err != nil {
		r.announce(ctx, runID, "extract", "failed", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("extract from %s: %w", result.Source, err)
	}
	result.Screened = len(stays)
	logger.Stage("extract").WithField("stays", len(stays)).Info("Fetched ICU stays")
	r.announce(ctx, runID, "extract", "completed", map[string]interface{}{"stays": len(stays)})

	// cohort
	r.announce(ctx, runID, "cohort", "started", nil)
	eligible := cohort.Apply(r.definition, stays)
	result.Eligible = len(eligible)
	r.announce(ctx, runID, "cohort", "completed", map[string]interface{}{
		"screened": len(stays),
		"eligible": len(eligible),
	})

	// identify
	r.announce(ctx, runID, "identify", "started", nil)
	flagged := make([]features.Flagged, 0, len(eligible))
	for _, stay := range eligible {
		flag := r.identifier.Identify(stay)
		if !flag.Positive {
			continue
		}
		flagged = append(flagged, features.Flagged{Record: stay, Flag: flag})
	}
	result.Flagged = len(flagged)
	logger.Stage("identify").WithFields(map[string]interface{}{
		"eligible": len(eligible),
		"flagged":  len(flagged),
	}).Info("Applied ARDS criteria")
	r.announce(ctx, runID, "identify", "completed", map[string]interface{}{"flagged": len(flagged)})

	// derive
	r.announce(ctx, runID, "derive", "started", nil)
	records, bounds := features.Derive(flagged, result.Source, r.cfg.WindowHours)
	result.Records = records
	result.Bounds = bounds
	result.TableOne = stats.TableOne(records)
	result.ByQuartile = stats.QuartileSummary(records)
	result.Comparison = stats.CompareProneTiming(records)
	result.Model, result.ModelOK = stats.FitMortality(records, stats.LogisticOptions{})
	if !result.ModelOK {
		logger.Stage("derive").Warn("Skipped mortality model, fewer than two outcome classes")
	}
	r.announce(ctx, runID, "derive", "completed", map[string]interface{}{"records": len(records)})

	// persist
	if r.store != nil {
		r.announce(ctx, runID, "persist", "started", nil)
		if err := r.store.ReplaceRecords(ctx, result.Source, records); err != nil {
			r.announce(ctx, runID, "persist", "failed", map[string]interface{}{"error": err.Error()})
			return fmt.Errorf("persist analysis records: %w", err)
		}
		logger.Stage("persist").WithField("records", len(records)).Info("Replaced analysis table")
		r.announce(ctx, runID, "persist", "completed", map[string]interface{}{"records": len(records)})
	}

	// report
	if r.cfg.OutputDir != "" {
		r.announce(ctx, runID, "report", "started", nil)
		artifacts := report.Artifacts{
			Records:    records,
			TableOne:   result.TableOne,
			Comparison: result.Comparison,
			Model:      result.Model,
			ModelOK:    result.ModelOK,
		}
		if err := report.WriteArtifacts(r.cfg.OutputDir, result.Source, artifacts); err != nil {
			r.announce(ctx, runID, "report", "failed", map[string]interface{}{"error": err.Error()})
			return fmt.Errorf("write report artifacts: %w", err)
		}
		if err := report.WriteTableOneXLSX(r.cfg.OutputDir, result.Source, result.TableOne, result.ByQuartile); err != nil {
			r.announce(ctx, runID, "report", "failed", map[string]interface{}{"error": err.Error()})
			return fmt.Errorf("write report workbook: %w", err)
		}
		logger.Stage("report").WithField("dir", r.cfg.OutputDir).Info("Wrote report artifacts")
		r.announce(ctx, runID, "report", "completed", map[string]interface{}{"dir": r.cfg.OutputDir})
	}

	return nil
}

func (r *Runner) announce(ctx context.Context, runID, stage, status string, data map[string]interface{}) {
	if err := r.producer.PublishStageEvent(ctx, runID, stage, status, r.src.Name(), data); err != nil {
		logger.Stage(stage).WithError(err).Warn("Failed to publish stage event")
	}
}
