package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sccm-datasci/ards-platform/pkg/ards"
	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/database"
	"github.com/sccm-datasci/ards-platform/pkg/common/kafka"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/pipeline"
	"github.com/sccm-datasci/ards-platform/pkg/source"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Log.Info("Interrupt received, aborting run")
		cancel()
	}()

	src, cleanup, err := buildSource(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize source")
	}
	defer cleanup()

	rules, err := ards.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load text rules")
	}
	matcher, err := ards.NewMatcher(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to compile text rules")
	}
	identifier := ards.NewIdentifier(ards.Options{
		WindowHours: cfg.WindowHours,
		Policy:      cfg.CriteriaPolicy,
	}, matcher)

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to postgres")
	}
	defer database.ClosePostgres()

	store := pipeline.NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate analysis tables")
	}

	producer := kafka.NewProducer(cfg)
	defer producer.Close()

	runner := pipeline.NewRunner(cfg, src, identifier, store, producer)
	result, err := runner.Run(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("Pipeline run failed")
	}

	logger.Log.WithFields(map[string]interface{}{
		"run_id":   result.RunID.String(),
		"source":   result.Source,
		"screened": result.Screened,
		"eligible": result.Eligible,
		"flagged":  result.Flagged,
	}).Info("Pipeline run completed")
}

// buildSource selects the extraction backend by name. "icu_db" reads the
// single-center postgres export; "multicenter" reads the federated BigQuery
// dataset.
func buildSource(ctx context.Context, cfg *config.Config) (source.Source, func(), error) {
	switch cfg.SourceName {
	case "multicenter":
		bq, err := database.NewBigQuery(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return source.NewBigQuery(bq, cfg.SourceName), func() { bq.Close() }, nil
	default:
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		return source.NewPostgres(db, cfg.SourceName), func() {}, nil
	}
}
