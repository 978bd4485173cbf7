package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
)

// WrappedBigQuery bundles the client with the project and dataset the
// multi-center queries run against. Credentials come from the standard
// Google application-default chain.
type WrappedBigQuery struct {
	Client  *bigquery.Client
	Project string
	Dataset string
}

func NewBigQuery(ctx context.Context, cfg *config.Config) (*WrappedBigQuery, error) {
	if cfg.BigQueryProject == "" || cfg.BigQueryDataset == "" {
		return nil, fmt.Errorf("bigquery project and dataset must be configured")
	}

	client, err := bigquery.NewClient(ctx, cfg.BigQueryProject)
	if err != nil {
		return nil, fmt.Errorf("connecting to bigquery: %w", err)
	}

	logger.Log.WithField("dataset", cfg.BigQueryDataset).Info("Connected to BigQuery")

	return &WrappedBigQuery{
		Client:  client,
		Project: cfg.BigQueryProject,
		Dataset: cfg.BigQueryDataset,
	}, nil
}

func (bq *WrappedBigQuery) Close() error {
	if bq.Client != nil {
		return bq.Client.Close()
	}
	return nil
}
