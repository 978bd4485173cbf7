package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/segmentio/kafka-go"
)

// StageEvent is the audit record published at stage boundaries so external
// consumers can follow a pipeline run without access to its database.
type StageEvent struct {
	ID        string                 `json:"id"`
	RunID     string                 `json:"run_id"`
	Stage     string                 `json:"stage"`
	Status    string                 `json:"status"` // started, completed, failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type Producer struct {
	writer *kafka.Writer
}

// NewProducer returns nil when no brokers are configured; a nil producer is
// safe to publish on, making the audit stream strictly optional.
func NewProducer(cfg *config.Config) *Producer {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

func (p *Producer) PublishStageEvent(ctx context.Context, runID, stage, status, source string, data map[string]interface{}) error {
	if p == nil {
		return nil
	}

	event := StageEvent{
		ID:        uuid.New().String(),
		RunID:     runID,
		Stage:     stage,
		Status:    status,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stage event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.RunID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(stage)},
			{Key: "status", Value: []byte(status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"run_id": runID,
			"stage":  stage,
		}).Error("Failed to publish stage event")
		return err
	}

	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
