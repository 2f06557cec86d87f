package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"VolPulse/internal/domain/models"
	drepo "VolPulse/internal/domain/repository"
	pkgkafka "VolPulse/pkg/kafka"

	"github.com/cenkalti/backoff/v4"
)

// KafkaBatchHandler feeds quote batches from Kafka into the ingestor.
type KafkaBatchHandler struct {
	topic    string
	ingestor BatchIngestor
	metrics  drepo.Metrics
}

func NewKafkaBatchHandler(topic string, ingestor BatchIngestor, metrics drepo.Metrics) *KafkaBatchHandler {
	return &KafkaBatchHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaBatchHandler) Topic() string { return h.topic }

// Handle decodes {"ts": <unix ms>, "values": [...]}. Undecodable or invalid
// batches are permanent failures and are not retried.
func (h *KafkaBatchHandler) Handle(ctx context.Context, b []byte) error {
	var m models.QuoteBatch
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return backoff.Permanent(fmt.Errorf("decode quote batch: %w", err))
	}
	if m.Timestamp > 0 {
		h.metrics.RecordLatency("ingest_e2e", time.Since(time.UnixMilli(m.Timestamp)).Seconds())
	}

	err := h.ingestor.IngestBatch(ctx, m.Values)
	if errors.Is(err, ErrInvalidInput) {
		return backoff.Permanent(err)
	}
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaBatchHandler)(nil)
