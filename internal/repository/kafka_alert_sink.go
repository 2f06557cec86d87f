package repository

import (
	"context"
	"fmt"

	"VolPulse/internal/domain/models"
	domrepo "VolPulse/internal/domain/repository"
	applogger "VolPulse/pkg/logger"
)

// Publisher is the part of pkg/kafka.Producer the sink uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaAlertSink publishes alerts as JSON keyed by pattern type, so alerts
// of one type keep their order on a partition.
type KafkaAlertSink struct {
	producer Publisher
	topic    string
}

// NewKafkaAlertSink creates Kafka alert sink.
func NewKafkaAlertSink(producer Publisher, topic string) *KafkaAlertSink {
	return &KafkaAlertSink{producer: producer, topic: topic}
}

func (s *KafkaAlertSink) Deliver(ctx context.Context, a models.AlertPayload) error {
	if err := s.producer.Publish(ctx, s.topic, []byte(a.Type), a); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.Type, err)
	}
	return nil
}

func (s *KafkaAlertSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// LogAlertSink writes alerts to the log; used when no broker is configured.
type LogAlertSink struct {
	log *applogger.Logger
}

func NewLogAlertSink(log *applogger.Logger) *LogAlertSink {
	if log == nil {
		log = applogger.Nop()
	}
	return &LogAlertSink{log: log.Component("alerts")}
}

func (s *LogAlertSink) Deliver(_ context.Context, a models.AlertPayload) error {
	s.log.Info("pattern alert",
		applogger.String("pattern", string(a.Type)),
		applogger.Float64("confidence", a.Confidence),
		applogger.String("description", a.Description),
		applogger.Float64("trend", a.Metrics.Trend),
		applogger.Float64("volatility", a.Metrics.Volatility),
	)
	return nil
}

func (s *LogAlertSink) Close() error { return nil }

var (
	_ domrepo.AlertSink = (*KafkaAlertSink)(nil)
	_ domrepo.AlertSink = (*LogAlertSink)(nil)
)
