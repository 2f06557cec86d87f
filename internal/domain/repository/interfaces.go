package repository

import (
	"context"

	"VolPulse/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// AlertSink is the intake of the alert-rule/notification collaborator.
type AlertSink interface {
	Deliver(ctx context.Context, a models.AlertPayload) error
	Close() error
}

// TransitionArchive stores pattern transitions outside the process.
type TransitionArchive interface {
	Append(ctx context.Context, t models.Transition) error
	Latest(ctx context.Context, limit int) ([]models.Transition, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordObservation(value float64)
	RecordPattern(pattern string)
	RecordTransition(pattern string)
	RecordAlert(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
