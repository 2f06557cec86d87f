package usecase

import (
	"context"

	pkgkafka "VolPulse/pkg/kafka"
)

// KafkaFeed runs a consumer that feeds the batch handler.
type KafkaFeed struct {
	consumer *pkgkafka.Consumer
	handler  *KafkaBatchHandler
}

func NewKafkaFeed(consumer *pkgkafka.Consumer, handler *KafkaBatchHandler) *KafkaFeed {
	return &KafkaFeed{consumer: consumer, handler: handler}
}

func (f *KafkaFeed) Start(ctx context.Context) error {
	f.consumer.RegisterHandler(f.handler)
	return f.consumer.Start(ctx)
}

func (f *KafkaFeed) Shutdown(ctx context.Context) error {
	return f.consumer.Stop(ctx)
}
