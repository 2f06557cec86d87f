package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applogger "VolPulse/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
// Wrap an error with backoff.Permanent to skip retries.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Reader is the subset of *kafka.Reader the consumer relies on.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	BufferSize int
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
	DLQTopic   string
	MinBytes   int
	MaxBytes   int
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

// WithConsumerGroupID sets consumer group ID.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

// WithConsumerRetry configures retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets a Kafka topic name for DLQ.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

// WithConsumerFetch sets fetch min/max bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the internal channel buffer size.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// Consumer reads one topic and hands messages, in order, to a single handler.
// Ordering matters here: the handler feeds a rolling window.
type Consumer struct {
	cfg     *ConsumerConfig
	log     *applogger.Logger
	handler MessageHandler
	reader  Reader
	dlq     *kafka.Writer
	msgCh   chan kafka.Message
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(log *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "volpulse",
		BufferSize: 64,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if log == nil {
		log = applogger.Nop()
	}

	c := &Consumer{
		cfg:   cfg,
		log:   log.Component("kafka_consumer"),
		msgCh: make(chan kafka.Message, cfg.BufferSize),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	initConsumerMetricsOnce()
	return c, nil
}

// RegisterHandler sets the handler; its topic is the one consumed.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	c.handler = handler
}

// SetReader overrides the kafka reader (used by tests).
func (c *Consumer) SetReader(r Reader) {
	c.reader = r
}

// Start launches the fetch loop and the handling worker.
func (c *Consumer) Start(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("kafka consumer: no handler registered")
	}
	if c.reader == nil {
		c.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    c.handler.Topic(),
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(2)
	go c.fetch(ctx)
	go c.work(ctx)

	c.log.Info("started", applogger.String("topic", c.handler.Topic()), applogger.String("group", c.cfg.GroupID))
	return nil
}

// Stop cancels fetching, waits for the worker and closes the reader.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped || c.cancel == nil {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var stopErr error
	select {
	case <-ctx.Done():
		stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-done:
	}

	if err := c.reader.Close(); err != nil {
		c.log.Warn("reader close error", applogger.Error(err))
	}
	if c.dlq != nil {
		if err := c.dlq.Close(); err != nil {
			c.log.Warn("dlq writer close error", applogger.Error(err))
		}
	}
	return stopErr
}

func (c *Consumer) fetch(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.msgCh)
	topic := c.handler.Topic()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("fetch error", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case c.msgCh <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgCh)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context) {
	defer c.wg.Done()
	for msg := range c.msgCh {
		c.handleOne(ctx, msg)
	}
}

func (c *Consumer) handleOne(ctx context.Context, msg kafka.Message) {
	topic := c.handler.Topic()
	start := time.Now()
	defer func() {
		consumerHandleLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	attempts := 0
	op := func() (err error) {
		attempts++
		defer func() {
			if r := recover(); r != nil {
				err = backoff.Permanent(fmt.Errorf("handler panic: %v", r))
			}
		}()
		return c.handler.Handle(ctx, msg.Value)
	}
	err := backoff.Retry(op, c.retryPolicy(ctx))

	if err != nil {
		consumerFailures.WithLabelValues(topic).Inc()
		c.log.Error("message handling failed",
			applogger.String("topic", topic),
			applogger.Int("partition", msg.Partition),
			applogger.Int64("offset", msg.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		if ctx.Err() != nil {
			return
		}
		// Offsets are committed per partition, so a later commit covers this
		// message anyway. It is parked in the DLQ when one is configured and
		// otherwise dropped and counted.
		if !c.deadLetter(ctx, topic, msg) {
			consumerDropped.WithLabelValues(topic).Inc()
			c.log.Warn("message dropped",
				applogger.String("topic", topic),
				applogger.Int("partition", msg.Partition),
				applogger.Int64("offset", msg.Offset),
			)
		}
	}

	if err := c.commit(ctx, msg); err != nil {
		c.log.Warn("commit failed", applogger.Int64("offset", msg.Offset), applogger.Error(err))
	}
}

func (c *Consumer) deadLetter(ctx context.Context, topic string, msg kafka.Message) bool {
	if c.dlq == nil {
		return false
	}
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(topic)}},
	})
	if err != nil {
		c.log.Error("dlq write failed", applogger.String("dlq", c.cfg.DLQTopic), applogger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) retryPolicy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BackoffMin
	eb.MaxInterval = c.cfg.BackoffMax
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = eb
	if c.cfg.RetryMax >= 0 {
		b = backoff.WithMaxRetries(b, uint64(c.cfg.RetryMax))
	}
	return backoff.WithContext(b, ctx)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 2), ctx)
	return backoff.Retry(func() error {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return c.reader.CommitMessages(cctx, msg)
	}, b)
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerFailures      *prometheus.CounterVec
	consumerDropped       *prometheus.CounterVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "volpulse_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "volpulse_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
		consumerFailures = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "volpulse_kafka_consumer_failures_total", Help: "Messages that exhausted retries"},
			[]string{"topic"},
		)
		consumerDropped = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "volpulse_kafka_consumer_dropped_total", Help: "Failed messages committed without reaching a DLQ"},
			[]string{"topic"},
		)
	})
}
