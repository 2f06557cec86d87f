package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"VolPulse/internal/domain/repository"
	"VolPulse/internal/handler/api"
	mid "VolPulse/internal/middleware"
	internalrepo "VolPulse/internal/repository"
	"VolPulse/internal/service/cache"
	"VolPulse/internal/service/finnhub"
	svcmetrics "VolPulse/internal/service/metrics"
	"VolPulse/internal/service/ratelimit"
	"VolPulse/internal/services/volatility"
	"VolPulse/internal/usecase"
	pkgch "VolPulse/pkg/clickhouse"
	"VolPulse/pkg/config"
	xhttp "VolPulse/pkg/http"
	pkgkafka "VolPulse/pkg/kafka"
	applogger "VolPulse/pkg/logger"
	"VolPulse/pkg/metrics"
	"VolPulse/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the root logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideAPIMetrics creates the per-endpoint API metrics.
func ProvideAPIMetrics() *svcmetrics.APIMetrics {
	return svcmetrics.NewAPIMetrics(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient connects and prepares the archive table. It
// returns nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.TransitionSchema(cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTransitionArchive returns nil when ClickHouse is disabled.
func ProvideTransitionArchive(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.TransitionArchive {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseTransitionArchive(client, cfg.ClickHouse.Table, l)
}

// ProvideTransitionArchiver returns nil when there is no archive.
func ProvideTransitionArchiver(archive repository.TransitionArchive, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *mid.TransitionArchiver {
	if archive == nil {
		return nil
	}
	return mid.NewTransitionArchiver(archive, m, l, cfg.Engine.AlertQueueSize)
}

// ProvideHistoryTracker creates the tracker and hooks the archiver into it.
func ProvideHistoryTracker(cfg *config.Config, archiver *mid.TransitionArchiver) *volatility.HistoryTracker {
	opts := []volatility.TrackerOption{volatility.WithRetention(cfg.Engine.Retention)}
	if archiver != nil {
		opts = append(opts, volatility.WithTransitionHook(archiver.Observe))
	}
	return volatility.NewHistoryTracker(opts...)
}

// ProvideBytesCache picks Redis when enabled, otherwise an in-process cache.
func ProvideBytesCache(cfg *config.Config) cache.BytesCache {
	if cfg.Redis.Enabled {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return cache.NewTTLCache()
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertSink publishes to Kafka when a producer exists, else logs.
func ProvideAlertSink(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.AlertSink {
	if producer == nil {
		return internalrepo.NewLogAlertSink(l)
	}
	return internalrepo.NewKafkaAlertSink(producer, cfg.Kafka.Topics.Alerts)
}

// ProvideAlertDispatcher creates the bounded alert queue.
func ProvideAlertDispatcher(sink repository.AlertSink, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *mid.AlertDispatcher {
	return mid.NewAlertDispatcher(sink, m, l,
		mid.WithQueueSize(cfg.Engine.AlertQueueSize),
		mid.WithDeliveryTimeout(cfg.Engine.AlertTimeout),
	)
}

// ProvideSnapshotPublisher mirrors the tracker snapshot for one retention period.
func ProvideSnapshotPublisher(tracker *volatility.HistoryTracker, c cache.BytesCache, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.SnapshotPublisher {
	return usecase.NewSnapshotPublisher(tracker, c, cfg.Redis.Key, cfg.Engine.Retention, m, l)
}

// ProvideStreamIngestor wires window, tracker, alert queue and snapshot mirror.
func ProvideStreamIngestor(
	cfg *config.Config,
	tracker *volatility.HistoryTracker,
	m repository.Metrics,
	l *applogger.Logger,
	dispatcher *mid.AlertDispatcher,
	publisher *usecase.SnapshotPublisher,
) *usecase.StreamIngestor {
	return usecase.NewStreamIngestor(cfg.Engine.WindowSize, tracker, m, l,
		usecase.WithAlertQueue(dispatcher),
		usecase.WithSnapshotNotifier(publisher),
	)
}

// ProvideFeed builds the configured feed; "none" yields nil.
func ProvideFeed(cfg *config.Config, ingestor *usecase.StreamIngestor, m repository.Metrics, l *applogger.Logger) (server.Feed, error) {
	switch cfg.Feed.Source {
	case "finnhub":
		stream := finnhub.New(finnhub.Config{
			APIKey:         cfg.Finnhub.APIKey,
			WebSocketURL:   cfg.Finnhub.WebSocketURL,
			Symbols:        cfg.Finnhub.Symbols,
			ReconnectDelay: cfg.Finnhub.ReconnectDelay,
			ReconnectMax:   cfg.Finnhub.ReconnectMax,
			PingInterval:   cfg.Finnhub.PingInterval,
		}, l)
		limiter := ratelimit.New(cfg.Feed.MaxRPS, 1)
		return usecase.NewTickAggregator(stream, ingestor, limiter, cfg.Feed.TickInterval, m, l), nil
	case "kafka":
		consumer, err := pkgkafka.NewConsumer(l,
			pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
			pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
			pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
			pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
			pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		h := usecase.NewKafkaBatchHandler(cfg.Kafka.Topics.Quotes, ingestor, m)
		return usecase.NewKafkaFeed(consumer, h), nil
	default:
		return nil, nil
	}
}

// ProvidePatternHandler creates the HTTP API handler.
func ProvidePatternHandler(
	l *applogger.Logger,
	ingestor *usecase.StreamIngestor,
	archive repository.TransitionArchive,
	m *svcmetrics.APIMetrics,
	cfg *config.Config,
) *api.PatternEchoHandler {
	return api.NewPatternEchoHandler(l, ingestor, archive, ratelimit.New(cfg.Feed.MaxRPS, int(cfg.Feed.MaxRPS)), m)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.PatternEchoHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideClosers lists resources closed at shutdown; nil clients are skipped.
func ProvideClosers(sink repository.AlertSink, c cache.BytesCache, ch *pkgch.Client) []io.Closer {
	closers := []io.Closer{sink}
	if rc, ok := c.(*cache.RedisCache); ok {
		closers = append(closers, rc)
	}
	if ch != nil {
		closers = append(closers, ch)
	}
	return closers
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	feed server.Feed,
	dispatcher *mid.AlertDispatcher,
	publisher *usecase.SnapshotPublisher,
	archiver *mid.TransitionArchiver,
	httpServer *xhttp.Server,
	closers []io.Closer,
) *server.App {
	return server.New(cfg, l, feed, dispatcher, publisher, archiver, httpServer, closers)
}
