package di

import (
	"testing"

	"VolPulse/internal/repository"
	"VolPulse/internal/service/cache"
	"VolPulse/internal/services/volatility"
	"VolPulse/internal/usecase"
	"VolPulse/pkg/config"
	applogger "VolPulse/pkg/logger"
	"VolPulse/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestOptionalInfrastructureDisabled(t *testing.T) {
	cfg := testConfig(t, "feed:\n  source: none\n")

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	archive := ProvideTransitionArchive(ch, cfg, applogger.Nop())
	assert.Nil(t, archive)
	assert.Nil(t, ProvideTransitionArchiver(archive, metrics.Noop{}, applogger.Nop(), cfg))

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)

	sink := ProvideAlertSink(producer, cfg, applogger.Nop())
	assert.IsType(t, &repository.LogAlertSink{}, sink)

	c := ProvideBytesCache(cfg)
	assert.IsType(t, &cache.TTLCache{}, c)

	closers := ProvideClosers(sink, c, ch)
	assert.Len(t, closers, 1)
}

func TestProvideFeedNone(t *testing.T) {
	cfg := testConfig(t, "feed:\n  source: none\n")
	tracker := volatility.NewHistoryTracker()
	ing := usecase.NewStreamIngestor(cfg.Engine.WindowSize, tracker, metrics.Noop{}, applogger.Nop())

	feed, err := ProvideFeed(cfg, ing, metrics.Noop{}, applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, feed)
}

func TestProvideFeedFinnhub(t *testing.T) {
	cfg := testConfig(t, "feed:\n  source: finnhub\nfinnhub:\n  api_key: k\n  symbols: [AAPL]\n")
	tracker := volatility.NewHistoryTracker()
	ing := usecase.NewStreamIngestor(cfg.Engine.WindowSize, tracker, metrics.Noop{}, applogger.Nop())

	feed, err := ProvideFeed(cfg, ing, metrics.Noop{}, applogger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &usecase.TickAggregator{}, feed)
}

func TestProvideFeedKafka(t *testing.T) {
	cfg := testConfig(t, "feed:\n  source: kafka\nkafka:\n  brokers: [localhost:9092]\n")
	tracker := volatility.NewHistoryTracker()
	ing := usecase.NewStreamIngestor(cfg.Engine.WindowSize, tracker, metrics.Noop{}, applogger.Nop())

	feed, err := ProvideFeed(cfg, ing, metrics.Noop{}, applogger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &usecase.KafkaFeed{}, feed)
}

func TestProvideHistoryTrackerRetention(t *testing.T) {
	cfg := testConfig(t, "feed:\n  source: none\nengine:\n  retention: 1m\n")
	tracker := ProvideHistoryTracker(cfg, nil)
	require.NotNil(t, tracker)
	_, ok := tracker.Current()
	assert.False(t, ok)
}
