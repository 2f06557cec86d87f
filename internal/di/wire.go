//go:build wireinject
// +build wireinject

package di

import (
	"VolPulse/pkg/config"
	"VolPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideAPIMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideBytesCache,

		// Repositories
		ProvideTransitionArchive,
		ProvideAlertSink,

		// Engine
		ProvideTransitionArchiver,
		ProvideHistoryTracker,
		ProvideAlertDispatcher,
		ProvideSnapshotPublisher,
		ProvideStreamIngestor,
		ProvideFeed,

		// HTTP
		ProvidePatternHandler,
		ProvideHTTPServer,

		// Application server
		ProvideClosers,
		ProvideApp,
	)
	return &server.App{}, nil
}
