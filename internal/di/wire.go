//go:build wireinject
// +build wireinject

package di

import (
	"BitDCA/pkg/config"
	"BitDCA/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideJobQueue,

		// Repositories
		ProvideCache,
		ProvideSnapshotCache,
		ProvideMarketFeed,
		ProvidePriceArchive,
		ProvideSnapshotPublisher,
		ProvideSubscriberStore,
		ProvideBroadcastQueue,

		// Use cases
		ProvideRegistry,
		ProvideIngestor,
		ProvideSessionManager,
		ProvideNewsletter,
		ProvideSnapshotArchiver,

		// Transport and application
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
