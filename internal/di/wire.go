//go:build wireinject
// +build wireinject

package di

import (
	"ProScalper/pkg/config"
	"ProScalper/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application plus
// a cleanup that releases the data source, publisher and rate-limit store.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideAPIMetrics,

		// Data and computation
		ProvideBarSource,
		ProvidePipeline,
		ProvideSignalsUseCase,
		ProvideSignalPublisher,

		// Live delivery
		ProvideHub,
		ProvideScanner,

		// Transport
		ProvideLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
