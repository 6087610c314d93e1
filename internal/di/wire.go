//go:build wireinject
// +build wireinject

package di

import (
	"FinSignal/pkg/config"
	"FinSignal/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
	ProvidePGPool,
)

var repositorySet = wire.NewSet(
	ProvideBarStore,
	ProvideMarketData,
	ProvideSignalEmitter,
	ProvideSentiment,
)

var serviceSet = wire.NewSet(
	ProvideIndicatorCache,
	ProvideDetector,
	ProvideClassifier,
	ProvideValidator,
	ProvideScorer,
	ProvideDedup,
	ProvideSimulator,
)

var usecaseSet = wire.NewSet(
	ProvideSymbolPipeline,
	ProvideSignalGenerator,
	ProvideBacktestRunner,
	ProvideBarsUseCase,
	ProvideBarPipeline,
	ProvideKafkaBarsHandler,
	ProvideKafkaConsumer,
	ProvideScheduler,
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup function closes infrastructure clients in reverse order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		repositorySet,
		serviceSet,
		usecaseSet,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
