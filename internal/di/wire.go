//go:build wireinject
// +build wireinject

package di

import (
	"FxCast/internal/usecase"
	"FxCast/pkg/config"
	"FxCast/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideSeriesSource,
	ProvideSeriesCollector,
	ProvideEvaluationTable,
	ProvideClickHouseClient,
	ProvideStore,
)

var dashboardSet = wire.NewSet(
	ProvidePublisher,
	ProvideRegressor,
	ProvideForecaster,
	ProvideDashboard,
)

var trainingQueueSet = wire.NewSet(
	ProvideTraining,
	ProvideTrainingQueue,
	ProvideTrainingScheduler,
)

// InitializeApp wires the HTTP dashboard, the optional prediction archiver and
// the optional training queue.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		dashboardSet,
		trainingQueueSet,
		ProvideAuditWorkbook,
		ProvideLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeTrainer wires the offline training run.
func InitializeTrainer(cfg *config.Config) (*Trainer, func(), error) {
	wire.Build(
		infraSet,
		ProvideTraining,
		ProvideTrainingStart,
		ProvideTrainer,
	)
	return nil, nil, nil
}

// InitializeDashboard wires the dashboard use case alone, for one-shot commands.
func InitializeDashboard(cfg *config.Config) (*usecase.DashboardUseCase, func(), error) {
	wire.Build(
		infraSet,
		dashboardSet,
	)
	return nil, nil, nil
}
