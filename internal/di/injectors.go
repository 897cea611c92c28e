//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"sds/internal"
	"sds/internal/controllers"
	"sds/internal/managers"
	"sds/internal/providers"
	"sds/internal/scheduler"
	"sds/internal/services"
	"sds/internal/storage"
	"sds/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewClockProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		storage.NewZstdCompressor,
		storage.NewMemStore,
		wire.Bind(new(storage.StoreInterface), new(*storage.MemStore)),

		managers.NewChannelManager,
		managers.NewVideoManager,
		managers.NewKeywordManager,

		services.NewIngestService,
		scheduler.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
