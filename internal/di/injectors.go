//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"netguard/internal"
	"netguard/internal/controllers"
	"netguard/internal/monitor"
	"netguard/internal/netsrc"
	"netguard/internal/providers"
	"netguard/internal/services"
	"netguard/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		monitor.NewZstdCompressor,
		monitor.NewStore,
		wire.Bind(new(services.StoreInterface), new(*monitor.Store)),

		services.NewDeviceRegistry,
		services.NewEventService,
		services.NewUsageService,
		services.NewPolicyService,

		netsrc.NewProcNetTelemetry,
		netsrc.NewNeighborPresence,
		netsrc.NewFeedClassifier,
		netsrc.NewAccessClassifier,

		monitor.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
