//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"cosmos-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideCollector,
	ProvideDomainConfig,
	ProvideStorage,
	ProvideStore,
	ProvideWorldLocker,
	ProvideTransactor,
	ProvideEventBus,
	ProvideEventSubscriptions,
	ProvidePeerRegistry,
	ProvideNetworkDirectory,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
