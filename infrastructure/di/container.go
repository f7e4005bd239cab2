// Package di assembles the server from configuration.
package di

import (
	"go.uber.org/zap"

	"cosmos-backend/application/commands/bus"
	"cosmos-backend/application/ports"
	querybus "cosmos-backend/application/queries/bus"
	"cosmos-backend/application/services"
	"cosmos-backend/infrastructure/config"
	"cosmos-backend/infrastructure/messaging"
	"cosmos-backend/infrastructure/peers"
	"cosmos-backend/interfaces/http/rest"
	"cosmos-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	LogLevel   zap.AtomicLevel
	Metrics    *observability.Collector
	Store      ports.Store
	Transactor ports.Transactor
	Locker     ports.WorldLocker
	EventBus   *messaging.EventBus
	Peers      *peers.Registry
	Directory  *services.NetworkDirectory
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Router     *rest.Router
}

// ApplyConfig applies the settings that may change at runtime: the log
// level and the peer list. The config watcher calls it after each reload.
func (c *Container) ApplyConfig(cfg *config.Config) {
	if !observability.SetLevel(c.LogLevel, cfg.Logging.Level) {
		c.Logger.Warn("Ignoring unknown log level", zap.String("level", cfg.Logging.Level))
	}
	c.Peers.Replace(cfg.Network.Peers)
}
