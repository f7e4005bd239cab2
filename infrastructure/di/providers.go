package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/commands/bus"
	commandhandlers "cosmos-backend/application/commands/handlers"
	"cosmos-backend/application/eventhandlers"
	"cosmos-backend/application/ports"
	"cosmos-backend/application/queries"
	querybus "cosmos-backend/application/queries/bus"
	queryhandlers "cosmos-backend/application/queries/handlers"
	"cosmos-backend/application/services"
	domainconfig "cosmos-backend/domain/config"
	"cosmos-backend/infrastructure/codec"
	"cosmos-backend/infrastructure/config"
	"cosmos-backend/infrastructure/locking"
	"cosmos-backend/infrastructure/messaging"
	"cosmos-backend/infrastructure/peers"
	"cosmos-backend/infrastructure/persistence"
	"cosmos-backend/infrastructure/persistence/dynamodb"
	"cosmos-backend/infrastructure/persistence/sqlite"
	"cosmos-backend/interfaces/http/rest"
	"cosmos-backend/pkg/observability"
)

// Storage is the selected backend with the world locker that fits it.
type Storage struct {
	Store  ports.Store
	Locker ports.WorldLocker
}

// EventSubscriptions marks that the in-process subscribers are attached to
// the event bus.
type EventSubscriptions struct{}

// ProvideLogLevel creates the runtime-adjustable log level
func ProvideLogLevel(cfg *config.Config) zap.AtomicLevel {
	return observability.NewAtomicLevel(cfg.Logging.Level)
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	return observability.NewLogger(cfg.IsProduction(), level)
}

// ProvideCollector creates the metrics collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("cosmos")
}

// ProvideDomainConfig derives the business rules from the configuration
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.Domain()
}

// ProvideStorage opens the configured backend. SQLite pairs with the
// in-process locker; DynamoDB with the table-backed lock shared by every
// instance.
func ProvideStorage(ctx context.Context, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) (*Storage, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Dynamo.Region))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.Storage.Dynamo.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.Dynamo.Endpoint)
			}
		})
		store := dynamodb.NewStore(client, dynamodb.Config{
			TableName:     cfg.Storage.Dynamo.TableName,
			GSI1IndexName: cfg.Storage.Dynamo.GSI1Name,
			GSI2IndexName: cfg.Storage.Dynamo.GSI2Name,
		}, logger)
		lock := dynamodb.NewWorldLock(client, cfg.Storage.Dynamo.TableName,
			cfg.Storage.Dynamo.LockLease, cfg.Storage.Dynamo.LockTimeout, logger)

		logger.Info("Using DynamoDB store", zap.String("table", cfg.Storage.Dynamo.TableName))
		return &Storage{Store: store, Locker: lock}, func() { _ = store.Close() }, nil

	default:
		store, err := sqlite.Open(ctx, sqlite.Config{
			Path:         cfg.Storage.SQLite.Path,
			BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		logger.Info("Using SQLite store", zap.String("path", cfg.Storage.SQLite.Path))
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close store", zap.Error(err))
			}
		}
		return &Storage{Store: store, Locker: locking.NewKeyedLocker(collector)}, cleanup, nil
	}
}

// ProvideStore exposes the selected store
func ProvideStore(s *Storage) ports.Store {
	return s.Store
}

// ProvideWorldLocker exposes the selected locker
func ProvideWorldLocker(s *Storage) ports.WorldLocker {
	return s.Locker
}

// ProvideTransactor creates the retrying transaction runner
func ProvideTransactor(store ports.Store, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) ports.Transactor {
	return persistence.NewTransactor(store, cfg.RetryConfig(), collector, logger)
}

// ProvideEventBus creates the in-process bus, forwarding to EventBridge
// when an event bus name is configured.
func ProvideEventBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*messaging.EventBus, error) {
	if cfg.Events.EventBusName == "" {
		return messaging.NewEventBus(nil, logger), nil
	}

	region := cfg.Events.Region
	if region == "" {
		region = cfg.Storage.Dynamo.Region
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	publisher := messaging.NewEventBridgePublisher(awseventbridge.NewFromConfig(awsCfg), cfg.Events.EventBusName, logger)

	logger.Info("Forwarding domain events to EventBridge", zap.String("event_bus", cfg.Events.EventBusName))
	return messaging.NewEventBus(publisher, logger), nil
}

// ProvideEventSubscriptions attaches the archive recorder and the package
// counter to the bus.
func ProvideEventSubscriptions(
	eventBus *messaging.EventBus,
	transactor ports.Transactor,
	domain *domainconfig.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
) (EventSubscriptions, error) {
	recorder := eventhandlers.NewArchiveRecorder(transactor, domain, logger)
	counter := collector.EventHandler()

	var errs []error
	for _, t := range recorder.EventTypes() {
		errs = append(errs, eventBus.Subscribe(t, recorder))
	}
	for _, t := range counter.EventTypes() {
		errs = append(errs, eventBus.Subscribe(t, counter))
	}
	return EventSubscriptions{}, errors.Join(errs...)
}

// ProvidePeerRegistry creates the hot-reloadable peer list
func ProvidePeerRegistry(cfg *config.Config, logger *zap.Logger) *peers.Registry {
	return peers.NewRegistry(cfg.Network.Peers, cfg.Network.Timeout, cfg.BreakerConfig(), logger)
}

// ProvideNetworkDirectory creates the network directory over the local
// ledger and the configured peers
func ProvideNetworkDirectory(
	transactor ports.Transactor,
	registry *peers.Registry,
	cfg *config.Config,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.NetworkDirectory {
	local := peers.NewLocalPeer(cfg.Sharing.InstallationName, transactor)
	return services.NewNetworkDirectory(local, registry, cfg.Sharing.NetworkThumbnail, collector, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	eventBus *messaging.EventBus,
	domain *domainconfig.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
	_ EventSubscriptions,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.TracingMiddleware(),
		bus.MetricsMiddleware(collector),
		bus.LoggingMiddleware(logger),
	)

	packageCodec := codec.NewZipPackageCodec()
	composer := services.NewReflectionComposer()

	createWorld := commandhandlers.NewCreateWorldHandler(transactor, eventBus, domain, logger)
	updateMap := commandhandlers.NewUpdateMapLayoutHandler(transactor, locker, eventBus, logger)
	branch := commandhandlers.NewBranchTimelineHandler(transactor, locker, eventBus, domain, logger)
	collapse := commandhandlers.NewCollapseTimelinesHandler(transactor, locker, eventBus, logger)
	reflect := commandhandlers.NewReflectHandler(transactor, locker, composer, eventBus, domain, logger)
	export := commandhandlers.NewExportPackageHandler(transactor, locker, packageCodec, eventBus, domain, logger)
	importPkg := commandhandlers.NewImportPackageHandler(transactor, locker, packageCodec, eventBus, domain, logger)
	revoke := commandhandlers.NewRevokePackageHandler(transactor, eventBus, logger)

	err := errors.Join(
		commandBus.Register(commands.CreateWorldCommand{}, command(createWorld.Handle)),
		commandBus.Register(commands.UpdateMapLayoutCommand{}, command(updateMap.Handle)),
		commandBus.Register(commands.BranchTimelineCommand{}, command(branch.Handle)),
		commandBus.Register(commands.CollapseTimelinesCommand{}, command(collapse.Handle)),
		commandBus.Register(commands.ReflectCommand{}, command(reflect.Handle)),
		commandBus.Register(commands.ExportPackageCommand{}, command(export.Handle)),
		commandBus.Register(commands.ImportPackageCommand{}, command(importPkg.Handle)),
		commandBus.Register(commands.RevokePackageCommand{}, command(revoke.Handle)),
	)
	if err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	directory *services.NetworkDirectory,
	domain *domainconfig.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.TracingMiddleware(),
		querybus.MetricsMiddleware(collector),
		querybus.LoggingMiddleware(logger),
	)

	archiver := codec.NewSeedArchiver()

	err := errors.Join(
		queryBus.Register(queries.GetWorldQuery{}, query(queryhandlers.NewGetWorldHandler(transactor).Handle)),
		queryBus.Register(queries.ListWorldsQuery{}, query(queryhandlers.NewListWorldsHandler(transactor, domain).Handle)),
		queryBus.Register(queries.StorageReportQuery{}, query(queryhandlers.NewStorageReportHandler(transactor, domain).Handle)),
		queryBus.Register(queries.ListTimelinesQuery{}, query(queryhandlers.NewListTimelinesHandler(transactor, locker).Handle)),
		queryBus.Register(queries.EternalSeedQuery{}, query(queryhandlers.NewEternalSeedHandler(transactor, locker, archiver, logger).Handle)),
		queryBus.Register(queries.SearchArchiveQuery{}, query(queryhandlers.NewSearchArchiveHandler(transactor).Handle)),
		queryBus.Register(queries.GetReflectionQuery{}, query(queryhandlers.NewGetReflectionHandler(transactor).Handle)),
		queryBus.Register(queries.GetSharePackageQuery{}, query(queryhandlers.NewGetSharePackageHandler(transactor).Handle)),
		queryBus.Register(queries.ListSharesQuery{}, query(queryhandlers.NewListSharesHandler(transactor).Handle)),
		queryBus.Register(queries.DownloadPackageQuery{}, query(queryhandlers.NewDownloadPackageHandler(transactor).Handle)),
		queryBus.Register(queries.ListNetworkQuery{}, query(queryhandlers.NewListNetworkHandler(directory).Handle)),
		queryBus.Register(queries.GetMergeRecordQuery{}, query(queryhandlers.NewGetMergeRecordHandler(transactor).Handle)),
		queryBus.Register(queries.ListMergesQuery{}, query(queryhandlers.NewListMergesHandler(transactor).Handle)),
	)
	if err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	store ports.Store,
	collector *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, store, collector, collector.Handler(), rest.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		PackageSuffix:  cfg.Sharing.PackageSuffix,
		Debug:          cfg.Server.Debug,
	}, logger)
}

// command adapts a typed command handler to the bus.
func command[C bus.Command](handle func(context.Context, C) error) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("unexpected command type %T", cmd)
		}
		return handle(ctx, typed)
	})
}

// query adapts a typed query handler to the bus.
func query[Q querybus.Query, R any](handle func(context.Context, Q) (R, error)) querybus.QueryHandler {
	return querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
		typed, ok := q.(Q)
		if !ok {
			return nil, fmt.Errorf("unexpected query type %T", q)
		}
		result, err := handle(ctx, typed)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}
