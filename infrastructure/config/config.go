// Package config loads the server configuration from defaults, YAML files
// and COSMOS_ environment variables, and watches the file for runtime changes.
package config

import (
	"net"
	"strconv"
	"time"

	domainconfig "cosmos-backend/domain/config"
	"cosmos-backend/infrastructure/peers"
	"cosmos-backend/infrastructure/persistence"
	"cosmos-backend/pkg/observability"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "COSMOS_"

type Config struct {
	Environment Environment `yaml:"environment" env:"ENVIRONMENT" validate:"required,oneof=development staging production"`
	Server      Server      `yaml:"server" envPrefix:"SERVER_"`
	Storage     Storage     `yaml:"storage" envPrefix:"STORAGE_"`
	Logging     Logging     `yaml:"logging" envPrefix:"LOG_"`
	Tracing     Tracing     `yaml:"tracing" envPrefix:"TRACING_"`
	Events      Events      `yaml:"events" envPrefix:"EVENTS_"`
	Sharing     Sharing     `yaml:"sharing" envPrefix:"SHARING_"`
	Network     Network     `yaml:"network" envPrefix:"NETWORK_"`
	CORS        CORS        `yaml:"cors" envPrefix:"CORS_"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

type Server struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES" validate:"min=1024"`
	Debug           bool          `yaml:"debug" env:"DEBUG"`
}

type Storage struct {
	Backend string   `yaml:"backend" env:"BACKEND" validate:"required,oneof=sqlite dynamodb"`
	SQLite  SQLite   `yaml:"sqlite" envPrefix:"SQLITE_"`
	Dynamo  DynamoDB `yaml:"dynamodb" envPrefix:"DYNAMODB_"`
	Retry   Retry    `yaml:"retry" envPrefix:"RETRY_"`
}

type SQLite struct {
	Path         string        `yaml:"path" env:"PATH"`
	BusyTimeout  time.Duration `yaml:"busy_timeout" env:"BUSY_TIMEOUT"`
	MaxOpenConns int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"min=0"`
}

type DynamoDB struct {
	TableName   string        `yaml:"table_name" env:"TABLE_NAME"`
	GSI1Name    string        `yaml:"gsi1_name" env:"GSI1_NAME"`
	GSI2Name    string        `yaml:"gsi2_name" env:"GSI2_NAME"`
	Region      string        `yaml:"region" env:"REGION"`
	Endpoint    string        `yaml:"endpoint" env:"ENDPOINT"`
	LockLease   time.Duration `yaml:"lock_lease" env:"LOCK_LEASE"`
	LockTimeout time.Duration `yaml:"lock_timeout" env:"LOCK_TIMEOUT"`
}

type Retry struct {
	MaxAttempts     uint          `yaml:"max_attempts" env:"MAX_ATTEMPTS" validate:"min=1,max=20"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" env:"MAX_INTERVAL"`
}

type Logging struct {
	Level string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
}

type Tracing struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE" validate:"min=0,max=1"`
}

type Events struct {
	// EventBusName enables forwarding domain events to EventBridge when set.
	EventBusName string `yaml:"event_bus_name" env:"EVENT_BUS_NAME"`
	Region       string `yaml:"region" env:"REGION"`
}

type Sharing struct {
	InstallationName        string `yaml:"installation_name" env:"INSTALLATION_NAME" validate:"required"`
	PackageSuffix           string `yaml:"package_suffix" env:"PACKAGE_SUFFIX" validate:"required"`
	DefaultCreditName       string `yaml:"default_credit_name" env:"DEFAULT_CREDIT_NAME"`
	DefaultCreditRole       string `yaml:"default_credit_role" env:"DEFAULT_CREDIT_ROLE" validate:"required"`
	NetworkThumbnail        string `yaml:"network_thumbnail" env:"NETWORK_THUMBNAIL"`
	StorageWarningThreshold int    `yaml:"storage_warning_threshold" env:"STORAGE_WARNING_THRESHOLD" validate:"min=0"`
	DefaultWarmth           int    `yaml:"default_warmth" env:"DEFAULT_WARMTH" validate:"min=0,max=100"`
}

type Network struct {
	Peers   []peers.PeerConfig `yaml:"peers" validate:"dive"`
	Timeout time.Duration      `yaml:"timeout" env:"TIMEOUT"`
	Breaker Breaker            `yaml:"breaker" envPrefix:"BREAKER_"`
}

type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" env:"MAX_REQUESTS"`
	Interval         time.Duration `yaml:"interval" env:"INTERVAL"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"FAILURE_THRESHOLD" validate:"min=0,max=1"`
	MinRequests      uint32        `yaml:"min_requests" env:"MIN_REQUESTS"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxAge         int      `yaml:"max_age" env:"MAX_AGE"`
}

// Default returns the configuration used before any file or variable applies.
func Default() *Config {
	domain := domainconfig.DefaultDomainConfig()
	retry := persistence.DefaultRetryConfig()
	breaker := peers.DefaultBreakerConfig()

	return &Config{
		Environment: Development,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Storage: Storage{
			Backend: BackendSQLite,
			SQLite: SQLite{
				Path:        "data/cosmos.db",
				BusyTimeout: 5 * time.Second,
			},
			Dynamo: DynamoDB{
				GSI1Name:    "GSI1",
				GSI2Name:    "GSI2",
				Region:      "us-east-1",
				LockLease:   10 * time.Second,
				LockTimeout: time.Second,
			},
			Retry: Retry{
				MaxAttempts:     retry.MaxAttempts,
				InitialInterval: retry.InitialInterval,
				MaxInterval:     retry.MaxInterval,
			},
		},
		Logging: Logging{Level: "info"},
		Tracing: Tracing{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "cosmos-backend",
			SampleRate:  1,
		},
		Sharing: Sharing{
			InstallationName:        "local",
			PackageSuffix:           domain.PackageSuffix,
			DefaultCreditName:       domain.DefaultCreditName,
			DefaultCreditRole:       domain.DefaultCreditRole,
			NetworkThumbnail:        domain.NetworkThumbnail,
			StorageWarningThreshold: domain.StorageWarningThreshold,
			DefaultWarmth:           domain.DefaultWarmth,
		},
		Network: Network{
			Timeout: 5 * time.Second,
			Breaker: Breaker{
				MaxRequests:      breaker.MaxRequests,
				Interval:         breaker.Interval,
				Timeout:          breaker.Timeout,
				FailureThreshold: breaker.FailureThreshold,
				MinRequests:      breaker.MinRequests,
			},
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			MaxAge:         300,
		},
	}
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// Domain returns the business rules with the configurable values applied.
func (c *Config) Domain() *domainconfig.DomainConfig {
	d := domainconfig.DefaultDomainConfig()
	d.PackageSuffix = c.Sharing.PackageSuffix
	d.DefaultCreditName = c.Sharing.DefaultCreditName
	d.DefaultCreditRole = c.Sharing.DefaultCreditRole
	d.NetworkThumbnail = c.Sharing.NetworkThumbnail
	d.StorageWarningThreshold = c.Sharing.StorageWarningThreshold
	d.DefaultWarmth = c.Sharing.DefaultWarmth
	return d
}

// RetryConfig returns the storage retry bounds.
func (c *Config) RetryConfig() persistence.RetryConfig {
	return persistence.RetryConfig{
		MaxAttempts:     c.Storage.Retry.MaxAttempts,
		InitialInterval: c.Storage.Retry.InitialInterval,
		MaxInterval:     c.Storage.Retry.MaxInterval,
	}
}

// BreakerConfig returns the peer circuit breaker settings.
func (c *Config) BreakerConfig() peers.BreakerConfig {
	return peers.BreakerConfig{
		MaxRequests:      c.Network.Breaker.MaxRequests,
		Interval:         c.Network.Breaker.Interval,
		Timeout:          c.Network.Breaker.Timeout,
		FailureThreshold: c.Network.Breaker.FailureThreshold,
		MinRequests:      c.Network.Breaker.MinRequests,
	}
}

// TracingConfig returns the exporter settings.
func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Environment: string(c.Environment),
		Endpoint:    c.Tracing.Endpoint,
		Insecure:    c.Tracing.Insecure,
		SampleRate:  c.Tracing.SampleRate,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
