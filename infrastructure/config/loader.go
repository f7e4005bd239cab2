package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pkgerrors "cosmos-backend/pkg/errors"
	"cosmos-backend/pkg/utils"
)

// DefaultPath is the config file read when CONFIG_FILE is unset.
const DefaultPath = "config/config.yaml"

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Loader applies, in increasing priority: defaults, the base YAML file, the
// environment overlay next to it and COSMOS_ environment variables.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given file. An empty path means
// CONFIG_FILE, then DefaultPath.
func NewLoader(path string) *Loader {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultPath
	}
	return &Loader{path: path}
}

// Path returns the base config file.
func (l *Loader) Path() string {
	return l.path
}

// OverlayPath returns the environment overlay file for env, e.g.
// config/config.production.yaml.
func (l *Loader) OverlayPath(env Environment) string {
	ext := filepath.Ext(l.path)
	return strings.TrimSuffix(l.path, ext) + "." + string(env) + ext
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = []string{"defaults"}

	if err := l.loadFile(l.path, cfg); err != nil {
		return nil, err
	}

	// The overlay is chosen by the environment after the base file and the
	// environment variable have both had their say.
	envName := cfg.Environment
	if v := os.Getenv(EnvPrefix + "ENVIRONMENT"); v != "" {
		envName = Environment(v)
	}
	if err := l.loadFile(l.OverlayPath(envName), cfg); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	return nil
}

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return pkgerrors.NewValidationError("storage.sqlite.path is required for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.Storage.Dynamo.TableName == "" {
			return pkgerrors.NewValidationError("storage.dynamodb.table_name is required for the dynamodb backend")
		}
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return pkgerrors.NewValidationError("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}
