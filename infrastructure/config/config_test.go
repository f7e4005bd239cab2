package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cosmos-backend/infrastructure/peers"
	pkgerrors "cosmos-backend/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Domain().DefaultWarmth)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestLoad_LayersFileOverlayAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.yaml")
	writeFile(t, base, `
environment: staging
server:
  port: 9000
logging:
  level: debug
network:
  peers:
    - name: north
      url: http://north.example
`)
	writeFile(t, filepath.Join(dir, "config.staging.yaml"), `
server:
  request_timeout: 5s
sharing:
  installation_name: staging-box
`)
	t.Setenv("COSMOS_SERVER_PORT", "9100")
	t.Setenv("COSMOS_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := NewLoader(base).Load()
	require.NoError(t, err)

	assert.Equal(t, Staging, cfg.Environment)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "staging-box", cfg.Sharing.InstallationName)
	require.Len(t, cfg.Network.Peers, 1)
	assert.Equal(t, "north", cfg.Network.Peers[0].Name)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"defaults", base, filepath.Join(dir, "config.staging.yaml"), "environment"}, cfg.LoadedFrom)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"dynamodb without table", func(c *Config) { c.Storage.Backend = BackendDynamoDB }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"warmth out of range", func(c *Config) { c.Sharing.DefaultWarmth = 101 }},
		{"peer without url", func(c *Config) { c.Network.Peers = append(c.Network.Peers, peers.PeerConfig{Name: "x"}) }},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Endpoint = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "server: [unclosed")

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestWatcher_ReloadNotifiesCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: info\n")

	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	levels := make(chan string, 4)
	w.OnChange(func(c *Config) { levels <- c.Logging.Level })

	writeFile(t, path, "logging:\n  level: debug\n")

	select {
	case level := <-levels:
		assert.Equal(t, "debug", level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
	assert.Equal(t, "debug", w.Current().Logging.Level)
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: warn\n")

	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := NewWatcher(loader, initial, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	called := false
	w.OnChange(func(*Config) { called = true })

	writeFile(t, path, "logging:\n  level: shouting\n")
	w.Reload()

	assert.False(t, called)
	assert.Same(t, initial, w.Current())
}
