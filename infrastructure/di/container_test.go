package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"cosmos-backend/infrastructure/config"
	"cosmos-backend/infrastructure/peers"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "cosmos.db")
	cfg.Logging.Level = "error"
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	container, cleanup, err := InitializeContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, container.Store)
	assert.NotNil(t, container.Transactor)
	assert.NotNil(t, container.Locker)
	assert.NotNil(t, container.CommandBus)
	assert.NotNil(t, container.QueryBus)
	assert.NotNil(t, container.Router)
	assert.Empty(t, container.Peers.Peers())
	require.NoError(t, container.Store.Ping(context.Background()))
}

func TestApplyConfig(t *testing.T) {
	cfg := testConfig(t)
	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, zapcore.ErrorLevel, container.LogLevel.Level())

	next := *cfg
	next.Logging.Level = "debug"
	next.Network.Peers = []peers.PeerConfig{{Name: "north", URL: "http://north.example"}}
	container.ApplyConfig(&next)

	assert.Equal(t, zapcore.DebugLevel, container.LogLevel.Level())
	assert.Len(t, container.Peers.Peers(), 1)

	next.Logging.Level = "loud"
	container.ApplyConfig(&next)
	assert.Equal(t, zapcore.DebugLevel, container.LogLevel.Level())
}
