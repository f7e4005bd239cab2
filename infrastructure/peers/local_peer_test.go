package peers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/infrastructure/persistence"
	"cosmos-backend/infrastructure/persistence/sqlite"
)

func TestLocalPeer_SharesReadsLedger(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "cosmos.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	name, err := valueobjects.ParsePackageName("harbor.agentora")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pkg := entities.NewSharePackage(
		name,
		valueobjects.NewWorldID(),
		valueobjects.VisibilityAnonymized,
		valueobjects.WisdomAnonymized,
		[]valueobjects.Credit{{Name: "Ana", Role: "host"}},
		entities.PackageManifest{Format: entities.PackageFormat, WorldName: "Harbor", CreatedAt: now, Timelines: 1},
		42,
		now,
	)
	require.NoError(t, store.Shares().Publish(ctx, pkg))

	peer := NewLocalPeer("local", persistence.NewTransactor(store, persistence.DefaultRetryConfig(), nil, zap.NewNop()))
	shares, err := peer.Shares(ctx)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "harbor.agentora", shares[0].Package)
	assert.Equal(t, "Harbor", shares[0].WorldName)
	assert.Equal(t, now, shares[0].SharedAt.UTC())
}
