package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/infrastructure/persistence"
	pkgerrors "cosmos-backend/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "cosmos.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedWorld(t *testing.T, repos ports.Repositories, name string) (*entities.World, *entities.Timeline) {
	t.Helper()
	ctx := context.Background()
	warmth, err := valueobjects.NewWarmth(70)
	require.NoError(t, err)
	rootID := valueobjects.NewTimelineID()
	world, err := entities.NewWorld(valueobjects.NewWorldID(), rootID, name, "a seed", warmth, nil, time.Now(), nil)
	require.NoError(t, err)
	root := entities.NewRootTimeline(rootID, world.ID(), time.Now(), nil)
	require.NoError(t, repos.Worlds().Save(ctx, world))
	require.NoError(t, repos.Timelines().Save(ctx, root))
	return world, root
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cosmos.db")
	first, err := Open(context.Background(), Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	world, _ := seedWorld(t, first, "Persistent")
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Worlds().GetByID(context.Background(), world.ID())
	require.NoError(t, err)
	assert.Equal(t, "Persistent", got.Name())
	assert.Equal(t, 70, got.Warmth().Int())
}

func TestWorldsAndTimelines(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	world, root := seedWorld(t, store, "Chico 2025")

	child, err := entities.NewTimeline(valueobjects.NewTimelineID(), world.ID(), root.ID(), "Fork", "what if", time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Timelines().Save(ctx, child))

	child.Collapse()
	require.NoError(t, store.Timelines().UpdateStatus(ctx, []*entities.Timeline{child}))

	timelines, err := store.Timelines().GetByWorldID(ctx, world.ID())
	require.NoError(t, err)
	require.Len(t, timelines, 2)
	assert.True(t, timelines[0].IsRoot())
	assert.Equal(t, root.ID(), timelines[1].ParentID())
	assert.Equal(t, valueobjects.TimelineCollapsed, timelines[1].Status())

	_, err = store.Worlds().GetByID(ctx, valueobjects.NewWorldID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeWorldNotFound))

	assert.True(t, pkgerrors.IsConflict(store.Worlds().Save(ctx, world)))

	n, err := store.Timelines().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTimelines_ForeignKeyRejectsUnknownParent(t *testing.T) {
	store := openTestStore(t)
	world, _ := seedWorld(t, store, "Orphans")

	orphan, err := entities.NewTimeline(valueobjects.NewTimelineID(), world.ID(), valueobjects.NewTimelineID(), "Lost", "", time.Now(), nil)
	require.NoError(t, err)
	assert.Error(t, store.Timelines().Save(context.Background(), orphan))
}

func TestArchiveSearch_FoldsCaseAndOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	world, root := seedWorld(t, store, "Archive")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	contents := []string{"Die Straße runs north", "nothing here", "STRASSE festival", "strasse again"}
	for i, c := range contents {
		entry := entities.NewArchiveEntry(valueobjects.NewArchiveEntryID(), world.ID(), root.ID(),
			entities.ArchiveReflection, c, base.Add(time.Duration(i)*time.Second), 8192)
		require.NoError(t, store.Archive().Append(ctx, entry))
	}

	found, err := store.Archive().Search(ctx, ports.ArchiveQuery{Text: "straße", Limit: 10})
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "strasse again", found[0].Content())
	assert.Equal(t, "STRASSE festival", found[1].Content())
	assert.Equal(t, "Die Straße runs north", found[2].Content())

	limited, err := store.Archive().Search(ctx, ports.ArchiveQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	again, err := store.Archive().Search(ctx, ports.ArchiveQuery{Text: "straße", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, found, again)

	byWorld, err := store.Archive().ListByWorld(ctx, world.ID())
	require.NoError(t, err)
	assert.Len(t, byWorld, 4)
	assert.Equal(t, root.ID(), byWorld[0].TimelineID())
}

func TestShareLedgerAndBlobs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	world, _ := seedWorld(t, store, "Shared")

	name, err := valueobjects.ParsePackageName("shared.agentora")
	require.NoError(t, err)
	credit, err := valueobjects.NewCredit("Ana", "host")
	require.NoError(t, err)
	manifest := entities.PackageManifest{Format: entities.PackageFormat, WorldID: world.ID().String(), WorldName: "Shared", Timelines: 1}
	pkg := entities.NewSharePackage(name, world.ID(), valueobjects.VisibilityPublicWithCredits, valueobjects.WisdomFullPublic,
		[]valueobjects.Credit{credit}, manifest, 3, time.Now())

	require.NoError(t, store.Blobs().Put(ctx, name, []byte("zip")))
	require.NoError(t, store.Shares().Publish(ctx, pkg))
	assert.True(t, pkgerrors.HasCode(store.Shares().Publish(ctx, pkg), pkgerrors.CodePackageNameTaken))
	assert.True(t, pkgerrors.HasCode(store.Blobs().Put(ctx, name, []byte("other")), pkgerrors.CodePackageNameTaken))

	require.True(t, pkg.Revoke(time.Now()))
	require.NoError(t, store.Shares().MarkRevoked(ctx, pkg))

	got, err := store.Shares().GetByName(ctx, name)
	require.NoError(t, err)
	assert.True(t, got.IsRevoked())
	assert.NotNil(t, got.RevokedAt())
	assert.Equal(t, []valueobjects.Credit{credit}, got.Credits())
	assert.Equal(t, "Shared", got.Manifest().WorldName)

	blob, err := store.Blobs().Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip"), blob)

	missing, _ := valueobjects.ParsePackageName("missing.agentora")
	_, err = store.Shares().GetByName(ctx, missing)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePackageNotFound))
}

func TestMergeRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	world, _ := seedWorld(t, store, "Imported")
	source, _ := valueobjects.ParsePackageName("source.agentora")

	all := entities.NewMergeRecord(valueobjects.NewMergeID(), world.ID(), source, nil, nil, 3, time.Now())
	partial := entities.NewMergeRecord(valueobjects.NewMergeID(), world.ID(), source, []string{"Fork", "Ghost"},
		[]entities.MergeConflict{{Title: "Ghost", Resolution: entities.ResolutionNotInPackage}}, 2, time.Now())
	require.NoError(t, store.Merges().Save(ctx, all))
	require.NoError(t, store.Merges().Save(ctx, partial))

	got, err := store.Merges().GetByID(ctx, all.ID)
	require.NoError(t, err)
	assert.Nil(t, got.KeepTimelines)
	assert.Empty(t, got.Conflicts)
	assert.Equal(t, entities.MergeStatusMerged, got.Status)

	list, err := store.Merges().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Fork", "Ghost"}, list[1].KeepTimelines)
	assert.Equal(t, entities.MergeStatusMergedWithConflicts, list[1].Status)
}

func TestUnitOfWork_RollbackDiscardsWrites(t *testing.T) {
	store := openTestStore(t)
	tr := persistence.NewTransactor(store, persistence.DefaultRetryConfig(), nil, zap.NewNop())
	ctx := context.Background()

	err := tr.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		seedWorld(t, tx, "Doomed")
		return pkgerrors.NewConflictError("abort")
	})
	require.Error(t, err)

	n, err := store.Worlds().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentTransactionsAllCommit(t *testing.T) {
	store := openTestStore(t)
	tr := persistence.NewTransactor(store, persistence.DefaultRetryConfig(), nil, zap.NewNop())
	ctx := context.Background()
	world, root := seedWorld(t, store, "Busy")

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tr.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
				child, err := entities.NewTimeline(valueobjects.NewTimelineID(), world.ID(), root.ID(),
					fmt.Sprintf("Branch %d", i), "", time.Now(), nil)
				if err != nil {
					return err
				}
				return tx.Timelines().Save(ctx, child)
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	timelines, err := store.Timelines().GetByWorldID(ctx, world.ID())
	require.NoError(t, err)
	assert.Len(t, timelines, n+1)
}
