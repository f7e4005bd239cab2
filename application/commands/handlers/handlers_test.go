package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/services"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

type worldFixture struct {
	world *entities.World
	root  *entities.Timeline
}

func newWorldFixture(t *testing.T) worldFixture {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	now := time.Now()
	worldID := valueobjects.NewWorldID()
	rootID := valueobjects.NewTimelineID()
	warmth, _ := valueobjects.NewWarmth(60)
	world, err := entities.NewWorld(worldID, rootID, "Family Universe", "A warm city", warmth, nil, now, cfg)
	require.NoError(t, err)
	world.MarkEventsAsCommitted()
	return worldFixture{world: world, root: entities.NewRootTimeline(rootID, worldID, now, cfg)}
}

func TestCreateWorldHandler(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	h := NewCreateWorldHandler(store, bus, config.DefaultDomainConfig(), zap.NewNop())

	cmd := commands.CreateWorldCommand{
		WorldID:        valueobjects.NewWorldID().String(),
		RootTimelineID: valueobjects.NewTimelineID().String(),
		Name:           "Family Universe",
		SeedPrompt:     "A dream of a warm city",
	}

	store.worlds.On("Save", mock.Anything, mock.MatchedBy(func(w *entities.World) bool {
		return w.Warmth().Int() == 60 && w.ID().String() == cmd.WorldID
	})).Return(nil).Once()
	store.timelines.On("Save", mock.Anything, mock.MatchedBy(func(tl *entities.Timeline) bool {
		return tl.IsRoot() && tl.Title() == "Prime Timeline" && tl.ID().String() == cmd.RootTimelineID
	})).Return(nil).Once()

	require.NoError(t, h.Handle(context.Background(), cmd))
	store.worlds.AssertExpectations(t)
	store.timelines.AssertExpectations(t)
	assert.Equal(t, []string{events.TypeWorldCreated}, bus.types())
}

func TestCreateWorldHandler_RejectsWarmthOutOfRange(t *testing.T) {
	store := newFakeStore()
	h := NewCreateWorldHandler(store, &recordingBus{}, config.DefaultDomainConfig(), zap.NewNop())

	warmth := 101
	err := h.Handle(context.Background(), commands.CreateWorldCommand{
		WorldID:        valueobjects.NewWorldID().String(),
		RootTimelineID: valueobjects.NewTimelineID().String(),
		Name:           "Too warm",
		Warmth:         &warmth,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidWarmth))
	store.worlds.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestBranchTimelineHandler(t *testing.T) {
	fx := newWorldFixture(t)
	worldID := fx.world.ID()

	tests := []struct {
		name       string
		parent     string
		setup      func(s *fakeStore)
		wantErr    func(error) bool
		wantEvents []string
	}{
		{
			name:   "root sentinel resolves to the root",
			parent: commands.RootSentinel,
			setup: func(s *fakeStore) {
				s.worlds.On("GetByID", mock.Anything, worldID).Return(fx.world, nil)
				s.timelines.On("GetByWorldID", mock.Anything, worldID).Return([]*entities.Timeline{fx.root}, nil)
				s.timelines.On("Save", mock.Anything, mock.MatchedBy(func(tl *entities.Timeline) bool {
					return tl.ParentID().Equals(fx.root.ID()) && tl.IsActive()
				})).Return(nil).Once()
			},
			wantEvents: []string{events.TypeTimelineBranched},
		},
		{
			name:   "unknown world",
			parent: "",
			setup: func(s *fakeStore) {
				s.worlds.On("GetByID", mock.Anything, worldID).Return(nil, pkgerrors.NewNotFoundError("world"))
			},
			wantErr: pkgerrors.IsNotFound,
		},
		{
			name:   "parent from another world",
			parent: valueobjects.NewTimelineID().String(),
			setup: func(s *fakeStore) {
				s.worlds.On("GetByID", mock.Anything, worldID).Return(fx.world, nil)
				s.timelines.On("GetByWorldID", mock.Anything, worldID).Return([]*entities.Timeline{fx.root}, nil)
			},
			wantErr: func(err error) bool { return pkgerrors.HasCode(err, pkgerrors.CodeTimelineNotFound) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			bus := &recordingBus{}
			locker := &noopLocker{}
			tt.setup(store)

			h := NewBranchTimelineHandler(store, locker, bus, config.DefaultDomainConfig(), zap.NewNop())
			err := h.Handle(context.Background(), commands.BranchTimelineCommand{
				TimelineID:       valueobjects.NewTimelineID().String(),
				WorldID:          worldID.String(),
				ParentTimelineID: tt.parent,
				Title:            "Chico 2025",
				BranchPrompt:     "What if I moved to Chico in 2025?",
			})

			assert.Equal(t, 1, locker.locks)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				assert.Empty(t, bus.published)
				return
			}
			require.NoError(t, err)
			store.timelines.AssertExpectations(t)
			assert.Equal(t, tt.wantEvents, bus.types())
		})
	}
}

func TestCollapseTimelinesHandler_Idempotent(t *testing.T) {
	fx := newWorldFixture(t)
	worldID := fx.world.ID()
	store := newFakeStore()
	bus := &recordingBus{}

	store.worlds.On("GetByID", mock.Anything, worldID).Return(fx.world, nil)
	store.timelines.On("GetByWorldID", mock.Anything, worldID).Return([]*entities.Timeline{fx.root}, nil)
	store.timelines.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil).Once()

	h := NewCollapseTimelinesHandler(store, &noopLocker{}, bus, zap.NewNop())
	cmd := commands.CollapseTimelinesCommand{WorldID: worldID.String()}

	require.NoError(t, h.Handle(context.Background(), cmd))
	// fx.root is now collapsed, so the second run finds nothing to change.
	require.NoError(t, h.Handle(context.Background(), cmd))

	store.timelines.AssertNumberOfCalls(t, "UpdateStatus", 1)
	assert.Equal(t, []string{events.TypeTimelinesCollapsed}, bus.types())
}

func TestReflectHandler(t *testing.T) {
	fx := newWorldFixture(t)
	worldID := fx.world.ID()
	store := newFakeStore()
	bus := &recordingBus{}
	locker := &noopLocker{}

	store.worlds.On("GetByID", mock.Anything, worldID).Return(fx.world, nil)
	store.timelines.On("GetByWorldID", mock.Anything, worldID).Return([]*entities.Timeline{fx.root}, nil)

	var appended *entities.ArchiveEntry
	store.archive.On("Append", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		appended = args.Get(1).(*entities.ArchiveEntry)
	}).Return(nil)

	h := NewReflectHandler(store, locker, services.NewReflectionComposer(), bus, config.DefaultDomainConfig(), zap.NewNop())
	warmth := 80
	entryID := valueobjects.NewArchiveEntryID()
	require.NoError(t, h.Handle(context.Background(), commands.ReflectCommand{
		EntryID: entryID.String(),
		WorldID: worldID.String(),
		Warmth:  &warmth,
	}))

	require.NotNil(t, appended)
	assert.Equal(t, entryID, appended.ID())
	assert.True(t, appended.TimelineID().IsZero())
	assert.Contains(t, appended.Content(), "hopeful path forward")
	assert.Equal(t, 1, locker.rlocks)
	assert.Equal(t, []string{events.TypeReflectionRecorded}, bus.types())

	// With everything collapsed there is nothing to reflect on.
	fx.root.Collapse()
	err := h.Handle(context.Background(), commands.ReflectCommand{
		EntryID: valueobjects.NewArchiveEntryID().String(),
		WorldID: worldID.String(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNothingToReflect))
	store.archive.AssertNumberOfCalls(t, "Append", 1)
}

func TestExportPackageHandler_NameTaken(t *testing.T) {
	fx := newWorldFixture(t)
	worldID := fx.world.ID()
	store := newFakeStore()
	bus := &recordingBus{}

	store.worlds.On("GetByID", mock.Anything, worldID).Return(fx.world, nil)
	store.timelines.On("GetByWorldID", mock.Anything, worldID).Return([]*entities.Timeline{fx.root}, nil)
	store.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything).
		Return(pkgerrors.NewConflictError("package name taken").WithCode(pkgerrors.CodePackageNameTaken))

	h := NewExportPackageHandler(store, &noopLocker{}, &stubCodec{}, bus, config.DefaultDomainConfig(), zap.NewNop())
	err := h.Handle(context.Background(), commands.ExportPackageCommand{
		WorldID:     worldID.String(),
		PackageName: "taken.agentora",
	})

	assert.True(t, pkgerrors.IsConflict(err))
	store.shares.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Empty(t, bus.published)
}

func TestExportPackageHandler_DefaultCredit(t *testing.T) {
	fx := newWorldFixture(t)
	worldID := fx.world.ID()
	store := newFakeStore()
	bus := &recordingBus{}
	codec := &stubCodec{}

	store.worlds.On("GetByID", mock.Anything, worldID).Return(fx.world, nil)
	store.timelines.On("GetByWorldID", mock.Anything, worldID).Return([]*entities.Timeline{fx.root}, nil)
	store.blobs.On("Put", mock.Anything, mock.Anything, []byte("blob")).Return(nil)
	store.shares.On("Publish", mock.Anything, mock.MatchedBy(func(p *entities.SharePackage) bool {
		return p.Visibility() == valueobjects.VisibilityPrivate && p.SizeBytes() == 4
	})).Return(nil)

	h := NewExportPackageHandler(store, &noopLocker{}, codec, bus, config.DefaultDomainConfig(), zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), commands.ExportPackageCommand{
		WorldID:     worldID.String(),
		PackageName: "fresh.agentora",
	}))

	require.NotNil(t, codec.pkg)
	assert.Equal(t, []valueobjects.Credit{{Name: "Local Family", Role: "host"}}, codec.pkg.Credits)
	assert.Equal(t, []string{events.TypePackagePublished}, bus.types())
}

func TestImportPackageHandler_Revoked(t *testing.T) {
	store := newFakeStore()
	name, _ := valueobjects.ParsePackageName("old.agentora")
	rec := entities.ReconstructSharePackage(name, valueobjects.NewWorldID(), valueobjects.VisibilityPublicWithCredits,
		valueobjects.WisdomFullPublic, nil, entities.PackageManifest{}, 10, true, nil, time.Now())
	store.shares.On("GetByName", mock.Anything, name).Return(rec, nil)

	h := NewImportPackageHandler(store, &noopLocker{}, &stubCodec{}, &recordingBus{}, config.DefaultDomainConfig(), zap.NewNop())
	err := h.Handle(context.Background(), commands.ImportPackageCommand{
		WorldID:     valueobjects.NewWorldID().String(),
		MergeID:     valueobjects.NewMergeID().String(),
		PackageName: name.String(),
	})

	assert.True(t, pkgerrors.IsForbidden(err))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePackageRevoked))
	store.blobs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	store.worlds.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRevokePackageHandler_Idempotent(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	name, _ := valueobjects.ParsePackageName("share.agentora")
	rec := entities.ReconstructSharePackage(name, valueobjects.NewWorldID(), valueobjects.VisibilityPublicWithCredits,
		valueobjects.WisdomFullPublic, nil, entities.PackageManifest{}, 10, false, nil, time.Now())

	store.shares.On("GetByName", mock.Anything, name).Return(rec, nil)
	store.shares.On("MarkRevoked", mock.Anything, rec).Return(nil).Once()

	h := NewRevokePackageHandler(store, bus, zap.NewNop())
	cmd := commands.RevokePackageCommand{PackageName: name.String()}
	require.NoError(t, h.Handle(context.Background(), cmd))
	require.NoError(t, h.Handle(context.Background(), cmd))

	store.shares.AssertNumberOfCalls(t, "MarkRevoked", 1)
	assert.Equal(t, []string{events.TypePackageRevoked}, bus.types())
}

func TestRevokePackageHandler_Unknown(t *testing.T) {
	store := newFakeStore()
	store.shares.On("GetByName", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewNotFoundError("package").WithCode(pkgerrors.CodePackageNotFound))

	h := NewRevokePackageHandler(store, &recordingBus{}, zap.NewNop())
	err := h.Handle(context.Background(), commands.RevokePackageCommand{PackageName: "missing.agentora"})
	assert.True(t, pkgerrors.IsNotFound(err))
}
