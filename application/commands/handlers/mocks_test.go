package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/aggregates"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
)

type mockWorldRepo struct{ mock.Mock }

func (m *mockWorldRepo) Save(ctx context.Context, w *entities.World) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWorldRepo) UpdateMapLayout(ctx context.Context, w *entities.World) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWorldRepo) GetByID(ctx context.Context, id valueobjects.WorldID) (*entities.World, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(*entities.World)
	return w, args.Error(1)
}

func (m *mockWorldRepo) List(ctx context.Context) ([]*entities.World, error) {
	args := m.Called(ctx)
	w, _ := args.Get(0).([]*entities.World)
	return w, args.Error(1)
}

func (m *mockWorldRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockTimelineRepo struct{ mock.Mock }

func (m *mockTimelineRepo) Save(ctx context.Context, t *entities.Timeline) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTimelineRepo) SaveBatch(ctx context.Context, ts []*entities.Timeline) error {
	return m.Called(ctx, ts).Error(0)
}

func (m *mockTimelineRepo) UpdateStatus(ctx context.Context, ts []*entities.Timeline) error {
	return m.Called(ctx, ts).Error(0)
}

func (m *mockTimelineRepo) GetByWorldID(ctx context.Context, id valueobjects.WorldID) ([]*entities.Timeline, error) {
	args := m.Called(ctx, id)
	ts, _ := args.Get(0).([]*entities.Timeline)
	return ts, args.Error(1)
}

func (m *mockTimelineRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockArchiveRepo struct{ mock.Mock }

func (m *mockArchiveRepo) Append(ctx context.Context, e *entities.ArchiveEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockArchiveRepo) GetByID(ctx context.Context, id valueobjects.ArchiveEntryID) (*entities.ArchiveEntry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*entities.ArchiveEntry)
	return e, args.Error(1)
}

func (m *mockArchiveRepo) Search(ctx context.Context, q ports.ArchiveQuery) ([]*entities.ArchiveEntry, error) {
	args := m.Called(ctx, q)
	e, _ := args.Get(0).([]*entities.ArchiveEntry)
	return e, args.Error(1)
}

func (m *mockArchiveRepo) ListByWorld(ctx context.Context, id valueobjects.WorldID) ([]*entities.ArchiveEntry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).([]*entities.ArchiveEntry)
	return e, args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Publish(ctx context.Context, p *entities.SharePackage) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockLedger) GetByName(ctx context.Context, name valueobjects.PackageName) (*entities.SharePackage, error) {
	args := m.Called(ctx, name)
	p, _ := args.Get(0).(*entities.SharePackage)
	return p, args.Error(1)
}

func (m *mockLedger) MarkRevoked(ctx context.Context, p *entities.SharePackage) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockLedger) List(ctx context.Context) ([]*entities.SharePackage, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*entities.SharePackage)
	return p, args.Error(1)
}

type mockBlobs struct{ mock.Mock }

func (m *mockBlobs) Put(ctx context.Context, name valueobjects.PackageName, blob []byte) error {
	return m.Called(ctx, name, blob).Error(0)
}

func (m *mockBlobs) Get(ctx context.Context, name valueobjects.PackageName) ([]byte, error) {
	args := m.Called(ctx, name)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type mockMerges struct{ mock.Mock }

func (m *mockMerges) Save(ctx context.Context, r *entities.MergeRecord) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockMerges) GetByID(ctx context.Context, id valueobjects.MergeID) (*entities.MergeRecord, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*entities.MergeRecord)
	return r, args.Error(1)
}

func (m *mockMerges) List(ctx context.Context) ([]*entities.MergeRecord, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]*entities.MergeRecord)
	return r, args.Error(1)
}

// fakeStore hands the same mocks to every transaction.
type fakeStore struct {
	worlds    *mockWorldRepo
	timelines *mockTimelineRepo
	archive   *mockArchiveRepo
	shares    *mockLedger
	blobs     *mockBlobs
	merges    *mockMerges
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		worlds:    new(mockWorldRepo),
		timelines: new(mockTimelineRepo),
		archive:   new(mockArchiveRepo),
		shares:    new(mockLedger),
		blobs:     new(mockBlobs),
		merges:    new(mockMerges),
	}
}

func (s *fakeStore) Worlds() ports.WorldRepository       { return s.worlds }
func (s *fakeStore) Timelines() ports.TimelineRepository { return s.timelines }
func (s *fakeStore) Archive() ports.ArchiveRepository    { return s.archive }
func (s *fakeStore) Shares() ports.ShareLedger           { return s.shares }
func (s *fakeStore) Blobs() ports.PackageBlobStore       { return s.blobs }
func (s *fakeStore) Merges() ports.MergeRepository       { return s.merges }

func (s *fakeStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.Repositories) error) error {
	return fn(ctx, s)
}

func (s *fakeStore) Read(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return fn(ctx, s)
}

type noopLocker struct {
	locks, rlocks int
}

func (l *noopLocker) Lock(ctx context.Context, id valueobjects.WorldID) (ports.Unlock, error) {
	l.locks++
	return func() {}, nil
}

func (l *noopLocker) RLock(ctx context.Context, id valueobjects.WorldID) (ports.Unlock, error) {
	l.rlocks++
	return func() {}, nil
}

type recordingBus struct {
	published []events.DomainEvent
}

func (b *recordingBus) Publish(ctx context.Context, e events.DomainEvent) error {
	b.published = append(b.published, e)
	return nil
}

func (b *recordingBus) PublishBatch(ctx context.Context, es []events.DomainEvent) error {
	b.published = append(b.published, es...)
	return nil
}

func (b *recordingBus) Subscribe(string, ports.EventHandler) error { return nil }

func (b *recordingBus) types() []string {
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.GetEventType()
	}
	return out
}

type stubCodec struct {
	pkg *aggregates.Package
}

func (c *stubCodec) Encode(pkg *aggregates.Package) ([]byte, error) {
	c.pkg = pkg
	return []byte("blob"), nil
}

func (c *stubCodec) Decode(blob []byte) (*aggregates.Package, error) {
	return c.pkg, nil
}
