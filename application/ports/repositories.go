package ports

import (
	"context"

	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
)

// WorldRepository persists world metadata.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation.
type WorldRepository interface {
	// Save inserts a new world
	Save(ctx context.Context, world *entities.World) error

	// UpdateMapLayout replaces the stored display layout
	UpdateMapLayout(ctx context.Context, world *entities.World) error

	// GetByID retrieves a world, NotFound if unknown
	GetByID(ctx context.Context, id valueobjects.WorldID) (*entities.World, error)

	// List returns all worlds in creation order
	List(ctx context.Context) ([]*entities.World, error)

	// Count returns the number of worlds
	Count(ctx context.Context) (int, error)
}

// TimelineRepository persists the timeline forest of each world.
type TimelineRepository interface {
	// Save inserts a timeline
	Save(ctx context.Context, timeline *entities.Timeline) error

	// SaveBatch inserts timelines in the given order
	SaveBatch(ctx context.Context, timelines []*entities.Timeline) error

	// UpdateStatus persists the status of the given timelines
	UpdateStatus(ctx context.Context, timelines []*entities.Timeline) error

	// GetByWorldID returns a world's timelines in creation order
	GetByWorldID(ctx context.Context, worldID valueobjects.WorldID) ([]*entities.Timeline, error)

	// Count returns the number of timelines across all worlds
	Count(ctx context.Context) (int, error)
}

// ArchiveQuery selects archive entries.
type ArchiveQuery struct {
	Text  string
	Limit int
}

// ArchiveRepository is the append-only cross-world archive.
type ArchiveRepository interface {
	// Append writes one entry
	Append(ctx context.Context, entry *entities.ArchiveEntry) error

	// GetByID retrieves one entry, NotFound if unknown
	GetByID(ctx context.Context, id valueobjects.ArchiveEntryID) (*entities.ArchiveEntry, error)

	// Search matches entries across all worlds, newest first
	Search(ctx context.Context, query ArchiveQuery) ([]*entities.ArchiveEntry, error)

	// ListByWorld returns a world's entries, oldest first
	ListByWorld(ctx context.Context, worldID valueobjects.WorldID) ([]*entities.ArchiveEntry, error)
}

// ShareLedger records every published package and its revocation state.
type ShareLedger interface {
	// Publish records a new package, Conflict if the name is taken
	Publish(ctx context.Context, pkg *entities.SharePackage) error

	// GetByName retrieves a package record, NotFound if unknown
	GetByName(ctx context.Context, name valueobjects.PackageName) (*entities.SharePackage, error)

	// MarkRevoked persists the revoked flag
	MarkRevoked(ctx context.Context, pkg *entities.SharePackage) error

	// List returns all records in creation order, revoked included
	List(ctx context.Context) ([]*entities.SharePackage, error)
}

// PackageBlobStore keeps the encoded package bytes.
type PackageBlobStore interface {
	// Put stores a blob, Conflict if the name is taken
	Put(ctx context.Context, name valueobjects.PackageName, blob []byte) error

	// Get returns a blob, NotFound if unknown
	Get(ctx context.Context, name valueobjects.PackageName) ([]byte, error)
}

// MergeRepository keeps the provenance of imports.
type MergeRepository interface {
	Save(ctx context.Context, record *entities.MergeRecord) error
	GetByID(ctx context.Context, id valueobjects.MergeID) (*entities.MergeRecord, error)
	List(ctx context.Context) ([]*entities.MergeRecord, error)
}

// Repositories groups the repositories of one store or transaction.
type Repositories interface {
	Worlds() WorldRepository
	Timelines() TimelineRepository
	Archive() ArchiveRepository
	Shares() ShareLedger
	Blobs() PackageBlobStore
	Merges() MergeRepository
}

// UnitOfWork defines a transaction boundary. Repositories obtained from it
// after Begin write inside the transaction.
type UnitOfWork interface {
	Repositories

	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction; it is a no-op after Commit
	Rollback() error
}

// UnitOfWorkFactory creates independent units of work.
type UnitOfWorkFactory interface {
	NewUnitOfWork() UnitOfWork
}

// Store is a storage backend.
type Store interface {
	Repositories
	UnitOfWorkFactory

	Ping(ctx context.Context) error
	Close() error
}

// Transactor runs work against the store, retrying transient storage faults.
// A retry re-runs fn from the start inside a fresh transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Read(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
