package ports

import (
	"context"

	"cosmos-backend/domain/core/aggregates"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
)

// Unlock releases a lock obtained from a WorldLocker.
type Unlock func()

// WorldLocker serialises mutations per world. Lock is exclusive; RLock may be
// shared with other readers of the same world.
type WorldLocker interface {
	Lock(ctx context.Context, worldID valueobjects.WorldID) (Unlock, error)
	RLock(ctx context.Context, worldID valueobjects.WorldID) (Unlock, error)
}

// PackageCodec turns packages into portable blobs and back.
type PackageCodec interface {
	Encode(pkg *aggregates.Package) ([]byte, error)
	Decode(blob []byte) (*aggregates.Package, error)
}

// SeedSnapshot is everything a full local backup of a world contains.
type SeedSnapshot struct {
	World     *entities.World
	Timelines []*entities.Timeline
	Entries   []*entities.ArchiveEntry
}

// SeedArchiver encodes full local backups of a world.
type SeedArchiver interface {
	EncodeSeed(snapshot SeedSnapshot) ([]byte, error)
}

// Peer is one installation whose shares feed the network directory.
type Peer interface {
	Name() string
	Shares(ctx context.Context) ([]entities.ShareSummary, error)
}

// PeerSource yields the peers to consult on each directory read.
type PeerSource interface {
	Peers() []Peer
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}
