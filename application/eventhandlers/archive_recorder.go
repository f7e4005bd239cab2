package eventhandlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
)

// ArchiveRecorder writes notable domain events to the cross-world archive.
// Each entry is independent, so appends take no world lock.
type ArchiveRecorder struct {
	transactor ports.Transactor
	config     *config.DomainConfig
	logger     *zap.Logger
}

// NewArchiveRecorder creates a new archive recorder
func NewArchiveRecorder(transactor ports.Transactor, cfg *config.DomainConfig, logger *zap.Logger) *ArchiveRecorder {
	return &ArchiveRecorder{
		transactor: transactor,
		config:     cfg,
		logger:     logger,
	}
}

// EventTypes lists the events the recorder subscribes to
func (r *ArchiveRecorder) EventTypes() []string {
	return []string{
		events.TypeWorldCreated,
		events.TypeTimelineBranched,
		events.TypeTimelinesCollapsed,
		events.TypePackagePublished,
		events.TypePackageRevoked,
		events.TypePackageImported,
	}
}

// CanHandle reports whether the event produces an archive entry
func (r *ArchiveRecorder) CanHandle(eventType string) bool {
	for _, t := range r.EventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

// Handle appends the archive entry for event
func (r *ArchiveRecorder) Handle(ctx context.Context, event events.DomainEvent) error {
	entry, ok := r.entryFor(event)
	if !ok {
		return nil
	}
	err := r.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		return tx.Archive().Append(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", event.GetEventType(), err)
	}
	return nil
}

func (r *ArchiveRecorder) entryFor(event events.DomainEvent) (*entities.ArchiveEntry, bool) {
	var (
		worldID    valueobjects.WorldID
		timelineID valueobjects.TimelineID
		kind       entities.ArchiveKind
		content    string
	)

	switch e := event.(type) {
	case events.WorldCreated:
		worldID, timelineID, kind = e.WorldID, e.RootTimelineID, entities.ArchiveWorldCreated
		content = fmt.Sprintf("World %q created", e.Name)
		if s := strings.TrimSpace(e.SeedPrompt); s != "" {
			content += ": " + s
		}
	case events.TimelineBranched:
		worldID, timelineID, kind = e.WorldID, e.TimelineID, entities.ArchiveTimelineBranched
		content = fmt.Sprintf("Timeline %q branched from %q", e.Title, e.ParentTitle)
		if s := strings.TrimSpace(e.BranchPrompt); s != "" {
			content += ": " + s
		}
	case events.TimelinesCollapsed:
		worldID, kind = e.WorldID, entities.ArchiveTimelinesCollapsed
		content = fmt.Sprintf("%d timeline(s) collapsed", len(e.TimelineIDs))
	case events.PackagePublished:
		worldID, kind = e.WorldID, entities.ArchivePackagePublished
		content = fmt.Sprintf("World %q shared as %s (%s, %s, %d timelines)",
			e.WorldName, e.PackageName, e.Visibility, e.WisdomMode, e.Timelines)
	case events.PackageRevoked:
		worldID, kind = e.WorldID, entities.ArchivePackageRevoked
		content = fmt.Sprintf("Package %s revoked", e.PackageName)
	case events.PackageImported:
		worldID, timelineID, kind = e.WorldID, e.RootTimelineID, entities.ArchivePackageImported
		content = fmt.Sprintf("World %q imported from %s with %d timelines", e.WorldName, e.PackageName, e.Timelines)
	default:
		r.logger.Debug("No archive entry for event", zap.String("type", event.GetEventType()))
		return nil, false
	}

	return entities.NewArchiveEntry(valueobjects.NewArchiveEntryID(), worldID, timelineID, kind, content,
		event.GetTimestamp(), r.config.MaxArchiveContentBytes), true
}
