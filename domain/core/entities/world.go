package entities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

// World is the top-level container of one branching narrative.
type World struct {
	id         valueobjects.WorldID
	name       string
	seedPrompt string
	warmth     valueobjects.Warmth
	mapLayout  valueobjects.MapLayout
	createdAt  time.Time

	events []events.DomainEvent
}

// NewWorld creates a world with business rule validation. rootID is the id the
// world's implicit root timeline will carry; it is recorded on the creation event.
func NewWorld(
	id valueobjects.WorldID,
	rootID valueobjects.TimelineID,
	name, seedPrompt string,
	warmth valueobjects.Warmth,
	layout *valueobjects.MapLayout,
	now time.Time,
	cfg *config.DomainConfig,
) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("world id cannot be empty")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > cfg.MaxWorldNameLength {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("name exceeds maximum length of %d characters", cfg.MaxWorldNameLength))
	}
	if utf8.RuneCountInString(seedPrompt) > cfg.MaxSeedPromptLength {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("seed_prompt exceeds maximum length of %d characters", cfg.MaxSeedPromptLength))
	}

	mapLayout := valueobjects.SeedMapLayout(name, seedPrompt)
	if layout != nil {
		mapLayout = *layout
	}

	w := &World{
		id:         id,
		name:       name,
		seedPrompt: seedPrompt,
		warmth:     warmth,
		mapLayout:  mapLayout,
		createdAt:  now.UTC(),
	}
	w.addEvent(events.NewWorldCreated(id, rootID, name, seedPrompt, w.createdAt))
	return w, nil
}

// ReconstructWorld rebuilds a world from persisted state without raising events.
func ReconstructWorld(
	id valueobjects.WorldID,
	name, seedPrompt string,
	warmth valueobjects.Warmth,
	layout valueobjects.MapLayout,
	createdAt time.Time,
) *World {
	return &World{
		id:         id,
		name:       name,
		seedPrompt: seedPrompt,
		warmth:     warmth,
		mapLayout:  layout,
		createdAt:  createdAt,
	}
}

func (w *World) ID() valueobjects.WorldID          { return w.id }
func (w *World) Name() string                      { return w.name }
func (w *World) SeedPrompt() string                { return w.seedPrompt }
func (w *World) Warmth() valueobjects.Warmth       { return w.warmth }
func (w *World) MapLayout() valueobjects.MapLayout { return w.mapLayout }
func (w *World) CreatedAt() time.Time              { return w.createdAt }

// ReplaceMapLayout swaps the display layout. The layout carries no graph semantics.
func (w *World) ReplaceMapLayout(layout valueobjects.MapLayout, now time.Time) {
	w.mapLayout = layout
	w.addEvent(events.NewMapLayoutUpdated(w.id, now.UTC()))
}

// GetUncommittedEvents returns events raised since the last commit
func (w *World) GetUncommittedEvents() []events.DomainEvent {
	return w.events
}

// MarkEventsAsCommitted clears the pending events
func (w *World) MarkEventsAsCommitted() {
	w.events = nil
}

func (w *World) addEvent(event events.DomainEvent) {
	w.events = append(w.events, event)
}
