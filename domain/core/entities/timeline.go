package entities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

// Timeline is one branch of a world's history. The parent is fixed at creation;
// a zero parent marks the world's root.
type Timeline struct {
	id           valueobjects.TimelineID
	worldID      valueobjects.WorldID
	parentID     valueobjects.TimelineID
	title        string
	branchPrompt string
	status       valueobjects.TimelineStatus
	createdAt    time.Time

	// archiveRefs is filled by read models, never persisted with the timeline.
	archiveRefs []valueobjects.ArchiveEntryID
}

// NewRootTimeline creates the implicit root of a world.
func NewRootTimeline(id valueobjects.TimelineID, worldID valueobjects.WorldID, now time.Time, cfg *config.DomainConfig) *Timeline {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Timeline{
		id:           id,
		worldID:      worldID,
		title:        cfg.RootTimelineTitle,
		branchPrompt: cfg.RootBranchPrompt,
		status:       valueobjects.TimelineActive,
		createdAt:    now.UTC(),
	}
}

// NewTimeline creates an active timeline under parentID.
func NewTimeline(
	id valueobjects.TimelineID,
	worldID valueobjects.WorldID,
	parentID valueobjects.TimelineID,
	title, branchPrompt string,
	now time.Time,
	cfg *config.DomainConfig,
) (*Timeline, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("timeline id cannot be empty")
	}
	if parentID.IsZero() {
		return nil, pkgerrors.NewValidationError("branched timelines need a parent")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > cfg.MaxTitleLength {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("title exceeds maximum length of %d characters", cfg.MaxTitleLength))
	}
	if utf8.RuneCountInString(branchPrompt) > cfg.MaxBranchPromptLength {
		return nil, pkgerrors.NewValidationError(
			fmt.Sprintf("branch_prompt exceeds maximum length of %d characters", cfg.MaxBranchPromptLength))
	}

	return &Timeline{
		id:           id,
		worldID:      worldID,
		parentID:     parentID,
		title:        title,
		branchPrompt: branchPrompt,
		status:       valueobjects.TimelineActive,
		createdAt:    now.UTC(),
	}, nil
}

// ReconstructTimeline rebuilds a timeline from persisted or imported state.
func ReconstructTimeline(
	id valueobjects.TimelineID,
	worldID valueobjects.WorldID,
	parentID valueobjects.TimelineID,
	title, branchPrompt string,
	status valueobjects.TimelineStatus,
	createdAt time.Time,
) *Timeline {
	return &Timeline{
		id:           id,
		worldID:      worldID,
		parentID:     parentID,
		title:        title,
		branchPrompt: branchPrompt,
		status:       status,
		createdAt:    createdAt,
	}
}

func (t *Timeline) ID() valueobjects.TimelineID         { return t.id }
func (t *Timeline) WorldID() valueobjects.WorldID       { return t.worldID }
func (t *Timeline) ParentID() valueobjects.TimelineID   { return t.parentID }
func (t *Timeline) Title() string                       { return t.title }
func (t *Timeline) BranchPrompt() string                { return t.branchPrompt }
func (t *Timeline) Status() valueobjects.TimelineStatus { return t.status }
func (t *Timeline) CreatedAt() time.Time                { return t.createdAt }
func (t *Timeline) IsRoot() bool                        { return t.parentID.IsZero() }
func (t *Timeline) IsActive() bool                      { return t.status == valueobjects.TimelineActive }

// Collapse closes the timeline. It reports whether the status changed;
// collapsing a collapsed timeline is a no-op.
func (t *Timeline) Collapse() bool {
	if t.status == valueobjects.TimelineCollapsed {
		return false
	}
	t.status = valueobjects.TimelineCollapsed
	return true
}

// ArchiveRefs lists the archive entries this timeline generated, oldest first.
func (t *Timeline) ArchiveRefs() []valueobjects.ArchiveEntryID {
	return t.archiveRefs
}

// AttachArchiveRefs sets the read-model archive references.
func (t *Timeline) AttachArchiveRefs(refs []valueobjects.ArchiveEntryID) {
	t.archiveRefs = refs
}
