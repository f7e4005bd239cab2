package entities

import (
	"time"
	"unicode/utf8"

	"cosmos-backend/domain/core/valueobjects"
)

// ArchiveKind labels what produced an archive entry.
type ArchiveKind string

const (
	ArchiveWorldCreated       ArchiveKind = "world_created"
	ArchiveTimelineBranched   ArchiveKind = "timeline_branched"
	ArchiveTimelinesCollapsed ArchiveKind = "timelines_collapsed"
	ArchiveReflection         ArchiveKind = "reflection"
	ArchivePackagePublished   ArchiveKind = "package_published"
	ArchivePackageRevoked     ArchiveKind = "package_revoked"
	ArchivePackageImported    ArchiveKind = "package_imported"
)

// ArchiveEntry is an immutable line of the cross-world archive.
type ArchiveEntry struct {
	id         valueobjects.ArchiveEntryID
	worldID    valueobjects.WorldID
	timelineID valueobjects.TimelineID
	kind       ArchiveKind
	content    string
	createdAt  time.Time
}

// NewArchiveEntry builds an entry, truncating content to maxBytes on a rune
// boundary. A zero timelineID marks a world-level entry.
func NewArchiveEntry(
	id valueobjects.ArchiveEntryID,
	worldID valueobjects.WorldID,
	timelineID valueobjects.TimelineID,
	kind ArchiveKind,
	content string,
	now time.Time,
	maxBytes int,
) *ArchiveEntry {
	return &ArchiveEntry{
		id:         id,
		worldID:    worldID,
		timelineID: timelineID,
		kind:       kind,
		content:    TruncateContent(content, maxBytes),
		createdAt:  now.UTC(),
	}
}

// ReconstructArchiveEntry rebuilds an entry from storage.
func ReconstructArchiveEntry(
	id valueobjects.ArchiveEntryID,
	worldID valueobjects.WorldID,
	timelineID valueobjects.TimelineID,
	kind ArchiveKind,
	content string,
	createdAt time.Time,
) *ArchiveEntry {
	return &ArchiveEntry{
		id:         id,
		worldID:    worldID,
		timelineID: timelineID,
		kind:       kind,
		content:    content,
		createdAt:  createdAt,
	}
}

func (e *ArchiveEntry) ID() valueobjects.ArchiveEntryID     { return e.id }
func (e *ArchiveEntry) WorldID() valueobjects.WorldID       { return e.worldID }
func (e *ArchiveEntry) TimelineID() valueobjects.TimelineID { return e.timelineID }
func (e *ArchiveEntry) Kind() ArchiveKind                   { return e.kind }
func (e *ArchiveEntry) Content() string                     { return e.content }
func (e *ArchiveEntry) CreatedAt() time.Time                { return e.createdAt }

// TruncateContent cuts s to at most maxBytes without splitting a rune.
// maxBytes <= 0 disables the cap.
func TruncateContent(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
