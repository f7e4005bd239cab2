package events

import (
	"time"

	"cosmos-backend/domain/core/valueobjects"
)

const (
	TypeWorldCreated       = "world.created"
	TypeMapLayoutUpdated   = "world.map_layout_updated"
	TypeTimelineBranched   = "timeline.branched"
	TypeTimelinesCollapsed = "timeline.collapsed_all"
	TypeReflectionRecorded = "world.reflection_recorded"
	TypePackagePublished   = "package.published"
	TypePackageRevoked     = "package.revoked"
	TypePackageImported    = "package.imported"
)

// WorldCreated is raised when a world and its root timeline are created
type WorldCreated struct {
	BaseEvent
	WorldID        valueobjects.WorldID    `json:"world_id"`
	RootTimelineID valueobjects.TimelineID `json:"root_timeline_id"`
	Name           string                  `json:"name"`
	SeedPrompt     string                  `json:"seed_prompt"`
}

func NewWorldCreated(worldID valueobjects.WorldID, rootID valueobjects.TimelineID, name, seed string, at time.Time) WorldCreated {
	return WorldCreated{
		BaseEvent:      newBase(worldID.String(), TypeWorldCreated, at),
		WorldID:        worldID,
		RootTimelineID: rootID,
		Name:           name,
		SeedPrompt:     seed,
	}
}

// MapLayoutUpdated is raised when a world's display layout is replaced
type MapLayoutUpdated struct {
	BaseEvent
	WorldID valueobjects.WorldID `json:"world_id"`
}

func NewMapLayoutUpdated(worldID valueobjects.WorldID, at time.Time) MapLayoutUpdated {
	return MapLayoutUpdated{
		BaseEvent: newBase(worldID.String(), TypeMapLayoutUpdated, at),
		WorldID:   worldID,
	}
}

// TimelineBranched is raised when a timeline is branched from a parent
type TimelineBranched struct {
	BaseEvent
	WorldID      valueobjects.WorldID    `json:"world_id"`
	TimelineID   valueobjects.TimelineID `json:"timeline_id"`
	ParentID     valueobjects.TimelineID `json:"parent_timeline_id"`
	Title        string                  `json:"title"`
	ParentTitle  string                  `json:"parent_title"`
	BranchPrompt string                  `json:"branch_prompt"`
}

func NewTimelineBranched(worldID valueobjects.WorldID, id, parent valueobjects.TimelineID, title, parentTitle, prompt string, at time.Time) TimelineBranched {
	return TimelineBranched{
		BaseEvent:    newBase(worldID.String(), TypeTimelineBranched, at),
		WorldID:      worldID,
		TimelineID:   id,
		ParentID:     parent,
		Title:        title,
		ParentTitle:  parentTitle,
		BranchPrompt: prompt,
	}
}

// TimelinesCollapsed is raised when a collapse changed at least one timeline
type TimelinesCollapsed struct {
	BaseEvent
	WorldID     valueobjects.WorldID      `json:"world_id"`
	TimelineIDs []valueobjects.TimelineID `json:"timeline_ids"`
}

func NewTimelinesCollapsed(worldID valueobjects.WorldID, ids []valueobjects.TimelineID, at time.Time) TimelinesCollapsed {
	return TimelinesCollapsed{
		BaseEvent:   newBase(worldID.String(), TypeTimelinesCollapsed, at),
		WorldID:     worldID,
		TimelineIDs: ids,
	}
}

// ReflectionRecorded is raised after a reflection was written to the archive
type ReflectionRecorded struct {
	BaseEvent
	WorldID valueobjects.WorldID        `json:"world_id"`
	EntryID valueobjects.ArchiveEntryID `json:"entry_id"`
	Tone    valueobjects.Tone           `json:"tone"`
}

func NewReflectionRecorded(worldID valueobjects.WorldID, entryID valueobjects.ArchiveEntryID, tone valueobjects.Tone, at time.Time) ReflectionRecorded {
	return ReflectionRecorded{
		BaseEvent: newBase(worldID.String(), TypeReflectionRecorded, at),
		WorldID:   worldID,
		EntryID:   entryID,
		Tone:      tone,
	}
}

// PackagePublished is raised once a package blob and its ledger record are committed
type PackagePublished struct {
	BaseEvent
	PackageName valueobjects.PackageName `json:"package_name"`
	WorldID     valueobjects.WorldID     `json:"world_id"`
	WorldName   string                   `json:"world_name"`
	Visibility  valueobjects.Visibility  `json:"visibility"`
	WisdomMode  valueobjects.WisdomMode  `json:"wisdom_mode"`
	Timelines   int                      `json:"timelines"`
}

func NewPackagePublished(name valueobjects.PackageName, worldID valueobjects.WorldID, worldName string, vis valueobjects.Visibility, mode valueobjects.WisdomMode, timelines int, at time.Time) PackagePublished {
	return PackagePublished{
		BaseEvent:   newBase(name.String(), TypePackagePublished, at),
		PackageName: name,
		WorldID:     worldID,
		WorldName:   worldName,
		Visibility:  vis,
		WisdomMode:  mode,
		Timelines:   timelines,
	}
}

// PackageRevoked is raised the first time a package is revoked
type PackageRevoked struct {
	BaseEvent
	PackageName valueobjects.PackageName `json:"package_name"`
	WorldID     valueobjects.WorldID     `json:"world_id"`
}

func NewPackageRevoked(name valueobjects.PackageName, worldID valueobjects.WorldID, at time.Time) PackageRevoked {
	return PackageRevoked{
		BaseEvent:   newBase(name.String(), TypePackageRevoked, at),
		PackageName: name,
		WorldID:     worldID,
	}
}

// PackageImported is raised when a package was materialised as a new world
type PackageImported struct {
	BaseEvent
	PackageName    valueobjects.PackageName `json:"package_name"`
	WorldID        valueobjects.WorldID     `json:"world_id"`
	RootTimelineID valueobjects.TimelineID  `json:"root_timeline_id"`
	WorldName      string                   `json:"world_name"`
	Timelines      int                      `json:"timelines"`
}

func NewPackageImported(name valueobjects.PackageName, worldID valueobjects.WorldID, rootID valueobjects.TimelineID, worldName string, timelines int, at time.Time) PackageImported {
	return PackageImported{
		BaseEvent:      newBase(worldID.String(), TypePackageImported, at),
		PackageName:    name,
		WorldID:        worldID,
		RootTimelineID: rootID,
		WorldName:      worldName,
		Timelines:      timelines,
	}
}
