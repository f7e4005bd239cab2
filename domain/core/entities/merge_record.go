package entities

import (
	"time"

	"cosmos-backend/domain/core/valueobjects"
)

// MergeStatus summarises how an import went.
type MergeStatus string

const (
	MergeStatusMerged              MergeStatus = "merged"
	MergeStatusMergedWithConflicts MergeStatus = "merged_with_conflicts"
)

// ResolutionNotInPackage marks a requested timeline the package did not contain.
const ResolutionNotInPackage = "not_in_package"

// MergeConflict records one operator decision that could not be applied.
type MergeConflict struct {
	Title      string `json:"title"`
	Resolution string `json:"resolution"`
}

// MergeRecord is the provenance row written by every import.
type MergeRecord struct {
	ID                valueobjects.MergeID
	WorldID           valueobjects.WorldID
	SourcePackage     valueobjects.PackageName
	KeepTimelines     []string
	Conflicts         []MergeConflict
	ImportedTimelines int
	Status            MergeStatus
	CreatedAt         time.Time
}

// NewMergeRecord derives the status from the conflicts.
func NewMergeRecord(
	id valueobjects.MergeID,
	worldID valueobjects.WorldID,
	source valueobjects.PackageName,
	keep []string,
	conflicts []MergeConflict,
	imported int,
	now time.Time,
) *MergeRecord {
	status := MergeStatusMerged
	if len(conflicts) > 0 {
		status = MergeStatusMergedWithConflicts
	}
	return &MergeRecord{
		ID:                id,
		WorldID:           worldID,
		SourcePackage:     source,
		KeepTimelines:     keep,
		Conflicts:         conflicts,
		ImportedTimelines: imported,
		Status:            status,
		CreatedAt:         now.UTC(),
	}
}
