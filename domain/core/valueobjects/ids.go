package valueobjects

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "cosmos-backend/pkg/errors"
)

// WorldID identifies a world. Value objects are immutable and compare by value.
type WorldID struct {
	value string
}

// NewWorldID creates a new random WorldID
func NewWorldID() WorldID {
	return WorldID{value: uuid.New().String()}
}

// ParseWorldID creates a WorldID from an existing string
func ParseWorldID(id string) (WorldID, error) {
	v, err := parseUUID("world_id", id)
	return WorldID{value: v}, err
}

func (id WorldID) String() string            { return id.value }
func (id WorldID) IsZero() bool              { return id.value == "" }
func (id WorldID) Equals(other WorldID) bool { return id.value == other.value }

// MarshalJSON implements json.Marshaler
func (id WorldID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

// UnmarshalJSON implements json.Unmarshaler
func (id *WorldID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "world_id", &id.value)
}

// TimelineID identifies a timeline within its world.
type TimelineID struct {
	value string
}

// NewTimelineID creates a new random TimelineID
func NewTimelineID() TimelineID {
	return TimelineID{value: uuid.New().String()}
}

// ParseTimelineID creates a TimelineID from an existing string
func ParseTimelineID(id string) (TimelineID, error) {
	v, err := parseUUID("timeline_id", id)
	return TimelineID{value: v}, err
}

func (id TimelineID) String() string               { return id.value }
func (id TimelineID) IsZero() bool                 { return id.value == "" }
func (id TimelineID) Equals(other TimelineID) bool { return id.value == other.value }

// MarshalJSON implements json.Marshaler
func (id TimelineID) MarshalJSON() ([]byte, error) {
	if id.value == "" {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *TimelineID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "timeline_id", &id.value)
}

// ArchiveEntryID identifies an archive entry.
type ArchiveEntryID struct {
	value string
}

// NewArchiveEntryID creates a new random ArchiveEntryID
func NewArchiveEntryID() ArchiveEntryID {
	return ArchiveEntryID{value: uuid.New().String()}
}

// ParseArchiveEntryID creates an ArchiveEntryID from an existing string
func ParseArchiveEntryID(id string) (ArchiveEntryID, error) {
	v, err := parseUUID("entry_id", id)
	return ArchiveEntryID{value: v}, err
}

func (id ArchiveEntryID) String() string { return id.value }
func (id ArchiveEntryID) IsZero() bool   { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id ArchiveEntryID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

// MergeID identifies the record of one package import.
type MergeID struct {
	value string
}

// NewMergeID creates a new random MergeID
func NewMergeID() MergeID {
	return MergeID{value: uuid.New().String()}
}

// ParseMergeID creates a MergeID from an existing string
func ParseMergeID(id string) (MergeID, error) {
	v, err := parseUUID("merge_id", id)
	return MergeID{value: v}, err
}

func (id MergeID) String() string { return id.value }
func (id MergeID) IsZero() bool   { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id MergeID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func parseUUID(field, id string) (string, error) {
	if id == "" {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("%s cannot be empty", field))
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("%s must be a valid UUID", field)).
			WithDetail(field, id)
	}
	return parsed.String(), nil
}

func unmarshalID(data []byte, field string, dst *string) error {
	if string(data) == "null" {
		*dst = ""
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%s must be a string: %w", field, err)
	}
	if raw == "" {
		*dst = ""
		return nil
	}
	v, err := parseUUID(field, raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
