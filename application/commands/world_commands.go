package commands

import (
	"encoding/json"

	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/pkg/utils"
)

// CreateWorldCommand creates a world and its root timeline. Both ids are
// generated by the caller so the result can be read back afterwards.
type CreateWorldCommand struct {
	WorldID        string          `json:"world_id" validate:"required,uuid"`
	RootTimelineID string          `json:"root_timeline_id" validate:"required,uuid"`
	Name           string          `json:"name" validate:"required,max=200"`
	SeedPrompt     string          `json:"seed_prompt" validate:"max=4000"`
	Warmth         *int            `json:"warmth,omitempty"`
	MapLayout      json.RawMessage `json:"map_layout,omitempty"`
}

// Validate validates the command
func (c CreateWorldCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return validateWarmth(c.Warmth)
}

// UpdateMapLayoutCommand replaces the display layout of a world.
type UpdateMapLayoutCommand struct {
	WorldID string          `json:"world_id" validate:"required,uuid"`
	Points  json.RawMessage `json:"points"`
}

// Validate validates the command
func (c UpdateMapLayoutCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	_, err := valueobjects.NewMapLayout(c.Points)
	return err
}

// ReflectCommand composes a reflection and records it in the archive.
// A nil Warmth means the world's own warmth.
type ReflectCommand struct {
	EntryID string `json:"entry_id" validate:"required,uuid"`
	WorldID string `json:"world_id" validate:"required,uuid"`
	Warmth  *int   `json:"warmth,omitempty"`
}

// Validate validates the command
func (c ReflectCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	return validateWarmth(c.Warmth)
}

func validateWarmth(w *int) error {
	if w == nil {
		return nil
	}
	_, err := valueobjects.NewWarmth(*w)
	return err
}
