package commands

import (
	"strings"

	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/pkg/utils"
)

// RootSentinel is the parent value that selects the world's root timeline.
const RootSentinel = "root"

// BranchTimelineCommand branches a new timeline. An empty ParentTimelineID,
// "root" or "0" means the world's root.
type BranchTimelineCommand struct {
	TimelineID       string `json:"timeline_id" validate:"required,uuid"`
	WorldID          string `json:"world_id" validate:"required,uuid"`
	ParentTimelineID string `json:"parent_timeline_id"`
	Title            string `json:"title" validate:"required,max=200"`
	BranchPrompt     string `json:"branch_prompt" validate:"max=4000"`
}

// Validate validates the command
func (c BranchTimelineCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	_, err := c.Parent()
	return err
}

// Parent resolves the requested parent; the zero id stands for the root.
func (c BranchTimelineCommand) Parent() (valueobjects.TimelineID, error) {
	switch p := strings.TrimSpace(c.ParentTimelineID); p {
	case "", RootSentinel, "0":
		return valueobjects.TimelineID{}, nil
	default:
		return valueobjects.ParseTimelineID(p)
	}
}

// CollapseTimelinesCommand collapses every active timeline of a world.
type CollapseTimelinesCommand struct {
	WorldID string `json:"world_id" validate:"required,uuid"`
}

// Validate validates the command
func (c CollapseTimelinesCommand) Validate() error {
	return utils.ValidateStruct(c)
}
