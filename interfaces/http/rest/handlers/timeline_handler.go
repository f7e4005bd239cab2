package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/commands/bus"
	"cosmos-backend/application/queries"
	querybus "cosmos-backend/application/queries/bus"
	pkgerrors "cosmos-backend/pkg/errors"
)

// TimelineHandler serves branching.
type TimelineHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	responder
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		responder:  responder{errors: errs, logger: logger},
	}
}

// BranchRequest is the body of POST /api/cosmos/branch. ParentTimelineID
// holds a timeline id, "", "root" or the number 0.
type BranchRequest struct {
	WorldID          string          `json:"world_id"`
	ParentTimelineID json.RawMessage `json:"parent_timeline_id"`
	Title            string          `json:"title"`
	BranchPrompt     string          `json:"branch_prompt"`
}

// Branch handles POST /api/cosmos/branch
func (h *TimelineHandler) Branch(w http.ResponseWriter, r *http.Request) {
	var req BranchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	parent, err := parentParam(req.ParentTimelineID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cmd := commands.BranchTimelineCommand{
		TimelineID:       uuid.NewString(),
		WorldID:          req.WorldID,
		ParentTimelineID: parent,
		Title:            req.Title,
		BranchPrompt:     req.BranchPrompt,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListTimelinesQuery{WorldID: cmd.WorldID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, t := range result.(*queries.ListTimelinesResult).Items {
		if t.ID == cmd.TimelineID {
			h.json(w, http.StatusCreated, t)
			return
		}
	}
	h.fail(w, r, pkgerrors.NewInternalError("branched timeline not found after commit"))
}

// parentParam normalises the parent field to the string form the command
// takes. Any number other than 0 is rejected.
func parentParam(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", pkgerrors.NewValidationError("parent_timeline_id must be a string").WithCause(err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n.String() != "0" {
		return "", pkgerrors.NewValidationError(`parent_timeline_id must be a timeline id, "root" or 0`).
			WithDetail("parent_timeline_id", string(raw))
	}
	return "0", nil
}
