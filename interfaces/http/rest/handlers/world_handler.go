package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/commands/bus"
	"cosmos-backend/application/queries"
	querybus "cosmos-backend/application/queries/bus"
	pkgerrors "cosmos-backend/pkg/errors"
)

// WorldHandler serves worlds, their timelines and backups.
type WorldHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	responder
}

// NewWorldHandler creates a new world handler
func NewWorldHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *WorldHandler {
	return &WorldHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		responder:  responder{errors: errs, logger: logger},
	}
}

// CreateWorldRequest is the body of POST /api/cosmos/worlds
type CreateWorldRequest struct {
	Name       string          `json:"name"`
	SeedPrompt string          `json:"seed_prompt"`
	Warmth     *int            `json:"warmth,omitempty"`
	MapLayout  json.RawMessage `json:"map_layout,omitempty"`
}

// UpdateMapRequest is the body of PUT /api/cosmos/world/{id}/map
type UpdateMapRequest struct {
	Points json.RawMessage `json:"points"`
}

// CreateWorld handles POST /api/cosmos/worlds
func (h *WorldHandler) CreateWorld(w http.ResponseWriter, r *http.Request) {
	var req CreateWorldRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cmd := commands.CreateWorldCommand{
		WorldID:        uuid.NewString(),
		RootTimelineID: uuid.NewString(),
		Name:           req.Name,
		SeedPrompt:     req.SeedPrompt,
		Warmth:         req.Warmth,
		MapLayout:      req.MapLayout,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeWorld(w, r, cmd.WorldID, http.StatusCreated)
}

// ListWorlds handles GET /api/cosmos/worlds
func (h *WorldHandler) ListWorlds(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListWorldsQuery{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

// GetWorld handles GET /api/cosmos/world/{id}
func (h *WorldHandler) GetWorld(w http.ResponseWriter, r *http.Request) {
	h.writeWorld(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// UpdateMap handles PUT /api/cosmos/world/{id}/map
func (h *WorldHandler) UpdateMap(w http.ResponseWriter, r *http.Request) {
	var req UpdateMapRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	worldID := chi.URLParam(r, "id")
	if err := h.commandBus.Send(r.Context(), commands.UpdateMapLayoutCommand{WorldID: worldID, Points: req.Points}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeWorld(w, r, worldID, http.StatusOK)
}

// ListTimelines handles GET /api/cosmos/world/{id}/timelines
func (h *WorldHandler) ListTimelines(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListTimelinesQuery{WorldID: chi.URLParam(r, "id")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

// Collapse handles POST /api/cosmos/world/{id}/collapse
func (h *WorldHandler) Collapse(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.CollapseTimelinesCommand{WorldID: chi.URLParam(r, "id")}); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EternalSeed handles GET /api/cosmos/world/{id}/eternal-seed.zip
func (h *WorldHandler) EternalSeed(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.EternalSeedQuery{WorldID: chi.URLParam(r, "id")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	seed := result.(*queries.SeedDownload)
	h.zip(w, seed.FileName, seed.Blob)
}

// Storage handles GET /api/cosmos/storage
func (h *WorldHandler) Storage(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.StorageReportQuery{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

func (h *WorldHandler) writeWorld(w http.ResponseWriter, r *http.Request, worldID string, status int) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetWorldQuery{WorldID: worldID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, status, result)
}
