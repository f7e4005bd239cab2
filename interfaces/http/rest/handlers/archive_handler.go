package handlers

import (
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

// ArchiveHandler serves archive search and reflections.
type ArchiveHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	responder
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		responder:  responder{errors: errs, logger: logger},
	}
}

// Search handles GET /api/cosmos/archive?query=&limit=
func (h *ArchiveHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := queries.SearchArchiveQuery{Text: r.URL.Query().Get("query")}
	if limit != nil {
		q.Limit = *limit
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

// Reflect handles POST /api/cosmos/reflection/{id}?warmth=
// A world with nothing active answers 200 with empty strings.
func (h *ArchiveHandler) Reflect(w http.ResponseWriter, r *http.Request) {
	warmth, err := optionalInt(r, "warmth")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cmd := commands.ReflectCommand{
		EntryID: uuid.NewString(),
		WorldID: chi.URLParam(r, "id"),
		Warmth:  warmth,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNothingToReflect) {
			h.json(w, http.StatusOK, queries.ReflectionView{})
			return
		}
		h.fail(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetReflectionQuery{EntryID: cmd.EntryID, Warmth: warmth})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}
