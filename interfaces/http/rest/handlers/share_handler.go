package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/commands/bus"
	"cosmos-backend/application/queries"
	querybus "cosmos-backend/application/queries/bus"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

const (
	// ShareMessage answers a successful export.
	ShareMessage = "Your cosmos is now safely shared with the community ❤️"
	// ImportMessage answers a successful import.
	ImportMessage = "The shared cosmos has been woven into a new world"

	// generatedNameAttempts bounds retries when a generated name collides.
	generatedNameAttempts = 3
)

// ShareHandler serves the open cosmos: export, ledger, import and network.
type ShareHandler struct {
	commandBus    *bus.CommandBus
	queryBus      *querybus.QueryBus
	packageSuffix string
	responder
}

// NewShareHandler creates a new share handler. packageSuffix ends generated
// package names.
func NewShareHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, packageSuffix string, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ShareHandler {
	return &ShareHandler{
		commandBus:    commandBus,
		queryBus:      queryBus,
		packageSuffix: packageSuffix,
		responder:     responder{errors: errs, logger: logger},
	}
}

// ShareRequest is the body of POST /api/open-cosmos/share
type ShareRequest struct {
	WorldID      string                 `json:"world_id"`
	PackageName  string                 `json:"package_name"`
	Visibility   string                 `json:"visibility"`
	WisdomMode   string                 `json:"wisdom_mode"`
	Contributors []commands.Contributor `json:"contributors"`
}

// ShareResponse answers an export
type ShareResponse struct {
	Message     string `json:"message"`
	PackageName string `json:"package_name"`
}

// ImportRequest is the body of POST /api/open-cosmos/import
type ImportRequest struct {
	PackageName   string   `json:"package_name"`
	KeepTimelines []string `json:"keep_timelines"`
}

// ImportResponse answers an import with its merge record
type ImportResponse struct {
	Message string `json:"message"`
	queries.MergeView
}

// RevokeResponse answers a revoke
type RevokeResponse struct {
	OK          bool   `json:"ok"`
	PackageName string `json:"package_name"`
}

// Share handles POST /api/open-cosmos/share. Without a package_name a name
// is generated, and regenerated if it happens to be taken.
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cmd := commands.ExportPackageCommand{
		WorldID:      req.WorldID,
		PackageName:  req.PackageName,
		Visibility:   req.Visibility,
		WisdomMode:   req.WisdomMode,
		Contributors: req.Contributors,
	}

	var err error
	if cmd.PackageName != "" {
		err = h.commandBus.Send(r.Context(), cmd)
	} else {
		err = h.shareWithGeneratedName(r, &cmd)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.json(w, http.StatusCreated, ShareResponse{Message: ShareMessage, PackageName: cmd.PackageName})
}

func (h *ShareHandler) shareWithGeneratedName(r *http.Request, cmd *commands.ExportPackageCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		cmd.PackageName = valueobjects.GeneratePackageName(worldID, time.Now(), h.packageSuffix).String()
		err = h.commandBus.Send(r.Context(), *cmd)
		if err == nil || attempt == generatedNameAttempts || !pkgerrors.HasCode(err, pkgerrors.CodePackageNameTaken) {
			return err
		}
		h.logger.Info("Generated package name taken, retrying", zap.String("package", cmd.PackageName))
	}
}

// ListShares handles GET /api/open-cosmos/shares. Peers read this listing.
func (h *ShareHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListSharesQuery{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

// Download handles GET /api/open-cosmos/download/{name}
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.DownloadPackageQuery{PackageName: chi.URLParam(r, "name")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	download := result.(*queries.PackageDownload)
	h.zip(w, download.FileName, download.Blob)
}

// Import handles POST /api/open-cosmos/import
func (h *ShareHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cmd := commands.ImportPackageCommand{
		WorldID:       uuid.NewString(),
		MergeID:       uuid.NewString(),
		PackageName:   req.PackageName,
		KeepTimelines: req.KeepTimelines,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetMergeRecordQuery{MergeID: cmd.MergeID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusCreated, ImportResponse{Message: ImportMessage, MergeView: *result.(*queries.MergeView)})
}

// Revoke handles POST /api/open-cosmos/revoke/{name}
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.commandBus.Send(r.Context(), commands.RevokePackageCommand{PackageName: name}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, RevokeResponse{OK: true, PackageName: name})
}

// ListMerges handles GET /api/open-cosmos/merges
func (h *ShareHandler) ListMerges(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListMergesQuery{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}

// Network handles GET /api/open-cosmos/network
func (h *ShareHandler) Network(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListNetworkQuery{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, result)
}
