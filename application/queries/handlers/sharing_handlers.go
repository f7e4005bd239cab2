package handlers

import (
	"context"

	"cosmos-backend/application/ports"
	"cosmos-backend/application/queries"
	"cosmos-backend/application/services"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

// GetSharePackageHandler reads ledger records
type GetSharePackageHandler struct {
	transactor ports.Transactor
}

// NewGetSharePackageHandler creates a new share package handler
func NewGetSharePackageHandler(transactor ports.Transactor) *GetSharePackageHandler {
	return &GetSharePackageHandler{transactor: transactor}
}

// Handle executes the query
func (h *GetSharePackageHandler) Handle(ctx context.Context, q queries.GetSharePackageQuery) (*queries.ShareView, error) {
	name, err := valueobjects.ParsePackageName(q.PackageName)
	if err != nil {
		return nil, err
	}
	var view queries.ShareView
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		rec, err := repos.Shares().GetByName(ctx, name)
		if err != nil {
			return err
		}
		view = queries.NewShareView(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListSharesHandler lists the ledger
type ListSharesHandler struct {
	transactor ports.Transactor
}

// NewListSharesHandler creates a new list shares handler
func NewListSharesHandler(transactor ports.Transactor) *ListSharesHandler {
	return &ListSharesHandler{transactor: transactor}
}

// Handle lists every record in creation order, revoked ones included
func (h *ListSharesHandler) Handle(ctx context.Context, q queries.ListSharesQuery) (*queries.ListSharesResult, error) {
	result := &queries.ListSharesResult{Items: []queries.ShareView{}}
	err := h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		records, err := repos.Shares().List(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			result.Items = append(result.Items, queries.NewShareView(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DownloadPackageHandler serves package blobs
type DownloadPackageHandler struct {
	transactor ports.Transactor
}

// NewDownloadPackageHandler creates a new download handler
func NewDownloadPackageHandler(transactor ports.Transactor) *DownloadPackageHandler {
	return &DownloadPackageHandler{transactor: transactor}
}

// Handle returns the blob of an unrevoked package
func (h *DownloadPackageHandler) Handle(ctx context.Context, q queries.DownloadPackageQuery) (*queries.PackageDownload, error) {
	name, err := valueobjects.ParsePackageName(q.PackageName)
	if err != nil {
		return nil, err
	}
	var download queries.PackageDownload
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		rec, err := repos.Shares().GetByName(ctx, name)
		if err != nil {
			return err
		}
		if rec.IsRevoked() {
			return pkgerrors.NewForbiddenError("package has been revoked").
				WithCode(pkgerrors.CodePackageRevoked).
				WithDetail("package_name", name.String())
		}
		blob, err := repos.Blobs().Get(ctx, name)
		if err != nil {
			return err
		}
		download = queries.PackageDownload{FileName: name.String(), Blob: blob}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &download, nil
}

// ListNetworkHandler serves the network directory
type ListNetworkHandler struct {
	directory *services.NetworkDirectory
}

// NewListNetworkHandler creates a new network handler
func NewListNetworkHandler(directory *services.NetworkDirectory) *ListNetworkHandler {
	return &ListNetworkHandler{directory: directory}
}

// Handle executes the query
func (h *ListNetworkHandler) Handle(ctx context.Context, q queries.ListNetworkQuery) (*queries.ListNetworkResult, error) {
	entries, err := h.directory.List(ctx)
	if err != nil {
		return nil, err
	}
	result := &queries.ListNetworkResult{Items: make([]queries.NetworkEntryView, 0, len(entries))}
	for _, e := range entries {
		result.Items = append(result.Items, queries.NewNetworkEntryView(e))
	}
	return result, nil
}

// GetMergeRecordHandler reads import records
type GetMergeRecordHandler struct {
	transactor ports.Transactor
}

// NewGetMergeRecordHandler creates a new merge record handler
func NewGetMergeRecordHandler(transactor ports.Transactor) *GetMergeRecordHandler {
	return &GetMergeRecordHandler{transactor: transactor}
}

// Handle returns the record with the source package's manifest
func (h *GetMergeRecordHandler) Handle(ctx context.Context, q queries.GetMergeRecordQuery) (*queries.MergeView, error) {
	mergeID, err := valueobjects.ParseMergeID(q.MergeID)
	if err != nil {
		return nil, err
	}
	var view queries.MergeView
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		rec, err := repos.Merges().GetByID(ctx, mergeID)
		if err != nil {
			return err
		}
		view = queries.NewMergeView(rec)
		share, err := repos.Shares().GetByName(ctx, rec.SourcePackage)
		switch {
		case err == nil:
			manifest := share.Manifest()
			view.Manifest = &manifest
		case !pkgerrors.IsNotFound(err):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListMergesHandler lists import records
type ListMergesHandler struct {
	transactor ports.Transactor
}

// NewListMergesHandler creates a new list merges handler
func NewListMergesHandler(transactor ports.Transactor) *ListMergesHandler {
	return &ListMergesHandler{transactor: transactor}
}

// Handle executes the query
func (h *ListMergesHandler) Handle(ctx context.Context, q queries.ListMergesQuery) (*queries.ListMergesResult, error) {
	result := &queries.ListMergesResult{Items: []queries.MergeView{}}
	err := h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		records, err := repos.Merges().List(ctx)
		if err != nil {
			return err
		}
		for _, r := range records {
			result.Items = append(result.Items, queries.NewMergeView(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
