package handlers

import (
	"context"

	"cosmos-backend/application/ports"
	"cosmos-backend/application/queries"
	"cosmos-backend/application/services"
	"cosmos-backend/domain/core/valueobjects"
)

// SearchArchiveHandler searches the archive across all worlds
type SearchArchiveHandler struct {
	transactor ports.Transactor
}

// NewSearchArchiveHandler creates a new archive search handler
func NewSearchArchiveHandler(transactor ports.Transactor) *SearchArchiveHandler {
	return &SearchArchiveHandler{transactor: transactor}
}

// Handle runs the search inside one read so it sees a single snapshot
func (h *SearchArchiveHandler) Handle(ctx context.Context, q queries.SearchArchiveQuery) (*queries.ArchiveSearchResult, error) {
	result := &queries.ArchiveSearchResult{Items: []queries.ArchiveEntryView{}}
	err := h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		entries, err := repos.Archive().Search(ctx, ports.ArchiveQuery{Text: q.Text, Limit: q.EffectiveLimit()})
		if err != nil {
			return err
		}
		for _, e := range entries {
			result.Items = append(result.Items, queries.NewArchiveEntryView(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetReflectionHandler reads back recorded reflections
type GetReflectionHandler struct {
	transactor ports.Transactor
}

// NewGetReflectionHandler creates a new reflection handler
func NewGetReflectionHandler(transactor ports.Transactor) *GetReflectionHandler {
	return &GetReflectionHandler{transactor: transactor}
}

// Handle executes the query
func (h *GetReflectionHandler) Handle(ctx context.Context, q queries.GetReflectionQuery) (*queries.ReflectionView, error) {
	entryID, err := valueobjects.ParseArchiveEntryID(q.EntryID)
	if err != nil {
		return nil, err
	}

	var view queries.ReflectionView
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		entry, err := repos.Archive().GetByID(ctx, entryID)
		if err != nil {
			return err
		}

		var warmth valueobjects.Warmth
		if q.Warmth != nil {
			if warmth, err = valueobjects.NewWarmth(*q.Warmth); err != nil {
				return err
			}
		} else {
			world, err := repos.Worlds().GetByID(ctx, entry.WorldID())
			if err != nil {
				return err
			}
			warmth = world.Warmth()
		}

		view = queries.ReflectionView{
			Message: entry.Content(),
			Oracle:  services.Oracle,
			Tone:    warmth.Tone(),
			EntryID: entry.ID().String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
