package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/application/queries"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/aggregates"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
)

// GetWorldHandler handles single world reads
type GetWorldHandler struct {
	transactor ports.Transactor
}

// NewGetWorldHandler creates a new get world handler
func NewGetWorldHandler(transactor ports.Transactor) *GetWorldHandler {
	return &GetWorldHandler{transactor: transactor}
}

// Handle executes the query
func (h *GetWorldHandler) Handle(ctx context.Context, q queries.GetWorldQuery) (*queries.WorldView, error) {
	worldID, err := valueobjects.ParseWorldID(q.WorldID)
	if err != nil {
		return nil, err
	}
	var view queries.WorldView
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		w, err := repos.Worlds().GetByID(ctx, worldID)
		if err != nil {
			return err
		}
		view = queries.NewWorldView(w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListWorldsHandler lists worlds with the storage report
type ListWorldsHandler struct {
	transactor ports.Transactor
	config     *config.DomainConfig
}

// NewListWorldsHandler creates a new list worlds handler
func NewListWorldsHandler(transactor ports.Transactor, cfg *config.DomainConfig) *ListWorldsHandler {
	return &ListWorldsHandler{transactor: transactor, config: cfg}
}

// Handle lists worlds in creation order
func (h *ListWorldsHandler) Handle(ctx context.Context, q queries.ListWorldsQuery) (*queries.ListWorldsResult, error) {
	result := &queries.ListWorldsResult{Items: []queries.WorldView{}}
	err := h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		worlds, err := repos.Worlds().List(ctx)
		if err != nil {
			return err
		}
		for _, w := range worlds {
			result.Items = append(result.Items, queries.NewWorldView(w))
		}
		report, err := storageReport(ctx, repos, h.config.StorageWarningThreshold)
		if err != nil {
			return err
		}
		result.Storage = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StorageReportHandler reports how much the store holds
type StorageReportHandler struct {
	transactor ports.Transactor
	config     *config.DomainConfig
}

// NewStorageReportHandler creates a new storage report handler
func NewStorageReportHandler(transactor ports.Transactor, cfg *config.DomainConfig) *StorageReportHandler {
	return &StorageReportHandler{transactor: transactor, config: cfg}
}

// Handle executes the query
func (h *StorageReportHandler) Handle(ctx context.Context, q queries.StorageReportQuery) (*queries.StorageReport, error) {
	var report queries.StorageReport
	err := h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		report, err = storageReport(ctx, repos, h.config.StorageWarningThreshold)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func storageReport(ctx context.Context, repos ports.Repositories, threshold int) (queries.StorageReport, error) {
	worlds, err := repos.Worlds().Count(ctx)
	if err != nil {
		return queries.StorageReport{}, err
	}
	timelines, err := repos.Timelines().Count(ctx)
	if err != nil {
		return queries.StorageReport{}, err
	}
	return queries.StorageReport{
		Warning:   worlds+timelines > threshold,
		Worlds:    worlds,
		Timelines: timelines,
	}, nil
}

// ListTimelinesHandler lists a world's timelines depth first
type ListTimelinesHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
}

// NewListTimelinesHandler creates a new list timelines handler
func NewListTimelinesHandler(transactor ports.Transactor, locker ports.WorldLocker) *ListTimelinesHandler {
	return &ListTimelinesHandler{transactor: transactor, locker: locker}
}

// Handle reads a consistent snapshot under the world's shared lock. Each
// timeline carries the archive entries it produced, oldest first.
func (h *ListTimelinesHandler) Handle(ctx context.Context, q queries.ListTimelinesQuery) (*queries.ListTimelinesResult, error) {
	worldID, err := valueobjects.ParseWorldID(q.WorldID)
	if err != nil {
		return nil, err
	}

	unlock, err := h.locker.RLock(ctx, worldID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var ordered []*entities.Timeline
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		_, forest, entries, err := readWorld(ctx, repos, worldID)
		if err != nil {
			return err
		}
		attachArchiveRefs(forest, entries)
		ordered = forest.DepthFirst()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &queries.ListTimelinesResult{Items: make([]queries.TimelineView, 0, len(ordered))}
	for _, t := range ordered {
		result.Items = append(result.Items, queries.NewTimelineView(t))
	}
	return result, nil
}

// EternalSeedHandler builds full local backups of a world
type EternalSeedHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	archiver   ports.SeedArchiver
	logger     *zap.Logger
}

// NewEternalSeedHandler creates a new eternal seed handler
func NewEternalSeedHandler(transactor ports.Transactor, locker ports.WorldLocker, archiver ports.SeedArchiver, logger *zap.Logger) *EternalSeedHandler {
	return &EternalSeedHandler{transactor: transactor, locker: locker, archiver: archiver, logger: logger}
}

// Handle snapshots the world, every timeline and its archive entries
func (h *EternalSeedHandler) Handle(ctx context.Context, q queries.EternalSeedQuery) (*queries.SeedDownload, error) {
	worldID, err := valueobjects.ParseWorldID(q.WorldID)
	if err != nil {
		return nil, err
	}

	unlock, err := h.locker.RLock(ctx, worldID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var snapshot ports.SeedSnapshot
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		world, forest, entries, err := readWorld(ctx, repos, worldID)
		if err != nil {
			return err
		}
		attachArchiveRefs(forest, entries)
		snapshot = ports.SeedSnapshot{World: world, Timelines: forest.DepthFirst(), Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}

	blob, err := h.archiver.EncodeSeed(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode eternal seed: %w", err)
	}
	h.logger.Debug("Eternal seed built",
		zap.String("world_id", worldID.String()),
		zap.Int("bytes", len(blob)),
	)
	return &queries.SeedDownload{
		FileName: fmt.Sprintf("cosmos-%s-eternal-seed.zip", worldID),
		Blob:     blob,
	}, nil
}

// readWorld loads a world with its forest and archive entries.
func readWorld(ctx context.Context, repos ports.Repositories, worldID valueobjects.WorldID) (*entities.World, *aggregates.Forest, []*entities.ArchiveEntry, error) {
	world, err := repos.Worlds().GetByID(ctx, worldID)
	if err != nil {
		return nil, nil, nil, err
	}
	timelines, err := repos.Timelines().GetByWorldID(ctx, worldID)
	if err != nil {
		return nil, nil, nil, err
	}
	forest, err := aggregates.NewForest(worldID, timelines)
	if err != nil {
		return nil, nil, nil, err
	}
	entries, err := repos.Archive().ListByWorld(ctx, worldID)
	if err != nil {
		return nil, nil, nil, err
	}
	return world, forest, entries, nil
}

func attachArchiveRefs(forest *aggregates.Forest, entries []*entities.ArchiveEntry) {
	refs := make(map[valueobjects.TimelineID][]valueobjects.ArchiveEntryID)
	for _, e := range entries {
		if !e.TimelineID().IsZero() {
			refs[e.TimelineID()] = append(refs[e.TimelineID()], e.ID())
		}
	}
	for id, ids := range refs {
		if t, ok := forest.Get(id); ok {
			t.AttachArchiveRefs(ids)
		}
	}
}
