package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/ports"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/aggregates"
	"cosmos-backend/domain/core/valueobjects"
)

// BranchTimelineHandler creates timelines below existing ones
type BranchTimelineHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	eventBus   ports.EventBus
	config     *config.DomainConfig
	logger     *zap.Logger
}

// NewBranchTimelineHandler creates a new branch handler
func NewBranchTimelineHandler(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *BranchTimelineHandler {
	return &BranchTimelineHandler{
		transactor: transactor,
		locker:     locker,
		eventBus:   eventBus,
		config:     cfg,
		logger:     logger,
	}
}

// Handle branches under the world's exclusive lock. The forest is reloaded
// inside the transaction so concurrent branches never see a stale parent set.
func (h *BranchTimelineHandler) Handle(ctx context.Context, cmd commands.BranchTimelineCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	timelineID, err := valueobjects.ParseTimelineID(cmd.TimelineID)
	if err != nil {
		return err
	}
	parentID, err := cmd.Parent()
	if err != nil {
		return err
	}

	unlock, err := h.locker.Lock(ctx, worldID)
	if err != nil {
		return err
	}
	defer unlock()

	var forest *aggregates.Forest
	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		_, f, err := loadForest(ctx, tx, worldID)
		if err != nil {
			return err
		}
		t, err := f.Branch(timelineID, parentID, cmd.Title, cmd.BranchPrompt, time.Now(), h.config)
		if err != nil {
			return err
		}
		if err := tx.Timelines().Save(ctx, t); err != nil {
			return fmt.Errorf("failed to save timeline: %w", err)
		}
		forest = f
		return nil
	})
	if err != nil {
		return err
	}

	publishCommitted(ctx, h.eventBus, h.logger, forest)
	return nil
}

// CollapseTimelinesHandler collapses all active timelines of a world
type CollapseTimelinesHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	eventBus   ports.EventBus
	logger     *zap.Logger
}

// NewCollapseTimelinesHandler creates a new collapse handler
func NewCollapseTimelinesHandler(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *CollapseTimelinesHandler {
	return &CollapseTimelinesHandler{
		transactor: transactor,
		locker:     locker,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle collapses every active timeline in one transaction. Repeat calls
// change nothing and publish nothing.
func (h *CollapseTimelinesHandler) Handle(ctx context.Context, cmd commands.CollapseTimelinesCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}

	unlock, err := h.locker.Lock(ctx, worldID)
	if err != nil {
		return err
	}
	defer unlock()

	var forest *aggregates.Forest
	collapsed := 0
	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		_, f, err := loadForest(ctx, tx, worldID)
		if err != nil {
			return err
		}
		changed := f.CollapseAll(time.Now())
		if len(changed) > 0 {
			if err := tx.Timelines().UpdateStatus(ctx, changed); err != nil {
				return fmt.Errorf("failed to collapse timelines: %w", err)
			}
		}
		forest = f
		collapsed = len(changed)
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Debug("Timelines collapsed",
		zap.String("world_id", worldID.String()),
		zap.Int("collapsed", collapsed),
	)
	publishCommitted(ctx, h.eventBus, h.logger, forest)
	return nil
}
