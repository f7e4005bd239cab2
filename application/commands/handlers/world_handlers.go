package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/ports"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
)

// CreateWorldHandler handles world creation
type CreateWorldHandler struct {
	transactor ports.Transactor
	eventBus   ports.EventBus
	config     *config.DomainConfig
	logger     *zap.Logger
}

// NewCreateWorldHandler creates a new create world handler
func NewCreateWorldHandler(
	transactor ports.Transactor,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CreateWorldHandler {
	return &CreateWorldHandler{
		transactor: transactor,
		eventBus:   eventBus,
		config:     cfg,
		logger:     logger,
	}
}

// Handle creates the world and its root timeline in one transaction
func (h *CreateWorldHandler) Handle(ctx context.Context, cmd commands.CreateWorldCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	rootID, err := valueobjects.ParseTimelineID(cmd.RootTimelineID)
	if err != nil {
		return err
	}

	warmthValue := h.config.DefaultWarmth
	if cmd.Warmth != nil {
		warmthValue = *cmd.Warmth
	}
	warmth, err := valueobjects.NewWarmth(warmthValue)
	if err != nil {
		return err
	}

	var layout *valueobjects.MapLayout
	if len(cmd.MapLayout) > 0 {
		l, err := valueobjects.NewMapLayout(cmd.MapLayout)
		if err != nil {
			return err
		}
		layout = &l
	}

	now := time.Now()
	world, err := entities.NewWorld(worldID, rootID, cmd.Name, cmd.SeedPrompt, warmth, layout, now, h.config)
	if err != nil {
		return err
	}
	root := entities.NewRootTimeline(rootID, worldID, now, h.config)

	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := tx.Worlds().Save(ctx, world); err != nil {
			return fmt.Errorf("failed to save world: %w", err)
		}
		if err := tx.Timelines().Save(ctx, root); err != nil {
			return fmt.Errorf("failed to save root timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("World created",
		zap.String("world_id", worldID.String()),
		zap.String("root_timeline_id", rootID.String()),
	)
	publishCommitted(ctx, h.eventBus, h.logger, world)
	return nil
}

// UpdateMapLayoutHandler replaces a world's display layout
type UpdateMapLayoutHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	eventBus   ports.EventBus
	logger     *zap.Logger
}

// NewUpdateMapLayoutHandler creates a new map layout handler
func NewUpdateMapLayoutHandler(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *UpdateMapLayoutHandler {
	return &UpdateMapLayoutHandler{
		transactor: transactor,
		locker:     locker,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle executes the update under the world's exclusive lock
func (h *UpdateMapLayoutHandler) Handle(ctx context.Context, cmd commands.UpdateMapLayoutCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	layout, err := valueobjects.NewMapLayout(cmd.Points)
	if err != nil {
		return err
	}

	unlock, err := h.locker.Lock(ctx, worldID)
	if err != nil {
		return err
	}
	defer unlock()

	var world *entities.World
	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		w, err := tx.Worlds().GetByID(ctx, worldID)
		if err != nil {
			return err
		}
		w.ReplaceMapLayout(layout, time.Now())
		if err := tx.Worlds().UpdateMapLayout(ctx, w); err != nil {
			return fmt.Errorf("failed to update map layout: %w", err)
		}
		world = w
		return nil
	})
	if err != nil {
		return err
	}

	publishCommitted(ctx, h.eventBus, h.logger, world)
	return nil
}
