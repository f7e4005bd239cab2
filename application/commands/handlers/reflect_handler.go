package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/ports"
	"cosmos-backend/application/services"
	"cosmos-backend/domain/config"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

// ReflectHandler composes reflections and records them in the archive
type ReflectHandler struct {
	transactor ports.Transactor
	locker     ports.WorldLocker
	composer   *services.ReflectionComposer
	eventBus   ports.EventBus
	config     *config.DomainConfig
	logger     *zap.Logger
}

// NewReflectHandler creates a new reflect handler
func NewReflectHandler(
	transactor ports.Transactor,
	locker ports.WorldLocker,
	composer *services.ReflectionComposer,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ReflectHandler {
	return &ReflectHandler{
		transactor: transactor,
		locker:     locker,
		composer:   composer,
		eventBus:   eventBus,
		config:     cfg,
		logger:     logger,
	}
}

// Handle reads the active timelines under a shared lock, then appends the
// reflection as a world-level archive entry. A world without active
// timelines yields NOTHING_TO_REFLECT and writes nothing.
func (h *ReflectHandler) Handle(ctx context.Context, cmd commands.ReflectCommand) error {
	worldID, err := valueobjects.ParseWorldID(cmd.WorldID)
	if err != nil {
		return err
	}
	entryID, err := valueobjects.ParseArchiveEntryID(cmd.EntryID)
	if err != nil {
		return err
	}

	reflection, err := h.compose(ctx, worldID, cmd.Warmth)
	if err != nil {
		return err
	}

	now := time.Now()
	entry := entities.NewArchiveEntry(entryID, worldID, valueobjects.TimelineID{},
		entities.ArchiveReflection, reflection.Message, now, h.config.MaxArchiveContentBytes)

	err = h.transactor.WithinTransaction(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := tx.Archive().Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to record reflection: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := h.eventBus.Publish(ctx, events.NewReflectionRecorded(worldID, entryID, reflection.Tone, entry.CreatedAt())); err != nil {
		h.logger.Warn("Failed to publish event", zap.Error(err))
	}
	return nil
}

func (h *ReflectHandler) compose(ctx context.Context, worldID valueobjects.WorldID, requested *int) (services.Reflection, error) {
	unlock, err := h.locker.RLock(ctx, worldID)
	if err != nil {
		return services.Reflection{}, err
	}
	defer unlock()

	var reflection services.Reflection
	err = h.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		world, forest, err := loadForest(ctx, repos, worldID)
		if err != nil {
			return err
		}
		active := forest.Active()
		if len(active) == 0 {
			return pkgerrors.NewNotFoundError("active timeline").
				WithCode(pkgerrors.CodeNothingToReflect).
				WithDetail("world_id", worldID.String())
		}

		warmth := world.Warmth()
		if requested != nil {
			if warmth, err = valueobjects.NewWarmth(*requested); err != nil {
				return err
			}
		}
		reflection = h.composer.Compose(world, active, warmth)
		return nil
	})
	return reflection, err
}
