package handlers

import (
	"context"

	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/aggregates"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	"cosmos-backend/domain/events"
)

// eventSource is anything that buffers domain events until commit.
type eventSource interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}

// publishCommitted publishes the events of sources after their transaction
// committed. Publishing failures are logged; the write already happened.
func publishCommitted(ctx context.Context, bus ports.EventBus, logger *zap.Logger, sources ...eventSource) {
	var pending []events.DomainEvent
	for _, s := range sources {
		if s == nil {
			continue
		}
		pending = append(pending, s.GetUncommittedEvents()...)
		s.MarkEventsAsCommitted()
	}
	if len(pending) == 0 {
		return
	}
	if err := bus.PublishBatch(ctx, pending); err != nil {
		logger.Warn("Failed to publish events",
			zap.Int("count", len(pending)),
			zap.Error(err),
		)
	}
}

// loadForest reads a world and its timelines as one aggregate.
func loadForest(ctx context.Context, repos ports.Repositories, worldID valueobjects.WorldID) (*entities.World, *aggregates.Forest, error) {
	world, err := repos.Worlds().GetByID(ctx, worldID)
	if err != nil {
		return nil, nil, err
	}
	timelines, err := repos.Timelines().GetByWorldID(ctx, worldID)
	if err != nil {
		return nil, nil, err
	}
	forest, err := aggregates.NewForest(worldID, timelines)
	if err != nil {
		return nil, nil, err
	}
	return world, forest, nil
}
