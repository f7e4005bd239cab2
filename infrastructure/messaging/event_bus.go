// Package messaging fans domain events out to in-process handlers and, when
// configured, to an external event bus.
package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/events"
)

// WildcardEventType subscribes a handler to every event type.
const WildcardEventType = "*"

// EventBus dispatches committed events to subscribed handlers synchronously,
// in subscription order, then forwards them to the external publisher.
// Handler and forwarding failures are logged; the write they describe has
// already committed.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	external ports.EventPublisher
	logger   *zap.Logger
}

var _ ports.EventBus = (*EventBus)(nil)

// NewEventBus creates a bus. external may be nil.
func NewEventBus(external ports.EventPublisher, logger *zap.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]ports.EventHandler),
		external: external,
		logger:   logger,
	}
}

// Subscribe registers handler for eventType, or for all types with "*".
func (b *EventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

func (b *EventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

func (b *EventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	for _, event := range batch {
		b.dispatchLocal(ctx, event)
	}

	if b.external != nil {
		if err := b.external.PublishBatch(ctx, batch); err != nil {
			b.logger.Error("Failed to forward events",
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (b *EventBus) dispatchLocal(ctx context.Context, event events.DomainEvent) {
	eventType := event.GetEventType()

	b.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(b.handlers[eventType])+len(b.handlers[WildcardEventType]))
	handlers = append(handlers, b.handlers[eventType]...)
	handlers = append(handlers, b.handlers[WildcardEventType]...)
	b.mu.RUnlock()

	start := time.Now()
	for _, h := range handlers {
		if !h.CanHandle(eventType) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("eventType", eventType),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
		}
	}

	b.logger.Debug("Event dispatched locally",
		zap.String("eventType", eventType),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Int("handlers", len(handlers)),
		zap.Duration("duration", time.Since(start)),
	)
}
