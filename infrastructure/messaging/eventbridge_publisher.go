package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/events"
	pkgerrors "cosmos-backend/pkg/errors"
)

// EventSource is the EventBridge source of every event this service emits.
const EventSource = "cosmos.backend"

// maxPutEntries is the PutEvents batch limit.
const maxPutEntries = 10

// EventBridgeAPI is the subset of the EventBridge client the publisher uses.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher forwards domain events to an EventBridge bus.
type EventBridgePublisher struct {
	client       EventBridgeAPI
	eventBusName string
	logger       *zap.Logger
}

var _ ports.EventPublisher = (*EventBridgePublisher)(nil)

// NewEventBridgePublisher creates a publisher for the named bus.
func NewEventBridgePublisher(client EventBridgeAPI, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

func (p *EventBridgePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

func (p *EventBridgePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for i := 0; i < len(batch); i += maxPutEntries {
		end := i + maxPutEntries
		if end > len(batch) {
			end = len(batch)
		}
		if err := p.put(ctx, batch[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) put(ctx context.Context, batch []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	sent := make([]events.DomainEvent, 0, len(batch))
	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(EventSource),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{"cosmos:" + event.GetAggregateID()},
		})
		sent = append(sent, event)
	}
	if len(entries) == 0 {
		return nil
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return pkgerrors.NewExternalError("eventbridge", err)
	}
	if out.FailedEntryCount > 0 {
		for i, entry := range out.Entries {
			if entry.ErrorCode != nil && i < len(sent) {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", sent[i].GetEventType()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return pkgerrors.NewExternalError("eventbridge", fmt.Errorf("%d events failed to publish", out.FailedEntryCount))
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
