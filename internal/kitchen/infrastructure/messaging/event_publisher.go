package messaging

import (
	"context"
	"fmt"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	"github.com/DimaJoyti/go-coffee/pkg/messaging"
)

// kitchenOrchestrationTopic carries every domain event emitted by the
// Order Orchestration Core; consumers fan out by DomainEvent.Type.
const kitchenOrchestrationTopic = "kitchen.orchestration"

// KafkaEventPublisher implements domain.EventPublisher over
// pkg/messaging.MessageBus, published strictly after the owning
// transaction commits and never blocking the caller on failure.
type KafkaEventPublisher struct {
	bus    messaging.MessageBus
	logger *logger.Logger
}

// NewKafkaEventPublisher creates a new domain event publisher backed by bus.
func NewKafkaEventPublisher(bus messaging.MessageBus, log *logger.Logger) domain.EventPublisher {
	return &KafkaEventPublisher{bus: bus, logger: log}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	msg := &messaging.Message{
		ID:     event.ID,
		Type:   event.Type,
		Source: "order-core-service",
		Data: map[string]interface{}{
			"aggregate_id": event.AggregateID,
			"version":      event.Version,
			"payload":      event.Data,
		},
		Timestamp: event.OccurredAt,
	}
	if err := p.bus.Publish(ctx, kitchenOrchestrationTopic, msg); err != nil {
		p.logger.WithError(err).WithField("event_type", event.Type).Warn("failed to publish domain event")
		return fmt.Errorf("failed to publish domain event: %w", err)
	}
	return nil
}

func (p *KafkaEventPublisher) PublishBatch(ctx context.Context, events []*domain.DomainEvent) error {
	var firstErr error
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
