package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents a domain event published to the bus after a
// transaction commits.
type DomainEvent struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	Data        map[string]interface{} `json:"data"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Version     int                    `json:"version"`
}

// NewDomainEvent creates a new domain event.
func NewDomainEvent(eventType, aggregateID string, data map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateID: aggregateID,
		Data:        data,
		OccurredAt:  time.Now(),
		Version:     1,
	}
}

// ToJSON converts the event to JSON.
func (e *DomainEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Event type constants, matching the bus event names enumerated in
// spec.md §6 plus the lifecycle/inventory/pricing events this core adds.
const (
	EventItemAdded          = "item_added"
	EventItemUpdated        = "item_updated"
	EventItemMoved          = "item_moved"
	EventItemTransferredIn  = "item_transferred_in"
	EventItemExpedited      = "item_expedited"
	EventItemHeld           = "item_held"
	EventItemReleased       = "item_released"
	EventBatchStatusUpdate  = "batch_status_update"

	EventOrderAdmitted      = "order_admitted"
	EventOrderPriced        = "order_priced"
	EventInventoryDeducted  = "inventory_deducted"
	EventInventoryReversed  = "inventory_reversed"
	EventOrderCancelled     = "order_cancelled"
	EventQueueRebalanced    = "queue_rebalanced"
)

// NewItemAddedEvent fires when a queue item is admitted.
func NewItemAddedEvent(item *QueueItem) *DomainEvent {
	return NewDomainEvent(EventItemAdded, item.ID(), map[string]interface{}{
		"queue_id":        item.QueueID(),
		"item_id":         item.ID(),
		"order_id":        item.OrderID(),
		"sequence_number": item.SequenceNumber(),
		"timestamp":       time.Now(),
	})
}

// NewItemUpdatedEvent fires on a status transition.
func NewItemUpdatedEvent(item *QueueItem, oldStatus QueueItemStatus) *DomainEvent {
	return NewDomainEvent(EventItemUpdated, item.ID(), map[string]interface{}{
		"queue_id":   item.QueueID(),
		"item_id":    item.ID(),
		"old_status": oldStatus,
		"new_status": item.Status(),
		"timestamp":  time.Now(),
	})
}

// NewItemMovedEvent fires after a resequence.
func NewItemMovedEvent(item *QueueItem, fromSeq, toSeq int64, reason string) *DomainEvent {
	return NewDomainEvent(EventItemMoved, item.ID(), map[string]interface{}{
		"queue_id":  item.QueueID(),
		"item_id":   item.ID(),
		"from":      fromSeq,
		"to":        toSeq,
		"reason":    reason,
		"timestamp": time.Now(),
	})
}

// NewItemTransferredInEvent fires in the target queue when an item is
// transferred from another queue.
func NewItemTransferredInEvent(item *QueueItem, sourceQueueID string) *DomainEvent {
	return NewDomainEvent(EventItemTransferredIn, item.ID(), map[string]interface{}{
		"queue_id":        item.QueueID(),
		"item_id":         item.ID(),
		"source_queue_id": sourceQueueID,
		"timestamp":       time.Now(),
	})
}

// NewItemExpeditedEvent fires when an item's priority is boosted and/or
// moved to the front.
func NewItemExpeditedEvent(item *QueueItem, boost float64) *DomainEvent {
	return NewDomainEvent(EventItemExpedited, item.ID(), map[string]interface{}{
		"queue_id":  item.QueueID(),
		"item_id":   item.ID(),
		"boost":     boost,
		"timestamp": time.Now(),
	})
}

// NewItemHeldEvent fires when an item enters ON_HOLD.
func NewItemHeldEvent(item *QueueItem) *DomainEvent {
	return NewDomainEvent(EventItemHeld, item.ID(), map[string]interface{}{
		"queue_id":   item.QueueID(),
		"item_id":    item.ID(),
		"hold_until": item.HoldUntil(),
		"reason":     item.HoldReason(),
		"timestamp":  time.Now(),
	})
}

// NewItemReleasedEvent fires when a hold is released.
func NewItemReleasedEvent(item *QueueItem) *DomainEvent {
	return NewDomainEvent(EventItemReleased, item.ID(), map[string]interface{}{
		"queue_id":  item.QueueID(),
		"item_id":   item.ID(),
		"timestamp": time.Now(),
	})
}

// NewBatchStatusUpdateEvent fires once for a batchSetStatus call.
func NewBatchStatusUpdateEvent(queueID string, itemIDs []string, newStatus QueueItemStatus) *DomainEvent {
	return NewDomainEvent(EventBatchStatusUpdate, queueID, map[string]interface{}{
		"queue_id":   queueID,
		"item_ids":   itemIDs,
		"new_status": newStatus,
		"timestamp":  time.Now(),
	})
}

// NewOrderAdmittedEvent builds the event for an order admitted to a queue.
// No service in this module calls it; the lifecycle controller publishes
// no events.
func NewOrderAdmittedEvent(order *Order, queueID string) *DomainEvent {
	return NewDomainEvent(EventOrderAdmitted, order.ID(), map[string]interface{}{
		"order_id":  order.ID(),
		"queue_id":  queueID,
		"timestamp": time.Now(),
	})
}

// NewOrderPricedEvent fires after the pricing engine evaluates an order.
func NewOrderPricedEvent(order *Order) *DomainEvent {
	return NewDomainEvent(EventOrderPriced, order.ID(), map[string]interface{}{
		"order_id":        order.ID(),
		"discount_amount": order.DiscountAmount(),
		"total_amount":    order.TotalAmount(),
		"applied_rules":   order.AppliedRuleIDs(),
		"timestamp":       time.Now(),
	})
}

// NewInventoryDeductedEvent fires after the deductor commits a consumption
// transaction.
func NewInventoryDeductedEvent(orderID string, deductionCount int, lowStock []string) *DomainEvent {
	return NewDomainEvent(EventInventoryDeducted, orderID, map[string]interface{}{
		"order_id":        orderID,
		"deductions":      deductionCount,
		"low_stock_items": lowStock,
		"timestamp":       time.Now(),
	})
}

// NewInventoryReversedEvent fires after a reversal commits.
func NewInventoryReversedEvent(orderID string, reason string, returnCount int) *DomainEvent {
	return NewDomainEvent(EventInventoryReversed, orderID, map[string]interface{}{
		"order_id":  orderID,
		"reason":    reason,
		"returns":   returnCount,
		"timestamp": time.Now(),
	})
}

// NewOrderCancelledEvent builds the event for a cancelled order. No
// service in this module calls it; the lifecycle controller publishes no
// events.
func NewOrderCancelledEvent(order *Order, reason string) *DomainEvent {
	return NewDomainEvent(EventOrderCancelled, order.ID(), map[string]interface{}{
		"order_id":  order.ID(),
		"reason":    reason,
		"timestamp": time.Now(),
	})
}

// NewQueueRebalancedEvent fires after a rebalance pass completes.
func NewQueueRebalancedEvent(queueID string, itemsRebalanced int, fairnessBefore, fairnessAfter float64) *DomainEvent {
	return NewDomainEvent(EventQueueRebalanced, queueID, map[string]interface{}{
		"queue_id":         queueID,
		"items_rebalanced": itemsRebalanced,
		"fairness_before":  fairnessBefore,
		"fairness_after":   fairnessAfter,
		"timestamp":        time.Now(),
	})
}

// EventPublisher defines the interface for publishing domain events after
// a transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event *DomainEvent) error
	PublishBatch(ctx context.Context, events []*DomainEvent) error
}

// EventHandler defines the interface for handling domain events.
type EventHandler interface {
	Handle(event *DomainEvent) error
}

// EventHandlerFunc is a function type that implements EventHandler.
type EventHandlerFunc func(event *DomainEvent) error

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(event *DomainEvent) error { return f(event) }
