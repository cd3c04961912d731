package domain

import (
	"errors"
	"time"
)

// QueueType classifies what kind of station a queue serves.
type QueueType string

const (
	QueueTypeKitchen  QueueType = "KITCHEN"
	QueueTypeBar      QueueType = "BAR"
	QueueTypeExpo     QueueType = "EXPO"
	QueueTypeDelivery QueueType = "DELIVERY"
)

// QueueStatus is the operational status of a station queue.
type QueueStatus string

const (
	QueueStatusActive      QueueStatus = "ACTIVE"
	QueueStatusPaused      QueueStatus = "PAUSED"
	QueueStatusClosed      QueueStatus = "CLOSED"
	QueueStatusMaintenance QueueStatus = "MAINTENANCE"
)

// StationQueue is a logical station's work queue (C4 "order queue" of the
// data model). current_size is maintained by the sequencer as items are
// admitted, completed, or cancelled; it is never recomputed by a scan on
// the hot path.
type StationQueue struct {
	id                string
	restaurantID      string
	name              string
	queueType         QueueType
	status            QueueStatus
	capacity          int32
	defaultPrepTime   time.Duration
	warningSLA        time.Duration
	criticalSLA       time.Duration
	currentSize       int32
	createdAt         time.Time
	updatedAt         time.Time
}

// NewStationQueue constructs a station queue in ACTIVE status with zero
// current size.
func NewStationQueue(id, restaurantID, name string, queueType QueueType, capacity int32, defaultPrepTime, warningSLA, criticalSLA time.Duration) (*StationQueue, error) {
	if id == "" {
		return nil, errors.New("queue id is required")
	}
	if capacity <= 0 {
		return nil, errors.New("queue capacity must be positive")
	}
	now := time.Now()
	return &StationQueue{
		id:              id,
		restaurantID:    restaurantID,
		name:            name,
		queueType:       queueType,
		status:          QueueStatusActive,
		capacity:        capacity,
		defaultPrepTime: defaultPrepTime,
		warningSLA:      warningSLA,
		criticalSLA:     criticalSLA,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructStationQueue rebuilds a StationQueue from persisted field
// values. Used only by the repository layer when hydrating a row.
func ReconstructStationQueue(id, restaurantID, name string, queueType QueueType, status QueueStatus, capacity, currentSize int32, defaultPrepTime, warningSLA, criticalSLA time.Duration, createdAt, updatedAt time.Time) *StationQueue {
	return &StationQueue{
		id:              id,
		restaurantID:    restaurantID,
		name:            name,
		queueType:       queueType,
		status:          status,
		capacity:        capacity,
		currentSize:     currentSize,
		defaultPrepTime: defaultPrepTime,
		warningSLA:      warningSLA,
		criticalSLA:     criticalSLA,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (q *StationQueue) ID() string                    { return q.id }
func (q *StationQueue) RestaurantID() string          { return q.restaurantID }
func (q *StationQueue) Name() string                  { return q.name }
func (q *StationQueue) Type() QueueType                { return q.queueType }
func (q *StationQueue) Status() QueueStatus            { return q.status }
func (q *StationQueue) Capacity() int32                { return q.capacity }
func (q *StationQueue) DefaultPrepTime() time.Duration { return q.defaultPrepTime }
func (q *StationQueue) WarningSLA() time.Duration      { return q.warningSLA }
func (q *StationQueue) CriticalSLA() time.Duration     { return q.criticalSLA }
func (q *StationQueue) CurrentSize() int32             { return q.currentSize }
func (q *StationQueue) UpdatedAt() time.Time           { return q.updatedAt }

// IsFull reports whether the queue is at capacity. Admission must refuse
// with QUEUE_FULL when this is true.
func (q *StationQueue) IsFull() bool { return q.currentSize >= q.capacity }

// SetCurrentSize overwrites the live-item counter, used by the repository
// layer after a reconciling scan or by the sequencer after admit/complete.
func (q *StationQueue) SetCurrentSize(size int32) {
	q.currentSize = size
	q.updatedAt = time.Now()
}

func (q *StationQueue) SetStatus(status QueueStatus) {
	q.status = status
	q.updatedAt = time.Now()
}

// QueueItemStatus is the lifecycle status of a single queue item, driven
// by the fixed transition DAG in queueItemTransitions.
type QueueItemStatus string

const (
	QueueItemQueued        QueueItemStatus = "QUEUED"
	QueueItemInPreparation QueueItemStatus = "IN_PREPARATION"
	QueueItemReady         QueueItemStatus = "READY"
	QueueItemOnHold        QueueItemStatus = "ON_HOLD"
	QueueItemCompleted     QueueItemStatus = "COMPLETED"
	QueueItemCancelled     QueueItemStatus = "CANCELLED"
	QueueItemDelayed       QueueItemStatus = "DELAYED"
)

func (s QueueItemStatus) IsValid() bool {
	switch s {
	case QueueItemQueued, QueueItemInPreparation, QueueItemReady, QueueItemOnHold,
		QueueItemCompleted, QueueItemCancelled, QueueItemDelayed:
		return true
	}
	return false
}

// IsLive reports whether an item in this status counts against queue
// capacity and sequence-number uniqueness.
func (s QueueItemStatus) IsLive() bool {
	return s != QueueItemCompleted && s != QueueItemCancelled
}

// queueItemTransitions is the fixed status transition DAG from spec.md §4.4.
var queueItemTransitions = map[QueueItemStatus][]QueueItemStatus{
	QueueItemQueued:        {QueueItemInPreparation, QueueItemOnHold, QueueItemCancelled},
	QueueItemInPreparation: {QueueItemReady, QueueItemOnHold, QueueItemCancelled},
	QueueItemReady:         {QueueItemCompleted, QueueItemOnHold},
	QueueItemOnHold:        {QueueItemQueued, QueueItemInPreparation, QueueItemCancelled},
	QueueItemDelayed:       {QueueItemQueued, QueueItemCancelled},
	QueueItemCompleted:     {},
	QueueItemCancelled:     {},
}

// CanTransitionQueueItem reports whether moving from 'from' to 'to' is an
// allowed edge of the queue item status DAG.
func CanTransitionQueueItem(from, to QueueItemStatus) bool {
	for _, allowed := range queueItemTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ItemAssignment is the staff/station assigned to prepare a queue item.
type ItemAssignment struct {
	StaffID   string
	StationID string
}

// QueueItem is a single order's position in a station queue (C4). Exactly
// one live queue item may exist per order id; sequence_number is unique
// among live items within a queue.
type QueueItem struct {
	id               string
	queueID          string
	orderID          string
	sequenceNumber   int64
	priority         float64
	expedited        bool
	status           QueueItemStatus
	assignment       ItemAssignment
	queuedAt         time.Time
	startedAt        *time.Time
	readyAt          *time.Time
	completedAt      *time.Time
	holdUntil        *time.Time
	holdReason       string
	estimatedReadyAt *time.Time
	prepTimeActual   time.Duration
	waitTimeActual   time.Duration
}

// NewQueueItem constructs a QUEUED queue item (or ON_HOLD when holdUntil
// is supplied at admission time).
func NewQueueItem(id, queueID, orderID string, sequenceNumber int64, priority float64, holdUntil *time.Time) (*QueueItem, error) {
	if id == "" || queueID == "" || orderID == "" {
		return nil, errors.New("queue item id, queue id and order id are required")
	}
	item := &QueueItem{
		id:             id,
		queueID:        queueID,
		orderID:        orderID,
		sequenceNumber: sequenceNumber,
		priority:       priority,
		status:         QueueItemQueued,
		queuedAt:       time.Now(),
	}
	if holdUntil != nil {
		item.status = QueueItemOnHold
		item.holdUntil = holdUntil
		item.holdReason = "hold requested at admission"
	}
	return item, nil
}

// ReconstructQueueItem rebuilds a QueueItem from persisted field values,
// bypassing the status transition DAG. Used only by the repository layer
// when hydrating a row.
func ReconstructQueueItem(
	id, queueID, orderID string,
	sequenceNumber int64,
	priority float64,
	expedited bool,
	status QueueItemStatus,
	assignment ItemAssignment,
	queuedAt time.Time,
	startedAt, readyAt, completedAt, holdUntil *time.Time,
	holdReason string,
	estimatedReadyAt *time.Time,
	prepTimeActual, waitTimeActual time.Duration,
) *QueueItem {
	return &QueueItem{
		id:               id,
		queueID:          queueID,
		orderID:          orderID,
		sequenceNumber:   sequenceNumber,
		priority:         priority,
		expedited:        expedited,
		status:           status,
		assignment:       assignment,
		queuedAt:         queuedAt,
		startedAt:        startedAt,
		readyAt:          readyAt,
		completedAt:      completedAt,
		holdUntil:        holdUntil,
		holdReason:       holdReason,
		estimatedReadyAt: estimatedReadyAt,
		prepTimeActual:   prepTimeActual,
		waitTimeActual:   waitTimeActual,
	}
}

func (i *QueueItem) ID() string                       { return i.id }
func (i *QueueItem) QueueID() string                  { return i.queueID }
func (i *QueueItem) OrderID() string                  { return i.orderID }
func (i *QueueItem) SequenceNumber() int64            { return i.sequenceNumber }
func (i *QueueItem) Priority() float64                { return i.priority }
func (i *QueueItem) Expedited() bool                  { return i.expedited }
func (i *QueueItem) Status() QueueItemStatus          { return i.status }
func (i *QueueItem) Assignment() ItemAssignment       { return i.assignment }
func (i *QueueItem) QueuedAt() time.Time              { return i.queuedAt }
func (i *QueueItem) StartedAt() *time.Time            { return i.startedAt }
func (i *QueueItem) ReadyAt() *time.Time              { return i.readyAt }
func (i *QueueItem) CompletedAt() *time.Time          { return i.completedAt }
func (i *QueueItem) HoldUntil() *time.Time            { return i.holdUntil }
func (i *QueueItem) HoldReason() string               { return i.holdReason }
func (i *QueueItem) EstimatedReadyAt() *time.Time     { return i.estimatedReadyAt }
func (i *QueueItem) PrepTimeActual() time.Duration    { return i.waitDuration(i.prepTimeActual) }
func (i *QueueItem) WaitTimeActual() time.Duration    { return i.waitDuration(i.waitTimeActual) }
func (i *QueueItem) IsLive() bool                     { return i.status.IsLive() }

func (i *QueueItem) waitDuration(d time.Duration) time.Duration { return d }

// SetSequenceNumber repositions the item; used by move/rebalance under the
// queue's row lock.
func (i *QueueItem) SetSequenceNumber(n int64) { i.sequenceNumber = n }

// SetPriority overwrites the cached priority used for sequencing decisions.
func (i *QueueItem) SetPriority(p float64) { i.priority = p }

// SetExpedited flags the item as expedited (auto-applied by a sequence
// rule or via explicit Expedite call).
func (i *QueueItem) SetExpedited(v bool) { i.expedited = v }

// SetAssignment assigns staff/station to the item.
func (i *QueueItem) SetAssignment(a ItemAssignment) { i.assignment = a }

// Transition advances the item's status, enforcing the fixed DAG and
// stamping side-effect timestamps per spec.md §4.4.
func (i *QueueItem) Transition(to QueueItemStatus) error {
	if !to.IsValid() {
		return errors.New("unknown queue item status")
	}
	if !CanTransitionQueueItem(i.status, to) {
		return ErrInvalidTransition(string(i.status), string(to))
	}
	now := time.Now()
	switch to {
	case QueueItemInPreparation:
		i.startedAt = &now
	case QueueItemReady:
		i.readyAt = &now
		if i.startedAt != nil {
			i.prepTimeActual = now.Sub(*i.startedAt)
		}
	case QueueItemCompleted:
		i.completedAt = &now
		i.waitTimeActual = now.Sub(i.queuedAt)
	case QueueItemOnHold:
		// hold/until set by caller via Hold()
	case QueueItemQueued:
		if i.status == QueueItemOnHold {
			i.holdUntil = nil
			i.holdReason = ""
		}
	}
	i.status = to
	return nil
}

// Hold places the item ON_HOLD until the given time with a reason.
func (i *QueueItem) Hold(until time.Time, reason string) error {
	if err := i.Transition(QueueItemOnHold); err != nil {
		return err
	}
	i.holdUntil = &until
	i.holdReason = reason
	return nil
}

// ReleaseHold releases a hold, returning the item to QUEUED with
// hold_until/hold_reason cleared.
func (i *QueueItem) ReleaseHold() error {
	if i.status != QueueItemOnHold {
		return errors.New("item is not on hold")
	}
	return i.Transition(QueueItemQueued)
}

// SetEstimatedReadyAt records the sequencer's current estimate.
func (i *QueueItem) SetEstimatedReadyAt(t time.Time) { i.estimatedReadyAt = &t }

// QueueItemStatusHistory is an immutable audit row for a single status
// transition of a queue item.
type QueueItemStatusHistory struct {
	ID          string
	QueueItemID string
	OldStatus   *QueueItemStatus
	NewStatus   QueueItemStatus
	Reason      string
	ChangedAt   time.Time
}

// NewQueueItemStatusHistory constructs a history row.
func NewQueueItemStatusHistory(id, queueItemID string, oldStatus *QueueItemStatus, newStatus QueueItemStatus, reason string) *QueueItemStatusHistory {
	return &QueueItemStatusHistory{
		ID:          id,
		QueueItemID: queueItemID,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		Reason:      reason,
		ChangedAt:   time.Now(),
	}
}

// SequenceRuleAction is what a sequence rule does when its conditions match.
type SequenceRuleAction string

const (
	SequenceActionAdjustPriority SequenceRuleAction = "ADJUST_PRIORITY"
	SequenceActionAdjustPosition SequenceRuleAction = "ADJUST_POSITION"
	SequenceActionAutoExpedite   SequenceRuleAction = "AUTO_EXPEDITE"
	SequenceActionAssignStation  SequenceRuleAction = "ASSIGN_STATION"
)

// SequenceRule is a per-queue admission-time rule evaluated in descending
// Priority order (its own priority field, not the queue item's): a match
// may bump priority, shift the admission position, force expedite, or
// assign a station.
type SequenceRule struct {
	ID           string
	QueueID      string
	Name         string
	Priority     int32
	Conditions   map[string]interface{}
	Action       SequenceRuleAction
	PriorityDelta float64
	PositionDelta int
	StationID    string
	Enabled      bool
}

// Matches evaluates the rule's conditions document against an order using
// the shared declarative evaluator (see expr.go).
func (r *SequenceRule) Matches(facts map[string]interface{}) bool {
	if !r.Enabled {
		return false
	}
	return EvaluateConditionTree(r.Conditions, facts)
}
