package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// AdmitHints carries the optional inputs admission can use: the scoring
// facts for the Priority Scorer consultation, a profile override, and a
// hold_until for orders that must enter ON_HOLD immediately.
type AdmitHints struct {
	Facts           ScoringFacts
	ProfileOverride string
	HoldUntil       *time.Time
}

// RebalanceResult reports the outcome of a fairness-driven rebalance pass.
type RebalanceResult struct {
	QueueID                 string
	ItemsRebalanced         int
	FairnessBefore          float64
	FairnessAfter           float64
	MaxPositionChangeObserved int
	ExecutionMS             int64
	DryRun                  bool
}

// QueueService is the Queue Sequencer & Rebalancer (C4): owns admission,
// repositioning, transfer, expediting, holds, and fairness rebalancing of
// station queue items.
type QueueService interface {
	Admit(ctx context.Context, queueID, orderID string, hints AdmitHints) (*domain.QueueItem, error)
	Move(ctx context.Context, itemID string, newPosition int, reason string) error
	Transfer(ctx context.Context, itemID, targetQueueID string, maintainPriority bool, reason string) (*domain.QueueItem, error)
	Expedite(ctx context.Context, itemID string, priorityBoost float64, moveToFront bool, reason string) (*domain.QueueItem, error)
	Hold(ctx context.Context, itemID string, until time.Time, reason string) error
	ReleaseHold(ctx context.Context, itemID string) error
	BatchSetStatus(ctx context.Context, itemIDs []string, newStatus domain.QueueItemStatus, reason string) error
	Rebalance(ctx context.Context, queueID string, force bool) (*RebalanceResult, error)
}

type queueService struct {
	repoManager       domain.RepositoryManager
	priorityService   PriorityService
	eventPublisher    domain.EventPublisher
	logger            *logger.Logger
	defaultPriority   float64
	maxPositionChange int
	fairnessThreshold float64
	boostDuration     time.Duration
}

// NewQueueService creates the Queue Sequencer & Rebalancer.
func NewQueueService(repoManager domain.RepositoryManager, priorityService PriorityService, eventPublisher domain.EventPublisher, defaultPriority float64, maxPositionChange int, fairnessThreshold float64, boostDuration time.Duration, log *logger.Logger) QueueService {
	return &queueService{
		repoManager:       repoManager,
		priorityService:   priorityService,
		eventPublisher:    eventPublisher,
		logger:            log,
		defaultPriority:   defaultPriority,
		maxPositionChange: maxPositionChange,
		fairnessThreshold: fairnessThreshold,
		boostDuration:     boostDuration,
	}
}

// Admit runs spec.md §4.4's sequencing algorithm: capacity and duplicate
// checks, priority scoring with fallback, and sequence-rule application.
// The new item takes the queue's next tail sequence number; it is not
// placed ahead of lower-priority live items, and only an ADJUST_POSITION
// sequence rule moves it after insertion.
func (s *queueService) Admit(ctx context.Context, queueID, orderID string, hints AdmitHints) (*domain.QueueItem, error) {
	queue, err := s.repoManager.Queue().GetQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if queue.IsFull() {
		return nil, domain.ErrQueueFull(queueID)
	}
	if _, err := s.repoManager.QueueItems().GetByOrderID(ctx, orderID); err == nil {
		return nil, domain.ErrDuplicateOrder(orderID)
	} else if !isNotFoundErr(err) {
		return nil, err
	}

	priority := s.defaultPriority
	if hints.Facts.Order != nil {
		if score, err := s.priorityService.ComputeScore(ctx, queueID, hints.Facts, hints.ProfileOverride); err == nil {
			priority = score.Total
		} else {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("priority scoring failed on admit, falling back to queue default")
		}
	}

	expedited := false
	var stationID string
	rules, err := s.repoManager.SequenceRules().GetByQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })
	facts := hints.Facts.toFactMap(time.Now())
	for _, rule := range rules {
		if !rule.Matches(facts) {
			continue
		}
		switch rule.Action {
		case domain.SequenceActionAdjustPriority:
			priority += rule.PriorityDelta
		case domain.SequenceActionAutoExpedite:
			expedited = true
		case domain.SequenceActionAssignStation:
			stationID = rule.StationID
		case domain.SequenceActionAdjustPosition:
			// position deltas are honored post-insertion via Move, once the
			// item has a sequence number to shift relative to.
		}
	}

	seq, err := s.repoManager.QueueItems().NextSequenceNumber(ctx, queueID)
	if err != nil {
		return nil, err
	}

	item, err := domain.NewQueueItem(uuid.New().String(), queueID, orderID, seq, priority, hints.HoldUntil)
	if err != nil {
		return nil, err
	}
	if expedited {
		item.SetExpedited(true)
	}
	if stationID != "" {
		item.SetAssignment(domain.ItemAssignment{StationID: stationID})
	}

	if err := s.repoManager.QueueItems().Create(ctx, item); err != nil {
		return nil, err
	}

	queue.SetCurrentSize(queue.CurrentSize() + 1)
	if err := s.repoManager.Queue().SaveQueue(ctx, queue); err != nil {
		s.logger.WithError(err).WithField("queue_id", queueID).Warn("failed to persist queue size after admit")
	}

	history := domain.NewQueueItemStatusHistory(uuid.New().String(), item.ID(), nil, item.Status(), "admitted")
	if err := s.repoManager.QueueItems().AppendStatusHistory(ctx, history); err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID()).Warn("failed to append admission status history")
	}

	if err := s.eventPublisher.Publish(ctx, domain.NewItemAddedEvent(item)); err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID()).Warn("failed to publish item added event")
	}

	if len(rules) > 0 {
		if pos := s.positionDeltaFromRules(rules, facts); pos != 0 {
			if idx, err := s.positionOf(ctx, queueID, item.ID()); err == nil {
				_ = s.Move(ctx, item.ID(), clampPosition(idx+pos, 1), "sequence rule position adjustment")
			}
		}
	}

	return item, nil
}

func (s *queueService) positionDeltaFromRules(rules []*domain.SequenceRule, facts map[string]interface{}) int {
	delta := 0
	for _, rule := range rules {
		if rule.Action == domain.SequenceActionAdjustPosition && rule.Matches(facts) {
			delta += rule.PositionDelta
		}
	}
	return delta
}

func clampPosition(p, min int) int {
	if p < min {
		return min
	}
	return p
}

// positionOf returns the 1-based rank of itemID among its queue's live
// items ordered by sequence number ascending.
func (s *queueService) positionOf(ctx context.Context, queueID, itemID string) (int, error) {
	items, err := s.liveItemsBySequence(ctx, queueID)
	if err != nil {
		return 0, err
	}
	for i, it := range items {
		if it.ID() == itemID {
			return i + 1, nil
		}
	}
	return 0, domain.ErrNotFound("queue_item", itemID)
}

func (s *queueService) liveItemsBySequence(ctx context.Context, queueID string) ([]*domain.QueueItem, error) {
	all, err := s.repoManager.QueueItems().GetByQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	live := make([]*domain.QueueItem, 0, len(all))
	for _, it := range all {
		if it.IsLive() {
			live = append(live, it)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].SequenceNumber() < live[j].SequenceNumber() })
	return live, nil
}

// Move repositions itemID to newPosition (1-based rank among live items),
// shifting the intervening items. The pool of sequence-number values in use
// is preserved; only ownership is reordered, so no other queue item's
// sequence number is ever reused by a concurrent admit.
func (s *queueService) Move(ctx context.Context, itemID string, newPosition int, reason string) error {
	item, err := s.repoManager.QueueItems().GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	items, err := s.liveItemsBySequence(ctx, item.QueueID())
	if err != nil {
		return err
	}

	currentIdx := -1
	for i, it := range items {
		if it.ID() == itemID {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return domain.ErrNotFound("queue_item", itemID)
	}

	targetIdx := newPosition - 1
	if targetIdx < 0 {
		targetIdx = 0
	}
	if targetIdx > len(items)-1 {
		targetIdx = len(items) - 1
	}
	if targetIdx == currentIdx {
		return nil
	}

	seqPool := make([]int64, len(items))
	for i, it := range items {
		seqPool[i] = it.SequenceNumber()
	}

	reordered := make([]*domain.QueueItem, 0, len(items))
	reordered = append(reordered, items[:currentIdx]...)
	reordered = append(reordered, items[currentIdx+1:]...)
	tail := reordered[targetIdx:]
	reordered = append(append([]*domain.QueueItem{}, reordered[:targetIdx]...), item)
	reordered = append(reordered, tail...)

	fromSeq := item.SequenceNumber()
	for i, it := range reordered {
		newSeq := seqPool[i]
		if it.SequenceNumber() == newSeq {
			continue
		}
		it.SetSequenceNumber(newSeq)
		if err := s.repoManager.QueueItems().Update(ctx, it); err != nil {
			return fmt.Errorf("failed to resequence queue item %s: %w", it.ID(), err)
		}
	}

	if err := s.eventPublisher.Publish(ctx, domain.NewItemMovedEvent(item, fromSeq, item.SequenceNumber(), reason)); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to publish item moved event")
	}
	return nil
}

// Transfer moves an item to a different queue, optionally keeping its
// current cached priority instead of recomputing against the target queue.
func (s *queueService) Transfer(ctx context.Context, itemID, targetQueueID string, maintainPriority bool, reason string) (*domain.QueueItem, error) {
	item, err := s.repoManager.QueueItems().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	sourceQueueID := item.QueueID()

	targetQueue, err := s.repoManager.Queue().GetQueue(ctx, targetQueueID)
	if err != nil {
		return nil, err
	}
	if targetQueue.IsFull() {
		return nil, domain.ErrQueueFull(targetQueueID)
	}

	priority := item.Priority()
	if !maintainPriority {
		if facts, err := s.repoManager.Priority().GetScore(ctx, item.OrderID()); err == nil {
			priority = facts.Total
		}
	}

	seq, err := s.repoManager.QueueItems().NextSequenceNumber(ctx, targetQueueID)
	if err != nil {
		return nil, err
	}

	if err := s.repoManager.QueueItems().Delete(ctx, item.ID()); err != nil {
		return nil, err
	}
	if sourceQueue, err := s.repoManager.Queue().GetQueue(ctx, sourceQueueID); err == nil {
		sourceQueue.SetCurrentSize(sourceQueue.CurrentSize() - 1)
		_ = s.repoManager.Queue().SaveQueue(ctx, sourceQueue)
	}

	moved, err := domain.NewQueueItem(uuid.New().String(), targetQueueID, item.OrderID(), seq, priority, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.QueueItems().Create(ctx, moved); err != nil {
		return nil, err
	}
	targetQueue.SetCurrentSize(targetQueue.CurrentSize() + 1)
	if err := s.repoManager.Queue().SaveQueue(ctx, targetQueue); err != nil {
		s.logger.WithError(err).WithField("queue_id", targetQueueID).Warn("failed to persist queue size after transfer")
	}

	history := domain.NewQueueItemStatusHistory(uuid.New().String(), moved.ID(), nil, moved.Status(), "transferred: "+reason)
	if err := s.repoManager.QueueItems().AppendStatusHistory(ctx, history); err != nil {
		s.logger.WithError(err).WithField("item_id", moved.ID()).Warn("failed to append transfer status history")
	}
	if err := s.eventPublisher.Publish(ctx, domain.NewItemTransferredInEvent(moved, sourceQueueID)); err != nil {
		s.logger.WithError(err).WithField("item_id", moved.ID()).Warn("failed to publish item transferred event")
	}
	return moved, nil
}

// Expedite boosts an item's priority (persisting a time-bound domain.Boost
// so the boost-expiry worker can clear it later) and optionally moves it to
// the front of its queue immediately.
func (s *queueService) Expedite(ctx context.Context, itemID string, priorityBoost float64, moveToFront bool, reason string) (*domain.QueueItem, error) {
	item, err := s.repoManager.QueueItems().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	boost := &domain.Boost{
		ID: uuid.New().String(), QueueItemID: item.ID(), OrderID: item.OrderID(),
		Amount: priorityBoost, Reason: reason, ExpiresAt: time.Now().Add(s.boostDuration), CreatedAt: time.Now(),
	}
	if err := s.repoManager.Priority().SaveBoost(ctx, boost); err != nil {
		return nil, err
	}

	item.SetPriority(item.Priority() + priorityBoost)
	item.SetExpedited(true)
	if err := s.repoManager.QueueItems().Update(ctx, item); err != nil {
		return nil, err
	}

	if moveToFront {
		if err := s.Move(ctx, item.ID(), 1, "expedited: "+reason); err != nil {
			return nil, err
		}
	}

	if err := s.eventPublisher.Publish(ctx, domain.NewItemExpeditedEvent(item, priorityBoost)); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to publish item expedited event")
	}
	return item, nil
}

// Hold places an item ON_HOLD, writing the corresponding status history row.
func (s *queueService) Hold(ctx context.Context, itemID string, until time.Time, reason string) error {
	item, err := s.repoManager.QueueItems().GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	old := item.Status()
	if err := item.Hold(until, reason); err != nil {
		return err
	}
	if err := s.repoManager.QueueItems().Update(ctx, item); err != nil {
		return err
	}
	return s.recordTransition(ctx, item, old, reason, domain.NewItemHeldEvent(item))
}

// ReleaseHold releases an item back to QUEUED.
func (s *queueService) ReleaseHold(ctx context.Context, itemID string) error {
	item, err := s.repoManager.QueueItems().GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	old := item.Status()
	if err := item.ReleaseHold(); err != nil {
		return err
	}
	if err := s.repoManager.QueueItems().Update(ctx, item); err != nil {
		return err
	}
	return s.recordTransition(ctx, item, old, "hold released", domain.NewItemReleasedEvent(item))
}

// BatchSetStatus transitions every named item to newStatus, continuing past
// individual failures and reporting the first error encountered.
func (s *queueService) BatchSetStatus(ctx context.Context, itemIDs []string, newStatus domain.QueueItemStatus, reason string) error {
	var firstErr error
	var succeeded []string
	for _, id := range itemIDs {
		item, err := s.repoManager.QueueItems().GetByID(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		old := item.Status()
		if err := item.Transition(newStatus); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := s.repoManager.QueueItems().Update(ctx, item); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		history := domain.NewQueueItemStatusHistory(uuid.New().String(), item.ID(), &old, newStatus, reason)
		if err := s.repoManager.QueueItems().AppendStatusHistory(ctx, history); err != nil {
			s.logger.WithError(err).WithField("item_id", item.ID()).Warn("failed to append batch status history")
		}
		succeeded = append(succeeded, item.ID())
	}
	if len(succeeded) > 0 {
		queueID := ""
		if item, err := s.repoManager.QueueItems().GetByID(ctx, succeeded[0]); err == nil {
			queueID = item.QueueID()
		}
		if err := s.eventPublisher.Publish(ctx, domain.NewBatchStatusUpdateEvent(queueID, succeeded, newStatus)); err != nil {
			s.logger.WithError(err).Warn("failed to publish batch status update event")
		}
	}
	return firstErr
}

func (s *queueService) recordTransition(ctx context.Context, item *domain.QueueItem, old domain.QueueItemStatus, reason string, event *domain.DomainEvent) error {
	history := domain.NewQueueItemStatusHistory(uuid.New().String(), item.ID(), &old, item.Status(), reason)
	if err := s.repoManager.QueueItems().AppendStatusHistory(ctx, history); err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID()).Warn("failed to append status history")
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID()).Warn("failed to publish status transition event")
	}
	return nil
}

// Rebalance computes the fairness index over a queue's live items and, if
// below threshold (or force is set), issues bounded moves to converge
// position toward score-descending order (spec.md §4.4).
func (s *queueService) Rebalance(ctx context.Context, queueID string, force bool) (*RebalanceResult, error) {
	start := time.Now()

	fairnessBefore, err := s.priorityService.FairnessIndex(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if fairnessBefore >= (1-s.fairnessThreshold) && !force {
		return &RebalanceResult{
			QueueID: queueID, FairnessBefore: fairnessBefore, FairnessAfter: fairnessBefore,
			ExecutionMS: time.Since(start).Milliseconds(),
		}, nil
	}

	items, err := s.liveItemsBySequence(ctx, queueID)
	if err != nil {
		return nil, err
	}
	desired := make([]*domain.QueueItem, len(items))
	copy(desired, items)
	sort.Slice(desired, func(i, j int) bool { return desired[i].Priority() > desired[j].Priority() })

	currentPos := make(map[string]int, len(items))
	for i, it := range items {
		currentPos[it.ID()] = i + 1
	}

	itemsRebalanced := 0
	maxDrift := 0
	for desiredIdx, it := range desired {
		desiredPos := desiredIdx + 1
		drift := desiredPos - currentPos[it.ID()]
		if drift < 0 {
			drift = -drift
		}
		if drift > maxDrift {
			maxDrift = drift
		}
		if drift == 0 || drift <= s.maxPositionChange {
			continue
		}
		bounded := currentPos[it.ID()]
		if desiredPos > currentPos[it.ID()] {
			bounded += s.maxPositionChange
		} else {
			bounded -= s.maxPositionChange
		}
		if err := s.Move(ctx, it.ID(), bounded, "fairness rebalance"); err != nil {
			s.logger.WithError(err).WithField("item_id", it.ID()).Warn("failed to move item during rebalance")
			continue
		}
		itemsRebalanced++
	}

	fairnessAfter := fairnessBefore
	if itemsRebalanced > 0 {
		if v, err := s.priorityService.FairnessIndex(ctx, queueID); err == nil {
			fairnessAfter = v
		}
	}

	if err := s.eventPublisher.Publish(ctx, domain.NewQueueRebalancedEvent(queueID, itemsRebalanced, fairnessBefore, fairnessAfter)); err != nil {
		s.logger.WithError(err).WithField("queue_id", queueID).Warn("failed to publish queue rebalanced event")
	}

	return &RebalanceResult{
		QueueID: queueID, ItemsRebalanced: itemsRebalanced, FairnessBefore: fairnessBefore, FairnessAfter: fairnessAfter,
		MaxPositionChangeObserved: maxDrift, ExecutionMS: time.Since(start).Milliseconds(),
	}, nil
}
