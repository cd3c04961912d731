package application

import (
	"context"
	"fmt"
	"time"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// LifecycleConfig tunes the Order Lifecycle Controller's trigger points.
type LifecycleConfig struct {
	// DeductOnCompletion defers inventory deduction from IN_PROGRESS to
	// COMPLETED instead of deducting on entry to IN_PROGRESS.
	DeductOnCompletion bool
	// AutoReverseOnCancellation reverses any already-deducted inventory
	// when an order transitions to CANCELLED.
	AutoReverseOnCancellation bool
}

// TransitionResult reports what a status transition actually did, for
// callers that want to surface deduction/pricing side effects.
type TransitionResult struct {
	Order          *domain.Order
	PricingApplied bool
	Deducted       bool
	Reversed       bool
}

// LifecycleService is the Order Lifecycle Controller (C5): it drives the
// Pricing Engine and Inventory Deductor on the configured trigger
// transitions, and owns the reversal-on-cancellation policy.
type LifecycleService interface {
	Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus, actorID, reason string) (*TransitionResult, error)
}

type lifecycleService struct {
	repoManager     domain.RepositoryManager
	pricingService  PricingService
	deductorService DeductorService
	logger          *logger.Logger
	config          LifecycleConfig
}

// NewLifecycleService creates the Order Lifecycle Controller.
func NewLifecycleService(repoManager domain.RepositoryManager, pricingService PricingService, deductorService DeductorService, config LifecycleConfig, log *logger.Logger) LifecycleService {
	return &lifecycleService{
		repoManager:     repoManager,
		pricingService:  pricingService,
		deductorService: deductorService,
		logger:          log,
		config:          config,
	}
}

// deductionTrigger returns the status at which inventory must be deducted
// given the configured DeductOnCompletion flag.
func (s *lifecycleService) deductionTrigger() domain.OrderStatus {
	if s.config.DeductOnCompletion {
		return domain.OrderStatusCompleted
	}
	return domain.OrderStatusInProgress
}

// Transition runs spec.md §4.5's 5-step algorithm: validate the order's own
// status DAG, invoke pricing+deduction on the configured trigger (both must
// succeed or the transition is refused), invoke reversal on cancellation
// when configured, persist-only otherwise, and audit the action.
func (s *lifecycleService) Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus, actorID, reason string) (*TransitionResult, error) {
	order, err := s.repoManager.Order().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status()
	if !domain.CanTransitionOrder(oldStatus, newStatus) {
		return nil, domain.ErrInvalidTransition(oldStatus.String(), newStatus.String())
	}

	result := &TransitionResult{Order: order}

	// Pricing and deduction run against the order's OLD status. Either can
	// fail and must refuse the transition outright; deferring UpdateStatus
	// until both have succeeded keeps the Pricing step's own transactional
	// persist of the order row (see pricing_service.go's Evaluate) from
	// ever durably committing a status the deduction step then rejects.
	if newStatus == s.deductionTrigger() {
		if err := s.applyPricingAndDeduction(ctx, order, result); err != nil {
			s.audit(orderID, actorID, oldStatus, oldStatus, "transition refused: "+err.Error())
			return nil, err
		}
	}

	if err := order.UpdateStatus(newStatus); err != nil {
		return nil, err
	}

	if newStatus == domain.OrderStatusCancelled && s.config.AutoReverseOnCancellation && order.InventoryDeducted() {
		if _, err := s.deductorService.ReverseForOrder(ctx, orderID, reason, actorID); err != nil {
			s.audit(orderID, actorID, oldStatus, newStatus, "cancellation reversal failed: "+err.Error())
			return nil, err
		}
		order.MarkInventoryDeducted(false)
		result.Reversed = true
	}

	if err := s.repoManager.Order().Update(ctx, order); err != nil {
		return nil, err
	}

	s.audit(orderID, actorID, oldStatus, newStatus, reason)
	return result, nil
}

// applyPricingAndDeduction runs the Pricing Engine (skipped if the order
// already carries applied rules) followed by the Inventory Deductor. Both
// must succeed; a failure of either leaves the caller to refuse the
// transition (the caller returns before UpdateStatus or Update runs, so the
// order's status is left unchanged).
func (s *lifecycleService) applyPricingAndDeduction(ctx context.Context, order *domain.Order, result *TransitionResult) error {
	if len(order.AppliedRuleIDs()) == 0 {
		if _, err := s.pricingService.Evaluate(ctx, order, PricingFacts{}, false); err != nil {
			return fmt.Errorf("pricing evaluation failed: %w", err)
		}
		result.PricingApplied = true
	}

	if order.InventoryDeducted() {
		return domain.ErrAlreadySynced(order.ID())
	}
	if _, err := s.deductorService.DeductForOrder(ctx, order); err != nil {
		return fmt.Errorf("inventory deduction failed: %w", err)
	}
	order.MarkInventoryDeducted(true)
	result.Deducted = true
	return nil
}

func (s *lifecycleService) audit(orderID, actorID string, oldStatus, newStatus domain.OrderStatus, notes string) {
	s.logger.WithFields(map[string]interface{}{
		"order_id":   orderID,
		"actor_id":   actorID,
		"old_status": oldStatus.String(),
		"new_status": newStatus.String(),
		"notes":      notes,
		"at":         time.Now().UTC(),
	}).Info("order lifecycle transition audited")
}
