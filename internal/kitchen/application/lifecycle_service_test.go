package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

var errDeductionFailed = errors.New("deduction failed")

func testOrder(t *testing.T) *domain.Order {
	t.Helper()
	item, err := domain.NewOrderItem("item-1", "menu-1", "Latte", 2, decimal.NewFromInt(4), nil)
	require.NoError(t, err)
	order, err := domain.NewOrder("order-1", "restaurant-1", "customer-1", []*domain.OrderItem{item})
	require.NoError(t, err)
	return order
}

func newLifecycleService(repoManager domain.RepositoryManager, pricing PricingService, deductor DeductorService, cfg LifecycleConfig) LifecycleService {
	return NewLifecycleService(repoManager, pricing, deductor, cfg, logger.New("test"))
}

func TestLifecycleService_Transition_AppliesPricingAndDeductionOnInProgress(t *testing.T) {
	order := testOrder(t)

	repoManager := new(mockRepositoryManager)
	orderRepo := new(mockOrderRepository)
	pricing := new(mockPricingService)
	deductor := new(mockDeductorService)

	repoManager.On("Order").Return(orderRepo)
	orderRepo.On("GetByID", mock.Anything, order.ID()).Return(order, nil)
	pricing.On("Evaluate", mock.Anything, order, PricingFacts{}, false).
		Return(&domain.PricingEvaluationResult{}, nil).
		Run(func(args mock.Arguments) {
			o := args.Get(1).(*domain.Order)
			o.ApplyPricing(decimal.Zero, o.Subtotal(), []string{"rule-1"})
		})
	deductor.On("DeductForOrder", mock.Anything, order).Return(&DeductionResult{}, nil)
	orderRepo.On("Update", mock.Anything, order).Return(nil)

	svc := newLifecycleService(repoManager, pricing, deductor, LifecycleConfig{})

	result, err := svc.Transition(context.Background(), order.ID(), domain.OrderStatusInProgress, "staff-1", "starting prep")
	require.NoError(t, err)
	assert.True(t, result.PricingApplied)
	assert.True(t, result.Deducted)
	assert.Equal(t, domain.OrderStatusInProgress, order.Status())
	assert.True(t, order.InventoryDeducted())

	orderRepo.AssertExpectations(t)
	pricing.AssertExpectations(t)
	deductor.AssertExpectations(t)
}

func TestLifecycleService_Transition_RefusesWhenDeductionFails(t *testing.T) {
	order := testOrder(t)

	repoManager := new(mockRepositoryManager)
	orderRepo := new(mockOrderRepository)
	pricing := new(mockPricingService)
	deductor := new(mockDeductorService)

	repoManager.On("Order").Return(orderRepo)
	orderRepo.On("GetByID", mock.Anything, order.ID()).Return(order, nil)
	pricing.On("Evaluate", mock.Anything, order, PricingFacts{}, false).Return(&domain.PricingEvaluationResult{}, nil)
	deductor.On("DeductForOrder", mock.Anything, order).Return(nil, errDeductionFailed)

	svc := newLifecycleService(repoManager, pricing, deductor, LifecycleConfig{})

	_, err := svc.Transition(context.Background(), order.ID(), domain.OrderStatusInProgress, "staff-1", "starting prep")
	assert.Error(t, err)
	// The order's in-memory status was never persisted: Update is never called.
	orderRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLifecycleService_Transition_ReversesInventoryOnCancellation(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.UpdateStatus(domain.OrderStatusInProgress))
	order.MarkInventoryDeducted(true)

	repoManager := new(mockRepositoryManager)
	orderRepo := new(mockOrderRepository)
	pricing := new(mockPricingService)
	deductor := new(mockDeductorService)

	repoManager.On("Order").Return(orderRepo)
	orderRepo.On("GetByID", mock.Anything, order.ID()).Return(order, nil)
	deductor.On("ReverseForOrder", mock.Anything, order.ID(), "customer changed mind", "staff-1").
		Return(&ReversalResult{}, nil)
	orderRepo.On("Update", mock.Anything, order).Return(nil)

	svc := newLifecycleService(repoManager, pricing, deductor, LifecycleConfig{AutoReverseOnCancellation: true})

	result, err := svc.Transition(context.Background(), order.ID(), domain.OrderStatusCancelled, "staff-1", "customer changed mind")
	require.NoError(t, err)
	assert.True(t, result.Reversed)
	assert.False(t, order.InventoryDeducted())

	orderRepo.AssertExpectations(t)
	deductor.AssertExpectations(t)
	pricing.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycleService_Transition_RejectsInvalidStatusDAGTransition(t *testing.T) {
	order := testOrder(t)

	repoManager := new(mockRepositoryManager)
	orderRepo := new(mockOrderRepository)
	pricing := new(mockPricingService)
	deductor := new(mockDeductorService)

	repoManager.On("Order").Return(orderRepo)
	orderRepo.On("GetByID", mock.Anything, order.ID()).Return(order, nil)

	svc := newLifecycleService(repoManager, pricing, deductor, LifecycleConfig{})

	// PENDING -> COMPLETED skips IN_PROGRESS and is not in the status DAG.
	_, err := svc.Transition(context.Background(), order.ID(), domain.OrderStatusCompleted, "staff-1", "")
	assert.Error(t, err)
	orderRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
