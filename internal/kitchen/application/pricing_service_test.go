package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/cache"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

type pricingServiceFixture struct {
	repoManager     *mockRepositoryManager
	pricingRepo     *mockPricingRuleRepository
	applicationRepo *mockPricingRuleApplicationRepository
	orderRepo       *mockOrderRepository
	uow             *mockUnitOfWork
	eventPublisher  *mockEventPublisher
	cache           *mockCache
}

func newPricingServiceFixture() *pricingServiceFixture {
	return &pricingServiceFixture{
		repoManager:     new(mockRepositoryManager),
		pricingRepo:     new(mockPricingRuleRepository),
		applicationRepo: new(mockPricingRuleApplicationRepository),
		orderRepo:       new(mockOrderRepository),
		uow:             new(mockUnitOfWork),
		eventPublisher:  new(mockEventPublisher),
		cache:           new(mockCache),
	}
}

// build wires the fixture's cache in when candidateCache is true, with
// TTL=time.Minute.
func (f *pricingServiceFixture) build(candidateCache bool) PricingService {
	var c cache.Cache
	if candidateCache {
		c = f.cache
	}
	return NewPricingService(f.repoManager, f.eventPublisher, domain.ConflictHighestDiscount, c, time.Minute, logger.New("test"))
}

// stubTransaction wires the uow chain Evaluate drives when at least one rule
// applies: Begin -> PricingApplicationRepo().Create -> PricingRuleRepo().Update
// -> OrderRepo().Update -> Commit.
func (f *pricingServiceFixture) stubTransaction(t *testing.T, rule *domain.PricingRule) {
	t.Helper()
	f.repoManager.On("NewUnitOfWork").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("PricingApplicationRepo").Return(f.applicationRepo)
	f.applicationRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.PricingRuleApplication")).Return(nil)
	f.uow.On("PricingRuleRepo").Return(f.pricingRepo)
	f.pricingRepo.On("Update", mock.Anything, rule).Return(nil)
	f.uow.On("OrderRepo").Return(f.orderRepo)
	f.orderRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.uow.On("Commit", mock.Anything).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)
}

func percentageRule(t *testing.T, restaurantID string, percent int64) *domain.PricingRule {
	t.Helper()
	rule, err := domain.NewPricingRule("rule-1", restaurantID, "10% off", domain.RuleTypePercentage, 1, decimal.NewFromInt(percent))
	require.NoError(t, err)
	return rule
}

func pricingTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	item, err := domain.NewOrderItem("item-1", "menu-1", "Latte", 2, decimal.NewFromInt(4), nil)
	require.NoError(t, err)
	order, err := domain.NewOrder("order-1", "restaurant-1", "customer-1", []*domain.OrderItem{item})
	require.NoError(t, err)
	return order
}

func TestPricingService_Evaluate_AppliesPercentageDiscountOnCacheMiss(t *testing.T) {
	f := newPricingServiceFixture()
	order := pricingTestOrder(t)
	rule := percentageRule(t, order.RestaurantID(), 10)

	f.cache.On("Get", mock.Anything, "pricing:candidates:restaurant-1", mock.Anything).
		Return(errors.New("cache miss"))
	f.repoManager.On("PricingRules").Return(f.pricingRepo)
	f.pricingRepo.On("GetActiveCandidates", mock.Anything, "restaurant-1", mock.AnythingOfType("time.Time")).
		Return([]*domain.PricingRule{rule}, nil)
	f.cache.On("Set", mock.Anything, "pricing:candidates:restaurant-1", mock.Anything, time.Minute).Return(nil)
	f.stubTransaction(t, rule)

	svc := f.build(true)
	result, err := svc.Evaluate(context.Background(), order, PricingFacts{}, false)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(0.8).Equal(result.TotalDiscount))
	assert.Len(t, result.Applied, 1)

	f.cache.AssertExpectations(t)
	f.pricingRepo.AssertExpectations(t)
}

func TestPricingService_Evaluate_ServesActiveCandidatesFromCacheHit(t *testing.T) {
	f := newPricingServiceFixture()
	order := pricingTestOrder(t)

	f.cache.On("Get", mock.Anything, "pricing:candidates:restaurant-1", mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*[]*domain.PricingRule)
			*dest = []*domain.PricingRule{}
		}).
		Return(nil)

	svc := f.build(true)
	result, err := svc.Evaluate(context.Background(), order, PricingFacts{}, false)
	require.NoError(t, err)
	assert.True(t, result.TotalDiscount.IsZero())
	assert.True(t, result.FinalTotal.Equal(order.Subtotal()))

	f.repoManager.AssertNotCalled(t, "PricingRules")
	f.cache.AssertExpectations(t)
}

func TestPricingService_Evaluate_WithNilCacheAlwaysHitsRepository(t *testing.T) {
	f := newPricingServiceFixture()
	order := pricingTestOrder(t)

	f.repoManager.On("PricingRules").Return(f.pricingRepo)
	f.pricingRepo.On("GetActiveCandidates", mock.Anything, "restaurant-1", mock.AnythingOfType("time.Time")).
		Return([]*domain.PricingRule{}, nil)

	svc := f.build(false)
	result, err := svc.Evaluate(context.Background(), order, PricingFacts{}, false)
	require.NoError(t, err)
	assert.True(t, result.TotalDiscount.IsZero())

	f.cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	f.pricingRepo.AssertExpectations(t)
}

func TestPricingService_CreateRule_InvalidatesCandidateCache(t *testing.T) {
	f := newPricingServiceFixture()
	rule := percentageRule(t, "restaurant-1", 15)

	f.repoManager.On("PricingRules").Return(f.pricingRepo)
	f.pricingRepo.On("Create", mock.Anything, rule).Return(nil)
	f.cache.On("Delete", mock.Anything, "pricing:candidates:restaurant-1").Return(nil)

	svc := f.build(true)
	err := svc.CreateRule(context.Background(), rule)
	require.NoError(t, err)

	f.cache.AssertExpectations(t)
}

func TestPricingService_DeleteRule_FetchesRuleThenInvalidatesCache(t *testing.T) {
	f := newPricingServiceFixture()
	rule := percentageRule(t, "restaurant-1", 15)

	f.repoManager.On("PricingRules").Return(f.pricingRepo)
	f.pricingRepo.On("GetByID", mock.Anything, "rule-1").Return(rule, nil)
	f.pricingRepo.On("Delete", mock.Anything, "rule-1").Return(nil)
	f.cache.On("Delete", mock.Anything, "pricing:candidates:restaurant-1").Return(nil)

	svc := f.build(true)
	err := svc.DeleteRule(context.Background(), "rule-1")
	require.NoError(t, err)

	f.cache.AssertExpectations(t)
}

func TestPricingService_ExpireRules_InvalidatesCachePerRestaurant(t *testing.T) {
	f := newPricingServiceFixture()
	ruleA := percentageRule(t, "restaurant-1", 15)
	ruleB := percentageRule(t, "restaurant-2", 20)
	ruleB.ID = "rule-2"
	now := time.Now()

	f.repoManager.On("PricingRules").Return(f.pricingRepo)
	f.pricingRepo.On("GetExpired", mock.Anything, now).Return([]*domain.PricingRule{ruleA, ruleB}, nil)
	f.pricingRepo.On("Update", mock.Anything, ruleA).Return(nil)
	f.pricingRepo.On("Update", mock.Anything, ruleB).Return(nil)
	f.cache.On("Delete", mock.Anything, "pricing:candidates:restaurant-1").Return(nil)
	f.cache.On("Delete", mock.Anything, "pricing:candidates:restaurant-2").Return(nil)

	svc := f.build(true)
	count, err := svc.ExpireRules(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, domain.RuleStatusExpired, ruleA.Status)

	f.cache.AssertExpectations(t)
}

// conflictCandidate builds a candidateOutcome for the resolution tests
// below: only the fields resolveConflicts/resolveNonStackable inspect
// (Stackable, ConflictStrategy, Priority, ExcludedRuleIDs, DiscountAmount).
func conflictCandidate(t *testing.T, id string, priority int32, discount int64, stackable bool) candidateOutcome {
	t.Helper()
	rule, err := domain.NewPricingRule(id, "restaurant-1", id, domain.RuleTypeFixed, priority, decimal.NewFromInt(discount))
	require.NoError(t, err)
	rule.Stackable = stackable
	return candidateOutcome{
		rule:   rule,
		result: domain.RuleEvaluationResult{RuleID: id, Applicable: true, DiscountAmount: decimal.NewFromInt(discount)},
	}
}

func TestPricingService_ResolveNonStackable_Strategies(t *testing.T) {
	f := newPricingServiceFixture()
	svc := f.build(false).(*pricingService)
	subtotal := decimal.NewFromInt(100)

	cheap := conflictCandidate(t, "cheap", 3, 5, false)
	expensive := conflictCandidate(t, "expensive", 1, 20, false)
	middle := conflictCandidate(t, "middle", 2, 10, false)
	group := []candidateOutcome{cheap, expensive, middle}

	tests := []struct {
		name       string
		strategy   domain.ConflictStrategy
		wantRuleID string
		wantCount  int
		wantTotal  int64
	}{
		{"highest discount wins", domain.ConflictHighestDiscount, "expensive", 1, 20},
		{"first match wins regardless of discount", domain.ConflictFirstMatch, "cheap", 1, 5},
		{"lowest priority number wins", domain.ConflictPriorityBased, "expensive", 1, 20},
		{"additive combines every candidate", domain.ConflictCombineAdditive, "", 3, 35},
		{"unknown strategy falls back to highest discount", domain.ConflictStrategy("BOGUS"), "expensive", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chosen := svc.resolveNonStackable(group, tt.strategy, subtotal)
			require.Len(t, chosen, tt.wantCount)
			if tt.wantRuleID != "" {
				assert.Equal(t, tt.wantRuleID, chosen[0].rule.ID)
			}
			var total decimal.Decimal
			for _, c := range chosen {
				total = total.Add(c.result.DiscountAmount)
			}
			assert.True(t, decimal.NewFromInt(tt.wantTotal).Equal(total), "got total discount %s", total)
		})
	}
}

func TestPricingService_ResolveNonStackable_CombineMultiplicativeCompounds(t *testing.T) {
	f := newPricingServiceFixture()
	svc := f.build(false).(*pricingService)
	subtotal := decimal.NewFromInt(100)

	// Two 10%-of-remaining-subtotal-style discounts expressed as absolute
	// DiscountAmount against the full subtotal; multiplicative resolution
	// compounds each against what's left rather than summing face values.
	first := conflictCandidate(t, "first", 1, 10, false)
	second := conflictCandidate(t, "second", 2, 10, false)

	chosen := svc.resolveNonStackable([]candidateOutcome{first, second}, domain.ConflictCombineMultiplicative, subtotal)
	require.Len(t, chosen, 2)
	assert.True(t, decimal.NewFromInt(10).Equal(chosen[0].result.DiscountAmount))
	assert.True(t, decimal.NewFromFloat(9).Equal(chosen[1].result.DiscountAmount))
}

func TestPricingService_ResolveConflicts_StackableAdmitsAlongsideWinningNonStackable(t *testing.T) {
	f := newPricingServiceFixture()
	svc := f.build(false).(*pricingService)
	subtotal := decimal.NewFromInt(100)

	winner := conflictCandidate(t, "winner", 1, 20, false)
	loser := conflictCandidate(t, "loser", 2, 5, false)
	stackable := conflictCandidate(t, "stackable-promo", 1, 3, true)

	chosen := svc.resolveConflicts([]candidateOutcome{winner, loser, stackable}, subtotal)

	var ids []string
	for _, c := range chosen {
		ids = append(ids, c.rule.ID)
	}
	assert.ElementsMatch(t, []string{"winner", "stackable-promo"}, ids)
}

func TestPricingService_ResolveConflicts_MutualExclusionBlocksStackable(t *testing.T) {
	f := newPricingServiceFixture()
	svc := f.build(false).(*pricingService)
	subtotal := decimal.NewFromInt(100)

	winner := conflictCandidate(t, "winner", 1, 20, false)
	stackable := conflictCandidate(t, "stackable-promo", 1, 3, true)
	stackable.rule.ExcludedRuleIDs["winner"] = true

	chosen := svc.resolveConflicts([]candidateOutcome{winner, stackable}, subtotal)

	require.Len(t, chosen, 1)
	assert.Equal(t, "winner", chosen[0].rule.ID)
}

func TestPricingService_Evaluate_BOGORule_DiscountsCheapestPairedItem(t *testing.T) {
	f := newPricingServiceFixture()
	order := pricingTestOrder(t) // 2x Latte @ $4
	rule, err := domain.NewPricingRule("rule-1", order.RestaurantID(), "buy one get one free", domain.RuleTypeBOGO, 1, decimal.NewFromInt(100))
	require.NoError(t, err)

	f.repoManager.On("PricingRules").Return(f.pricingRepo)
	f.pricingRepo.On("GetActiveCandidates", mock.Anything, "restaurant-1", mock.AnythingOfType("time.Time")).
		Return([]*domain.PricingRule{rule}, nil)
	f.stubTransaction(t, rule)

	svc := f.build(false)
	result, err := svc.Evaluate(context.Background(), order, PricingFacts{}, false)
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(result.TotalDiscount))
}
