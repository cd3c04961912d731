package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

type priorityServiceFixture struct {
	repoManager  *mockRepositoryManager
	priorityRepo *mockPriorityRepository
	itemRepo     *mockQueueItemRepository
	queueRepo    *mockQueueRepository
}

func newPriorityServiceFixture() *priorityServiceFixture {
	return &priorityServiceFixture{
		repoManager:  new(mockRepositoryManager),
		priorityRepo: new(mockPriorityRepository),
		itemRepo:     new(mockQueueItemRepository),
		queueRepo:    new(mockQueueRepository),
	}
}

func (f *priorityServiceFixture) build() PriorityService {
	return NewPriorityService(f.repoManager, logger.New("test"))
}

func priorityTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	item, err := domain.NewOrderItem("item-1", "menu-1", "Latte", 1, decimal.NewFromInt(5), nil)
	require.NoError(t, err)
	order, err := domain.NewOrder("order-1", "restaurant-1", "customer-1", []*domain.OrderItem{item})
	require.NoError(t, err)
	return order
}

func TestPriorityService_ComputeScore_CombinesBaseAndVIPBoost(t *testing.T) {
	f := newPriorityServiceFixture()
	order := priorityTestOrder(t)

	queueCfg := &domain.QueuePriorityConfig{QueueID: "queue-1", ProfileID: "profile-1", BoostVIP: 5.0}
	profile := &domain.PriorityProfile{
		ID: "profile-1", RestaurantID: "restaurant-1", Aggregation: domain.AggregationWeightedSum,
		Rules:         []domain.ProfileRule{{RuleID: "rule-vip"}},
		MinTotalScore: 0, MaxTotalScore: 100,
	}
	rule := &domain.PriorityRule{
		ID: "rule-vip", RestaurantID: "restaurant-1", ScoreType: domain.ScoreVIP,
		Config:        domain.ScoreConfig{Type: domain.ScoringLinear, Multiplier: 10},
		MinScore:      0, MaxScore: 100, DefaultWeight: 2.0, Enabled: true,
	}

	f.repoManager.On("Priority").Return(f.priorityRepo)
	f.priorityRepo.On("GetQueueConfig", mock.Anything, "queue-1").Return(queueCfg, nil)
	f.priorityRepo.On("GetProfile", mock.Anything, "profile-1").Return(profile, nil)
	f.priorityRepo.On("GetRules", mock.Anything, "restaurant-1").Return([]*domain.PriorityRule{rule}, nil)
	f.priorityRepo.On("GetActiveBoosts", mock.Anything, order.ID()).Return([]*domain.Boost{}, nil)
	f.priorityRepo.On("SaveScore", mock.Anything, mock.AnythingOfType("*domain.OrderPriorityScore")).Return(nil)
	f.priorityRepo.On("GetScoresForQueue", mock.Anything, "queue-1").Return([]*domain.OrderPriorityScore{}, nil)
	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByOrderID", mock.Anything, order.ID()).Return(nil, domain.ErrNotFound("queue_item", order.ID()))

	svc := f.build()
	facts := ScoringFacts{Order: order, IsVIP: true}
	score, err := svc.ComputeScore(context.Background(), "queue-1", facts, "")
	require.NoError(t, err)
	assert.Equal(t, 25.0, score.Total)
	assert.Equal(t, domain.TierLow, score.Tier)
	assert.False(t, score.IsBoosted)
	assert.Equal(t, int64(1), score.SuggestedSeq)
}

func TestPriorityService_ComputeScore_RequiresOrderInFacts(t *testing.T) {
	f := newPriorityServiceFixture()
	svc := f.build()
	_, err := svc.ComputeScore(context.Background(), "queue-1", ScoringFacts{}, "")
	assert.Error(t, err)
}

func TestPriorityService_FairnessIndex_PerfectlyFairWithIdenticalScores(t *testing.T) {
	f := newPriorityServiceFixture()
	scores := []*domain.OrderPriorityScore{
		{OrderID: "order-1", Total: 50}, {OrderID: "order-2", Total: 50}, {OrderID: "order-3", Total: 50},
	}
	f.repoManager.On("Priority").Return(f.priorityRepo)
	f.priorityRepo.On("GetScoresForQueue", mock.Anything, "queue-1").Return(scores, nil)

	svc := f.build()
	index, err := svc.FairnessIndex(context.Background(), "queue-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, index, 1e-9)
}

func TestPriorityService_FairnessIndex_LowerWhenUnequal(t *testing.T) {
	f := newPriorityServiceFixture()
	scores := []*domain.OrderPriorityScore{
		{OrderID: "order-1", Total: 100}, {OrderID: "order-2", Total: 0},
	}
	f.repoManager.On("Priority").Return(f.priorityRepo)
	f.priorityRepo.On("GetScoresForQueue", mock.Anything, "queue-1").Return(scores, nil)

	svc := f.build()
	index, err := svc.FairnessIndex(context.Background(), "queue-1")
	require.NoError(t, err)
	assert.Less(t, index, 1.0)
}

func TestPriorityService_ExpireBoosts_ResetsTotalToBaseAndDeletesBoost(t *testing.T) {
	f := newPriorityServiceFixture()
	now := time.Now()
	boost := &domain.Boost{ID: "boost-1", OrderID: "order-1", Amount: 10, ExpiresAt: now.Add(-time.Minute)}
	score := &domain.OrderPriorityScore{OrderID: "order-1", Total: 35, Base: 25, Boost: 10, IsBoosted: true}

	f.repoManager.On("Priority").Return(f.priorityRepo)
	f.priorityRepo.On("GetExpiredBoosts", mock.Anything, now).Return([]*domain.Boost{boost}, nil)
	f.priorityRepo.On("GetScore", mock.Anything, "order-1").Return(score, nil)
	f.priorityRepo.On("SaveScore", mock.Anything, score).Return(nil)
	f.priorityRepo.On("DeleteBoost", mock.Anything, "boost-1").Return(nil)

	svc := f.build()
	count, err := svc.ExpireBoosts(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 25.0, score.Total)
	assert.False(t, score.IsBoosted)
}
