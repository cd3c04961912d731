package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/cache"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

// Mock implementations for the application-layer test suite, following the
// same mock.Mock-per-repository pattern as kitchen_service_test.go.

type mockRepositoryManager struct {
	mock.Mock
}

func (m *mockRepositoryManager) Equipment() domain.EquipmentRepository {
	return m.Called().Get(0).(domain.EquipmentRepository)
}
func (m *mockRepositoryManager) Staff() domain.StaffRepository {
	return m.Called().Get(0).(domain.StaffRepository)
}
func (m *mockRepositoryManager) Order() domain.OrderRepository {
	return m.Called().Get(0).(domain.OrderRepository)
}
func (m *mockRepositoryManager) Queue() domain.QueueRepository {
	return m.Called().Get(0).(domain.QueueRepository)
}
func (m *mockRepositoryManager) QueueItems() domain.QueueItemRepository {
	return m.Called().Get(0).(domain.QueueItemRepository)
}
func (m *mockRepositoryManager) SequenceRules() domain.SequenceRuleRepository {
	return m.Called().Get(0).(domain.SequenceRuleRepository)
}
func (m *mockRepositoryManager) Inventory() domain.InventoryRepository {
	return m.Called().Get(0).(domain.InventoryRepository)
}
func (m *mockRepositoryManager) Adjustments() domain.AdjustmentRepository {
	return m.Called().Get(0).(domain.AdjustmentRepository)
}
func (m *mockRepositoryManager) Recipes() domain.RecipeRepository {
	return m.Called().Get(0).(domain.RecipeRepository)
}
func (m *mockRepositoryManager) PricingRules() domain.PricingRuleRepository {
	return m.Called().Get(0).(domain.PricingRuleRepository)
}
func (m *mockRepositoryManager) PricingApplications() domain.PricingRuleApplicationRepository {
	return m.Called().Get(0).(domain.PricingRuleApplicationRepository)
}
func (m *mockRepositoryManager) Priority() domain.PriorityRepository {
	return m.Called().Get(0).(domain.PriorityRepository)
}
func (m *mockRepositoryManager) NewUnitOfWork() domain.UnitOfWork {
	return m.Called().Get(0).(domain.UnitOfWork)
}
func (m *mockRepositoryManager) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockRepositoryManager) Close() error {
	return m.Called().Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}
func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}
func (m *mockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}
func (m *mockOrderRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockOrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	args := m.Called(ctx, status)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetByPriority(ctx context.Context, priority domain.OrderPriority) ([]*domain.Order, error) {
	args := m.Called(ctx, priority)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	args := m.Called(ctx, customerID)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetByStaffID(ctx context.Context, staffID string) ([]*domain.Order, error) {
	args := m.Called(ctx, staffID)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	args := m.Called(ctx, start, end)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockOrderRepository) UpdatePriority(ctx context.Context, id string, priority domain.OrderPriority) error {
	return m.Called(ctx, id, priority).Error(0)
}
func (m *mockOrderRepository) AssignStaff(ctx context.Context, id string, staffID string) error {
	return m.Called(ctx, id, staffID).Error(0)
}
func (m *mockOrderRepository) AssignEquipment(ctx context.Context, id string, equipmentIDs []string) error {
	return m.Called(ctx, id, equipmentIDs).Error(0)
}
func (m *mockOrderRepository) GetOverdue(ctx context.Context) ([]*domain.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetByRequiredStation(ctx context.Context, stationType domain.StationType) ([]*domain.Order, error) {
	args := m.Called(ctx, stationType)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}
func (m *mockOrderRepository) GetCompletionStats(ctx context.Context, start, end time.Time) (*domain.OrderCompletionStats, error) {
	args := m.Called(ctx, start, end)
	stats, _ := args.Get(0).(*domain.OrderCompletionStats)
	return stats, args.Error(1)
}
func (m *mockOrderRepository) GetAverageProcessingTime(ctx context.Context, start, end time.Time) (float64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(float64), args.Error(1)
}
func (m *mockOrderRepository) GetOrderCountByStatus(ctx context.Context) (map[domain.OrderStatus]int32, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[domain.OrderStatus]int32)
	return counts, args.Error(1)
}

type mockQueueRepository struct {
	mock.Mock
}

func (m *mockQueueRepository) SaveQueue(ctx context.Context, queue *domain.StationQueue) error {
	return m.Called(ctx, queue).Error(0)
}
func (m *mockQueueRepository) GetQueue(ctx context.Context, id string) (*domain.StationQueue, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(*domain.StationQueue)
	return q, args.Error(1)
}
func (m *mockQueueRepository) GetQueuesByRestaurant(ctx context.Context, restaurantID string) ([]*domain.StationQueue, error) {
	args := m.Called(ctx, restaurantID)
	qs, _ := args.Get(0).([]*domain.StationQueue)
	return qs, args.Error(1)
}
func (m *mockQueueRepository) DeleteQueue(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockQueueRepository) GetThroughputStats(ctx context.Context, queueID string, start, end time.Time) (*domain.ThroughputStats, error) {
	args := m.Called(ctx, queueID, start, end)
	stats, _ := args.Get(0).(*domain.ThroughputStats)
	return stats, args.Error(1)
}

type mockQueueItemRepository struct {
	mock.Mock
}

func (m *mockQueueItemRepository) Create(ctx context.Context, item *domain.QueueItem) error {
	return m.Called(ctx, item).Error(0)
}
func (m *mockQueueItemRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.QueueItem)
	return item, args.Error(1)
}
func (m *mockQueueItemRepository) Update(ctx context.Context, item *domain.QueueItem) error {
	return m.Called(ctx, item).Error(0)
}
func (m *mockQueueItemRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockQueueItemRepository) GetByQueue(ctx context.Context, queueID string) ([]*domain.QueueItem, error) {
	args := m.Called(ctx, queueID)
	items, _ := args.Get(0).([]*domain.QueueItem)
	return items, args.Error(1)
}
func (m *mockQueueItemRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.QueueItem, error) {
	args := m.Called(ctx, orderID)
	item, _ := args.Get(0).(*domain.QueueItem)
	return item, args.Error(1)
}
func (m *mockQueueItemRepository) GetLiveCount(ctx context.Context, queueID string) (int32, error) {
	args := m.Called(ctx, queueID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *mockQueueItemRepository) NextSequenceNumber(ctx context.Context, queueID string) (int64, error) {
	args := m.Called(ctx, queueID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockQueueItemRepository) AppendStatusHistory(ctx context.Context, history *domain.QueueItemStatusHistory) error {
	return m.Called(ctx, history).Error(0)
}

type mockSequenceRuleRepository struct {
	mock.Mock
}

func (m *mockSequenceRuleRepository) GetByQueue(ctx context.Context, queueID string) ([]*domain.SequenceRule, error) {
	args := m.Called(ctx, queueID)
	rules, _ := args.Get(0).([]*domain.SequenceRule)
	return rules, args.Error(1)
}
func (m *mockSequenceRuleRepository) Save(ctx context.Context, rule *domain.SequenceRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockSequenceRuleRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockPriorityRepository struct {
	mock.Mock
}

func (m *mockPriorityRepository) GetRules(ctx context.Context, restaurantID string) ([]*domain.PriorityRule, error) {
	args := m.Called(ctx, restaurantID)
	rules, _ := args.Get(0).([]*domain.PriorityRule)
	return rules, args.Error(1)
}
func (m *mockPriorityRepository) SaveRule(ctx context.Context, rule *domain.PriorityRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockPriorityRepository) GetProfile(ctx context.Context, id string) (*domain.PriorityProfile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*domain.PriorityProfile)
	return profile, args.Error(1)
}
func (m *mockPriorityRepository) SaveProfile(ctx context.Context, profile *domain.PriorityProfile) error {
	return m.Called(ctx, profile).Error(0)
}
func (m *mockPriorityRepository) GetQueueConfig(ctx context.Context, queueID string) (*domain.QueuePriorityConfig, error) {
	args := m.Called(ctx, queueID)
	cfg, _ := args.Get(0).(*domain.QueuePriorityConfig)
	return cfg, args.Error(1)
}
func (m *mockPriorityRepository) SaveQueueConfig(ctx context.Context, cfg *domain.QueuePriorityConfig) error {
	return m.Called(ctx, cfg).Error(0)
}
func (m *mockPriorityRepository) GetScore(ctx context.Context, orderID string) (*domain.OrderPriorityScore, error) {
	args := m.Called(ctx, orderID)
	score, _ := args.Get(0).(*domain.OrderPriorityScore)
	return score, args.Error(1)
}
func (m *mockPriorityRepository) SaveScore(ctx context.Context, score *domain.OrderPriorityScore) error {
	return m.Called(ctx, score).Error(0)
}
func (m *mockPriorityRepository) GetScoresForQueue(ctx context.Context, queueID string) ([]*domain.OrderPriorityScore, error) {
	args := m.Called(ctx, queueID)
	scores, _ := args.Get(0).([]*domain.OrderPriorityScore)
	return scores, args.Error(1)
}
func (m *mockPriorityRepository) GetActiveBoosts(ctx context.Context, orderID string) ([]*domain.Boost, error) {
	args := m.Called(ctx, orderID)
	boosts, _ := args.Get(0).([]*domain.Boost)
	return boosts, args.Error(1)
}
func (m *mockPriorityRepository) SaveBoost(ctx context.Context, boost *domain.Boost) error {
	return m.Called(ctx, boost).Error(0)
}
func (m *mockPriorityRepository) GetExpiredBoosts(ctx context.Context, asOf time.Time) ([]*domain.Boost, error) {
	args := m.Called(ctx, asOf)
	boosts, _ := args.Get(0).([]*domain.Boost)
	return boosts, args.Error(1)
}
func (m *mockPriorityRepository) DeleteBoost(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockInventoryRepository struct {
	mock.Mock
}

func (m *mockInventoryRepository) Create(ctx context.Context, item *domain.InventoryItem) error {
	return m.Called(ctx, item).Error(0)
}
func (m *mockInventoryRepository) GetByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.InventoryItem)
	return item, args.Error(1)
}
func (m *mockInventoryRepository) Update(ctx context.Context, item *domain.InventoryItem) error {
	return m.Called(ctx, item).Error(0)
}
func (m *mockInventoryRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockInventoryRepository) GetAll(ctx context.Context, restaurantID string) ([]*domain.InventoryItem, error) {
	args := m.Called(ctx, restaurantID)
	items, _ := args.Get(0).([]*domain.InventoryItem)
	return items, args.Error(1)
}
func (m *mockInventoryRepository) GetLowStock(ctx context.Context, restaurantID string) ([]*domain.InventoryItem, error) {
	args := m.Called(ctx, restaurantID)
	items, _ := args.Get(0).([]*domain.InventoryItem)
	return items, args.Error(1)
}
func (m *mockInventoryRepository) LockForUpdate(ctx context.Context, ids []string) ([]*domain.InventoryItem, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]*domain.InventoryItem)
	return items, args.Error(1)
}

type mockAdjustmentRepository struct {
	mock.Mock
}

func (m *mockAdjustmentRepository) Create(ctx context.Context, adjustment *domain.InventoryAdjustment) error {
	return m.Called(ctx, adjustment).Error(0)
}
func (m *mockAdjustmentRepository) GetByReference(ctx context.Context, refKind domain.ReferenceKind, refID string) ([]*domain.InventoryAdjustment, error) {
	args := m.Called(ctx, refKind, refID)
	adjustments, _ := args.Get(0).([]*domain.InventoryAdjustment)
	return adjustments, args.Error(1)
}
func (m *mockAdjustmentRepository) GetByInventoryID(ctx context.Context, inventoryID string, start, end time.Time) ([]*domain.InventoryAdjustment, error) {
	args := m.Called(ctx, inventoryID, start, end)
	adjustments, _ := args.Get(0).([]*domain.InventoryAdjustment)
	return adjustments, args.Error(1)
}

type mockRecipeRepository struct {
	mock.Mock
}

func (m *mockRecipeRepository) GetByMenuItemID(ctx context.Context, menuItemID string) (*domain.Recipe, error) {
	args := m.Called(ctx, menuItemID)
	recipe, _ := args.Get(0).(*domain.Recipe)
	return recipe, args.Error(1)
}
func (m *mockRecipeRepository) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	args := m.Called(ctx, id)
	recipe, _ := args.Get(0).(*domain.Recipe)
	return recipe, args.Error(1)
}
func (m *mockRecipeRepository) Upsert(ctx context.Context, recipe *domain.Recipe) error {
	return m.Called(ctx, recipe).Error(0)
}

type mockPricingRuleRepository struct {
	mock.Mock
}

func (m *mockPricingRuleRepository) Create(ctx context.Context, rule *domain.PricingRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockPricingRuleRepository) GetByID(ctx context.Context, id string) (*domain.PricingRule, error) {
	args := m.Called(ctx, id)
	rule, _ := args.Get(0).(*domain.PricingRule)
	return rule, args.Error(1)
}
func (m *mockPricingRuleRepository) Update(ctx context.Context, rule *domain.PricingRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockPricingRuleRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockPricingRuleRepository) GetActiveCandidates(ctx context.Context, restaurantID string, at time.Time) ([]*domain.PricingRule, error) {
	args := m.Called(ctx, restaurantID, at)
	rules, _ := args.Get(0).([]*domain.PricingRule)
	return rules, args.Error(1)
}
func (m *mockPricingRuleRepository) GetExpired(ctx context.Context, asOf time.Time) ([]*domain.PricingRule, error) {
	args := m.Called(ctx, asOf)
	rules, _ := args.Get(0).([]*domain.PricingRule)
	return rules, args.Error(1)
}

type mockPricingRuleApplicationRepository struct {
	mock.Mock
}

func (m *mockPricingRuleApplicationRepository) Create(ctx context.Context, application *domain.PricingRuleApplication) error {
	return m.Called(ctx, application).Error(0)
}
func (m *mockPricingRuleApplicationRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.PricingRuleApplication, error) {
	args := m.Called(ctx, orderID)
	apps, _ := args.Get(0).([]*domain.PricingRuleApplication)
	return apps, args.Error(1)
}
func (m *mockPricingRuleApplicationRepository) GetUsageCount(ctx context.Context, ruleID, customerID string, since time.Time) (int32, error) {
	args := m.Called(ctx, ruleID, customerID, since)
	return args.Get(0).(int32), args.Error(1)
}

// mockUnitOfWork satisfies domain.UnitOfWork. Evaluate only exercises
// Begin/Commit/Rollback plus OrderRepo/PricingRuleRepo/PricingApplicationRepo
// in pricing_service_test.go; the remaining repo accessors are unused there
// but still required to implement the interface.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) error    { return m.Called(ctx).Error(0) }
func (m *mockUnitOfWork) Commit(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *mockUnitOfWork) Rollback(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockUnitOfWork) EquipmentRepo() domain.EquipmentRepository {
	return m.Called().Get(0).(domain.EquipmentRepository)
}
func (m *mockUnitOfWork) StaffRepo() domain.StaffRepository {
	return m.Called().Get(0).(domain.StaffRepository)
}
func (m *mockUnitOfWork) OrderRepo() domain.OrderRepository {
	return m.Called().Get(0).(domain.OrderRepository)
}
func (m *mockUnitOfWork) QueueRepo() domain.QueueRepository {
	return m.Called().Get(0).(domain.QueueRepository)
}
func (m *mockUnitOfWork) QueueItemRepo() domain.QueueItemRepository {
	return m.Called().Get(0).(domain.QueueItemRepository)
}
func (m *mockUnitOfWork) InventoryRepo() domain.InventoryRepository {
	return m.Called().Get(0).(domain.InventoryRepository)
}
func (m *mockUnitOfWork) AdjustmentRepo() domain.AdjustmentRepository {
	return m.Called().Get(0).(domain.AdjustmentRepository)
}
func (m *mockUnitOfWork) RecipeRepo() domain.RecipeRepository {
	return m.Called().Get(0).(domain.RecipeRepository)
}
func (m *mockUnitOfWork) PricingRuleRepo() domain.PricingRuleRepository {
	return m.Called().Get(0).(domain.PricingRuleRepository)
}
func (m *mockUnitOfWork) PricingApplicationRepo() domain.PricingRuleApplicationRepository {
	return m.Called().Get(0).(domain.PricingRuleApplicationRepository)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, event *domain.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}
func (m *mockEventPublisher) PublishBatch(ctx context.Context, events []*domain.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

// mockPriorityService and mockDeductorService satisfy the application-level
// collaborator interfaces consumed by QueueService/LifecycleService,
// independent of their real scoring/deduction logic.

type mockPriorityService struct {
	mock.Mock
}

func (m *mockPriorityService) ComputeScore(ctx context.Context, queueID string, facts ScoringFacts, profileOverride string) (*domain.OrderPriorityScore, error) {
	args := m.Called(ctx, queueID, facts, profileOverride)
	score, _ := args.Get(0).(*domain.OrderPriorityScore)
	return score, args.Error(1)
}
func (m *mockPriorityService) ComputeBulk(ctx context.Context, queueID string, facts map[string]ScoringFacts) ([]*domain.OrderPriorityScore, error) {
	args := m.Called(ctx, queueID, facts)
	scores, _ := args.Get(0).([]*domain.OrderPriorityScore)
	return scores, args.Error(1)
}
func (m *mockPriorityService) FairnessIndex(ctx context.Context, queueID string) (float64, error) {
	args := m.Called(ctx, queueID)
	return args.Get(0).(float64), args.Error(1)
}
func (m *mockPriorityService) ExpireBoosts(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
func (m *mockPriorityService) RecomputeStale(ctx context.Context, restaurantID string, staleAfter time.Duration, rescoreThreshold float64) (int, error) {
	args := m.Called(ctx, restaurantID, staleAfter, rescoreThreshold)
	return args.Int(0), args.Error(1)
}

type mockPricingService struct {
	mock.Mock
}

func (m *mockPricingService) Evaluate(ctx context.Context, order *domain.Order, facts PricingFacts, debug bool) (*domain.PricingEvaluationResult, error) {
	args := m.Called(ctx, order, facts, debug)
	result, _ := args.Get(0).(*domain.PricingEvaluationResult)
	return result, args.Error(1)
}
func (m *mockPricingService) ValidateConditions(conditions domain.RuleConditions, ruleType domain.RuleType) RuleValidationResult {
	args := m.Called(conditions, ruleType)
	return args.Get(0).(RuleValidationResult)
}
func (m *mockPricingService) CreateRule(ctx context.Context, rule *domain.PricingRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockPricingService) UpdateRule(ctx context.Context, rule *domain.PricingRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *mockPricingService) DeleteRule(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockPricingService) ExpireRules(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
func (m *mockPricingService) SetMetrics(metrics *monitoring.BusinessMetrics) {}

type mockDeductorService struct {
	mock.Mock
}

func (m *mockDeductorService) DeductForOrder(ctx context.Context, order *domain.Order) (*DeductionResult, error) {
	args := m.Called(ctx, order)
	result, _ := args.Get(0).(*DeductionResult)
	return result, args.Error(1)
}
func (m *mockDeductorService) ReverseForOrder(ctx context.Context, orderID, reason, actorID string) (*ReversalResult, error) {
	args := m.Called(ctx, orderID, reason, actorID)
	result, _ := args.Get(0).(*ReversalResult)
	return result, args.Error(1)
}
func (m *mockDeductorService) PreviewImpact(ctx context.Context, order *domain.Order) (*DeductionPreview, error) {
	args := m.Called(ctx, order)
	preview, _ := args.Get(0).(*DeductionPreview)
	return preview, args.Error(1)
}
func (m *mockDeductorService) PartialFulfill(ctx context.Context, order *domain.Order) (*DeductionResult, error) {
	args := m.Called(ctx, order)
	result, _ := args.Get(0).(*DeductionResult)
	return result, args.Error(1)
}
func (m *mockDeductorService) SetMetrics(metrics *monitoring.BusinessMetrics) {}

// mockCache is a minimal pkg/cache.Cache double for PricingService's
// candidate-cache wiring. Get writes the stubbed value into dest via a
// mock.Arguments.Run callback rather than a typed return, matching how
// RedisCache unmarshals into a caller-supplied pointer.
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}
func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}
func (m *mockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
func (m *mockCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.Called(ctx, key, expiration).Error(0)
}
func (m *mockCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	args := m.Called(ctx, pattern)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}
func (m *mockCache) FlushAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockCache) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *mockCache) MSet(ctx context.Context, pairs map[string]interface{}, expiration time.Duration) error {
	return m.Called(ctx, pairs, expiration).Error(0)
}
func (m *mockCache) MGet(ctx context.Context, keys []string) (map[string]interface{}, error) {
	args := m.Called(ctx, keys)
	vals, _ := args.Get(0).(map[string]interface{})
	return vals, args.Error(1)
}
func (m *mockCache) MDelete(ctx context.Context, keys []string) error {
	return m.Called(ctx, keys).Error(0)
}
func (m *mockCache) Pipeline() *cache.RedisPipeline {
	return nil
}
