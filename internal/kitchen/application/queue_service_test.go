package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

type queueServiceFixture struct {
	repoManager     *mockRepositoryManager
	queueRepo       *mockQueueRepository
	itemRepo        *mockQueueItemRepository
	ruleRepo        *mockSequenceRuleRepository
	priorityRepo    *mockPriorityRepository
	priorityService *mockPriorityService
	eventPublisher  *mockEventPublisher
}

func newQueueServiceFixture() *queueServiceFixture {
	f := &queueServiceFixture{
		repoManager:     new(mockRepositoryManager),
		queueRepo:       new(mockQueueRepository),
		itemRepo:        new(mockQueueItemRepository),
		ruleRepo:        new(mockSequenceRuleRepository),
		priorityRepo:    new(mockPriorityRepository),
		priorityService: new(mockPriorityService),
		eventPublisher:  new(mockEventPublisher),
	}
	return f
}

func (f *queueServiceFixture) build() QueueService {
	return NewQueueService(f.repoManager, f.priorityService, f.eventPublisher, 5.0, 3, 0.1, 30*time.Minute, logger.New("test"))
}

func testQueue(t *testing.T, capacity, currentSize int32) *domain.StationQueue {
	t.Helper()
	q, err := domain.NewStationQueue("queue-1", "restaurant-1", "Espresso Bar", domain.QueueTypeBar, capacity, time.Minute, 5*time.Minute, 10*time.Minute)
	require.NoError(t, err)
	q.SetCurrentSize(currentSize)
	return q
}

func TestQueueService_Admit_InsertsWithDefaultPriorityWhenNoOrderFacts(t *testing.T) {
	f := newQueueServiceFixture()
	queue := testQueue(t, 10, 0)

	f.repoManager.On("Queue").Return(f.queueRepo)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-1").Return(queue, nil)
	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByOrderID", mock.Anything, "order-1").Return(nil, domain.ErrNotFound("queue_item", "order-1"))
	f.repoManager.On("SequenceRules").Return(f.ruleRepo)
	f.ruleRepo.On("GetByQueue", mock.Anything, "queue-1").Return([]*domain.SequenceRule{}, nil)
	f.itemRepo.On("NextSequenceNumber", mock.Anything, "queue-1").Return(int64(1), nil)
	f.itemRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.QueueItem")).Return(nil)
	f.queueRepo.On("SaveQueue", mock.Anything, queue).Return(nil)
	f.itemRepo.On("AppendStatusHistory", mock.Anything, mock.AnythingOfType("*domain.QueueItemStatusHistory")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	item, err := svc.Admit(context.Background(), "queue-1", "order-1", AdmitHints{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, item.Priority())
	assert.Equal(t, domain.QueueItemQueued, item.Status())
	assert.Equal(t, int32(1), queue.CurrentSize())

	f.queueRepo.AssertExpectations(t)
	f.itemRepo.AssertExpectations(t)
}

func TestQueueService_Admit_RefusesWhenQueueFull(t *testing.T) {
	f := newQueueServiceFixture()
	queue := testQueue(t, 2, 2)

	f.repoManager.On("Queue").Return(f.queueRepo)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-1").Return(queue, nil)

	svc := f.build()
	_, err := svc.Admit(context.Background(), "queue-1", "order-1", AdmitHints{})
	assert.Error(t, err)
	f.itemRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQueueService_Admit_RefusesDuplicateOrder(t *testing.T) {
	f := newQueueServiceFixture()
	queue := testQueue(t, 10, 1)
	existing, err := domain.NewQueueItem("item-existing", "queue-1", "order-1", 1, 5.0, nil)
	require.NoError(t, err)

	f.repoManager.On("Queue").Return(f.queueRepo)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-1").Return(queue, nil)
	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByOrderID", mock.Anything, "order-1").Return(existing, nil)

	svc := f.build()
	_, err = svc.Admit(context.Background(), "queue-1", "order-1", AdmitHints{})
	assert.Error(t, err)
	f.itemRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQueueService_Admit_AppliesSequenceRuleAutoExpedite(t *testing.T) {
	f := newQueueServiceFixture()
	queue := testQueue(t, 10, 0)
	rule := &domain.SequenceRule{
		ID: "rule-1", QueueID: "queue-1", Name: "expedite-vip", Priority: 10,
		Conditions: map[string]interface{}{}, Action: domain.SequenceActionAutoExpedite, Enabled: true,
	}

	f.repoManager.On("Queue").Return(f.queueRepo)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-1").Return(queue, nil)
	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByOrderID", mock.Anything, "order-1").Return(nil, domain.ErrNotFound("queue_item", "order-1"))
	f.repoManager.On("SequenceRules").Return(f.ruleRepo)
	f.ruleRepo.On("GetByQueue", mock.Anything, "queue-1").Return([]*domain.SequenceRule{rule}, nil)
	f.itemRepo.On("NextSequenceNumber", mock.Anything, "queue-1").Return(int64(1), nil)
	f.itemRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.QueueItem")).Return(nil)
	f.queueRepo.On("SaveQueue", mock.Anything, queue).Return(nil)
	f.itemRepo.On("AppendStatusHistory", mock.Anything, mock.AnythingOfType("*domain.QueueItemStatusHistory")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	item, err := svc.Admit(context.Background(), "queue-1", "order-1", AdmitHints{})
	require.NoError(t, err)
	assert.True(t, item.Expedited())
}

func TestQueueService_Move_ResequencesIntervening(t *testing.T) {
	f := newQueueServiceFixture()
	item1, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 1.0, nil)
	item2, _ := domain.NewQueueItem("item-2", "queue-1", "order-2", 2, 1.0, nil)
	item3, _ := domain.NewQueueItem("item-3", "queue-1", "order-3", 3, 1.0, nil)

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-3").Return(item3, nil)
	f.itemRepo.On("GetByQueue", mock.Anything, "queue-1").Return([]*domain.QueueItem{item1, item2, item3}, nil)
	f.itemRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.QueueItem")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	err := svc.Move(context.Background(), "item-3", 1, "expedite request")
	require.NoError(t, err)
	assert.Equal(t, int64(1), item3.SequenceNumber())
}

func TestQueueService_Transfer_MovesItemToTargetQueue(t *testing.T) {
	f := newQueueServiceFixture()
	item, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 4.0, nil)
	sourceQueue := testQueue(t, 10, 1)
	targetQueue, err := domain.NewStationQueue("queue-2", "restaurant-1", "Grill", domain.QueueTypeKitchen, 10, time.Minute, 5*time.Minute, 10*time.Minute)
	require.NoError(t, err)

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	f.repoManager.On("Queue").Return(f.queueRepo)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-2").Return(targetQueue, nil)
	f.itemRepo.On("Delete", mock.Anything, "item-1").Return(nil)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-1").Return(sourceQueue, nil)
	f.queueRepo.On("SaveQueue", mock.Anything, sourceQueue).Return(nil)
	f.itemRepo.On("NextSequenceNumber", mock.Anything, "queue-2").Return(int64(1), nil)
	f.itemRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.QueueItem")).Return(nil)
	f.queueRepo.On("SaveQueue", mock.Anything, targetQueue).Return(nil)
	f.itemRepo.On("AppendStatusHistory", mock.Anything, mock.AnythingOfType("*domain.QueueItemStatusHistory")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	moved, err := svc.Transfer(context.Background(), "item-1", "queue-2", true, "rerouted to grill")
	require.NoError(t, err)
	assert.Equal(t, "queue-2", moved.QueueID())
	assert.Equal(t, 4.0, moved.Priority())
	assert.Equal(t, int32(0), sourceQueue.CurrentSize())
	assert.Equal(t, int32(1), targetQueue.CurrentSize())
}

func TestQueueService_Transfer_RefusesWhenTargetQueueFull(t *testing.T) {
	f := newQueueServiceFixture()
	item, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 4.0, nil)
	targetQueue := testQueue(t, 1, 1)

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	f.repoManager.On("Queue").Return(f.queueRepo)
	f.queueRepo.On("GetQueue", mock.Anything, "queue-1").Return(targetQueue, nil)

	svc := f.build()
	_, err := svc.Transfer(context.Background(), "item-1", "queue-1", true, "rerouted")
	assert.Error(t, err)
	f.itemRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestQueueService_Expedite_BoostsPriorityAndMovesToFront(t *testing.T) {
	f := newQueueServiceFixture()
	item1, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 1.0, nil)
	item2, _ := domain.NewQueueItem("item-2", "queue-1", "order-2", 2, 1.0, nil)

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-2").Return(item2, nil)
	f.repoManager.On("Priority").Return(f.priorityRepo)
	f.priorityRepo.On("SaveBoost", mock.Anything, mock.AnythingOfType("*domain.Boost")).Return(nil)
	f.itemRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.QueueItem")).Return(nil)
	f.itemRepo.On("GetByQueue", mock.Anything, "queue-1").Return([]*domain.QueueItem{item1, item2}, nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	expedited, err := svc.Expedite(context.Background(), "item-2", 10.0, true, "VIP request")
	require.NoError(t, err)
	assert.Equal(t, 11.0, expedited.Priority())
	assert.True(t, expedited.Expedited())
	assert.Equal(t, int64(1), item2.SequenceNumber())
}

func TestQueueService_Hold_PlacesItemOnHold(t *testing.T) {
	f := newQueueServiceFixture()
	item, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 1.0, nil)

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	f.itemRepo.On("Update", mock.Anything, item).Return(nil)
	f.itemRepo.On("AppendStatusHistory", mock.Anything, mock.AnythingOfType("*domain.QueueItemStatusHistory")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	until := time.Now().Add(time.Hour)
	err := svc.Hold(context.Background(), "item-1", until, "waiting on ingredient restock")
	require.NoError(t, err)
	assert.Equal(t, domain.QueueItemOnHold, item.Status())
}

func TestQueueService_ReleaseHold_ReturnsItemToQueued(t *testing.T) {
	f := newQueueServiceFixture()
	item, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 1.0, nil)
	require.NoError(t, item.Hold(time.Now().Add(time.Hour), "waiting"))

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	f.itemRepo.On("Update", mock.Anything, item).Return(nil)
	f.itemRepo.On("AppendStatusHistory", mock.Anything, mock.AnythingOfType("*domain.QueueItemStatusHistory")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	err := svc.ReleaseHold(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, domain.QueueItemQueued, item.Status())
	assert.Nil(t, item.HoldUntil())
}

func TestQueueService_BatchSetStatus_ContinuesPastIndividualFailures(t *testing.T) {
	f := newQueueServiceFixture()
	good, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 1.0, nil)

	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByID", mock.Anything, "item-1").Return(good, nil)
	f.itemRepo.On("GetByID", mock.Anything, "item-missing").Return(nil, domain.ErrNotFound("queue_item", "item-missing"))
	f.itemRepo.On("Update", mock.Anything, good).Return(nil)
	f.itemRepo.On("AppendStatusHistory", mock.Anything, mock.AnythingOfType("*domain.QueueItemStatusHistory")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build()
	err := svc.BatchSetStatus(context.Background(), []string{"item-1", "item-missing"}, domain.QueueItemInPreparation, "batch start")
	assert.Error(t, err)
	assert.Equal(t, domain.QueueItemInPreparation, good.Status())
}

func TestQueueService_Rebalance_SkipsWhenFairAndNotForced(t *testing.T) {
	f := newQueueServiceFixture()
	f.priorityService.On("FairnessIndex", mock.Anything, "queue-1").Return(0.95, nil)

	svc := f.build()
	result, err := svc.Rebalance(context.Background(), "queue-1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsRebalanced)
	f.itemRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestQueueService_Rebalance_MovesItemsBeyondMaxPositionChange(t *testing.T) {
	f := newQueueServiceFixture()
	item1, _ := domain.NewQueueItem("item-1", "queue-1", "order-1", 1, 3.0, nil)
	item2, _ := domain.NewQueueItem("item-2", "queue-1", "order-2", 2, 2.0, nil)
	item3, _ := domain.NewQueueItem("item-3", "queue-1", "order-3", 3, 1.0, nil)
	item4, _ := domain.NewQueueItem("item-4", "queue-1", "order-4", 4, 100.0, nil)

	f.priorityService.On("FairnessIndex", mock.Anything, "queue-1").Return(0.5, nil).Once()
	f.repoManager.On("QueueItems").Return(f.itemRepo)
	f.itemRepo.On("GetByQueue", mock.Anything, "queue-1").Return([]*domain.QueueItem{item1, item2, item3, item4}, nil)
	f.itemRepo.On("GetByID", mock.Anything, "item-4").Return(item4, nil)
	f.itemRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.QueueItem")).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)
	f.priorityService.On("FairnessIndex", mock.Anything, "queue-1").Return(0.9, nil).Once()

	// maxPositionChange of 2 tolerates the other items' 1-position drift but
	// forces item-4's 3-position drift (4th -> 1st) into a bounded move.
	svc := NewQueueService(f.repoManager, f.priorityService, f.eventPublisher, 5.0, 2, 0.1, 30*time.Minute, logger.New("test"))
	result, err := svc.Rebalance(context.Background(), "queue-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsRebalanced)
	assert.Equal(t, 0.5, result.FairnessBefore)
	assert.Equal(t, 0.9, result.FairnessAfter)
}
