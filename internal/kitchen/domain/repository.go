package domain

import (
	"context"
	"time"
)

// EquipmentRepository defines the interface for equipment data operations
type EquipmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, equipment *Equipment) error
	GetByID(ctx context.Context, id string) (*Equipment, error)
	Update(ctx context.Context, equipment *Equipment) error
	Delete(ctx context.Context, id string) error

	// Query operations
	GetAll(ctx context.Context) ([]*Equipment, error)
	GetByStationType(ctx context.Context, stationType StationType) ([]*Equipment, error)
	GetByStatus(ctx context.Context, status EquipmentStatus) ([]*Equipment, error)
	GetAvailable(ctx context.Context) ([]*Equipment, error)
	GetAvailableByStationType(ctx context.Context, stationType StationType) ([]*Equipment, error)

	// Business operations
	UpdateStatus(ctx context.Context, id string, status EquipmentStatus) error
	UpdateLoad(ctx context.Context, id string, currentLoad int32) error
	UpdateEfficiencyScore(ctx context.Context, id string, score float32) error
	GetNeedingMaintenance(ctx context.Context) ([]*Equipment, error)
	GetOverloaded(ctx context.Context) ([]*Equipment, error)

	// Analytics operations
	GetUtilizationStats(ctx context.Context) (map[string]float32, error)
	GetEfficiencyStats(ctx context.Context) (map[string]float32, error)
}

// StaffRepository defines the interface for staff data operations
type StaffRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, staff *Staff) error
	GetByID(ctx context.Context, id string) (*Staff, error)
	Update(ctx context.Context, staff *Staff) error
	Delete(ctx context.Context, id string) error

	// Query operations
	GetAll(ctx context.Context) ([]*Staff, error)
	GetAvailable(ctx context.Context) ([]*Staff, error)
	GetBySpecialization(ctx context.Context, stationType StationType) ([]*Staff, error)
	GetAvailableBySpecialization(ctx context.Context, stationType StationType) ([]*Staff, error)

	// Business operations
	UpdateAvailability(ctx context.Context, id string, available bool) error
	UpdateCurrentOrders(ctx context.Context, id string, currentOrders int32) error
	UpdateSkillLevel(ctx context.Context, id string, skillLevel float32) error
	GetOverloaded(ctx context.Context) ([]*Staff, error)

	// Analytics operations
	GetWorkloadStats(ctx context.Context) (map[string]float32, error)
	GetSkillStats(ctx context.Context) (map[string]float32, error)
}

// OrderRepository defines the interface for kitchen order data operations
type OrderRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id string) error

	// Query operations
	GetAll(ctx context.Context) ([]*Order, error)
	GetByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	GetByPriority(ctx context.Context, priority OrderPriority) ([]*Order, error)
	GetByCustomerID(ctx context.Context, customerID string) ([]*Order, error)
	GetByStaffID(ctx context.Context, staffID string) ([]*Order, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*Order, error)

	// Business operations
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	UpdatePriority(ctx context.Context, id string, priority OrderPriority) error
	AssignStaff(ctx context.Context, id string, staffID string) error
	AssignEquipment(ctx context.Context, id string, equipmentIDs []string) error
	GetOverdue(ctx context.Context) ([]*Order, error)
	GetByRequiredStation(ctx context.Context, stationType StationType) ([]*Order, error)

	// Analytics operations
	GetCompletionStats(ctx context.Context, start, end time.Time) (*OrderCompletionStats, error)
	GetAverageProcessingTime(ctx context.Context, start, end time.Time) (float64, error)
	GetOrderCountByStatus(ctx context.Context) (map[OrderStatus]int32, error)
}

// QueueRepository defines the interface for station queue data operations
// (C4), backed by Redis: each queue's metadata and its items live under a
// key-prefix + secondary-index-set pattern (see infrastructure/repository).
type QueueRepository interface {
	SaveQueue(ctx context.Context, queue *StationQueue) error
	GetQueue(ctx context.Context, id string) (*StationQueue, error)
	GetQueuesByRestaurant(ctx context.Context, restaurantID string) ([]*StationQueue, error)
	DeleteQueue(ctx context.Context, id string) error

	// Queue analytics
	GetThroughputStats(ctx context.Context, queueID string, start, end time.Time) (*ThroughputStats, error)
}

// QueueItemRepository defines the interface for individual queue item data
// operations (C4).
type QueueItemRepository interface {
	Create(ctx context.Context, item *QueueItem) error
	GetByID(ctx context.Context, id string) (*QueueItem, error)
	Update(ctx context.Context, item *QueueItem) error
	Delete(ctx context.Context, id string) error
	GetByQueue(ctx context.Context, queueID string) ([]*QueueItem, error)
	GetByOrderID(ctx context.Context, orderID string) (*QueueItem, error)
	GetLiveCount(ctx context.Context, queueID string) (int32, error)

	// NextSequenceNumber atomically allocates the next sequence number for
	// a queue, used on admission.
	NextSequenceNumber(ctx context.Context, queueID string) (int64, error)

	AppendStatusHistory(ctx context.Context, history *QueueItemStatusHistory) error
}

// SequenceRuleRepository defines the interface for per-queue admission-time
// sequencing rule data operations (C4).
type SequenceRuleRepository interface {
	GetByQueue(ctx context.Context, queueID string) ([]*SequenceRule, error)
	Save(ctx context.Context, rule *SequenceRule) error
	Delete(ctx context.Context, id string) error
}

// InventoryRepository defines the interface for inventory item data
// operations (C1), backed by PostgreSQL with row-level locking.
type InventoryRepository interface {
	Create(ctx context.Context, item *InventoryItem) error
	GetByID(ctx context.Context, id string) (*InventoryItem, error)
	Update(ctx context.Context, item *InventoryItem) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context, restaurantID string) ([]*InventoryItem, error)
	GetLowStock(ctx context.Context, restaurantID string) ([]*InventoryItem, error)

	// LockForUpdate locks the given inventory ids in ascending id order and
	// returns their current rows, for use inside the two-pass deduction
	// transaction.
	LockForUpdate(ctx context.Context, ids []string) ([]*InventoryItem, error)
}

// AdjustmentRepository defines the interface for inventory adjustment audit
// rows (C1).
type AdjustmentRepository interface {
	Create(ctx context.Context, adjustment *InventoryAdjustment) error
	GetByReference(ctx context.Context, refKind ReferenceKind, refID string) ([]*InventoryAdjustment, error)
	GetByInventoryID(ctx context.Context, inventoryID string, start, end time.Time) ([]*InventoryAdjustment, error)
}

// RecipeRepository defines the interface for recipe graph data operations
// (C1).
type RecipeRepository interface {
	GetByMenuItemID(ctx context.Context, menuItemID string) (*Recipe, error)
	GetByID(ctx context.Context, id string) (*Recipe, error)
	Upsert(ctx context.Context, recipe *Recipe) error
}

// PricingRuleRepository defines the interface for pricing rule data
// operations (C2).
type PricingRuleRepository interface {
	Create(ctx context.Context, rule *PricingRule) error
	GetByID(ctx context.Context, id string) (*PricingRule, error)
	Update(ctx context.Context, rule *PricingRule) error
	Delete(ctx context.Context, id string) error
	GetActiveCandidates(ctx context.Context, restaurantID string, at time.Time) ([]*PricingRule, error)
	GetExpired(ctx context.Context, asOf time.Time) ([]*PricingRule, error)
}

// PricingRuleApplicationRepository defines the interface for pricing rule
// application audit rows (C2).
type PricingRuleApplicationRepository interface {
	Create(ctx context.Context, application *PricingRuleApplication) error
	GetByOrderID(ctx context.Context, orderID string) ([]*PricingRuleApplication, error)
	GetUsageCount(ctx context.Context, ruleID, customerID string, since time.Time) (int32, error)
}

// PriorityRepository defines the interface for priority scoring data (C3),
// backed by Redis for low-latency recomputation.
type PriorityRepository interface {
	GetRules(ctx context.Context, restaurantID string) ([]*PriorityRule, error)
	SaveRule(ctx context.Context, rule *PriorityRule) error
	GetProfile(ctx context.Context, id string) (*PriorityProfile, error)
	SaveProfile(ctx context.Context, profile *PriorityProfile) error
	GetQueueConfig(ctx context.Context, queueID string) (*QueuePriorityConfig, error)
	SaveQueueConfig(ctx context.Context, cfg *QueuePriorityConfig) error

	GetScore(ctx context.Context, orderID string) (*OrderPriorityScore, error)
	SaveScore(ctx context.Context, score *OrderPriorityScore) error
	GetScoresForQueue(ctx context.Context, queueID string) ([]*OrderPriorityScore, error)

	GetActiveBoosts(ctx context.Context, orderID string) ([]*Boost, error)
	SaveBoost(ctx context.Context, boost *Boost) error
	GetExpiredBoosts(ctx context.Context, asOf time.Time) ([]*Boost, error)
	DeleteBoost(ctx context.Context, id string) error
}

// Analytics Data Structures

// OrderCompletionStats represents order completion statistics
type OrderCompletionStats struct {
	TotalOrders        int32     `json:"total_orders"`
	CompletedOrders    int32     `json:"completed_orders"`
	CancelledOrders    int32     `json:"cancelled_orders"`
	AverageTime        float64   `json:"average_time"`
	MedianTime         float64   `json:"median_time"`
	CompletionRate     float32   `json:"completion_rate"`
	OnTimeRate         float32   `json:"on_time_rate"`
	CalculatedAt       time.Time `json:"calculated_at"`
}

// ThroughputStats represents queue throughput statistics
type ThroughputStats struct {
	OrdersPerHour      float32   `json:"orders_per_hour"`
	OrdersPerDay       float32   `json:"orders_per_day"`
	PeakHourThroughput float32   `json:"peak_hour_throughput"`
	AverageQueueLength float32   `json:"average_queue_length"`
	MaxQueueLength     int32     `json:"max_queue_length"`
	CalculatedAt       time.Time `json:"calculated_at"`
}

// Repository Transaction Interface

// UnitOfWork defines the interface for managing transactions across repositories
type UnitOfWork interface {
	// Transaction management
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Repository access within transaction
	EquipmentRepo() EquipmentRepository
	StaffRepo() StaffRepository
	OrderRepo() OrderRepository
	QueueRepo() QueueRepository
	QueueItemRepo() QueueItemRepository
	InventoryRepo() InventoryRepository
	AdjustmentRepo() AdjustmentRepository
	RecipeRepo() RecipeRepository
	PricingRuleRepo() PricingRuleRepository
	PricingApplicationRepo() PricingRuleApplicationRepository
}

// RepositoryManager defines the interface for managing all repositories
type RepositoryManager interface {
	// Repository access
	Equipment() EquipmentRepository
	Staff() StaffRepository
	Order() OrderRepository
	Queue() QueueRepository
	QueueItems() QueueItemRepository
	SequenceRules() SequenceRuleRepository
	Inventory() InventoryRepository
	Adjustments() AdjustmentRepository
	Recipes() RecipeRepository
	PricingRules() PricingRuleRepository
	PricingApplications() PricingRuleApplicationRepository
	Priority() PriorityRepository

	// Transaction management
	NewUnitOfWork() UnitOfWork

	// Health check
	HealthCheck(ctx context.Context) error

	// Close resources
	Close() error
}
