package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// RepositoryManager implements domain.RepositoryManager over the split
// persistence backend: PostgreSQL for inventory/recipes/pricing/orders
// (written and read inside shared transactions), Redis for queue state
// and priority scoring (high-churn, recomputed-per-tick data where
// optimistic concurrency beats row locks).
type RepositoryManager struct {
	db          *sql.DB
	redisClient *redis.Client
	logger      *logger.Logger

	equipmentRepo    domain.EquipmentRepository
	staffRepo        domain.StaffRepository
	orderRepo        domain.OrderRepository
	queueRepo        domain.QueueRepository
	queueItemRepo    domain.QueueItemRepository
	sequenceRuleRepo domain.SequenceRuleRepository
	inventoryRepo    domain.InventoryRepository
	adjustmentRepo   domain.AdjustmentRepository
	recipeRepo       domain.RecipeRepository
	pricingRuleRepo  domain.PricingRuleRepository
	pricingApplRepo  domain.PricingRuleApplicationRepository
	priorityRepo     domain.PriorityRepository
}

// NewRepositoryManager wires the full repository set from a Postgres
// connection pool and a Redis client.
func NewRepositoryManager(db *sql.DB, redisClient *redis.Client, log *logger.Logger) domain.RepositoryManager {
	return &RepositoryManager{
		db:          db,
		redisClient: redisClient,
		logger:      log,

		equipmentRepo:    NewRedisEquipmentRepository(redisClient, log),
		staffRepo:        NewRedisStaffRepository(redisClient, log),
		orderRepo:        NewPostgresOrderRepository(db, log),
		queueRepo:        NewRedisQueueRepository(redisClient, log),
		queueItemRepo:    NewRedisQueueItemRepository(redisClient, log),
		sequenceRuleRepo: NewRedisSequenceRuleRepository(redisClient, log),
		inventoryRepo:    NewPostgresInventoryRepository(db, log),
		adjustmentRepo:   NewPostgresAdjustmentRepository(db, log),
		recipeRepo:       NewPostgresRecipeRepository(db, log),
		pricingRuleRepo:  NewPostgresPricingRuleRepository(db, log),
		pricingApplRepo:  NewPostgresPricingRuleApplicationRepository(db, log),
		priorityRepo:     NewRedisPriorityRepository(redisClient, log),
	}
}

func (rm *RepositoryManager) Equipment() domain.EquipmentRepository                     { return rm.equipmentRepo }
func (rm *RepositoryManager) Staff() domain.StaffRepository                             { return rm.staffRepo }
func (rm *RepositoryManager) Order() domain.OrderRepository                             { return rm.orderRepo }
func (rm *RepositoryManager) Queue() domain.QueueRepository                             { return rm.queueRepo }
func (rm *RepositoryManager) QueueItems() domain.QueueItemRepository                    { return rm.queueItemRepo }
func (rm *RepositoryManager) SequenceRules() domain.SequenceRuleRepository              { return rm.sequenceRuleRepo }
func (rm *RepositoryManager) Inventory() domain.InventoryRepository                     { return rm.inventoryRepo }
func (rm *RepositoryManager) Adjustments() domain.AdjustmentRepository                  { return rm.adjustmentRepo }
func (rm *RepositoryManager) Recipes() domain.RecipeRepository                          { return rm.recipeRepo }
func (rm *RepositoryManager) PricingRules() domain.PricingRuleRepository                { return rm.pricingRuleRepo }
func (rm *RepositoryManager) PricingApplications() domain.PricingRuleApplicationRepository {
	return rm.pricingApplRepo
}
func (rm *RepositoryManager) Priority() domain.PriorityRepository { return rm.priorityRepo }

// NewUnitOfWork opens a Postgres transaction scoping the SQL-backed
// repositories; the Redis-backed queue/priority repositories pass
// through unscoped since they participate via optimistic concurrency,
// not two-phase commit with Postgres.
func (rm *RepositoryManager) NewUnitOfWork() domain.UnitOfWork {
	return NewPostgresUnitOfWork(rm.db, rm.logger, rm.queueRepo, rm.queueItemRepo, rm.equipmentRepo, rm.staffRepo)
}

// HealthCheck verifies both backing stores are reachable.
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if err := rm.db.PingContext(ctx); err != nil {
		rm.logger.WithError(err).Error("postgres health check failed")
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if _, err := rm.redisClient.Ping(ctx).Result(); err != nil {
		rm.logger.WithError(err).Error("redis health check failed")
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes both backing store connections.
func (rm *RepositoryManager) Close() error {
	if err := rm.redisClient.Close(); err != nil {
		rm.logger.WithError(err).Error("failed to close redis client")
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	if err := rm.db.Close(); err != nil {
		rm.logger.WithError(err).Error("failed to close postgres pool")
		return fmt.Errorf("failed to close postgres pool: %w", err)
	}
	return nil
}
