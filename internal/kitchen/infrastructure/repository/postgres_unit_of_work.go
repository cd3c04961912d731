package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// PostgresUnitOfWork implements domain.UnitOfWork over a single *sql.Tx so
// C1's inventory deduction and C5's order status update commit atomically
// (ascending-id FOR UPDATE locking happens within the same transaction
// that writes the resulting order and adjustment rows). The queue and
// priority repositories are Redis-backed and have no transactional
// participation; their scoped accessors return the same client-backed
// instances as outside a unit of work.
type PostgresUnitOfWork struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *logger.Logger

	queueRepo     domain.QueueRepository
	queueItemRepo domain.QueueItemRepository
	equipmentRepo domain.EquipmentRepository
	staffRepo     domain.StaffRepository
}

// NewPostgresUnitOfWork creates a unit of work bound to db. queueRepo,
// queueItemRepo, equipmentRepo and staffRepo are passed through from the
// owning repository manager since that state lives in Redis, outside
// this transaction's scope.
func NewPostgresUnitOfWork(db *sql.DB, log *logger.Logger, queueRepo domain.QueueRepository, queueItemRepo domain.QueueItemRepository, equipmentRepo domain.EquipmentRepository, staffRepo domain.StaffRepository) domain.UnitOfWork {
	return &PostgresUnitOfWork{
		db: db, logger: log,
		queueRepo: queueRepo, queueItemRepo: queueItemRepo,
		equipmentRepo: equipmentRepo, staffRepo: staffRepo,
	}
}

func (uow *PostgresUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx, err := uow.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	uow.tx = tx
	return nil
}

func (uow *PostgresUnitOfWork) Commit(ctx context.Context) error {
	if uow.tx == nil {
		return fmt.Errorf("transaction not started")
	}
	if err := uow.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (uow *PostgresUnitOfWork) Rollback(ctx context.Context) error {
	if uow.tx == nil {
		return fmt.Errorf("transaction not started")
	}
	if err := uow.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (uow *PostgresUnitOfWork) executor() dbExecutor {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

func (uow *PostgresUnitOfWork) EquipmentRepo() domain.EquipmentRepository {
	return uow.equipmentRepo
}

func (uow *PostgresUnitOfWork) StaffRepo() domain.StaffRepository {
	return uow.staffRepo
}

func (uow *PostgresUnitOfWork) OrderRepo() domain.OrderRepository {
	return NewPostgresOrderRepository(uow.executor(), uow.logger)
}

func (uow *PostgresUnitOfWork) QueueRepo() domain.QueueRepository {
	return uow.queueRepo
}

func (uow *PostgresUnitOfWork) QueueItemRepo() domain.QueueItemRepository {
	return uow.queueItemRepo
}

func (uow *PostgresUnitOfWork) InventoryRepo() domain.InventoryRepository {
	return NewPostgresInventoryRepository(uow.executor(), uow.logger)
}

func (uow *PostgresUnitOfWork) AdjustmentRepo() domain.AdjustmentRepository {
	return NewPostgresAdjustmentRepository(uow.executor(), uow.logger)
}

func (uow *PostgresUnitOfWork) RecipeRepo() domain.RecipeRepository {
	return NewPostgresRecipeRepository(uow.executor(), uow.logger)
}

func (uow *PostgresUnitOfWork) PricingRuleRepo() domain.PricingRuleRepository {
	return NewPostgresPricingRuleRepository(uow.executor(), uow.logger)
}

func (uow *PostgresUnitOfWork) PricingApplicationRepo() domain.PricingRuleApplicationRepository {
	return NewPostgresPricingRuleApplicationRepository(uow.executor(), uow.logger)
}
