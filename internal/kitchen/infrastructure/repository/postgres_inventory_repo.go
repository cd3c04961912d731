package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// PostgresInventoryRepository implements domain.InventoryRepository against
// a raw *sql.DB (or a *sql.Tx wrapped behind the same interface by
// PostgresUnitOfWork), grounded in
// crypto-terminal/internal/hft/infrastructure/repositories/postgres_order_repository.go's
// parameterized-query style.
type PostgresInventoryRepository struct {
	db     dbExecutor
	logger *logger.Logger
}

// dbExecutor is satisfied by both *sql.DB and *sql.Tx so the same
// repository implementation runs outside and inside a unit of work.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewPostgresInventoryRepository creates a new PostgreSQL inventory repository.
func NewPostgresInventoryRepository(db dbExecutor, log *logger.Logger) domain.InventoryRepository {
	return &PostgresInventoryRepository{db: db, logger: log}
}

func (r *PostgresInventoryRepository) Create(ctx context.Context, item *domain.InventoryItem) error {
	const query = `
		INSERT INTO kitchen_inventory_items (id, restaurant_id, name, quantity, unit, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID(), item.RestaurantID(), item.Name(), item.Quantity(), item.Unit(), item.LowStockThreshold())
	if err != nil {
		r.logger.WithError(err).WithField("inventory_id", item.ID()).Error("failed to create inventory item")
		return fmt.Errorf("failed to create inventory item: %w", err)
	}
	return nil
}

func (r *PostgresInventoryRepository) GetByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	const query = `
		SELECT id, restaurant_id, name, quantity, unit, low_stock_threshold, deleted_at
		FROM kitchen_inventory_items WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanItem(row)
}

func (r *PostgresInventoryRepository) Update(ctx context.Context, item *domain.InventoryItem) error {
	const query = `
		UPDATE kitchen_inventory_items
		SET name = $2, quantity = $3, unit = $4, low_stock_threshold = $5
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		item.ID(), item.Name(), item.Quantity(), item.Unit(), item.LowStockThreshold())
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}
	return mustAffectOne(result, "inventory item", item.ID())
}

func (r *PostgresInventoryRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE kitchen_inventory_items SET deleted_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	return mustAffectOne(result, "inventory item", id)
}

func (r *PostgresInventoryRepository) GetAll(ctx context.Context, restaurantID string) ([]*domain.InventoryItem, error) {
	const query = `
		SELECT id, restaurant_id, name, quantity, unit, low_stock_threshold, deleted_at
		FROM kitchen_inventory_items WHERE restaurant_id = $1 AND deleted_at IS NULL
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()
	return r.scanItems(rows)
}

func (r *PostgresInventoryRepository) GetLowStock(ctx context.Context, restaurantID string) ([]*domain.InventoryItem, error) {
	const query = `
		SELECT id, restaurant_id, name, quantity, unit, low_stock_threshold, deleted_at
		FROM kitchen_inventory_items
		WHERE restaurant_id = $1 AND deleted_at IS NULL AND quantity <= low_stock_threshold
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}
	defer rows.Close()
	return r.scanItems(rows)
}

// LockForUpdate locks the given ids in ascending id order via
// SELECT ... FOR UPDATE, the global lock-ordering discipline that prevents
// deadlock between concurrent deductions sharing ingredients.
func (r *PostgresInventoryRepository) LockForUpdate(ctx context.Context, ids []string) ([]*domain.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, restaurant_id, name, quantity, unit, low_stock_threshold, deleted_at
		FROM kitchen_inventory_items
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id ASC
		FOR UPDATE`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory items: %w", err)
	}
	defer rows.Close()
	items, err := r.scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) != len(ids) {
		found := make(map[string]bool, len(items))
		for _, it := range items {
			found[it.ID()] = true
		}
		var missing []string
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, domain.ErrNotFound("inventory_item", strings.Join(missing, ","))
	}
	return items, nil
}

func (r *PostgresInventoryRepository) scanItem(row *sql.Row) (*domain.InventoryItem, error) {
	var (
		id, restaurantID, name, unit string
		quantity, lowStock           decimal.Decimal
		deletedAt                    sql.NullTime
	)
	if err := row.Scan(&id, &restaurantID, &name, &quantity, &unit, &lowStock, &deletedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("inventory_item", id)
		}
		return nil, fmt.Errorf("failed to scan inventory item: %w", err)
	}
	return domain.ReconstructInventoryItem(id, restaurantID, name, quantity, unit, lowStock, nullTimePtr(deletedAt)), nil
}

func (r *PostgresInventoryRepository) scanItems(rows *sql.Rows) ([]*domain.InventoryItem, error) {
	var items []*domain.InventoryItem
	for rows.Next() {
		var (
			id, restaurantID, name, unit string
			quantity, lowStock           decimal.Decimal
			deletedAt                    sql.NullTime
		)
		if err := rows.Scan(&id, &restaurantID, &name, &quantity, &unit, &lowStock, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, domain.ReconstructInventoryItem(id, restaurantID, name, quantity, unit, lowStock, nullTimePtr(deletedAt)))
	}
	return items, rows.Err()
}

// mustAffectOne returns domain.ErrNotFound when an Exec result touched no
// rows, the signal that an update/delete targeted a missing id.
func mustAffectOne(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound(kind, id)
	}
	return nil
}
