package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// PostgresAdjustmentRepository implements domain.AdjustmentRepository.
type PostgresAdjustmentRepository struct {
	db     dbExecutor
	logger *logger.Logger
}

// NewPostgresAdjustmentRepository creates a new PostgreSQL adjustment repository.
func NewPostgresAdjustmentRepository(db dbExecutor, log *logger.Logger) domain.AdjustmentRepository {
	return &PostgresAdjustmentRepository{db: db, logger: log}
}

func (r *PostgresAdjustmentRepository) Create(ctx context.Context, adj *domain.InventoryAdjustment) error {
	metadata, err := json.Marshal(adj.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal adjustment metadata: %w", err)
	}
	const query = `
		INSERT INTO kitchen_inventory_adjustments (
			id, inventory_id, kind, quantity_before, quantity_change, quantity_after,
			reason, reference_kind, reference_id, actor_id, metadata, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.db.ExecContext(ctx, query,
		adj.ID, adj.InventoryID, adj.Kind, adj.QuantityBefore, adj.QuantityChange, adj.QuantityAfter,
		adj.Reason, adj.ReferenceKind, adj.ReferenceID, adj.ActorID, metadata, adj.Timestamp)
	if err != nil {
		r.logger.WithError(err).WithField("adjustment_id", adj.ID).Error("failed to create inventory adjustment")
		return fmt.Errorf("failed to create inventory adjustment: %w", err)
	}
	return nil
}

func (r *PostgresAdjustmentRepository) GetByReference(ctx context.Context, refKind domain.ReferenceKind, refID string) ([]*domain.InventoryAdjustment, error) {
	const query = `
		SELECT id, inventory_id, kind, quantity_before, quantity_change, quantity_after,
			   reason, reference_kind, reference_id, actor_id, metadata, occurred_at
		FROM kitchen_inventory_adjustments
		WHERE reference_kind = $1 AND reference_id = $2
		ORDER BY occurred_at ASC`
	rows, err := r.db.QueryContext(ctx, query, refKind, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments by reference: %w", err)
	}
	defer rows.Close()
	return r.scanAdjustments(rows)
}

func (r *PostgresAdjustmentRepository) GetByInventoryID(ctx context.Context, inventoryID string, start, end time.Time) ([]*domain.InventoryAdjustment, error) {
	const query = `
		SELECT id, inventory_id, kind, quantity_before, quantity_change, quantity_after,
			   reason, reference_kind, reference_id, actor_id, metadata, occurred_at
		FROM kitchen_inventory_adjustments
		WHERE inventory_id = $1 AND occurred_at BETWEEN $2 AND $3
		ORDER BY occurred_at ASC`
	rows, err := r.db.QueryContext(ctx, query, inventoryID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments by inventory id: %w", err)
	}
	defer rows.Close()
	return r.scanAdjustments(rows)
}

func (r *PostgresAdjustmentRepository) scanAdjustments(rows *sql.Rows) ([]*domain.InventoryAdjustment, error) {
	var adjustments []*domain.InventoryAdjustment
	for rows.Next() {
		var (
			a                                  domain.InventoryAdjustment
			before, change, after              decimal.Decimal
			metadata                           []byte
		)
		if err := rows.Scan(&a.ID, &a.InventoryID, &a.Kind, &before, &change, &after,
			&a.Reason, &a.ReferenceKind, &a.ReferenceID, &a.ActorID, &metadata, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan inventory adjustment: %w", err)
		}
		a.QuantityBefore, a.QuantityChange, a.QuantityAfter = before, change, after
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal adjustment metadata: %w", err)
			}
		}
		adjustments = append(adjustments, &a)
	}
	return adjustments, rows.Err()
}
