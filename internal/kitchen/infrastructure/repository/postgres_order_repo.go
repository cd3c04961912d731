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

// PostgresOrderRepository implements domain.OrderRepository. Order items
// are stored as a JSONB column: they are always read/written as part of
// the order aggregate by the lifecycle controller, never queried
// independently.
type PostgresOrderRepository struct {
	db     dbExecutor
	logger *logger.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db dbExecutor, log *logger.Logger) domain.OrderRepository {
	return &PostgresOrderRepository{db: db, logger: log}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	items, err := marshalOrderItems(order.Items())
	if err != nil {
		return err
	}
	applied, err := json.Marshal(order.AppliedRuleIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal applied rule ids: %w", err)
	}
	const query = `
		INSERT INTO kitchen_orders (
			id, restaurant_id, customer_id, items, status, priority, subtotal,
			discount_amount, total_amount, applied_rule_ids, inventory_deducted,
			special_instructions, created_at, updated_at, started_at, completed_at, cancelled_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err = r.db.ExecContext(ctx, query,
		order.ID(), order.RestaurantID(), order.CustomerID(), items, order.Status(), order.Priority(),
		order.Subtotal(), order.DiscountAmount(), order.TotalAmount(), applied, order.InventoryDeducted(),
		order.SpecialInstructions(), order.CreatedAt(), order.UpdatedAt(), order.StartedAt(),
		order.CompletedAt(), order.CancelledAt())
	if err != nil {
		r.logger.WithError(err).WithField("order_id", order.ID()).Error("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+` WHERE id = $1`, id)
	return r.scanOrder(row, id)
}

func (r *PostgresOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	items, err := marshalOrderItems(order.Items())
	if err != nil {
		return err
	}
	applied, err := json.Marshal(order.AppliedRuleIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal applied rule ids: %w", err)
	}
	const query = `
		UPDATE kitchen_orders SET
			items = $2, status = $3, priority = $4, subtotal = $5, discount_amount = $6,
			total_amount = $7, applied_rule_ids = $8, inventory_deducted = $9,
			special_instructions = $10, updated_at = $11, started_at = $12, completed_at = $13,
			cancelled_at = $14
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		order.ID(), items, order.Status(), order.Priority(), order.Subtotal(), order.DiscountAmount(),
		order.TotalAmount(), applied, order.InventoryDeducted(), order.SpecialInstructions(),
		order.UpdatedAt(), order.StartedAt(), order.CompletedAt(), order.CancelledAt())
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return mustAffectOne(result, "order", order.ID())
}

func (r *PostgresOrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM kitchen_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return mustAffectOne(result, "order", id)
}

func (r *PostgresOrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	return r.scanOrders(rows)
}

func (r *PostgresOrderRepository) GetByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` WHERE status = $1 ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	defer rows.Close()
	return r.scanOrders(rows)
}

func (r *PostgresOrderRepository) GetByPriority(ctx context.Context, priority domain.OrderPriority) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` WHERE priority = $1 ORDER BY created_at ASC`, priority)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by priority: %w", err)
	}
	defer rows.Close()
	return r.scanOrders(rows)
}

func (r *PostgresOrderRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by customer: %w", err)
	}
	defer rows.Close()
	return r.scanOrders(rows)
}

// GetByStaffID is unused by the Order Orchestration Core (staff assignment
// belongs to the legacy equipment/staff scheduling model); it always
// returns an empty slice to satisfy the shared OrderRepository interface.
func (r *PostgresOrderRepository) GetByStaffID(ctx context.Context, staffID string) ([]*domain.Order, error) {
	return nil, nil
}

func (r *PostgresOrderRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by date range: %w", err)
	}
	defer rows.Close()
	return r.scanOrders(rows)
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE kitchen_orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return mustAffectOne(result, "order", id)
}

func (r *PostgresOrderRepository) UpdatePriority(ctx context.Context, id string, priority domain.OrderPriority) error {
	result, err := r.db.ExecContext(ctx, `UPDATE kitchen_orders SET priority = $2, updated_at = now() WHERE id = $1`, id, priority)
	if err != nil {
		return fmt.Errorf("failed to update order priority: %w", err)
	}
	return mustAffectOne(result, "order", id)
}

// AssignStaff/AssignEquipment are no-ops for this core: staff/equipment
// scheduling is out of scope (see DESIGN.md), kept only so
// PostgresOrderRepository still satisfies domain.OrderRepository.
func (r *PostgresOrderRepository) AssignStaff(ctx context.Context, id string, staffID string) error { return nil }
func (r *PostgresOrderRepository) AssignEquipment(ctx context.Context, id string, equipmentIDs []string) error {
	return nil
}

func (r *PostgresOrderRepository) GetOverdue(ctx context.Context) ([]*domain.Order, error) {
	const query = orderSelect + ` WHERE status = $1 AND started_at IS NOT NULL ORDER BY started_at ASC`
	rows, err := r.db.QueryContext(ctx, query, domain.OrderStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue orders: %w", err)
	}
	defer rows.Close()
	return r.scanOrders(rows)
}

// GetByRequiredStation is unused: station routing happens downstream in
// the queue sequencer (C4), not on the order aggregate itself.
func (r *PostgresOrderRepository) GetByRequiredStation(ctx context.Context, stationType domain.StationType) ([]*domain.Order, error) {
	return nil, nil
}

func (r *PostgresOrderRepository) GetCompletionStats(ctx context.Context, start, end time.Time) (*domain.OrderCompletionStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))) FILTER (WHERE completed_at IS NOT NULL AND started_at IS NOT NULL), 0)
		FROM kitchen_orders WHERE created_at BETWEEN $1 AND $2`
	stats := &domain.OrderCompletionStats{CalculatedAt: time.Now()}
	err := r.db.QueryRowContext(ctx, query, start, end, domain.OrderStatusCompleted, domain.OrderStatusCancelled).
		Scan(&stats.TotalOrders, &stats.CompletedOrders, &stats.CancelledOrders, &stats.AverageTime)
	if err != nil {
		return nil, fmt.Errorf("failed to compute completion stats: %w", err)
	}
	if stats.TotalOrders > 0 {
		stats.CompletionRate = float32(stats.CompletedOrders) / float32(stats.TotalOrders)
	}
	return stats, nil
}

func (r *PostgresOrderRepository) GetAverageProcessingTime(ctx context.Context, start, end time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))), 0)
		FROM kitchen_orders
		WHERE created_at BETWEEN $1 AND $2 AND completed_at IS NOT NULL AND started_at IS NOT NULL`
	var seconds float64
	if err := r.db.QueryRowContext(ctx, query, start, end).Scan(&seconds); err != nil {
		return 0, fmt.Errorf("failed to compute average processing time: %w", err)
	}
	return seconds, nil
}

func (r *PostgresOrderRepository) GetOrderCountByStatus(ctx context.Context) (map[domain.OrderStatus]int32, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM kitchen_orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()
	counts := make(map[domain.OrderStatus]int32)
	for rows.Next() {
		var status domain.OrderStatus
		var count int32
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

const orderSelect = `
	SELECT id, restaurant_id, customer_id, items, status, priority, subtotal, discount_amount,
		   total_amount, applied_rule_ids, inventory_deducted, special_instructions,
		   created_at, updated_at, started_at, completed_at, cancelled_at
	FROM kitchen_orders`

func marshalOrderItems(items []*domain.OrderItem) ([]byte, error) {
	dtos := make([]*domain.OrderItemDTO, len(items))
	for i, item := range items {
		dtos[i] = item.ToDTO()
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}
	return data, nil
}

func unmarshalOrderItems(data []byte) ([]*domain.OrderItem, error) {
	var dtos []*domain.OrderItemDTO
	if len(data) > 0 {
		if err := json.Unmarshal(data, &dtos); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
	}
	items := make([]*domain.OrderItem, len(dtos))
	for i, dto := range dtos {
		items[i] = domain.ReconstructOrderItem(dto.ID, dto.MenuItemID, dto.Name, dto.Quantity, dto.UnitPrice, dto.Instructions, dto.Requirements, dto.Metadata)
	}
	return items, nil
}

func (r *PostgresOrderRepository) scanOrder(row *sql.Row, lookupID string) (*domain.Order, error) {
	var (
		id, restaurantID, customerID, specialInstructions string
		itemsRaw, appliedRaw                               []byte
		status                                              domain.OrderStatus
		priority                                             domain.OrderPriority
		subtotal, discountAmount, totalAmount                decimal.Decimal
		inventoryDeducted                                    bool
		createdAt, updatedAt                                 time.Time
		startedAt, completedAt, cancelledAt                  sql.NullTime
	)
	if err := row.Scan(&id, &restaurantID, &customerID, &itemsRaw, &status, &priority, &subtotal,
		&discountAmount, &totalAmount, &appliedRaw, &inventoryDeducted, &specialInstructions,
		&createdAt, &updatedAt, &startedAt, &completedAt, &cancelledAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("order", lookupID)
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return r.hydrateOrder(id, restaurantID, customerID, itemsRaw, appliedRaw, status, priority,
		subtotal, discountAmount, totalAmount, inventoryDeducted, specialInstructions,
		createdAt, updatedAt, startedAt, completedAt, cancelledAt)
}

func (r *PostgresOrderRepository) scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		var (
			id, restaurantID, customerID, specialInstructions string
			itemsRaw, appliedRaw                               []byte
			status                                              domain.OrderStatus
			priority                                             domain.OrderPriority
			subtotal, discountAmount, totalAmount                decimal.Decimal
			inventoryDeducted                                    bool
			createdAt, updatedAt                                 time.Time
			startedAt, completedAt, cancelledAt                  sql.NullTime
		)
		if err := rows.Scan(&id, &restaurantID, &customerID, &itemsRaw, &status, &priority, &subtotal,
			&discountAmount, &totalAmount, &appliedRaw, &inventoryDeducted, &specialInstructions,
			&createdAt, &updatedAt, &startedAt, &completedAt, &cancelledAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order, err := r.hydrateOrder(id, restaurantID, customerID, itemsRaw, appliedRaw, status, priority,
			subtotal, discountAmount, totalAmount, inventoryDeducted, specialInstructions,
			createdAt, updatedAt, startedAt, completedAt, cancelledAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *PostgresOrderRepository) hydrateOrder(
	id, restaurantID, customerID string,
	itemsRaw, appliedRaw []byte,
	status domain.OrderStatus,
	priority domain.OrderPriority,
	subtotal, discountAmount, totalAmount decimal.Decimal,
	inventoryDeducted bool,
	specialInstructions string,
	createdAt, updatedAt time.Time,
	startedAt, completedAt, cancelledAt sql.NullTime,
) (*domain.Order, error) {
	items, err := unmarshalOrderItems(itemsRaw)
	if err != nil {
		return nil, err
	}
	var appliedRuleIDs []string
	if len(appliedRaw) > 0 {
		if err := json.Unmarshal(appliedRaw, &appliedRuleIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal applied rule ids: %w", err)
		}
	}
	return domain.ReconstructOrder(id, restaurantID, customerID, items, status, priority,
		subtotal, discountAmount, totalAmount, appliedRuleIDs, inventoryDeducted, specialInstructions,
		createdAt, updatedAt, nullTimePtr(startedAt), nullTimePtr(completedAt), nullTimePtr(cancelledAt)), nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
