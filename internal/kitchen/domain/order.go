package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of an order, driven by the
// Order Lifecycle Controller (C5).
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsValid reports whether s is one of the known order statuses.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string { return string(s) }

// orderTransitions is the closed status transition DAG for an order. It is
// analogous to the queue item DAG (see queue.go) but collapsed to the
// order's own coarser lifecycle: an order only ever moves forward through
// PENDING -> IN_PROGRESS -> COMPLETED, or is cancelled from either open
// state. COMPLETED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionOrder reports whether moving from 'from' to 'to' is allowed.
func CanTransitionOrder(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderItem is one line item of an order: a menu item, quantity, and the
// unit price captured at order time (before any pricing rule discount).
type OrderItem struct {
	id           string
	menuItemID   string
	name         string
	quantity     int32
	unitPrice    decimal.Decimal
	instructions string
	requirements []StationType
	metadata     map[string]string
}

// NewOrderItem creates a new order item.
func NewOrderItem(id, menuItemID, name string, quantity int32, unitPrice decimal.Decimal, requirements []StationType) (*OrderItem, error) {
	if id == "" {
		return nil, errors.New("item ID is required")
	}
	if menuItemID == "" {
		return nil, errors.New("menu item ID is required")
	}
	if quantity <= 0 {
		return nil, errors.New("item quantity must be greater than 0")
	}
	if unitPrice.IsNegative() {
		return nil, errors.New("item unit price cannot be negative")
	}
	return &OrderItem{
		id:           id,
		menuItemID:   menuItemID,
		name:         name,
		quantity:     quantity,
		unitPrice:    unitPrice,
		requirements: requirements,
		metadata:     make(map[string]string),
	}, nil
}

func (oi *OrderItem) ID() string                  { return oi.id }
func (oi *OrderItem) MenuItemID() string          { return oi.menuItemID }
func (oi *OrderItem) Name() string                { return oi.name }
func (oi *OrderItem) Quantity() int32             { return oi.quantity }
func (oi *OrderItem) UnitPrice() decimal.Decimal  { return oi.unitPrice }
func (oi *OrderItem) Instructions() string        { return oi.instructions }
func (oi *OrderItem) Requirements() []StationType { return oi.requirements }
func (oi *OrderItem) Metadata() map[string]string { return oi.metadata }

// LineTotal returns quantity * unitPrice.
func (oi *OrderItem) LineTotal() decimal.Decimal {
	return oi.unitPrice.Mul(decimal.NewFromInt32(oi.quantity))
}

func (oi *OrderItem) SetInstructions(instructions string) { oi.instructions = instructions }
func (oi *OrderItem) SetMetadata(metadata map[string]string) { oi.metadata = metadata }

// Order is the aggregate driven by the Order Lifecycle Controller. It owns
// the money fields (subtotal/discount/total) produced by the Pricing Rule
// Engine and the status that gates inventory deduction and queue admission.
type Order struct {
	id                  string
	restaurantID        string
	customerID          string
	items               []*OrderItem
	status              OrderStatus
	priority            OrderPriority
	subtotal            decimal.Decimal
	discountAmount      decimal.Decimal
	totalAmount         decimal.Decimal
	appliedRuleIDs      []string
	inventoryDeducted   bool
	specialInstructions string
	createdAt           time.Time
	updatedAt           time.Time
	startedAt           *time.Time
	completedAt         *time.Time
	cancelledAt         *time.Time
}

// OrderPriority is a coarse, manually-settable priority band, distinct from
// the continuously computed priority score owned by C3.
type OrderPriority int32

const (
	OrderPriorityLow    OrderPriority = 1
	OrderPriorityNormal OrderPriority = 2
	OrderPriorityHigh   OrderPriority = 3
	OrderPriorityUrgent OrderPriority = 4
)

// NewOrder creates a new order with validation, computing the subtotal from
// its items. Discount/total start equal to the subtotal until the Pricing
// Rule Engine evaluates applicable rules.
func NewOrder(id, restaurantID, customerID string, items []*OrderItem) (*Order, error) {
	if id == "" {
		return nil, errors.New("order ID is required")
	}
	if customerID == "" {
		return nil, errors.New("customer ID is required")
	}
	if len(items) == 0 {
		return nil, errors.New("order must have at least one item")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	now := time.Now()
	return &Order{
		id:             id,
		restaurantID:   restaurantID,
		customerID:     customerID,
		items:          items,
		status:         OrderStatusPending,
		priority:       OrderPriorityNormal,
		subtotal:       subtotal,
		discountAmount: decimal.Zero,
		totalAmount:    subtotal,
		appliedRuleIDs: []string{},
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructOrder rebuilds an Order from persisted field values, bypassing
// constructor validation and the status transition DAG. Used only by the
// repository layer when hydrating a row; callers elsewhere must go through
// NewOrder + UpdateStatus/ApplyPricing so invariants stay enforced.
func ReconstructOrder(
	id, restaurantID, customerID string,
	items []*OrderItem,
	status OrderStatus,
	priority OrderPriority,
	subtotal, discountAmount, totalAmount decimal.Decimal,
	appliedRuleIDs []string,
	inventoryDeducted bool,
	specialInstructions string,
	createdAt, updatedAt time.Time,
	startedAt, completedAt, cancelledAt *time.Time,
) *Order {
	return &Order{
		id:                  id,
		restaurantID:        restaurantID,
		customerID:          customerID,
		items:               items,
		status:              status,
		priority:            priority,
		subtotal:            subtotal,
		discountAmount:      discountAmount,
		totalAmount:         totalAmount,
		appliedRuleIDs:      appliedRuleIDs,
		inventoryDeducted:   inventoryDeducted,
		specialInstructions: specialInstructions,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
		startedAt:           startedAt,
		completedAt:         completedAt,
		cancelledAt:         cancelledAt,
	}
}

// ReconstructOrderItem rebuilds an order item from persisted field values.
func ReconstructOrderItem(id, menuItemID, name string, quantity int32, unitPrice decimal.Decimal, instructions string, requirements []StationType, metadata map[string]string) *OrderItem {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &OrderItem{
		id:           id,
		menuItemID:   menuItemID,
		name:         name,
		quantity:     quantity,
		unitPrice:    unitPrice,
		instructions: instructions,
		requirements: requirements,
		metadata:     metadata,
	}
}

func (o *Order) ID() string                       { return o.id }
func (o *Order) RestaurantID() string              { return o.restaurantID }
func (o *Order) CustomerID() string                { return o.customerID }
func (o *Order) Items() []*OrderItem                { return o.items }
func (o *Order) Status() OrderStatus                { return o.status }
func (o *Order) Priority() OrderPriority            { return o.priority }
func (o *Order) Subtotal() decimal.Decimal          { return o.subtotal }
func (o *Order) DiscountAmount() decimal.Decimal    { return o.discountAmount }
func (o *Order) TotalAmount() decimal.Decimal       { return o.totalAmount }
func (o *Order) AppliedRuleIDs() []string           { return o.appliedRuleIDs }
func (o *Order) InventoryDeducted() bool            { return o.inventoryDeducted }
func (o *Order) SpecialInstructions() string        { return o.specialInstructions }
func (o *Order) CreatedAt() time.Time                { return o.createdAt }
func (o *Order) UpdatedAt() time.Time                { return o.updatedAt }
func (o *Order) StartedAt() *time.Time               { return o.startedAt }
func (o *Order) CompletedAt() *time.Time             { return o.completedAt }
func (o *Order) CancelledAt() *time.Time             { return o.cancelledAt }

// UpdateStatus changes the order status, enforcing the transition DAG and
// stamping the relevant timestamp.
func (o *Order) UpdateStatus(status OrderStatus) error {
	if !status.IsValid() {
		return errors.New("unknown order status")
	}
	if !CanTransitionOrder(o.status, status) {
		return ErrInvalidTransition(o.status.String(), status.String())
	}

	o.status = status
	o.updatedAt = time.Now()

	now := time.Now()
	switch status {
	case OrderStatusInProgress:
		if o.startedAt == nil {
			o.startedAt = &now
		}
	case OrderStatusCompleted:
		if o.completedAt == nil {
			o.completedAt = &now
		}
	case OrderStatusCancelled:
		if o.cancelledAt == nil {
			o.cancelledAt = &now
		}
	}

	return nil
}

// ApplyPricing records the outcome of a pricing rule evaluation pass.
func (o *Order) ApplyPricing(discount, total decimal.Decimal, ruleIDs []string) {
	o.discountAmount = discount
	o.totalAmount = total
	o.appliedRuleIDs = ruleIDs
	o.updatedAt = time.Now()
}

// MarkInventoryDeducted flips the idempotence guard the lifecycle
// controller checks before deducting inventory a second time for the same
// order.
func (o *Order) MarkInventoryDeducted(deducted bool) {
	o.inventoryDeducted = deducted
	o.updatedAt = time.Now()
}

// SetPriority sets the manually assigned priority band.
func (o *Order) SetPriority(priority OrderPriority) {
	o.priority = priority
	o.updatedAt = time.Now()
}

// SetSpecialInstructions sets free-text special instructions.
func (o *Order) SetSpecialInstructions(instructions string) {
	o.specialInstructions = instructions
	o.updatedAt = time.Now()
}

// GetRequiredStations returns the union of station requirements across all
// items in the order.
func (o *Order) GetRequiredStations() []StationType {
	stationMap := make(map[StationType]bool)
	for _, item := range o.items {
		for _, requirement := range item.requirements {
			stationMap[requirement] = true
		}
	}
	stations := make([]StationType, 0, len(stationMap))
	for station := range stationMap {
		stations = append(stations, station)
	}
	return stations
}

// GetTotalQuantity returns the total quantity of items in the order.
func (o *Order) GetTotalQuantity() int32 {
	total := int32(0)
	for _, item := range o.items {
		total += item.quantity
	}
	return total
}

// GetWaitTime returns how long the order waited before entering IN_PROGRESS.
func (o *Order) GetWaitTime() time.Duration {
	if o.startedAt != nil {
		return o.startedAt.Sub(o.createdAt)
	}
	return time.Since(o.createdAt)
}

// GetProcessingTime returns how long the order has spent IN_PROGRESS.
func (o *Order) GetProcessingTime() time.Duration {
	if o.startedAt == nil {
		return 0
	}
	if o.completedAt != nil {
		return o.completedAt.Sub(*o.startedAt)
	}
	return time.Since(*o.startedAt)
}

// ToDTO converts the domain entity to a data transfer object.
func (o *Order) ToDTO() *OrderDTO {
	itemDTOs := make([]*OrderItemDTO, len(o.items))
	for i, item := range o.items {
		itemDTOs[i] = item.ToDTO()
	}

	return &OrderDTO{
		ID:                  o.id,
		RestaurantID:        o.restaurantID,
		CustomerID:          o.customerID,
		Items:               itemDTOs,
		Status:              o.status,
		Priority:            o.priority,
		Subtotal:            o.subtotal,
		DiscountAmount:      o.discountAmount,
		TotalAmount:         o.totalAmount,
		AppliedRuleIDs:      o.appliedRuleIDs,
		InventoryDeducted:   o.inventoryDeducted,
		SpecialInstructions: o.specialInstructions,
		CreatedAt:           o.createdAt,
		UpdatedAt:           o.updatedAt,
		StartedAt:           o.startedAt,
		CompletedAt:         o.completedAt,
		CancelledAt:         o.cancelledAt,
	}
}

// ToDTO converts an order item to its DTO.
func (oi *OrderItem) ToDTO() *OrderItemDTO {
	return &OrderItemDTO{
		ID:           oi.id,
		MenuItemID:   oi.menuItemID,
		Name:         oi.name,
		Quantity:     oi.quantity,
		UnitPrice:    oi.unitPrice,
		Instructions: oi.instructions,
		Requirements: oi.requirements,
		Metadata:     oi.metadata,
	}
}

// OrderDTO is the wire representation of Order.
type OrderDTO struct {
	ID                  string            `json:"id"`
	RestaurantID        string            `json:"restaurant_id"`
	CustomerID          string            `json:"customer_id"`
	Items               []*OrderItemDTO   `json:"items"`
	Status              OrderStatus       `json:"status"`
	Priority            OrderPriority     `json:"priority"`
	Subtotal            decimal.Decimal   `json:"subtotal"`
	DiscountAmount      decimal.Decimal   `json:"discount_amount"`
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	AppliedRuleIDs      []string          `json:"applied_rule_ids"`
	InventoryDeducted   bool              `json:"inventory_deducted"`
	SpecialInstructions string            `json:"special_instructions"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
}

// OrderItemDTO is the wire representation of OrderItem.
type OrderItemDTO struct {
	ID           string            `json:"id"`
	MenuItemID   string            `json:"menu_item_id"`
	Name         string            `json:"name"`
	Quantity     int32             `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	Instructions string            `json:"instructions"`
	Requirements []StationType     `json:"requirements"`
	Metadata     map[string]string `json:"metadata"`
}
