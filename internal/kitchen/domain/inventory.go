package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentKind classifies an inventory adjustment row.
type AdjustmentKind string

const (
	AdjustmentConsumption AdjustmentKind = "CONSUMPTION"
	AdjustmentReturn      AdjustmentKind = "RETURN"
	AdjustmentManual      AdjustmentKind = "MANUAL"
)

// ReferenceKind classifies what an adjustment was triggered by.
type ReferenceKind string

const (
	ReferenceOrder          ReferenceKind = "order"
	ReferenceOrderReversal  ReferenceKind = "order_reversal"
	ReferenceManual         ReferenceKind = "manual"
)

// DeductionMode selects when/how inventory is deducted for an order.
type DeductionMode string

const (
	DeductionOnStart      DeductionMode = "ON_START"
	DeductionOnCompletion DeductionMode = "ON_COMPLETION"
	DeductionPartial      DeductionMode = "PARTIAL"
)

// InventoryItem is a stock-keeping unit tracked by the Recipe Inventory
// Deductor. Mutated only through typed adjustments.
type InventoryItem struct {
	id               string
	restaurantID     string
	name             string
	quantity         decimal.Decimal
	unit             string
	lowStockThreshold decimal.Decimal
	deletedAt        *time.Time
}

// NewInventoryItem constructs an InventoryItem, rejecting a negative
// starting quantity.
func NewInventoryItem(id, restaurantID, name string, quantity decimal.Decimal, unit string, lowStockThreshold decimal.Decimal) (*InventoryItem, error) {
	if id == "" {
		return nil, errors.New("inventory item id is required")
	}
	if name == "" {
		return nil, errors.New("inventory item name is required")
	}
	if quantity.IsNegative() {
		return nil, errors.New("inventory item quantity cannot be negative")
	}
	return &InventoryItem{
		id:                id,
		restaurantID:      restaurantID,
		name:              name,
		quantity:          quantity,
		unit:              unit,
		lowStockThreshold: lowStockThreshold,
	}, nil
}

// ReconstructInventoryItem rebuilds an InventoryItem from persisted field
// values, including the soft-delete marker that NewInventoryItem has no
// constructor argument for.
func ReconstructInventoryItem(id, restaurantID, name string, quantity decimal.Decimal, unit string, lowStockThreshold decimal.Decimal, deletedAt *time.Time) *InventoryItem {
	return &InventoryItem{
		id:                id,
		restaurantID:      restaurantID,
		name:              name,
		quantity:          quantity,
		unit:              unit,
		lowStockThreshold: lowStockThreshold,
		deletedAt:         deletedAt,
	}
}

func (i *InventoryItem) ID() string                       { return i.id }
func (i *InventoryItem) RestaurantID() string              { return i.restaurantID }
func (i *InventoryItem) Name() string                       { return i.name }
func (i *InventoryItem) Quantity() decimal.Decimal          { return i.quantity }
func (i *InventoryItem) Unit() string                       { return i.unit }
func (i *InventoryItem) LowStockThreshold() decimal.Decimal { return i.lowStockThreshold }
func (i *InventoryItem) IsDeleted() bool                    { return i.deletedAt != nil }
func (i *InventoryItem) IsLowStock() bool                   { return i.quantity.LessThanOrEqual(i.lowStockThreshold) }

// ApplyChange mutates the item's quantity by change (signed), returning the
// new quantity. Callers enforce the non-negative invariant unless the
// caller's config allows negative inventory.
func (i *InventoryItem) ApplyChange(change decimal.Decimal, allowNegative bool) (decimal.Decimal, error) {
	newQty := i.quantity.Add(change)
	if newQty.IsNegative() && !allowNegative {
		return decimal.Zero, errors.New("change would make inventory quantity negative")
	}
	i.quantity = newQty
	return newQty, nil
}

// InventoryAdjustment is an immutable audit row recording a single
// inventory quantity change.
type InventoryAdjustment struct {
	ID              string
	InventoryID     string
	Kind            AdjustmentKind
	QuantityBefore  decimal.Decimal
	QuantityChange  decimal.Decimal
	QuantityAfter   decimal.Decimal
	Reason          string
	ReferenceKind   ReferenceKind
	ReferenceID     string
	ActorID         string
	Metadata        map[string]interface{}
	Timestamp       time.Time
}

// NewInventoryAdjustment computes after = before + change, so the row's
// before/change/after arithmetic holds by construction; it never returns
// an error.
func NewInventoryAdjustment(id, inventoryID string, kind AdjustmentKind, before, change decimal.Decimal, reason string, refKind ReferenceKind, refID, actorID string, metadata map[string]interface{}) (*InventoryAdjustment, error) {
	after := before.Add(change)
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &InventoryAdjustment{
		ID:             id,
		InventoryID:    inventoryID,
		Kind:           kind,
		QuantityBefore: before,
		QuantityChange: change,
		QuantityAfter:  after,
		Reason:         reason,
		ReferenceKind:  refKind,
		ReferenceID:    refID,
		ActorID:        actorID,
		Metadata:       metadata,
		Timestamp:      time.Now(),
	}, nil
}

// SyncedToExternal reports whether this adjustment carries the
// synced_to_external metadata flag that guards reversal.
func (a *InventoryAdjustment) SyncedToExternal() bool {
	v, ok := a.Metadata["synced_to_external"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	InventoryID string
	Quantity    decimal.Decimal
	Unit        string
	Optional    bool
}

// SubRecipeEdge references a child recipe consumed by a parent recipe,
// scaled by Multiplier.
type SubRecipeEdge struct {
	ChildRecipeID string
	Multiplier    decimal.Decimal
}

// Recipe is the 1:1 ingredient/sub-recipe graph for a menu item.
type Recipe struct {
	ID          string
	MenuItemID  string
	Ingredients []RecipeIngredient
	SubRecipes  []SubRecipeEdge
}

// MaxSubRecipeDepth bounds recursive sub-recipe expansion regardless of
// upstream data quality; paired with the per-branch visited-set cycle
// guard in the deductor.
const MaxSubRecipeDepth = 10

// RequiredIngredient accumulates, across every order item that pulls in a
// given inventory id, the total quantity needed plus provenance for the
// adjustment metadata.
type RequiredIngredient struct {
	InventoryID           string
	Quantity              decimal.Decimal
	Unit                  string
	ContributingOrderItems []string
	ContributingRecipes    []string
}
