package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	pkgerrors "github.com/DimaJoyti/go-coffee/pkg/errors"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

// DeductionResult reports the outcome of a deduction pass.
type DeductionResult struct {
	OrderID             string
	Adjustments         []*domain.InventoryAdjustment
	LowStockItems       []string
	ItemsWithoutRecipes []string
	Partial             bool
}

// ReversalResult reports the outcome of a reversal pass.
type ReversalResult struct {
	OrderID     string
	Adjustments []*domain.InventoryAdjustment
}

// DeductionPreview reports what a deduction would require without mutating
// any inventory row.
type DeductionPreview struct {
	Requirements        []domain.RequiredIngredient
	Shortages           []domain.ShortageDetail
	ItemsWithoutRecipes []string
	Sufficient          bool
}

// DeductorService is the Recipe Inventory Deductor (C1): it expands an
// order's menu items into required ingredient quantities via the recipe
// graph (or a legacy flat mapping) and deducts them from inventory inside a
// single locked transaction.
type DeductorService interface {
	DeductForOrder(ctx context.Context, order *domain.Order) (*DeductionResult, error)
	ReverseForOrder(ctx context.Context, orderID, reason, actorID string) (*ReversalResult, error)
	PreviewImpact(ctx context.Context, order *domain.Order) (*DeductionPreview, error)
	PartialFulfill(ctx context.Context, order *domain.Order) (*DeductionResult, error)
	// SetMetrics wires Prometheus counters into the deduction path.
	// Recording is a no-op until this is called.
	SetMetrics(metrics *monitoring.BusinessMetrics)
}

type deductorService struct {
	repoManager             domain.RepositoryManager
	eventPublisher          domain.EventPublisher
	logger                  *logger.Logger
	useRecipeBasedDeduction bool
	flatMappings            map[string]string
	metrics                 *monitoring.BusinessMetrics
}

func (s *deductorService) SetMetrics(metrics *monitoring.BusinessMetrics) {
	s.metrics = metrics
}

// NewDeductorService creates the Recipe Inventory Deductor. flatMappings is
// the legacy menu_item_id -> inventory_id 1:1 table consulted when
// useRecipeBasedDeduction is false, or when a menu item has no recipe.
func NewDeductorService(repoManager domain.RepositoryManager, eventPublisher domain.EventPublisher, flatMappings map[string]string, useRecipeBasedDeduction bool, log *logger.Logger) DeductorService {
	if flatMappings == nil {
		flatMappings = map[string]string{}
	}
	return &deductorService{
		repoManager:             repoManager,
		eventPublisher:          eventPublisher,
		logger:                  log,
		useRecipeBasedDeduction: useRecipeBasedDeduction,
		flatMappings:            flatMappings,
	}
}

func (s *deductorService) DeductForOrder(ctx context.Context, order *domain.Order) (*DeductionResult, error) {
	if order.InventoryDeducted() {
		return nil, domain.ErrAlreadySynced(order.ID())
	}
	s.logger.WithField("order_id", order.ID()).Info("deducting inventory for order")
	return s.deduct(ctx, order, false)
}

func (s *deductorService) PartialFulfill(ctx context.Context, order *domain.Order) (*DeductionResult, error) {
	if order.InventoryDeducted() {
		return nil, domain.ErrAlreadySynced(order.ID())
	}
	s.logger.WithField("order_id", order.ID()).Info("partially fulfilling inventory for order")
	return s.deduct(ctx, order, true)
}

// deduct runs the two-pass check-then-deduct transaction: lock every
// required inventory row in ascending id order, check for shortages, then
// either refuse (allowPartial false) or deduct whatever is available
// (allowPartial true) and record one adjustment row per ingredient.
func (s *deductorService) deduct(ctx context.Context, order *domain.Order, allowPartial bool) (*DeductionResult, error) {
	requirements, itemsWithoutRecipes, err := s.expandOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	if len(requirements) == 0 {
		order.MarkInventoryDeducted(true)
		if err := s.repoManager.Order().Update(ctx, order); err != nil {
			return nil, fmt.Errorf("failed to mark order inventory deducted: %w", err)
		}
		if s.metrics != nil {
			s.metrics.RecordDeduction("ok", order.RestaurantID(), len(itemsWithoutRecipes))
		}
		return &DeductionResult{OrderID: order.ID(), ItemsWithoutRecipes: itemsWithoutRecipes}, nil
	}

	ids := make([]string, 0, len(requirements))
	for id := range requirements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	uow := s.repoManager.NewUnitOfWork()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin deduction transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback(ctx)
		}
	}()

	items, err := uow.InventoryRepo().LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID()] = item
	}

	var shortages []domain.ShortageDetail
	for _, id := range ids {
		req := requirements[id]
		item := byID[id]
		if item.Quantity().LessThan(req.Quantity) {
			shortages = append(shortages, domain.ShortageDetail{
				InventoryID: id,
				Required:    req.Quantity.String(),
				Available:   item.Quantity().String(),
			})
		}
	}
	if len(shortages) > 0 && !allowPartial {
		if s.metrics != nil {
			s.metrics.RecordDeduction("insufficient_stock", order.RestaurantID(), len(itemsWithoutRecipes))
		}
		return nil, domain.ErrInsufficientInventory(shortages)
	}

	var adjustments []*domain.InventoryAdjustment
	var lowStock []string
	for _, id := range ids {
		req := requirements[id]
		item := byID[id]

		change := req.Quantity.Neg()
		if allowPartial && item.Quantity().LessThan(req.Quantity) {
			change = item.Quantity().Neg()
		}
		if change.IsZero() {
			continue
		}

		before := item.Quantity()
		if _, err := item.ApplyChange(change, false); err != nil {
			return nil, fmt.Errorf("failed to apply inventory change for %s: %w", id, err)
		}
		if err := uow.InventoryRepo().Update(ctx, item); err != nil {
			return nil, err
		}
		if item.IsLowStock() {
			lowStock = append(lowStock, id)
		}

		adj, err := domain.NewInventoryAdjustment(
			uuid.New().String(), id, domain.AdjustmentConsumption, before, change,
			"order consumption", domain.ReferenceOrder, order.ID(), "",
			map[string]interface{}{
				"order_item_ids": req.ContributingOrderItems,
				"recipe_ids":     req.ContributingRecipes,
			},
		)
		if err != nil {
			return nil, err
		}
		if err := uow.AdjustmentRepo().Create(ctx, adj); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, adj)
	}

	order.MarkInventoryDeducted(true)
	if err := uow.OrderRepo().Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to mark order inventory deducted: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit deduction transaction: %w", err)
	}
	committed = true

	event := domain.NewInventoryDeductedEvent(order.ID(), len(adjustments), lowStock)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID()).Warn("failed to publish inventory deducted event")
	}

	result := "ok"
	if len(shortages) > 0 {
		result = "partial"
	}
	if s.metrics != nil {
		s.metrics.RecordDeduction(result, order.RestaurantID(), len(itemsWithoutRecipes))
	}

	return &DeductionResult{
		OrderID:             order.ID(),
		Adjustments:         adjustments,
		LowStockItems:       lowStock,
		ItemsWithoutRecipes: itemsWithoutRecipes,
		Partial:             len(shortages) > 0,
	}, nil
}

// ReverseForOrder undoes every adjustment previously recorded against
// orderID, refusing if any of them was already synced to an external
// system (point-of-sale, accounting) since that sync has already acted on
// the original numbers.
func (s *deductorService) ReverseForOrder(ctx context.Context, orderID, reason, actorID string) (*ReversalResult, error) {
	s.logger.WithField("order_id", orderID).Info("reversing inventory deduction for order")

	original, err := s.repoManager.Adjustments().GetByReference(ctx, domain.ReferenceOrder, orderID)
	if err != nil {
		return nil, err
	}
	if len(original) == 0 {
		return &ReversalResult{OrderID: orderID}, nil
	}
	for _, adj := range original {
		if adj.SyncedToExternal() {
			return nil, domain.ErrAlreadySynced(orderID)
		}
	}

	ids := make([]string, 0, len(original))
	seen := make(map[string]bool, len(original))
	for _, adj := range original {
		if !seen[adj.InventoryID] {
			seen[adj.InventoryID] = true
			ids = append(ids, adj.InventoryID)
		}
	}
	sort.Strings(ids)

	uow := s.repoManager.NewUnitOfWork()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin reversal transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback(ctx)
		}
	}()

	items, err := uow.InventoryRepo().LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID()] = item
	}

	reversals := make([]*domain.InventoryAdjustment, 0, len(original))
	for _, adj := range original {
		item := byID[adj.InventoryID]
		before := item.Quantity()
		change := adj.QuantityChange.Neg()
		if _, err := item.ApplyChange(change, true); err != nil {
			return nil, fmt.Errorf("failed to apply reversal for %s: %w", adj.InventoryID, err)
		}
		if err := uow.InventoryRepo().Update(ctx, item); err != nil {
			return nil, err
		}

		rev, err := domain.NewInventoryAdjustment(
			uuid.New().String(), adj.InventoryID, domain.AdjustmentReturn, before, change,
			reason, domain.ReferenceOrderReversal, orderID, actorID,
			map[string]interface{}{"original_adjustment_id": adj.ID},
		)
		if err != nil {
			return nil, err
		}
		if err := uow.AdjustmentRepo().Create(ctx, rev); err != nil {
			return nil, err
		}
		reversals = append(reversals, rev)
	}

	if order, err := uow.OrderRepo().GetByID(ctx, orderID); err == nil {
		order.MarkInventoryDeducted(false)
		if err := uow.OrderRepo().Update(ctx, order); err != nil {
			return nil, fmt.Errorf("failed to clear order inventory deducted flag: %w", err)
		}
	} else if !isNotFoundErr(err) {
		return nil, err
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reversal transaction: %w", err)
	}
	committed = true

	event := domain.NewInventoryReversedEvent(orderID, reason, len(reversals))
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to publish inventory reversed event")
	}

	return &ReversalResult{OrderID: orderID, Adjustments: reversals}, nil
}

// PreviewImpact expands an order's requirements and checks them against
// current inventory without locking or mutating any row.
func (s *deductorService) PreviewImpact(ctx context.Context, order *domain.Order) (*DeductionPreview, error) {
	requirements, itemsWithoutRecipes, err := s.expandOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	reqs := make([]domain.RequiredIngredient, 0, len(requirements))
	var shortages []domain.ShortageDetail
	for id, req := range requirements {
		reqs = append(reqs, *req)

		item, err := s.repoManager.Inventory().GetByID(ctx, id)
		if err != nil {
			if isNotFoundErr(err) {
				shortages = append(shortages, domain.ShortageDetail{
					InventoryID: id, Required: req.Quantity.String(), Available: "0",
				})
				continue
			}
			return nil, err
		}
		if item.Quantity().LessThan(req.Quantity) {
			shortages = append(shortages, domain.ShortageDetail{
				InventoryID: id, Required: req.Quantity.String(), Available: item.Quantity().String(),
			})
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].InventoryID < reqs[j].InventoryID })

	return &DeductionPreview{Requirements: reqs, Shortages: shortages, ItemsWithoutRecipes: itemsWithoutRecipes, Sufficient: len(shortages) == 0}, nil
}

// expandOrder accumulates required ingredient quantities across every item
// of order, recursing through the recipe/sub-recipe graph. It also reports
// the menu item ids that have no recipe configured -- per spec.md §4.1 these
// contribute zero ingredient load rather than failing the whole order.
func (s *deductorService) expandOrder(ctx context.Context, order *domain.Order) (map[string]*domain.RequiredIngredient, []string, error) {
	acc := make(map[string]*domain.RequiredIngredient)
	var itemsWithoutRecipes []string
	for _, item := range order.Items() {
		hasRecipe, err := s.expandOrderItem(ctx, item, acc)
		if err != nil {
			return nil, nil, err
		}
		if !hasRecipe {
			itemsWithoutRecipes = appendUnique(itemsWithoutRecipes, item.MenuItemID())
		}
	}
	return acc, itemsWithoutRecipes, nil
}

// expandOrderItem expands a single order item's ingredient requirements,
// reporting whether a recipe backed the expansion (false for the legacy flat
// mapping path and for menu items with neither a recipe nor a mapping).
func (s *deductorService) expandOrderItem(ctx context.Context, item *domain.OrderItem, acc map[string]*domain.RequiredIngredient) (bool, error) {
	qty := decimal.NewFromInt32(item.Quantity())

	if !s.useRecipeBasedDeduction {
		return false, s.expandFlat(item, qty, acc)
	}

	recipe, err := s.repoManager.Recipes().GetByMenuItemID(ctx, item.MenuItemID())
	if err != nil {
		if isNotFoundErr(err) {
			return false, s.expandFlat(item, qty, acc)
		}
		return false, err
	}

	visited := map[string]bool{recipe.ID: true}
	return true, s.expandRecipe(ctx, recipe, qty, item.ID(), visited, 0, acc)
}

// expandFlat handles the legacy direct menu_item_id -> inventory_id
// mapping path for restaurants that never configured a recipe graph.
func (s *deductorService) expandFlat(item *domain.OrderItem, qty decimal.Decimal, acc map[string]*domain.RequiredIngredient) error {
	inventoryID, ok := s.flatMappings[item.MenuItemID()]
	if !ok {
		s.logger.WithField("menu_item_id", item.MenuItemID()).Warn("no recipe or flat inventory mapping for menu item, skipping deduction")
		return nil
	}
	accumulate(acc, inventoryID, qty, item.ID(), "")
	return nil
}

// expandRecipe walks recipe's own ingredients and sub-recipes, scaling by
// qty (the quantity of the parent in the order). visited guards against a
// sub-recipe cycle along the current branch only -- siblings that share a
// child recipe are each expanded independently. depth is bounded by
// domain.MaxSubRecipeDepth regardless of cycles; both guards stop silently
// rather than fail the whole order over a data quality issue upstream.
func (s *deductorService) expandRecipe(ctx context.Context, recipe *domain.Recipe, qty decimal.Decimal, orderItemID string, visited map[string]bool, depth int, acc map[string]*domain.RequiredIngredient) error {
	if depth > domain.MaxSubRecipeDepth {
		s.logger.WithField("recipe_id", recipe.ID).Warn("sub-recipe depth limit reached, truncating expansion")
		return nil
	}

	for _, ing := range recipe.Ingredients {
		if ing.Optional {
			continue
		}
		accumulate(acc, ing.InventoryID, ing.Quantity.Mul(qty), orderItemID, recipe.ID)
	}

	for _, edge := range recipe.SubRecipes {
		if visited[edge.ChildRecipeID] {
			continue
		}
		child, err := s.repoManager.Recipes().GetByID(ctx, edge.ChildRecipeID)
		if err != nil {
			if isNotFoundErr(err) {
				s.logger.WithField("recipe_id", edge.ChildRecipeID).Warn("referenced sub-recipe not found, skipping branch")
				continue
			}
			return err
		}

		childVisited := make(map[string]bool, len(visited)+1)
		for id := range visited {
			childVisited[id] = true
		}
		childVisited[edge.ChildRecipeID] = true

		if err := s.expandRecipe(ctx, child, qty.Mul(edge.Multiplier), orderItemID, childVisited, depth+1, acc); err != nil {
			return err
		}
	}
	return nil
}

func accumulate(acc map[string]*domain.RequiredIngredient, inventoryID string, qty decimal.Decimal, orderItemID, recipeID string) {
	req, ok := acc[inventoryID]
	if !ok {
		req = &domain.RequiredIngredient{InventoryID: inventoryID, Quantity: decimal.Zero}
		acc[inventoryID] = req
	}
	req.Quantity = req.Quantity.Add(qty)
	req.ContributingOrderItems = appendUnique(req.ContributingOrderItems, orderItemID)
	if recipeID != "" {
		req.ContributingRecipes = appendUnique(req.ContributingRecipes, recipeID)
	}
}

func appendUnique(ss []string, v string) []string {
	for _, s := range ss {
		if s == v {
			return ss
		}
	}
	return append(ss, v)
}

// isNotFoundErr reports whether err is a domain.ErrNotFound-coded AppError.
func isNotFoundErr(err error) bool {
	appErr, ok := err.(*pkgerrors.AppError)
	if !ok {
		return false
	}
	return appErr.Code == domain.CodeNotFound
}
