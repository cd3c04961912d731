package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

type deductorServiceFixture struct {
	repoManager    *mockRepositoryManager
	inventoryRepo  *mockInventoryRepository
	adjustmentRepo *mockAdjustmentRepository
	recipeRepo     *mockRecipeRepository
	uowOrderRepo   *mockOrderRepository
	uow            *mockUnitOfWork
	eventPublisher *mockEventPublisher
}

func newDeductorServiceFixture() *deductorServiceFixture {
	return &deductorServiceFixture{
		repoManager:    new(mockRepositoryManager),
		inventoryRepo:  new(mockInventoryRepository),
		adjustmentRepo: new(mockAdjustmentRepository),
		recipeRepo:     new(mockRecipeRepository),
		uowOrderRepo:   new(mockOrderRepository),
		uow:            new(mockUnitOfWork),
		eventPublisher: new(mockEventPublisher),
	}
}

func (f *deductorServiceFixture) build(flatMappings map[string]string, useRecipeBasedDeduction bool) DeductorService {
	return NewDeductorService(f.repoManager, f.eventPublisher, flatMappings, useRecipeBasedDeduction, logger.New("test"))
}

// stubUOW wires the transaction boilerplate every deduct/reverse path drives:
// NewUnitOfWork -> Begin -> repo accessors -> Commit, with Rollback stubbed
// unconditionally since the deferred rollback always calls it when
// committed is still false by the time the function returns.
func (f *deductorServiceFixture) stubUOW(t *testing.T) {
	t.Helper()
	f.repoManager.On("NewUnitOfWork").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Rollback", mock.Anything).Return(nil)
	f.uow.On("InventoryRepo").Return(f.inventoryRepo)
	f.uow.On("AdjustmentRepo").Return(f.adjustmentRepo)
	f.uow.On("OrderRepo").Return(f.uowOrderRepo)
	f.uow.On("Commit", mock.Anything).Return(nil)
}

func deductorTestOrder(t *testing.T, qty int32) *domain.Order {
	t.Helper()
	item, err := domain.NewOrderItem("item-1", "menu-1", "Latte", qty, decimal.NewFromInt(4), nil)
	require.NoError(t, err)
	order, err := domain.NewOrder("order-1", "restaurant-1", "customer-1", []*domain.OrderItem{item})
	require.NoError(t, err)
	return order
}

func testInventoryItem(t *testing.T, id string, quantity int64) *domain.InventoryItem {
	t.Helper()
	item, err := domain.NewInventoryItem(id, "restaurant-1", "Milk", decimal.NewFromInt(quantity), "l", decimal.NewFromInt(2))
	require.NoError(t, err)
	return item
}

func TestDeductorService_DeductForOrder_FlatMappingDeductsAndMarksOrder(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 2)
	milk := testInventoryItem(t, "inv-milk", 10)

	f.stubUOW(t)
	f.inventoryRepo.On("LockForUpdate", mock.Anything, []string{"inv-milk"}).Return([]*domain.InventoryItem{milk}, nil)
	f.inventoryRepo.On("Update", mock.Anything, milk).Return(nil)
	f.adjustmentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InventoryAdjustment")).Return(nil)
	f.uowOrderRepo.On("Update", mock.Anything, order).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, false)
	result, err := svc.DeductForOrder(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, result.Partial)
	assert.Len(t, result.Adjustments, 1)
	assert.True(t, order.InventoryDeducted())
	assert.True(t, milk.Quantity().Equal(decimal.NewFromInt(8)))

	f.uow.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestDeductorService_DeductForOrder_RefusesWhenAlreadyDeducted(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 2)
	order.MarkInventoryDeducted(true)

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, false)
	_, err := svc.DeductForOrder(context.Background(), order)
	assert.Error(t, err)

	f.repoManager.AssertNotCalled(t, "NewUnitOfWork")
}

func TestDeductorService_DeductForOrder_RefusesOnShortageWithoutPartial(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 5)
	milk := testInventoryItem(t, "inv-milk", 1)

	f.stubUOW(t)
	f.inventoryRepo.On("LockForUpdate", mock.Anything, []string{"inv-milk"}).Return([]*domain.InventoryItem{milk}, nil)

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, false)
	_, err := svc.DeductForOrder(context.Background(), order)
	assert.Error(t, err)

	f.inventoryRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.uow.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestDeductorService_PartialFulfill_DeductsAvailableAmountOnShortage(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 5)
	milk := testInventoryItem(t, "inv-milk", 1)

	f.stubUOW(t)
	f.inventoryRepo.On("LockForUpdate", mock.Anything, []string{"inv-milk"}).Return([]*domain.InventoryItem{milk}, nil)
	f.inventoryRepo.On("Update", mock.Anything, milk).Return(nil)
	f.adjustmentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InventoryAdjustment")).Return(nil)
	f.uowOrderRepo.On("Update", mock.Anything, order).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, false)
	result, err := svc.PartialFulfill(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Partial)
	assert.True(t, milk.Quantity().IsZero())
}

func TestDeductorService_ReverseForOrder_ReversesAdjustmentsAndClearsFlag(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 2)
	order.MarkInventoryDeducted(true)
	milk := testInventoryItem(t, "inv-milk", 8)

	original := []*domain.InventoryAdjustment{
		{ID: "adj-1", InventoryID: "inv-milk", QuantityChange: decimal.NewFromInt(-2), Metadata: map[string]interface{}{}},
	}

	f.repoManager.On("Adjustments").Return(f.adjustmentRepo)
	f.adjustmentRepo.On("GetByReference", mock.Anything, domain.ReferenceOrder, order.ID()).Return(original, nil)
	f.stubUOW(t)
	f.inventoryRepo.On("LockForUpdate", mock.Anything, []string{"inv-milk"}).Return([]*domain.InventoryItem{milk}, nil)
	f.inventoryRepo.On("Update", mock.Anything, milk).Return(nil)
	f.adjustmentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InventoryAdjustment")).Return(nil)
	f.uowOrderRepo.On("GetByID", mock.Anything, order.ID()).Return(order, nil)
	f.uowOrderRepo.On("Update", mock.Anything, order).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build(nil, false)
	result, err := svc.ReverseForOrder(context.Background(), order.ID(), "customer changed mind", "staff-1")
	require.NoError(t, err)
	assert.Len(t, result.Adjustments, 1)
	assert.True(t, milk.Quantity().Equal(decimal.NewFromInt(10)))
	assert.False(t, order.InventoryDeducted())
}

func TestDeductorService_ReverseForOrder_RefusesWhenAlreadySyncedToExternal(t *testing.T) {
	f := newDeductorServiceFixture()
	original := []*domain.InventoryAdjustment{
		{ID: "adj-1", InventoryID: "inv-milk", Metadata: map[string]interface{}{"synced_to_external": true}},
	}
	f.repoManager.On("Adjustments").Return(f.adjustmentRepo)
	f.adjustmentRepo.On("GetByReference", mock.Anything, domain.ReferenceOrder, "order-1").Return(original, nil)

	svc := f.build(nil, false)
	_, err := svc.ReverseForOrder(context.Background(), "order-1", "reason", "staff-1")
	assert.Error(t, err)

	f.repoManager.AssertNotCalled(t, "NewUnitOfWork")
}

func TestDeductorService_ReverseForOrder_NoopWhenNoAdjustmentsRecorded(t *testing.T) {
	f := newDeductorServiceFixture()
	f.repoManager.On("Adjustments").Return(f.adjustmentRepo)
	f.adjustmentRepo.On("GetByReference", mock.Anything, domain.ReferenceOrder, "order-1").Return([]*domain.InventoryAdjustment{}, nil)

	svc := f.build(nil, false)
	result, err := svc.ReverseForOrder(context.Background(), "order-1", "reason", "staff-1")
	require.NoError(t, err)
	assert.Empty(t, result.Adjustments)

	f.repoManager.AssertNotCalled(t, "NewUnitOfWork")
}

func TestDeductorService_PreviewImpact_ReportsShortageForMissingInventory(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 3)

	f.repoManager.On("Inventory").Return(f.inventoryRepo)
	f.inventoryRepo.On("GetByID", mock.Anything, "inv-milk").Return(nil, domain.ErrNotFound("inventory_item", "inv-milk"))

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, false)
	preview, err := svc.PreviewImpact(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, preview.Sufficient)
	require.Len(t, preview.Shortages, 1)
	assert.Equal(t, "inv-milk", preview.Shortages[0].InventoryID)
	assert.Equal(t, "0", preview.Shortages[0].Available)
}

func TestDeductorService_PreviewImpact_SufficientWhenInventoryCoversRequirement(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 2)
	milk := testInventoryItem(t, "inv-milk", 10)

	f.repoManager.On("Inventory").Return(f.inventoryRepo)
	f.inventoryRepo.On("GetByID", mock.Anything, "inv-milk").Return(milk, nil)

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, false)
	preview, err := svc.PreviewImpact(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, preview.Sufficient)
	assert.Empty(t, preview.Shortages)
	require.Len(t, preview.Requirements, 1)
	assert.True(t, preview.Requirements[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestDeductorService_RecipeBasedDeduction_ExpandsSubRecipes(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 1)

	parent := &domain.Recipe{
		ID:         "recipe-latte",
		MenuItemID: "menu-1",
		Ingredients: []domain.RecipeIngredient{
			{InventoryID: "inv-milk", Quantity: decimal.NewFromInt(2)},
			{InventoryID: "inv-optional", Quantity: decimal.NewFromInt(1), Optional: true},
		},
		SubRecipes: []domain.SubRecipeEdge{
			{ChildRecipeID: "recipe-espresso", Multiplier: decimal.NewFromInt(2)},
		},
	}
	child := &domain.Recipe{
		ID:         "recipe-espresso",
		MenuItemID: "",
		Ingredients: []domain.RecipeIngredient{
			{InventoryID: "inv-beans", Quantity: decimal.NewFromInt(1)},
		},
	}
	milk := testInventoryItem(t, "inv-milk", 10)
	beans := testInventoryItem(t, "inv-beans", 10)

	f.repoManager.On("Recipes").Return(f.recipeRepo)
	f.recipeRepo.On("GetByMenuItemID", mock.Anything, "menu-1").Return(parent, nil)
	f.recipeRepo.On("GetByID", mock.Anything, "recipe-espresso").Return(child, nil)
	f.stubUOW(t)
	f.inventoryRepo.On("LockForUpdate", mock.Anything, []string{"inv-beans", "inv-milk"}).
		Return([]*domain.InventoryItem{milk, beans}, nil)
	f.inventoryRepo.On("Update", mock.Anything, milk).Return(nil)
	f.inventoryRepo.On("Update", mock.Anything, beans).Return(nil)
	f.adjustmentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InventoryAdjustment")).Return(nil)
	f.uowOrderRepo.On("Update", mock.Anything, order).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build(nil, true)
	result, err := svc.DeductForOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Len(t, result.Adjustments, 2)
	// optional ingredient skipped, sub-recipe beans scaled by multiplier 2.
	assert.True(t, milk.Quantity().Equal(decimal.NewFromInt(8)))
	assert.True(t, beans.Quantity().Equal(decimal.NewFromInt(8)))
}

func TestDeductorService_RecipeBasedDeduction_FallsBackToFlatMappingWhenNoRecipe(t *testing.T) {
	f := newDeductorServiceFixture()
	order := deductorTestOrder(t, 1)
	milk := testInventoryItem(t, "inv-milk", 10)

	f.repoManager.On("Recipes").Return(f.recipeRepo)
	f.recipeRepo.On("GetByMenuItemID", mock.Anything, "menu-1").Return(nil, domain.ErrNotFound("recipe", "menu-1"))
	f.stubUOW(t)
	f.inventoryRepo.On("LockForUpdate", mock.Anything, []string{"inv-milk"}).Return([]*domain.InventoryItem{milk}, nil)
	f.inventoryRepo.On("Update", mock.Anything, milk).Return(nil)
	f.adjustmentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InventoryAdjustment")).Return(nil)
	f.uowOrderRepo.On("Update", mock.Anything, order).Return(nil)
	f.eventPublisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.DomainEvent")).Return(nil)

	svc := f.build(map[string]string{"menu-1": "inv-milk"}, true)
	result, err := svc.DeductForOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Len(t, result.Adjustments, 1)
}
