package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// PostgresRecipeRepository implements domain.RecipeRepository. The
// ingredient list and sub-recipe edges are stored as JSONB columns rather
// than normalized join tables: a recipe is always read and written as a
// whole graph node by the deductor, never queried by individual
// ingredient, so JSONB avoids a join for the common path.
type PostgresRecipeRepository struct {
	db     dbExecutor
	logger *logger.Logger
}

// NewPostgresRecipeRepository creates a new PostgreSQL recipe repository.
func NewPostgresRecipeRepository(db dbExecutor, log *logger.Logger) domain.RecipeRepository {
	return &PostgresRecipeRepository{db: db, logger: log}
}

func (r *PostgresRecipeRepository) GetByMenuItemID(ctx context.Context, menuItemID string) (*domain.Recipe, error) {
	const query = `
		SELECT id, menu_item_id, ingredients, sub_recipes
		FROM kitchen_recipes WHERE menu_item_id = $1`
	row := r.db.QueryRowContext(ctx, query, menuItemID)
	return r.scanRecipe(row, menuItemID)
}

func (r *PostgresRecipeRepository) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	const query = `
		SELECT id, menu_item_id, ingredients, sub_recipes
		FROM kitchen_recipes WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanRecipe(row, id)
}

func (r *PostgresRecipeRepository) Upsert(ctx context.Context, recipe *domain.Recipe) error {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe ingredients: %w", err)
	}
	subRecipes, err := json.Marshal(recipe.SubRecipes)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe sub-recipes: %w", err)
	}
	const query = `
		INSERT INTO kitchen_recipes (id, menu_item_id, ingredients, sub_recipes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			menu_item_id = EXCLUDED.menu_item_id,
			ingredients = EXCLUDED.ingredients,
			sub_recipes = EXCLUDED.sub_recipes`
	_, err = r.db.ExecContext(ctx, query, recipe.ID, recipe.MenuItemID, ingredients, subRecipes)
	if err != nil {
		r.logger.WithError(err).WithField("recipe_id", recipe.ID).Error("failed to upsert recipe")
		return fmt.Errorf("failed to upsert recipe: %w", err)
	}
	return nil
}

func (r *PostgresRecipeRepository) scanRecipe(row *sql.Row, lookupKey string) (*domain.Recipe, error) {
	var (
		recipe                  domain.Recipe
		ingredients, subRecipes []byte
	)
	if err := row.Scan(&recipe.ID, &recipe.MenuItemID, &ingredients, &subRecipes); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("recipe", lookupKey)
		}
		return nil, fmt.Errorf("failed to scan recipe: %w", err)
	}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &recipe.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe ingredients: %w", err)
		}
	}
	if len(subRecipes) > 0 {
		if err := json.Unmarshal(subRecipes, &recipe.SubRecipes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe sub-recipes: %w", err)
		}
	}
	return &recipe, nil
}
