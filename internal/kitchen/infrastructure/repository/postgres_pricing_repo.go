package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// PostgresPricingRuleRepository implements domain.PricingRuleRepository.
// The conditions document is stored as a single JSONB column, mirroring
// the rule's own declarative shape instead of normalizing each condition
// section into its own table.
type PostgresPricingRuleRepository struct {
	db     dbExecutor
	logger *logger.Logger
}

// NewPostgresPricingRuleRepository creates a new PostgreSQL pricing rule repository.
func NewPostgresPricingRuleRepository(db dbExecutor, log *logger.Logger) domain.PricingRuleRepository {
	return &PostgresPricingRuleRepository{db: db, logger: log}
}

func (r *PostgresPricingRuleRepository) Create(ctx context.Context, rule *domain.PricingRule) error {
	conditions, excluded, err := marshalRule(rule)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO kitchen_pricing_rules (
			id, restaurant_id, name, type, status, priority, conditions, discount_value,
			max_discount_amount, min_order_amount, stackable, excluded_rule_ids,
			conflict_strategy, promo_code, valid_from, valid_until, max_uses, current_uses,
			max_uses_per_customer, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.RestaurantID, rule.Name, rule.Type, rule.Status, rule.Priority, conditions,
		rule.DiscountValue, rule.MaxDiscountAmount, rule.MinOrderAmount, rule.Stackable, excluded,
		rule.ConflictStrategy, rule.PromoCode, rule.ValidFrom, rule.ValidUntil, rule.MaxUses,
		rule.CurrentUses, rule.MaxUsesPerCustomer, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		r.logger.WithError(err).WithField("rule_id", rule.ID).Error("failed to create pricing rule")
		return fmt.Errorf("failed to create pricing rule: %w", err)
	}
	return nil
}

func (r *PostgresPricingRuleRepository) GetByID(ctx context.Context, id string) (*domain.PricingRule, error) {
	const query = pricingRuleSelect + ` WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanRule(row, id)
}

func (r *PostgresPricingRuleRepository) Update(ctx context.Context, rule *domain.PricingRule) error {
	conditions, excluded, err := marshalRule(rule)
	if err != nil {
		return err
	}
	rule.UpdatedAt = time.Now()
	const query = `
		UPDATE kitchen_pricing_rules SET
			name = $2, status = $3, priority = $4, conditions = $5, discount_value = $6,
			max_discount_amount = $7, min_order_amount = $8, stackable = $9, excluded_rule_ids = $10,
			conflict_strategy = $11, promo_code = $12, valid_from = $13, valid_until = $14,
			max_uses = $15, current_uses = $16, max_uses_per_customer = $17, updated_at = $18
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Status, rule.Priority, conditions, rule.DiscountValue,
		rule.MaxDiscountAmount, rule.MinOrderAmount, rule.Stackable, excluded, rule.ConflictStrategy,
		rule.PromoCode, rule.ValidFrom, rule.ValidUntil, rule.MaxUses, rule.CurrentUses,
		rule.MaxUsesPerCustomer, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update pricing rule: %w", err)
	}
	return mustAffectOne(result, "pricing_rule", rule.ID)
}

func (r *PostgresPricingRuleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM kitchen_pricing_rules WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}
	return mustAffectOne(result, "pricing_rule", id)
}

// GetActiveCandidates returns every ACTIVE rule for the restaurant whose
// validity window contains 'at'; usage caps and condition sections are
// still evaluated by the engine, not filtered in SQL.
func (r *PostgresPricingRuleRepository) GetActiveCandidates(ctx context.Context, restaurantID string, at time.Time) ([]*domain.PricingRule, error) {
	const query = pricingRuleSelect + `
		WHERE restaurant_id = $1 AND status = $2 AND valid_from <= $3
			AND (valid_until IS NULL OR valid_until > $3)
		ORDER BY priority ASC`
	rows, err := r.db.QueryContext(ctx, query, restaurantID, domain.RuleStatusActive, at)
	if err != nil {
		return nil, fmt.Errorf("failed to list active pricing rules: %w", err)
	}
	defer rows.Close()
	return r.scanRules(rows)
}

func (r *PostgresPricingRuleRepository) GetExpired(ctx context.Context, asOf time.Time) ([]*domain.PricingRule, error) {
	const query = pricingRuleSelect + `
		WHERE valid_until IS NOT NULL AND valid_until <= $1 AND status != $2
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, asOf, domain.RuleStatusExpired)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pricing rules: %w", err)
	}
	defer rows.Close()
	return r.scanRules(rows)
}

const pricingRuleSelect = `
	SELECT id, restaurant_id, name, type, status, priority, conditions, discount_value,
		   max_discount_amount, min_order_amount, stackable, excluded_rule_ids,
		   conflict_strategy, promo_code, valid_from, valid_until, max_uses, current_uses,
		   max_uses_per_customer, created_at, updated_at
	FROM kitchen_pricing_rules`

func marshalRule(rule *domain.PricingRule) (conditions, excluded []byte, err error) {
	conditions, err = json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal rule conditions: %w", err)
	}
	excluded, err = json.Marshal(rule.ExcludedRuleIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal rule exclusions: %w", err)
	}
	return conditions, excluded, nil
}

func (r *PostgresPricingRuleRepository) scanRule(row *sql.Row, lookupID string) (*domain.PricingRule, error) {
	var (
		rule                domain.PricingRule
		conditions, excluded []byte
	)
	if err := row.Scan(&rule.ID, &rule.RestaurantID, &rule.Name, &rule.Type, &rule.Status, &rule.Priority,
		&conditions, &rule.DiscountValue, &rule.MaxDiscountAmount, &rule.MinOrderAmount, &rule.Stackable,
		&excluded, &rule.ConflictStrategy, &rule.PromoCode, &rule.ValidFrom, &rule.ValidUntil,
		&rule.MaxUses, &rule.CurrentUses, &rule.MaxUsesPerCustomer, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("pricing_rule", lookupID)
		}
		return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
	}
	if err := unmarshalRuleExtras(&rule, conditions, excluded); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *PostgresPricingRuleRepository) scanRules(rows *sql.Rows) ([]*domain.PricingRule, error) {
	var rules []*domain.PricingRule
	for rows.Next() {
		var (
			rule                domain.PricingRule
			conditions, excluded []byte
		)
		if err := rows.Scan(&rule.ID, &rule.RestaurantID, &rule.Name, &rule.Type, &rule.Status, &rule.Priority,
			&conditions, &rule.DiscountValue, &rule.MaxDiscountAmount, &rule.MinOrderAmount, &rule.Stackable,
			&excluded, &rule.ConflictStrategy, &rule.PromoCode, &rule.ValidFrom, &rule.ValidUntil,
			&rule.MaxUses, &rule.CurrentUses, &rule.MaxUsesPerCustomer, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		if err := unmarshalRuleExtras(&rule, conditions, excluded); err != nil {
			return nil, err
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

func unmarshalRuleExtras(rule *domain.PricingRule, conditions, excluded []byte) error {
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return fmt.Errorf("failed to unmarshal rule conditions: %w", err)
		}
	}
	if len(excluded) > 0 {
		if err := json.Unmarshal(excluded, &rule.ExcludedRuleIDs); err != nil {
			return fmt.Errorf("failed to unmarshal rule exclusions: %w", err)
		}
	}
	if rule.ExcludedRuleIDs == nil {
		rule.ExcludedRuleIDs = map[string]bool{}
	}
	return nil
}

// PostgresPricingRuleApplicationRepository implements
// domain.PricingRuleApplicationRepository.
type PostgresPricingRuleApplicationRepository struct {
	db     dbExecutor
	logger *logger.Logger
}

// NewPostgresPricingRuleApplicationRepository creates a new PostgreSQL
// pricing rule application repository.
func NewPostgresPricingRuleApplicationRepository(db dbExecutor, log *logger.Logger) domain.PricingRuleApplicationRepository {
	return &PostgresPricingRuleApplicationRepository{db: db, logger: log}
}

func (r *PostgresPricingRuleApplicationRepository) Create(ctx context.Context, app *domain.PricingRuleApplication) error {
	matched, err := json.Marshal(app.MatchedConditions)
	if err != nil {
		return fmt.Errorf("failed to marshal matched conditions: %w", err)
	}
	const query = `
		INSERT INTO kitchen_pricing_rule_applications (
			id, rule_id, order_id, customer_id, discount_amount, original_amount,
			final_amount, matched_conditions, provenance, applied_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.db.ExecContext(ctx, query,
		app.ID, app.RuleID, app.OrderID, app.CustomerID, app.DiscountAmount, app.OriginalAmount,
		app.FinalAmount, matched, app.Provenance, app.AppliedAt)
	if err != nil {
		r.logger.WithError(err).WithField("rule_id", app.RuleID).Error("failed to record pricing rule application")
		return fmt.Errorf("failed to create pricing rule application: %w", err)
	}
	return nil
}

func (r *PostgresPricingRuleApplicationRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.PricingRuleApplication, error) {
	const query = `
		SELECT id, rule_id, order_id, customer_id, discount_amount, original_amount,
			   final_amount, matched_conditions, provenance, applied_at
		FROM kitchen_pricing_rule_applications WHERE order_id = $1 ORDER BY applied_at ASC`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing rule applications: %w", err)
	}
	defer rows.Close()
	var apps []*domain.PricingRuleApplication
	for rows.Next() {
		var (
			a       domain.PricingRuleApplication
			matched []byte
		)
		if err := rows.Scan(&a.ID, &a.RuleID, &a.OrderID, &a.CustomerID, &a.DiscountAmount,
			&a.OriginalAmount, &a.FinalAmount, &matched, &a.Provenance, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule application: %w", err)
		}
		if len(matched) > 0 {
			if err := json.Unmarshal(matched, &a.MatchedConditions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal matched conditions: %w", err)
			}
		}
		apps = append(apps, &a)
	}
	return apps, rows.Err()
}

func (r *PostgresPricingRuleApplicationRepository) GetUsageCount(ctx context.Context, ruleID, customerID string, since time.Time) (int32, error) {
	const query = `
		SELECT COUNT(*) FROM kitchen_pricing_rule_applications
		WHERE rule_id = $1 AND customer_id = $2 AND applied_at >= $3`
	var count int32
	if err := r.db.QueryRowContext(ctx, query, ruleID, customerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pricing rule usage: %w", err)
	}
	return count, nil
}
