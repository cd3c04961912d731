package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType is the discount calculation shape a pricing rule applies
// (spec.md §3).
type RuleType string

const (
	RuleTypePercentage RuleType = "PERCENTAGE"
	RuleTypeFixed      RuleType = "FIXED"
	RuleTypeBundle     RuleType = "BUNDLE"
	RuleTypeBOGO       RuleType = "BOGO"
	RuleTypeHappyHour  RuleType = "HAPPY_HOUR"
	RuleTypeQuantity   RuleType = "QUANTITY"
	RuleTypeCategory   RuleType = "CATEGORY"
	RuleTypeTimeBased  RuleType = "TIME_BASED"
	RuleTypeCustom     RuleType = "CUSTOM"
)

func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypePercentage, RuleTypeFixed, RuleTypeBundle, RuleTypeBOGO, RuleTypeHappyHour,
		RuleTypeQuantity, RuleTypeCategory, RuleTypeTimeBased, RuleTypeCustom:
		return true
	}
	return false
}

// RuleStatus is the lifecycle status of a pricing rule.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "ACTIVE"
	RuleStatusInactive RuleStatus = "INACTIVE"
	RuleStatusScheduled RuleStatus = "SCHEDULED"
	RuleStatusExpired  RuleStatus = "EXPIRED"
	RuleStatusTesting  RuleStatus = "TESTING"
)

func (s RuleStatus) IsValid() bool {
	switch s {
	case RuleStatusActive, RuleStatusInactive, RuleStatusScheduled, RuleStatusExpired, RuleStatusTesting:
		return true
	}
	return false
}

// ConflictStrategy decides how multiple non-stackable matching rules
// combine (spec.md §4.2).
type ConflictStrategy string

const (
	ConflictHighestDiscount       ConflictStrategy = "HIGHEST_DISCOUNT"
	ConflictFirstMatch            ConflictStrategy = "FIRST_MATCH"
	ConflictPriorityBased         ConflictStrategy = "PRIORITY_BASED"
	ConflictCombineAdditive       ConflictStrategy = "COMBINE_ADDITIVE"
	ConflictCombineMultiplicative ConflictStrategy = "COMBINE_MULTIPLICATIVE"
)

// TimeConditions is the `time` section of a rule's conditions document.
type TimeConditions struct {
	DaysOfWeek  []int  // 0-6, 0=Monday
	StartTime   string // HH:MM, 24h
	EndTime     string // HH:MM, 24h; StartTime > EndTime spans midnight
	DateRanges  []DateRange
	Timezone    string
}

// ItemConditions is the `items` section.
type ItemConditions struct {
	MenuItemIDs   []string
	CategoryIDs   []string
	ExcludeItemIDs []string
	MinQuantity   int32
	MaxQuantity   int32
}

// CustomerConditions is the `customer` section.
type CustomerConditions struct {
	LoyaltyTier   string
	MinOrders     int32
	Tags          []string
	NewCustomer   bool
	BirthdayMonth int
}

// Validate enforces the mutual exclusion constraint documented in
// spec.md §6: NewCustomer=true forbids MinOrders > 0.
func (c CustomerConditions) Validate() error {
	if c.NewCustomer && c.MinOrders > 0 {
		return errors.New("customer.new_customer is mutually exclusive with customer.min_orders > 0")
	}
	return nil
}

// OrderConditions is the `order` section.
type OrderConditions struct {
	MinItems       int32
	MaxItems       int32
	PaymentMethods []string
	OrderTypes     []string
	Channels       []string
	MinSubtotal    *decimal.Decimal
	MaxSubtotal    *decimal.Decimal
}

// RuleConditions is the full conditions document (spec.md §6).
type RuleConditions struct {
	Time     *TimeConditions
	Items    *ItemConditions
	Customer *CustomerConditions
	Order    *OrderConditions
	Custom   map[string]interface{}
}

// PricingRule is a discount rule evaluated against an order's items,
// customer, and timing.
type PricingRule struct {
	ID                string
	RestaurantID      string
	Name              string
	Type              RuleType
	Status            RuleStatus
	Priority          int32 // 1 (highest) - 5 (lowest)
	Conditions        RuleConditions
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	MinOrderAmount    decimal.Decimal
	Stackable         bool
	ExcludedRuleIDs   map[string]bool
	ConflictStrategy  ConflictStrategy
	PromoCode         string
	ValidFrom         time.Time
	ValidUntil        *time.Time
	MaxUses           *int32
	CurrentUses       int32
	MaxUsesPerCustomer *int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewPricingRule constructs a rule with basic field validation; conditions
// document shape validation happens separately via
// PricingService.ValidateConditions.
func NewPricingRule(id, restaurantID, name string, ruleType RuleType, priority int32, discount decimal.Decimal) (*PricingRule, error) {
	if id == "" {
		return nil, errors.New("pricing rule id is required")
	}
	if !ruleType.IsValid() {
		return nil, errors.New("unknown pricing rule type")
	}
	if priority < 1 || priority > 5 {
		return nil, errors.New("pricing rule priority must be between 1 and 5")
	}
	now := time.Now()
	return &PricingRule{
		ID:               id,
		RestaurantID:     restaurantID,
		Name:             name,
		Type:             ruleType,
		Status:           RuleStatusActive,
		Priority:         priority,
		DiscountValue:    discount,
		ExcludedRuleIDs:  map[string]bool{},
		ConflictStrategy: ConflictHighestDiscount,
		ValidFrom:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsEffective reports whether the rule passes every status/time/usage gate
// at evaluation time 'at' (spec.md glossary "Effective rule").
func (r *PricingRule) IsEffective(at time.Time) bool {
	if r.Status != RuleStatusActive {
		return false
	}
	if at.Before(r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !at.Before(*r.ValidUntil) {
		return false
	}
	if r.MaxUses != nil && r.CurrentUses >= *r.MaxUses {
		return false
	}
	return true
}

// IsExpired reports whether the rule's validity window has closed as of at.
func (r *PricingRule) IsExpired(at time.Time) bool {
	return r.ValidUntil != nil && !at.Before(*r.ValidUntil)
}

// Excludes reports whether this rule's exclusion set names otherID.
func (r *PricingRule) Excludes(otherID string) bool { return r.ExcludedRuleIDs[otherID] }

// IncrementUsage is called once per successful application, under a
// per-rule row lock.
func (r *PricingRule) IncrementUsage() {
	r.CurrentUses++
	r.UpdatedAt = time.Now()
}

// MatchedSections records, per evaluated condition section, whether it
// matched — used for debug trace output.
type MatchedSections map[string]bool

// RuleEvaluationResult is the per-rule outcome of evaluating one candidate
// rule against an order.
type RuleEvaluationResult struct {
	RuleID          string
	Applicable      bool
	ConditionsMet   MatchedSections
	SkipReason      string
	DiscountAmount  decimal.Decimal
	Stackable       bool
	Priority        int32
	ExcludedRuleIDs map[string]bool
}

// PricingRuleApplication is an immutable audit row recording a rule's
// effect on a specific order.
type PricingRuleApplication struct {
	ID               string
	RuleID           string
	OrderID          string
	CustomerID       string
	DiscountAmount   decimal.Decimal
	OriginalAmount   decimal.Decimal
	FinalAmount      decimal.Decimal
	MatchedConditions MatchedSections
	Provenance       string // system | manual | api
	AppliedAt        time.Time
}

// NewPricingRuleApplication constructs an application audit row, enforcing
// final_amount = original_amount - discount_amount >= 0.
func NewPricingRuleApplication(id, ruleID, orderID, customerID string, original, discount decimal.Decimal, matched MatchedSections, provenance string) (*PricingRuleApplication, error) {
	final := original.Sub(discount)
	if final.IsNegative() {
		return nil, errors.New("pricing rule application final amount cannot be negative")
	}
	return &PricingRuleApplication{
		ID:                id,
		RuleID:            ruleID,
		OrderID:           orderID,
		CustomerID:        customerID,
		DiscountAmount:    discount,
		OriginalAmount:    original,
		FinalAmount:       final,
		MatchedConditions: matched,
		Provenance:        provenance,
		AppliedAt:         time.Now(),
	}, nil
}

// PricingEvaluationResult is the outcome of evaluating all candidate rules
// against an order: the rules that actually applied plus the full per-rule
// audit trail (including skipped rules and their reasons).
type PricingEvaluationResult struct {
	OrderID        string
	Subtotal       decimal.Decimal
	TotalDiscount  decimal.Decimal
	FinalTotal     decimal.Decimal
	Applied        []*PricingRuleApplication
	Skipped        []RuleEvaluationResult
}

// PricingRuleMetrics is the per-rule, per-day counter row (spec.md §4.2
// "Metrics").
type PricingRuleMetrics struct {
	RuleID           string
	Date             time.Time
	Evaluated        int64
	Applied          int64
	SkippedByReason  map[string]int64
	ConflictsResolved int64
	StackingCount    int64
	TotalDiscount    decimal.Decimal
	OrdersAffected   int64
}
