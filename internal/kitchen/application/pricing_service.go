package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go.uber.org/zap"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/cache"
	"github.com/DimaJoyti/go-coffee/pkg/concurrency"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

// candidateBreakerConfig trips the rule-candidate lookup after repeated
// repository failures rather than let every order evaluation pile onto an
// already-struggling Postgres/Redis, and probes again after OpenTimeout.
var candidateBreakerConfig = &concurrency.CircuitBreakerConfig{
	FailureThreshold:     5,
	SuccessThreshold:     2,
	TimeoutThreshold:     2 * time.Second,
	OpenTimeout:          30 * time.Second,
	HalfOpenTimeout:      10 * time.Second,
	HalfOpenMaxRequests:  3,
	HalfOpenSuccessRatio: 0.5,
	ResetTimeout:         time.Minute,
	MonitoringInterval:   time.Minute,
}

// PricingFacts carries the per-order context a pricing rule's conditions
// document can reference that domain.Order itself does not model: customer
// loyalty/tag data, payment/channel metadata, and each item's category.
// Kept off the order aggregate for the same reason as priority_service.go's
// ScoringFacts.
type PricingFacts struct {
	CustomerLoyaltyTier   string
	CustomerOrderCount    int32
	CustomerTags          []string
	CustomerIsNew         bool
	CustomerBirthdayMonth int
	PaymentMethod         string
	OrderType             string
	Channel               string
	ItemCategories        map[string]string // menu_item_id -> category_id
}

// RuleValidationResult is the outcome of a structural conditions-document
// check, independent of any order.
type RuleValidationResult struct {
	Valid  bool
	Errors []string
}

// PricingService is the Pricing Rule Engine (C2): evaluates a restaurant's
// active discount rules against an order, resolves conflicts, and applies
// the winning set.
type PricingService interface {
	Evaluate(ctx context.Context, order *domain.Order, facts PricingFacts, debug bool) (*domain.PricingEvaluationResult, error)
	ValidateConditions(conditions domain.RuleConditions, ruleType domain.RuleType) RuleValidationResult
	CreateRule(ctx context.Context, rule *domain.PricingRule) error
	UpdateRule(ctx context.Context, rule *domain.PricingRule) error
	DeleteRule(ctx context.Context, id string) error
	ExpireRules(ctx context.Context, now time.Time) (int, error)
	// SetMetrics wires Prometheus counters into the evaluation path.
	// Recording is a no-op until this is called.
	SetMetrics(metrics *monitoring.BusinessMetrics)
}

type pricingService struct {
	repoManager               domain.RepositoryManager
	eventPublisher             domain.EventPublisher
	logger                     *logger.Logger
	defaultConflictResolution  domain.ConflictStrategy
	candidateCache             cache.Cache
	candidateCacheTTL          time.Duration
	metrics                    *monitoring.BusinessMetrics
	candidateBreaker           *concurrency.CircuitBreaker
}

func (s *pricingService) SetMetrics(metrics *monitoring.BusinessMetrics) {
	s.metrics = metrics
}

// NewPricingService creates the Pricing Rule Engine. defaultConflictResolution
// governs non-stackable conflict resolution for rules that don't carry
// their own ConflictStrategy override (the zero value falls back to
// HIGHEST_DISCOUNT, matching domain.NewPricingRule's default).
//
// candidateCache is optional (nil disables caching): when set, GetActiveCandidates
// lookups are cached per restaurant for candidateCacheTTL, backing the
// CACHE_TTL_SECONDS configuration knob — a restaurant's active rule set
// changes far less often than orders evaluate against it.
func NewPricingService(repoManager domain.RepositoryManager, eventPublisher domain.EventPublisher, defaultConflictResolution domain.ConflictStrategy, candidateCache cache.Cache, candidateCacheTTL time.Duration, log *logger.Logger) PricingService {
	if defaultConflictResolution == "" {
		defaultConflictResolution = domain.ConflictHighestDiscount
	}
	return &pricingService{
		repoManager:               repoManager,
		eventPublisher:            eventPublisher,
		logger:                    log,
		defaultConflictResolution: defaultConflictResolution,
		candidateCache:            candidateCache,
		candidateCacheTTL:         candidateCacheTTL,
		candidateBreaker:          concurrency.NewCircuitBreaker("pricing-candidates", candidateBreakerConfig, zap.NewNop()),
	}
}

// activeCandidates returns a restaurant's active pricing rules, serving from
// cache when available. Cache errors (including misses, which RedisCache
// surfaces as an error rather than a sentinel) fall through to the
// repository rather than fail the evaluation.
// fetchCandidates runs the repository lookup through candidateBreaker so a
// struggling Postgres/Redis fails fast for every concurrent order
// evaluation instead of each one queuing its own slow failure.
func (s *pricingService) fetchCandidates(ctx context.Context, restaurantID string, now time.Time) ([]*domain.PricingRule, error) {
	result, err := s.candidateBreaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.repoManager.PricingRules().GetActiveCandidates(ctx, restaurantID, now)
	})
	if err != nil {
		return nil, err
	}
	candidates, _ := result.([]*domain.PricingRule)
	return candidates, nil
}

func (s *pricingService) activeCandidates(ctx context.Context, restaurantID string, now time.Time) ([]*domain.PricingRule, error) {
	if s.candidateCache == nil {
		return s.fetchCandidates(ctx, restaurantID, now)
	}

	cacheKey := fmt.Sprintf("pricing:candidates:%s", restaurantID)
	var cached []*domain.PricingRule
	if err := s.candidateCache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	candidates, err := s.fetchCandidates(ctx, restaurantID, now)
	if err != nil {
		return nil, err
	}
	if err := s.candidateCache.Set(ctx, cacheKey, candidates, s.candidateCacheTTL); err != nil {
		s.logger.WithError(err).Warn("failed to cache active pricing candidates")
	}
	return candidates, nil
}

// candidateOutcome pairs an evaluated rule with its evaluation result so the
// conflict resolution pass can get back to the owning rule.
type candidateOutcome struct {
	rule   *domain.PricingRule
	result domain.RuleEvaluationResult
}

func (s *pricingService) Evaluate(ctx context.Context, order *domain.Order, facts PricingFacts, debug bool) (*domain.PricingEvaluationResult, error) {
	now := time.Now()
	s.logger.WithField("order_id", order.ID()).Info("evaluating pricing rules for order")

	candidates, err := s.activeCandidates(ctx, order.RestaurantID(), now)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID
	})

	subtotal := order.Subtotal()

	var applicable []candidateOutcome
	var skipped []domain.RuleEvaluationResult

	for _, rule := range candidates {
		if !rule.IsEffective(now) {
			skipped = append(skipped, domain.RuleEvaluationResult{RuleID: rule.ID, SkipReason: "rule not effective at evaluation time"})
			continue
		}

		result, discount, err := s.evaluateRule(ctx, rule, order, facts, subtotal, now)
		if err != nil {
			skipped = append(skipped, domain.RuleEvaluationResult{
				RuleID: rule.ID, SkipReason: fmt.Sprintf("Evaluation error: %v", err),
			})
			s.logger.WithError(err).WithField("rule_id", rule.ID).Warn("pricing rule evaluation error, skipping")
			continue
		}
		if !result.Applicable {
			skipped = append(skipped, result)
			continue
		}

		result.DiscountAmount = discount
		result.Stackable = rule.Stackable
		result.Priority = rule.Priority
		result.ExcludedRuleIDs = rule.ExcludedRuleIDs
		applicable = append(applicable, candidateOutcome{rule: rule, result: result})
	}

	chosen := s.resolveConflicts(applicable, subtotal)

	if len(chosen) == 0 {
		return &domain.PricingEvaluationResult{
			OrderID: order.ID(), Subtotal: subtotal, TotalDiscount: decimal.Zero, FinalTotal: subtotal,
			Skipped: skipped,
		}, nil
	}

	uow := s.repoManager.NewUnitOfWork()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin pricing transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback(ctx)
		}
	}()

	var applications []*domain.PricingRuleApplication
	totalDiscount := decimal.Zero
	ruleIDs := make([]string, 0, len(chosen))

	for _, c := range chosen {
		discount := c.result.DiscountAmount
		if totalDiscount.Add(discount).GreaterThan(subtotal) {
			discount = subtotal.Sub(totalDiscount)
		}
		if discount.IsNegative() || discount.IsZero() {
			continue
		}

		app, err := domain.NewPricingRuleApplication(
			uuid.New().String(), c.rule.ID, order.ID(), order.CustomerID(),
			subtotal, discount, c.result.ConditionsMet, "system",
		)
		if err != nil {
			return nil, err
		}
		if err := uow.PricingApplicationRepo().Create(ctx, app); err != nil {
			return nil, err
		}

		c.rule.IncrementUsage()
		if err := uow.PricingRuleRepo().Update(ctx, c.rule); err != nil {
			return nil, err
		}

		applications = append(applications, app)
		totalDiscount = totalDiscount.Add(discount)
		ruleIDs = append(ruleIDs, c.rule.ID)
	}

	finalTotal := subtotal.Sub(totalDiscount)
	order.ApplyPricing(totalDiscount, finalTotal, ruleIDs)
	if err := uow.OrderRepo().Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order pricing: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit pricing transaction: %w", err)
	}
	committed = true

	event := domain.NewOrderPricedEvent(order)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID()).Warn("failed to publish order priced event")
	}

	if s.metrics != nil {
		discount, _ := totalDiscount.Float64()
		s.metrics.RecordPricingApplication(string(s.defaultConflictResolution), len(ruleIDs), discount)
	}

	result := &domain.PricingEvaluationResult{
		OrderID: order.ID(), Subtotal: subtotal, TotalDiscount: totalDiscount, FinalTotal: finalTotal,
		Applied: applications,
	}
	if debug {
		result.Skipped = skipped
	}
	return result, nil
}

// evaluateRule checks every condition section in turn, short-circuiting on
// the first failure, then computes the discount the rule would contribute
// if chosen.
func (s *pricingService) evaluateRule(ctx context.Context, rule *domain.PricingRule, order *domain.Order, facts PricingFacts, subtotal decimal.Decimal, now time.Time) (domain.RuleEvaluationResult, decimal.Decimal, error) {
	matched := domain.MatchedSections{}

	if rule.MinOrderAmount.IsPositive() && subtotal.LessThan(rule.MinOrderAmount) {
		return domain.RuleEvaluationResult{RuleID: rule.ID, SkipReason: "order subtotal below rule minimum"}, decimal.Zero, nil
	}
	if rule.MaxUsesPerCustomer != nil {
		uses, err := s.repoManager.PricingApplications().GetUsageCount(ctx, rule.ID, order.CustomerID(), rule.ValidFrom)
		if err != nil {
			return domain.RuleEvaluationResult{}, decimal.Zero, err
		}
		if uses >= *rule.MaxUsesPerCustomer {
			return domain.RuleEvaluationResult{RuleID: rule.ID, SkipReason: "customer usage cap reached"}, decimal.Zero, nil
		}
	}

	if rule.Conditions.Time != nil {
		ok, reason := matchTime(rule.Conditions.Time, now)
		matched["time"] = ok
		if !ok {
			return domain.RuleEvaluationResult{RuleID: rule.ID, ConditionsMet: matched, SkipReason: reason}, decimal.Zero, nil
		}
	}
	if rule.Conditions.Items != nil {
		ok, reason := matchItems(rule.Conditions.Items, order, facts)
		matched["items"] = ok
		if !ok {
			return domain.RuleEvaluationResult{RuleID: rule.ID, ConditionsMet: matched, SkipReason: reason}, decimal.Zero, nil
		}
	}
	if rule.Conditions.Customer != nil {
		if err := rule.Conditions.Customer.Validate(); err != nil {
			return domain.RuleEvaluationResult{}, decimal.Zero, err
		}
		ok, reason := matchCustomer(rule.Conditions.Customer, facts)
		matched["customer"] = ok
		if !ok {
			return domain.RuleEvaluationResult{RuleID: rule.ID, ConditionsMet: matched, SkipReason: reason}, decimal.Zero, nil
		}
	}
	if rule.Conditions.Order != nil {
		ok, reason := matchOrder(rule.Conditions.Order, order, facts)
		matched["order"] = ok
		if !ok {
			return domain.RuleEvaluationResult{RuleID: rule.ID, ConditionsMet: matched, SkipReason: reason}, decimal.Zero, nil
		}
	}

	discount := s.computeDiscount(rule, order, facts, subtotal)
	return domain.RuleEvaluationResult{RuleID: rule.ID, Applicable: true, ConditionsMet: matched}, discount, nil
}

// matchTime checks days_of_week/start_time-end_time (spanning midnight
// allowed)/date_ranges.
func matchTime(tc *domain.TimeConditions, now time.Time) (bool, string) {
	if len(tc.DaysOfWeek) > 0 {
		weekday := (int(now.Weekday()) + 6) % 7 // Monday=0
		found := false
		for _, d := range tc.DaysOfWeek {
			if d == weekday {
				found = true
				break
			}
		}
		if !found {
			return false, "day of week not in rule's allowed set"
		}
	}
	if tc.StartTime != "" && tc.EndTime != "" {
		if !withinTimeWindow(now, tc.StartTime, tc.EndTime) {
			return false, "current time outside rule's time window"
		}
	}
	if len(tc.DateRanges) > 0 {
		inRange := false
		for _, dr := range tc.DateRanges {
			if dr.Contains(now) {
				inRange = true
				break
			}
		}
		if !inRange {
			return false, "current date outside rule's date ranges"
		}
	}
	return true, ""
}

func withinTimeWindow(now time.Time, start, end string) bool {
	sh, sm := parseHHMM(start)
	eh, em := parseHHMM(end)
	cur := now.Hour()*60 + now.Minute()
	s := sh*60 + sm
	e := eh*60 + em
	if s <= e {
		return cur >= s && cur <= e
	}
	// window spans midnight
	return cur >= s || cur <= e
}

func parseHHMM(v string) (int, int) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, m := 0, 0
	fmt.Sscanf(parts[0], "%d", &h)
	fmt.Sscanf(parts[1], "%d", &m)
	return h, m
}

func matchItems(ic *domain.ItemConditions, order *domain.Order, facts PricingFacts) (bool, string) {
	if len(ic.ExcludeItemIDs) > 0 {
		excluded := toSet(ic.ExcludeItemIDs)
		for _, item := range order.Items() {
			if excluded[item.MenuItemID()] {
				return false, "order contains an excluded item"
			}
		}
	}
	if len(ic.MenuItemIDs) > 0 {
		want := toSet(ic.MenuItemIDs)
		found := false
		for _, item := range order.Items() {
			if want[item.MenuItemID()] {
				found = true
				break
			}
		}
		if !found {
			return false, "no order item intersects rule's menu item set"
		}
	}
	if len(ic.CategoryIDs) > 0 {
		want := toSet(ic.CategoryIDs)
		found := false
		for _, item := range order.Items() {
			if want[facts.ItemCategories[item.MenuItemID()]] {
				found = true
				break
			}
		}
		if !found {
			return false, "no order item intersects rule's category set"
		}
	}
	if ic.MinQuantity > 0 && order.GetTotalQuantity() < ic.MinQuantity {
		return false, "order quantity below rule minimum"
	}
	if ic.MaxQuantity > 0 && order.GetTotalQuantity() > ic.MaxQuantity {
		return false, "order quantity above rule maximum"
	}
	return true, ""
}

func matchCustomer(cc *domain.CustomerConditions, facts PricingFacts) (bool, string) {
	if cc.NewCustomer && !facts.CustomerIsNew {
		return false, "rule requires a new customer"
	}
	if cc.MinOrders > 0 && facts.CustomerOrderCount < cc.MinOrders {
		return false, "customer order count below rule minimum"
	}
	if cc.LoyaltyTier != "" && !strings.EqualFold(cc.LoyaltyTier, facts.CustomerLoyaltyTier) {
		return false, "customer loyalty tier does not match"
	}
	if len(cc.Tags) > 0 {
		have := toSet(facts.CustomerTags)
		found := false
		for _, t := range cc.Tags {
			if have[t] {
				found = true
				break
			}
		}
		if !found {
			return false, "customer tags do not intersect rule's tag set"
		}
	}
	if cc.BirthdayMonth != 0 && cc.BirthdayMonth != facts.CustomerBirthdayMonth {
		return false, "not customer's birthday month"
	}
	return true, ""
}

func matchOrder(oc *domain.OrderConditions, order *domain.Order, facts PricingFacts) (bool, string) {
	itemCount := int32(len(order.Items()))
	if oc.MinItems > 0 && itemCount < oc.MinItems {
		return false, "order item count below rule minimum"
	}
	if oc.MaxItems > 0 && itemCount > oc.MaxItems {
		return false, "order item count above rule maximum"
	}
	if len(oc.PaymentMethods) > 0 && !contains(oc.PaymentMethods, facts.PaymentMethod) {
		return false, "payment method not in rule's allowed set"
	}
	if len(oc.OrderTypes) > 0 && !contains(oc.OrderTypes, facts.OrderType) {
		return false, "order type not in rule's allowed set"
	}
	if len(oc.Channels) > 0 && !contains(oc.Channels, facts.Channel) {
		return false, "channel not in rule's allowed set"
	}
	if oc.MinSubtotal != nil && order.Subtotal().LessThan(*oc.MinSubtotal) {
		return false, "order subtotal below rule minimum"
	}
	if oc.MaxSubtotal != nil && order.Subtotal().GreaterThan(*oc.MaxSubtotal) {
		return false, "order subtotal above rule maximum"
	}
	return true, ""
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// computeDiscount applies the type-specific discount calculation (spec.md
// §4.2 step 3), capped so no rule ever discounts past the order subtotal.
func (s *pricingService) computeDiscount(rule *domain.PricingRule, order *domain.Order, facts PricingFacts, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch rule.Type {
	case domain.RuleTypePercentage, domain.RuleTypeTimeBased, domain.RuleTypeHappyHour:
		discount = subtotal.Mul(rule.DiscountValue).Div(decimal.NewFromInt(100))
	case domain.RuleTypeFixed:
		discount = decimal.Min(rule.DiscountValue, subtotal)
	case domain.RuleTypeCategory:
		categorySubtotal := decimal.Zero
		var want map[string]bool
		if rule.Conditions.Items != nil {
			want = toSet(rule.Conditions.Items.CategoryIDs)
		}
		for _, item := range order.Items() {
			if want[facts.ItemCategories[item.MenuItemID()]] {
				categorySubtotal = categorySubtotal.Add(item.LineTotal())
			}
		}
		discount = categorySubtotal.Mul(rule.DiscountValue).Div(decimal.NewFromInt(100))
	case domain.RuleTypeQuantity:
		if rule.Conditions.Items == nil || order.GetTotalQuantity() >= rule.Conditions.Items.MinQuantity {
			discount = subtotal.Mul(rule.DiscountValue).Div(decimal.NewFromInt(100))
		}
	case domain.RuleTypeBOGO:
		discount = bogoDiscount(rule, order)
	case domain.RuleTypeBundle:
		discount = decimal.Min(rule.DiscountValue, subtotal)
	case domain.RuleTypeCustom:
		discount = customDiscount(rule, order, subtotal)
	}

	if rule.MaxDiscountAmount != nil && discount.GreaterThan(*rule.MaxDiscountAmount) {
		discount = *rule.MaxDiscountAmount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}

// bogoDiscount pairs up matching items and discounts rule.DiscountValue
// percent (100 = fully free) off one item per pair, at the cheapest
// qualifying unit price.
func bogoDiscount(rule *domain.PricingRule, order *domain.Order) decimal.Decimal {
	var want map[string]bool
	if rule.Conditions.Items != nil && len(rule.Conditions.Items.MenuItemIDs) > 0 {
		want = toSet(rule.Conditions.Items.MenuItemIDs)
	}
	var qty int32
	cheapest := decimal.Zero
	first := true
	for _, item := range order.Items() {
		if want != nil && !want[item.MenuItemID()] {
			continue
		}
		qty += item.Quantity()
		if first || item.UnitPrice().LessThan(cheapest) {
			cheapest = item.UnitPrice()
			first = false
		}
	}
	pairs := decimal.NewFromInt32(qty / 2)
	return cheapest.Mul(pairs).Mul(rule.DiscountValue).Div(decimal.NewFromInt(100))
}

// customDiscount evaluates the rule's custom conditions document for an
// explicit discount_value fact, falling back to value-percent-of-subtotal
// when the document doesn't resolve one (mirrors domain.EvaluateCustomScore's
// fallback shape for CUSTOM priority rules).
func customDiscount(rule *domain.PricingRule, order *domain.Order, subtotal decimal.Decimal) decimal.Decimal {
	facts := map[string]interface{}{
		"subtotal": func() float64 { v, _ := subtotal.Float64(); return v }(),
		"item_count": len(order.Items()),
	}
	if rule.Conditions.Custom != nil {
		if !domain.EvaluateConditionTree(rule.Conditions.Custom, facts) {
			return decimal.Zero
		}
		if v, ok := rule.Conditions.Custom["discount_value"]; ok {
			if f, ok := v.(float64); ok {
				return decimal.NewFromFloat(f)
			}
		}
	}
	return subtotal.Mul(rule.DiscountValue).Div(decimal.NewFromInt(100))
}

// resolveConflicts partitions applicable outcomes into stackable /
// non-stackable, picks the non-stackable winner(s) per the governing
// conflict strategy, then admits stackable candidates whose exclusion sets
// don't collide with anything already chosen.
func (s *pricingService) resolveConflicts(applicable []candidateOutcome, subtotal decimal.Decimal) []candidateOutcome {
	var stackable, nonStackable []candidateOutcome
	for _, c := range applicable {
		if c.rule.Stackable {
			stackable = append(stackable, c)
		} else {
			nonStackable = append(nonStackable, c)
		}
	}

	var chosen []candidateOutcome
	if len(nonStackable) > 0 {
		strategy := s.defaultConflictResolution
		if nonStackable[0].rule.ConflictStrategy != "" {
			strategy = nonStackable[0].rule.ConflictStrategy
		}
		chosen = append(chosen, s.resolveNonStackable(nonStackable, strategy, subtotal)...)
	}

	sort.SliceStable(stackable, func(i, j int) bool { return stackable[i].rule.Priority < stackable[j].rule.Priority })
	for _, c := range stackable {
		if admitsWith(chosen, c) {
			chosen = append(chosen, c)
		}
	}
	return chosen
}

// admitsWith reports whether candidate c can join chosen: neither side's
// exclusion set may name the other.
func admitsWith(chosen []candidateOutcome, c candidateOutcome) bool {
	for _, picked := range chosen {
		if picked.rule.Excludes(c.rule.ID) || c.rule.Excludes(picked.rule.ID) {
			return false
		}
	}
	return true
}

func (s *pricingService) resolveNonStackable(group []candidateOutcome, strategy domain.ConflictStrategy, subtotal decimal.Decimal) []candidateOutcome {
	switch strategy {
	case domain.ConflictFirstMatch:
		return group[:1]
	case domain.ConflictPriorityBased:
		best := group[0]
		for _, c := range group[1:] {
			if c.rule.Priority < best.rule.Priority {
				best = c
			}
		}
		return []candidateOutcome{best}
	case domain.ConflictCombineAdditive:
		return group
	case domain.ConflictCombineMultiplicative:
		remaining := subtotal
		out := make([]candidateOutcome, 0, len(group))
		for _, c := range group {
			compounded := remaining.Mul(c.result.DiscountAmount).Div(subtotal)
			if subtotal.IsZero() {
				compounded = decimal.Zero
			}
			remaining = remaining.Sub(compounded)
			c.result.DiscountAmount = compounded
			out = append(out, c)
		}
		return out
	case domain.ConflictHighestDiscount:
		fallthrough
	default:
		best := group[0]
		for _, c := range group[1:] {
			if c.result.DiscountAmount.GreaterThan(best.result.DiscountAmount) {
				best = c
			}
		}
		return []candidateOutcome{best}
	}
}

// ValidateConditions performs the structural check of a conditions document
// against its rule type's schema shape (spec.md §6); it never touches an
// order.
func (s *pricingService) ValidateConditions(conditions domain.RuleConditions, ruleType domain.RuleType) RuleValidationResult {
	var errs []string
	if !ruleType.IsValid() {
		errs = append(errs, "unknown rule type")
	}
	if conditions.Customer != nil {
		if err := conditions.Customer.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if conditions.Time != nil {
		if conditions.Time.StartTime != "" && conditions.Time.EndTime == "" {
			errs = append(errs, "time.end_time is required when time.start_time is set")
		}
		for _, d := range conditions.Time.DaysOfWeek {
			if d < 0 || d > 6 {
				errs = append(errs, "time.days_of_week entries must be between 0 and 6")
			}
		}
	}
	if conditions.Order != nil && conditions.Order.MinSubtotal != nil && conditions.Order.MaxSubtotal != nil {
		if conditions.Order.MinSubtotal.GreaterThan(*conditions.Order.MaxSubtotal) {
			errs = append(errs, "order.min_subtotal cannot exceed order.max_subtotal")
		}
	}
	return RuleValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (s *pricingService) CreateRule(ctx context.Context, rule *domain.PricingRule) error {
	s.logger.WithField("rule_id", rule.ID).Info("creating pricing rule")
	if err := s.repoManager.PricingRules().Create(ctx, rule); err != nil {
		return err
	}
	s.invalidateCandidateCache(ctx, rule.RestaurantID)
	return nil
}

func (s *pricingService) UpdateRule(ctx context.Context, rule *domain.PricingRule) error {
	s.logger.WithField("rule_id", rule.ID).Info("updating pricing rule")
	if err := s.repoManager.PricingRules().Update(ctx, rule); err != nil {
		return err
	}
	s.invalidateCandidateCache(ctx, rule.RestaurantID)
	return nil
}

func (s *pricingService) DeleteRule(ctx context.Context, id string) error {
	s.logger.WithField("rule_id", id).Info("deleting pricing rule")
	rule, err := s.repoManager.PricingRules().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repoManager.PricingRules().Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCandidateCache(ctx, rule.RestaurantID)
	return nil
}

// invalidateCandidateCache drops a restaurant's cached active-rule set after
// any mutation so Evaluate never serves a rule list that predates a create,
// update, delete, or expiry pass.
func (s *pricingService) invalidateCandidateCache(ctx context.Context, restaurantID string) {
	if s.candidateCache == nil {
		return
	}
	cacheKey := fmt.Sprintf("pricing:candidates:%s", restaurantID)
	if err := s.candidateCache.Delete(ctx, cacheKey); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate cached pricing candidates")
	}
}

// ExpireRules transitions every ACTIVE rule whose valid_until has passed to
// EXPIRED. Run hourly per spec.md §4.2.
func (s *pricingService) ExpireRules(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repoManager.PricingRules().GetExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, rule := range expired {
		rule.Status = domain.RuleStatusExpired
		rule.UpdatedAt = now
		if err := s.repoManager.PricingRules().Update(ctx, rule); err != nil {
			s.logger.WithError(err).WithField("rule_id", rule.ID).Warn("failed to expire pricing rule")
			continue
		}
		s.invalidateCandidateCache(ctx, rule.RestaurantID)
		count++
	}
	return count, nil
}
