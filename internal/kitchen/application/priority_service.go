package application

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// ScoringFacts carries the per-order inputs the Priority Scorer needs that
// the Order aggregate itself does not model (spec.md §4.3's base-value
// table draws on VIP status, party size, promised delivery time, loyalty
// points, per-item prep complexity, and special-instruction keyword hits).
// The lifecycle controller assembles this from the order plus whatever
// customer/reservation data its caller supplies; keeping it off domain.Order
// avoids growing the order aggregate with fields only C3 consumes.
type ScoringFacts struct {
	Order                  *domain.Order
	QueuedAt               time.Time
	IsVIP                  bool
	PromisedDeliveryAt     *time.Time
	PartySize              int32
	LoyaltyPoints          float64
	ItemComplexity         map[string]float64 // menu_item_id -> complexity score
	SpecialInstructionHits int                // keyword hits, pre-counted by the caller
	CustomFacts            map[string]interface{}
}

// baseValue extracts the numeric base value for scoreType per spec.md
// §4.3's table.
func (f ScoringFacts) baseValue(scoreType domain.ScoreType, cfg domain.ScoreConfig, now time.Time) float64 {
	switch scoreType {
	case domain.ScoreWaitTime:
		return now.Sub(f.QueuedAt).Minutes()
	case domain.ScoreOrderValue:
		if f.Order == nil {
			return 0
		}
		total, _ := f.Order.TotalAmount().Float64()
		return total
	case domain.ScoreVIP:
		if f.IsVIP {
			return 1.0
		}
		return 0.0
	case domain.ScoreDeliveryTime:
		if f.PromisedDeliveryAt == nil {
			return 0
		}
		mins := f.PromisedDeliveryAt.Sub(now).Minutes()
		if mins < 0 {
			return 0
		}
		return mins
	case domain.ScorePrepComplexity:
		if f.Order == nil {
			return 0
		}
		total := 0.0
		for _, item := range f.Order.Items() {
			complexity := 1.0
			if c, ok := f.ItemComplexity[item.MenuItemID()]; ok {
				complexity = c
			}
			total += float64(item.Quantity()) * complexity
		}
		return total
	case domain.ScoreCustomerLoyalty:
		return f.LoyaltyPoints
	case domain.ScorePeakHours:
		return 0 // peak-hours base is resolved via the queue config, not a rule; see QueuePriorityConfig.IsPeakHour
	case domain.ScoreGroupSize:
		return float64(f.PartySize)
	case domain.ScoreSpecialNeeds:
		return float64(f.SpecialInstructionHits)
	case domain.ScoreCustom:
		return domain.EvaluateCustomScore(cfg, f.toFactMap(now))
	default:
		return 0
	}
}

func (f ScoringFacts) toFactMap(now time.Time) map[string]interface{} {
	m := map[string]interface{}{
		"now":               now,
		"is_vip":            f.IsVIP,
		"party_size":        f.PartySize,
		"loyalty_points":    f.LoyaltyPoints,
		"special_need_hits": f.SpecialInstructionHits,
	}
	if f.Order != nil {
		total, _ := f.Order.TotalAmount().Float64()
		m["order"] = map[string]interface{}{
			"total_amount": total,
			"subtotal":     func() float64 { v, _ := f.Order.Subtotal().Float64(); return v }(),
		}
	}
	for k, v := range f.CustomFacts {
		m[k] = v
	}
	return m
}

// PriorityService is the Priority Scorer (C3): computes a weighted,
// boosted priority score for a queue item from its configured profile.
type PriorityService interface {
	ComputeScore(ctx context.Context, queueID string, facts ScoringFacts, profileOverride string) (*domain.OrderPriorityScore, error)
	ComputeBulk(ctx context.Context, queueID string, facts map[string]ScoringFacts) ([]*domain.OrderPriorityScore, error)
	FairnessIndex(ctx context.Context, queueID string) (float64, error)
	ExpireBoosts(ctx context.Context, now time.Time) (int, error)
	RecomputeStale(ctx context.Context, restaurantID string, staleAfter time.Duration, rescoreThreshold float64) (int, error)
}

type priorityService struct {
	repoManager domain.RepositoryManager
	logger      *logger.Logger
}

// NewPriorityService creates the Priority Scorer.
func NewPriorityService(repoManager domain.RepositoryManager, log *logger.Logger) PriorityService {
	return &priorityService{repoManager: repoManager, logger: log}
}

func (s *priorityService) ComputeScore(ctx context.Context, queueID string, facts ScoringFacts, profileOverride string) (*domain.OrderPriorityScore, error) {
	if facts.Order == nil {
		return nil, fmt.Errorf("scoring facts must carry the order")
	}
	now := time.Now()

	queueCfg, err := s.repoManager.Priority().GetQueueConfig(ctx, queueID)
	if err != nil {
		return nil, err
	}

	profileID := profileOverride
	if profileID == "" {
		profileID = queueCfg.ProfileID
	}
	profile, err := s.repoManager.Priority().GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	rules, err := s.repoManager.Priority().GetRules(ctx, facts.Order.RestaurantID())
	if err != nil {
		return nil, err
	}
	ruleByID := make(map[string]*domain.PriorityRule, len(rules))
	for _, r := range rules {
		ruleByID[r.ID] = r
	}

	components := make([]domain.ComponentScore, 0, len(profile.Rules))
	weighted := make([]float64, 0, len(profile.Rules))
	totalWeight := 0.0

	for _, pr := range profile.Rules {
		rule, ok := ruleByID[pr.RuleID]
		if !ok || !rule.Enabled {
			if ok && rule.Required {
				return nil, fmt.Errorf("required priority rule %s is disabled", pr.RuleID)
			}
			if !ok {
				return nil, fmt.Errorf("priority rule %s bound to profile %s not found", pr.RuleID, profile.ID)
			}
			weighted = append(weighted, pr.FallbackScore)
			totalWeight += 1
			continue
		}

		base := facts.baseValue(rule.ScoreType, rule.Config, now)
		raw := applyScoringFunction(rule.Config, base, facts.toFactMap(now))
		clamped := rule.Clamp(raw)

		if pr.MinThreshold != nil && clamped < *pr.MinThreshold {
			clamped = pr.FallbackScore
		}
		if pr.MaxThreshold != nil && clamped > *pr.MaxThreshold {
			clamped = pr.FallbackScore
		}

		weight := profile.RuleWeight(pr, rule)
		w := clamped * weight
		weighted = append(weighted, w)
		totalWeight += weight

		components = append(components, domain.ComponentScore{
			RuleID: rule.ID, ScoreType: rule.ScoreType, BaseValue: base, Raw: clamped, Weighted: w,
		})
	}

	aggregated := aggregate(profile.Aggregation, weighted)
	if profile.Aggregation == domain.AggregationWeightedSum && profile.TotalWeightNormalization && totalWeight > 0 {
		aggregated = aggregated / totalWeight
	}
	base := clampTotal(aggregated, profile.MinTotalScore, profile.MaxTotalScore)

	boostAmount := 0.0
	if facts.IsVIP {
		boostAmount += queueCfg.BoostVIP
	}
	if facts.PromisedDeliveryAt != nil && now.After(*facts.PromisedDeliveryAt) {
		boostAmount += queueCfg.BoostDelayed
	}
	if facts.PartySize > 4 {
		boostAmount += queueCfg.BoostLargeParty
	}

	activeBoosts, err := s.repoManager.Priority().GetActiveBoosts(ctx, facts.Order.ID())
	if err != nil {
		return nil, err
	}
	var boostExpiry *time.Time
	for _, b := range activeBoosts {
		boostAmount += b.Amount
		if boostExpiry == nil || b.ExpiresAt.After(*boostExpiry) {
			exp := b.ExpiresAt
			boostExpiry = &exp
		}
	}

	total := base + boostAmount
	if queueCfg.IsPeakHour(now.Hour()) {
		total *= queueCfg.PeakMultiplier
	}
	total = clampTotal(total, profile.MinTotalScore, profile.MaxTotalScore)

	score := &domain.OrderPriorityScore{
		OrderID:        facts.Order.ID(),
		QueueID:        queueID,
		Total:          total,
		Base:           base,
		Boost:          boostAmount,
		Components:     components,
		Tier:           domain.TierFor(total),
		CalculatedAt:   now,
		IsBoosted:      len(activeBoosts) > 0,
		BoostExpiresAt: boostExpiry,
	}

	item, err := s.repoManager.QueueItems().GetByOrderID(ctx, facts.Order.ID())
	if err == nil {
		score.QueueItemID = item.ID()
	}

	if err := s.repoManager.Priority().SaveScore(ctx, score); err != nil {
		return nil, err
	}

	if rank, err := s.suggestedSequence(ctx, queueID, facts.Order.ID(), total); err == nil {
		score.SuggestedSeq = rank
	}

	return score, nil
}

// suggestedSequence scans the queue's current scores descending and returns
// the 1-based rank orderID's total would occupy.
func (s *priorityService) suggestedSequence(ctx context.Context, queueID, orderID string, total float64) (int64, error) {
	scores, err := s.repoManager.Priority().GetScoresForQueue(ctx, queueID)
	if err != nil {
		return 0, err
	}
	rank := int64(1)
	for _, sc := range scores {
		if sc.OrderID == orderID {
			continue
		}
		if sc.Total > total {
			rank++
		}
	}
	return rank, nil
}

// ComputeBulk computes scores for every (orderID, facts) pair and pushes
// the refreshed priority into each live queue item's cached Priority field;
// actual position resequencing is the Queue Sequencer's job (Rebalance).
func (s *priorityService) ComputeBulk(ctx context.Context, queueID string, facts map[string]ScoringFacts) ([]*domain.OrderPriorityScore, error) {
	results := make([]*domain.OrderPriorityScore, 0, len(facts))
	for orderID, f := range facts {
		score, err := s.ComputeScore(ctx, queueID, f, "")
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to compute priority score in bulk pass")
			continue
		}
		results = append(results, score)
		if item, err := s.repoManager.QueueItems().GetByOrderID(ctx, orderID); err == nil {
			item.SetPriority(score.Total)
			_ = s.repoManager.QueueItems().Update(ctx, item)
		}
	}
	return results, nil
}

// FairnessIndex returns 1 - Gini coefficient over the live items' component
// scores for queueID (spec.md §4.3 "Fairness metric"); 1.0 is perfectly
// fair, 0.0 maximally unequal.
func (s *priorityService) FairnessIndex(ctx context.Context, queueID string) (float64, error) {
	scores, err := s.repoManager.Priority().GetScoresForQueue(ctx, queueID)
	if err != nil {
		return 1.0, err
	}
	if len(scores) < 2 {
		return 1.0, nil
	}
	values := make([]float64, len(scores))
	for i, sc := range scores {
		values[i] = sc.Total
	}
	return 1.0 - giniCoefficient(values), nil
}

// giniCoefficient computes the Gini coefficient of values via the mean
// absolute difference formula: G = Σ|xi-xj| / (2*n^2*mean).
func giniCoefficient(values []float64) float64 {
	n := len(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return 0
	}
	mean := sum / float64(n)

	var absDiffSum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			absDiffSum += math.Abs(values[i] - values[j])
		}
	}
	return absDiffSum / (2 * float64(n) * float64(n) * mean)
}

// ExpireBoosts clears every boost whose expiry has passed as of now,
// recomputing the affected orders' cached total back to base. Run by the
// boost-expiry worker every 30s per spec.md §4.4.
func (s *priorityService) ExpireBoosts(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repoManager.Priority().GetExpiredBoosts(ctx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, boost := range expired {
		score, err := s.repoManager.Priority().GetScore(ctx, boost.OrderID)
		if err == nil {
			score.Total = score.Base
			score.Boost = 0
			score.IsBoosted = false
			score.BoostExpiresAt = nil
			score.Tier = domain.TierFor(score.Total)
			score.CalculatedAt = now
			if err := s.repoManager.Priority().SaveScore(ctx, score); err != nil {
				s.logger.WithError(err).WithField("order_id", boost.OrderID).Warn("failed to clear expired boost overlay")
			}
		}
		if err := s.repoManager.Priority().DeleteBoost(ctx, boost.ID); err != nil {
			s.logger.WithError(err).WithField("boost_id", boost.ID).Warn("failed to delete expired boost")
			continue
		}
		count++
	}
	return count, nil
}

// RecomputeStale finds scores older than staleAfter for live items of the
// given restaurant and recomputes their wait-time-derived component only,
// since the original ScoringFacts aren't retained; queues whose item's new
// score differs by more than rescoreThreshold get their item priority field
// refreshed for pickup by the next rebalance pass. Run every 5 minutes per
// spec.md §4.4, once per restaurant known to the caller.
func (s *priorityService) RecomputeStale(ctx context.Context, restaurantID string, staleAfter time.Duration, rescoreThreshold float64) (int, error) {
	queues, err := s.repoManager.Queue().GetQueuesByRestaurant(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	count := 0
	for _, q := range queues {
		scores, err := s.repoManager.Priority().GetScoresForQueue(ctx, q.ID())
		if err != nil {
			continue
		}
		for _, sc := range scores {
			if now.Sub(sc.CalculatedAt) < staleAfter {
				continue
			}
			item, err := s.repoManager.QueueItems().GetByOrderID(ctx, sc.OrderID)
			if err != nil || !item.IsLive() {
				continue
			}
			waitMinutes := now.Sub(item.QueuedAt()).Minutes()
			refreshed := sc.Base + (waitMinutes - (sc.CalculatedAt.Sub(item.QueuedAt()).Minutes()))
			if math.Abs(refreshed-sc.Total) <= rescoreThreshold {
				continue
			}
			sc.Total = refreshed
			sc.Tier = domain.TierFor(refreshed)
			sc.CalculatedAt = now
			if err := s.repoManager.Priority().SaveScore(ctx, sc); err != nil {
				continue
			}
			item.SetPriority(refreshed)
			_ = s.repoManager.QueueItems().Update(ctx, item)
			count++
		}
	}
	return count, nil
}

func applyScoringFunction(cfg domain.ScoreConfig, value float64, facts map[string]interface{}) float64 {
	switch cfg.Type {
	case domain.ScoringLinear:
		return cfg.Base + value*cfg.Multiplier
	case domain.ScoringExponential:
		return cfg.Base + cfg.Multiplier*math.Pow(value, cfg.Exponent)
	case domain.ScoringLogarithmic:
		if value <= 0 {
			return cfg.Base
		}
		return cfg.Base + cfg.Multiplier*math.Log(value+1)
	case domain.ScoringStep:
		for _, step := range cfg.Steps {
			if step.Threshold >= value {
				return step.Score
			}
		}
		return cfg.DefaultScore
	case domain.ScoringCustom:
		return domain.EvaluateCustomScore(cfg, facts)
	default:
		return value
	}
}

func aggregate(method domain.AggregationMethod, weighted []float64) float64 {
	if len(weighted) == 0 {
		return 0
	}
	switch method {
	case domain.AggregationMax:
		m := weighted[0]
		for _, w := range weighted[1:] {
			if w > m {
				m = w
			}
		}
		return m
	case domain.AggregationMin:
		m := weighted[0]
		for _, w := range weighted[1:] {
			if w < m {
				m = w
			}
		}
		return m
	case domain.AggregationAverage:
		sum := 0.0
		for _, w := range weighted {
			sum += w
		}
		return sum / float64(len(weighted))
	case domain.AggregationMultiply:
		product := 1.0
		for _, w := range weighted {
			product *= w
		}
		return product
	case domain.AggregationWeightedSum:
		fallthrough
	default:
		sum := 0.0
		for _, w := range weighted {
			sum += w
		}
		return sum
	}
}

func clampTotal(v, min, max float64) float64 {
	if max > min {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
	}
	return v
}

