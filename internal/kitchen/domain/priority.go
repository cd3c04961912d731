package domain

import (
	"time"
)

// ScoreType is a named scoring factor a priority rule derives its base
// value from (spec.md §4.3).
type ScoreType string

const (
	ScoreWaitTime        ScoreType = "wait_time"
	ScoreOrderValue      ScoreType = "order_value"
	ScoreVIP             ScoreType = "vip"
	ScoreDeliveryTime    ScoreType = "delivery_time"
	ScorePrepComplexity  ScoreType = "prep_complexity"
	ScoreCustomerLoyalty ScoreType = "customer_loyalty"
	ScorePeakHours       ScoreType = "peak_hours"
	ScoreGroupSize       ScoreType = "group_size"
	ScoreSpecialNeeds    ScoreType = "special_needs"
	ScoreCustom          ScoreType = "custom"
)

func (t ScoreType) IsValid() bool {
	switch t {
	case ScoreWaitTime, ScoreOrderValue, ScoreVIP, ScoreDeliveryTime, ScorePrepComplexity,
		ScoreCustomerLoyalty, ScorePeakHours, ScoreGroupSize, ScoreSpecialNeeds, ScoreCustom:
		return true
	}
	return false
}

// ScoringFunctionType is the curve shape applied to a rule's base value.
type ScoringFunctionType string

const (
	ScoringLinear      ScoringFunctionType = "linear"
	ScoringExponential ScoringFunctionType = "exponential"
	ScoringLogarithmic ScoringFunctionType = "logarithmic"
	ScoringStep        ScoringFunctionType = "step"
	ScoringCustom       ScoringFunctionType = "custom"
)

// ScoreStep is one (threshold, score) pair of a step scoring function; the
// first step whose Threshold is >= the base value wins.
type ScoreStep struct {
	Threshold float64
	Score     float64
}

// ScoreConfig is the declarative scoring-curve document bound to a
// PriorityRule (spec.md §6 "score_config").
type ScoreConfig struct {
	Type         ScoringFunctionType
	Base         float64
	Multiplier   float64
	Exponent     float64
	Steps        []ScoreStep
	DefaultScore float64
	// CustomExpression drives ScoringCustom via the shared declarative
	// evaluator instead of executing arbitrary code (see expr.go).
	CustomExpression map[string]interface{}
}

// PriorityRule is a named scoring factor with its curve and score bounds.
type PriorityRule struct {
	ID            string
	RestaurantID  string
	Name          string
	ScoreType     ScoreType
	Config        ScoreConfig
	MinScore      float64
	MaxScore      float64
	DefaultWeight float64
	Required      bool
	Enabled       bool
	CreatedAt     time.Time
}

// Clamp bounds v to [MinScore, MaxScore].
func (r *PriorityRule) Clamp(v float64) float64 {
	if v < r.MinScore {
		return r.MinScore
	}
	if v > r.MaxScore {
		return r.MaxScore
	}
	return v
}

// AggregationMethod combines a profile's weighted component scores into a
// single total.
type AggregationMethod string

const (
	AggregationWeightedSum AggregationMethod = "weighted_sum"
	AggregationMax         AggregationMethod = "max"
	AggregationMin         AggregationMethod = "min"
	AggregationAverage     AggregationMethod = "average"
	AggregationMultiply    AggregationMethod = "multiply"
)

// ProfileRule binds a PriorityRule into a PriorityProfile with an optional
// weight override and band thresholds.
type ProfileRule struct {
	RuleID        string
	WeightOverride *float64
	MinThreshold  *float64
	MaxThreshold  *float64
	FallbackScore float64
}

// PriorityProfile bundles scoring rules with an aggregation method and the
// bounds the final score is clamped to.
type PriorityProfile struct {
	ID                      string
	RestaurantID            string
	Name                    string
	Rules                   []ProfileRule
	Aggregation             AggregationMethod
	TotalWeightNormalization bool
	MinTotalScore           float64
	MaxTotalScore           float64
}

// RuleWeight returns the effective weight for a bound rule: the profile
// binding's override if set, else the rule's own default weight.
func (p *PriorityProfile) RuleWeight(pr ProfileRule, rule *PriorityRule) float64 {
	if pr.WeightOverride != nil {
		return *pr.WeightOverride
	}
	return rule.DefaultWeight
}

// RebalancePolicy configures the fairness-driven rebalance pass for a queue.
type RebalancePolicy struct {
	IntervalMinutes  int32
	FairnessThreshold float64
	MaxPositionChange int
}

// QueuePriorityConfig binds a priority profile to one queue, plus boost
// amounts and the rebalance policy.
type QueuePriorityConfig struct {
	QueueID         string
	ProfileID       string
	BoostVIP        float64
	BoostDelayed    float64
	BoostLargeParty float64
	PeakMultiplier  float64
	PeakHours       []int
	Rebalance       RebalancePolicy
}

// IsPeakHour reports whether hour (0-23) is configured as a peak hour.
func (c *QueuePriorityConfig) IsPeakHour(hour int) bool {
	for _, h := range c.PeakHours {
		if h == hour {
			return true
		}
	}
	return false
}

// PriorityTier buckets a total score for display/UX purposes.
type PriorityTier string

const (
	TierHigh   PriorityTier = "high"
	TierMedium PriorityTier = "medium"
	TierLow    PriorityTier = "low"
)

// TierFor buckets a total score per spec.md §4.3 (>=80 high, >=50 medium,
// else low).
func TierFor(total float64) PriorityTier {
	switch {
	case total >= 80:
		return TierHigh
	case total >= 50:
		return TierMedium
	default:
		return TierLow
	}
}

// ComponentScore is one rule's contribution to an OrderPriorityScore.
type ComponentScore struct {
	RuleID    string
	ScoreType ScoreType
	BaseValue float64
	Raw       float64
	Weighted  float64
}

// OrderPriorityScore is the cached per-queue-item score (C3 output).
type OrderPriorityScore struct {
	QueueItemID     string
	OrderID         string
	QueueID         string
	Total           float64
	Base            float64
	Boost           float64
	Components      []ComponentScore
	Tier            PriorityTier
	CalculatedAt    time.Time
	IsBoosted       bool
	BoostExpiresAt  *time.Time
	SuggestedSeq    int64
}

// Boost is a transient additive priority overlay on a queue item.
type Boost struct {
	ID        string
	QueueItemID string
	OrderID   string
	Amount    float64
	Reason    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the boost has lapsed as of at.
func (b *Boost) IsExpired(at time.Time) bool { return !at.Before(b.ExpiresAt) }
