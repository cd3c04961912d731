// Package workers runs the Order Orchestration Core's periodic
// maintenance passes: queue rebalancing, boost expiry, stale-score
// recomputation, and pricing-rule expiry. Each is a plain ticker loop
// selecting on context cancellation rather than a job-queue pool, since
// there is no discrete work item to submit per tick — see DESIGN.md.
package workers

import (
	"context"
	"time"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/application"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

// RestaurantLister supplies the set of restaurant ids the periodic workers
// should sweep. The domain's QueueRepository only indexes queues by
// restaurant id, not as a flat list, so callers must inject how that list
// is obtained (a restaurants table, a static config list, a discovery
// call) — there is no feature in this core to derive it from.
type RestaurantLister func(ctx context.Context) ([]string, error)

// Runner starts and stops the full set of background maintenance workers.
type Runner struct {
	repoManager     domain.RepositoryManager
	priorityService application.PriorityService
	pricingService  application.PricingService
	queueService    application.QueueService
	restaurants     RestaurantLister
	logger          *logger.Logger
	metrics         *monitoring.BusinessMetrics

	rebalanceInterval      time.Duration
	boostExpiryInterval    time.Duration
	scoreRecomputeInterval time.Duration
	ruleExpiryInterval     time.Duration

	staleAfter        time.Duration
	rescoreThreshold  float64
}

// Config tunes the Runner's worker intervals and thresholds.
type Config struct {
	RebalanceInterval      time.Duration
	BoostExpiryInterval    time.Duration
	ScoreRecomputeInterval time.Duration
	RuleExpiryInterval     time.Duration
	StaleAfter             time.Duration
	RescoreThreshold       float64
}

// NewRunner creates a background worker Runner.
func NewRunner(repoManager domain.RepositoryManager, priorityService application.PriorityService, pricingService application.PricingService, queueService application.QueueService, restaurants RestaurantLister, cfg Config, log *logger.Logger) *Runner {
	return &Runner{
		repoManager:            repoManager,
		priorityService:        priorityService,
		pricingService:         pricingService,
		queueService:           queueService,
		restaurants:            restaurants,
		logger:                 log,
		rebalanceInterval:      cfg.RebalanceInterval,
		boostExpiryInterval:    cfg.BoostExpiryInterval,
		scoreRecomputeInterval: cfg.ScoreRecomputeInterval,
		ruleExpiryInterval:     cfg.RuleExpiryInterval,
		staleAfter:             cfg.StaleAfter,
		rescoreThreshold:       cfg.RescoreThreshold,
	}
}

// SetMetrics wires Prometheus counters into the rebalance path. Recording
// is a no-op until this is called.
func (r *Runner) SetMetrics(metrics *monitoring.BusinessMetrics) {
	r.metrics = metrics
}

// Start launches every maintenance worker as its own goroutine. Workers run
// until ctx is cancelled; a single queue's rebalance failure does not stop
// others, and a stopped worker never blocks the others' shutdown.
func (r *Runner) Start(ctx context.Context) {
	go r.runRebalancer(ctx)
	go r.runBoostExpirer(ctx)
	go r.runStaleRecomputer(ctx)
	go r.runRuleExpirer(ctx)
}

func (r *Runner) runRebalancer(ctx context.Context) {
	ticker := time.NewTicker(r.rebalanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rebalancer worker stopping")
			return
		case <-ticker.C:
			r.rebalanceAllQueues(ctx)
		}
	}
}

// RebalanceNow runs a single out-of-band rebalance pass over every queue of
// every restaurant the Runner's RestaurantLister knows about, for operators
// recovering a queue by hand without waiting for the next ticker tick.
func (r *Runner) RebalanceNow(ctx context.Context) {
	r.rebalanceAllQueues(ctx)
}

func (r *Runner) rebalanceAllQueues(ctx context.Context) {
	start := time.Now()
	restaurantIDs, err := r.restaurants(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("rebalancer worker failed to list restaurants")
		if r.metrics != nil {
			r.metrics.RecordRebalance("failed", start)
		}
		return
	}
	failed := false
	for _, restaurantID := range restaurantIDs {
		queues, err := r.listQueues(ctx, restaurantID)
		if err != nil {
			r.logger.WithError(err).WithField("restaurant_id", restaurantID).Warn("rebalancer worker failed to list queues")
			failed = true
			continue
		}
		for _, queueID := range queues {
			if _, err := r.queueService.Rebalance(ctx, queueID, false); err != nil {
				r.logger.WithError(err).WithField("queue_id", queueID).Warn("rebalance pass failed, continuing with other queues")
				failed = true
			}
		}
	}
	if r.metrics != nil {
		result := "ok"
		if failed {
			result = "failed"
		}
		r.metrics.RecordRebalance(result, start)
	}
}

func (r *Runner) runBoostExpirer(ctx context.Context) {
	ticker := time.NewTicker(r.boostExpiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("boost expirer worker stopping")
			return
		case <-ticker.C:
			n, err := r.priorityService.ExpireBoosts(ctx, time.Now())
			if err != nil {
				r.logger.WithError(err).Warn("boost expiry pass failed")
				continue
			}
			if n > 0 {
				r.logger.WithField("expired_count", n).Info("expired boosts")
			}
		}
	}
}

func (r *Runner) runStaleRecomputer(ctx context.Context) {
	ticker := time.NewTicker(r.scoreRecomputeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stale-score recomputer worker stopping")
			return
		case <-ticker.C:
			r.recomputeStaleForAllRestaurants(ctx)
		}
	}
}

func (r *Runner) recomputeStaleForAllRestaurants(ctx context.Context) {
	restaurantIDs, err := r.restaurants(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("stale-score recomputer worker failed to list restaurants")
		return
	}
	for _, restaurantID := range restaurantIDs {
		n, err := r.priorityService.RecomputeStale(ctx, restaurantID, r.staleAfter, r.rescoreThreshold)
		if err != nil {
			r.logger.WithError(err).WithField("restaurant_id", restaurantID).Warn("stale-score recompute pass failed")
			continue
		}
		if n > 0 {
			r.logger.WithField("restaurant_id", restaurantID).WithField("recomputed_count", n).Info("recomputed stale priority scores")
		}
	}
}

func (r *Runner) runRuleExpirer(ctx context.Context) {
	ticker := time.NewTicker(r.ruleExpiryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rule expirer worker stopping")
			return
		case <-ticker.C:
			n, err := r.pricingService.ExpireRules(ctx, time.Now())
			if err != nil {
				r.logger.WithError(err).Warn("pricing rule expiry pass failed")
				continue
			}
			if n > 0 {
				r.logger.WithField("expired_count", n).Info("expired pricing rules")
			}
		}
	}
}

// listQueues returns the live queue ids for a restaurant, used by the
// rebalancer to fan its per-queue pass out.
func (r *Runner) listQueues(ctx context.Context, restaurantID string) ([]string, error) {
	queues, err := r.repoManager.Queue().GetQueuesByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(queues))
	for _, q := range queues {
		ids = append(ids, q.ID())
	}
	return ids, nil
}
