package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// RedisPriorityRepository implements domain.PriorityRepository (C3). Rules
// and profiles are low-churn config, stored as plain keys; scores and
// boosts are hot, recomputed-per-queue-tick data, each scoped under its
// queue/order for cheap bulk reads.
type RedisPriorityRepository struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisPriorityRepository creates a new Redis priority repository.
func NewRedisPriorityRepository(client *redis.Client, log *logger.Logger) domain.PriorityRepository {
	return &RedisPriorityRepository{client: client, logger: log}
}

const (
	priorityRuleKeyPrefix    = "kitchen:priority_rule:"
	priorityRuleSetPrefix    = "kitchen:priority_rules:by_restaurant:"
	priorityProfileKeyPrefix = "kitchen:priority_profile:"
	queuePriorityConfigKey   = "kitchen:queue_priority_config:"
	priorityScoreKeyPrefix   = "kitchen:priority_score:"
	queueScoresSetPrefix     = "kitchen:queue:%s:scores"
	boostKeyPrefix           = "kitchen:boost:"
	orderBoostsSetPrefix     = "kitchen:order:%s:boosts"
	allBoostsSet             = "kitchen:boosts:all"
)

func (r *RedisPriorityRepository) GetRules(ctx context.Context, restaurantID string) ([]*domain.PriorityRule, error) {
	ids, err := r.client.SMembers(ctx, priorityRuleSetPrefix+restaurantID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list priority rule ids: %w", err)
	}
	rules := make([]*domain.PriorityRule, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, priorityRuleKeyPrefix+id).Result()
		if err != nil {
			continue
		}
		var rule domain.PriorityRule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			continue
		}
		rules = append(rules, &rule)
	}
	return rules, nil
}

func (r *RedisPriorityRepository) SaveRule(ctx context.Context, rule *domain.PriorityRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal priority rule: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, priorityRuleKeyPrefix+rule.ID, data, 0)
	pipe.SAdd(ctx, priorityRuleSetPrefix+rule.RestaurantID, rule.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisPriorityRepository) GetProfile(ctx context.Context, id string) (*domain.PriorityProfile, error) {
	data, err := r.client.Get(ctx, priorityProfileKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound("priority_profile", id)
		}
		return nil, fmt.Errorf("failed to get priority profile: %w", err)
	}
	var profile domain.PriorityProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal priority profile: %w", err)
	}
	return &profile, nil
}

func (r *RedisPriorityRepository) SaveProfile(ctx context.Context, profile *domain.PriorityProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal priority profile: %w", err)
	}
	return r.client.Set(ctx, priorityProfileKeyPrefix+profile.ID, data, 0).Err()
}

func (r *RedisPriorityRepository) GetQueueConfig(ctx context.Context, queueID string) (*domain.QueuePriorityConfig, error) {
	data, err := r.client.Get(ctx, queuePriorityConfigKey+queueID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound("queue_priority_config", queueID)
		}
		return nil, fmt.Errorf("failed to get queue priority config: %w", err)
	}
	var cfg domain.QueuePriorityConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue priority config: %w", err)
	}
	return &cfg, nil
}

func (r *RedisPriorityRepository) SaveQueueConfig(ctx context.Context, cfg *domain.QueuePriorityConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue priority config: %w", err)
	}
	return r.client.Set(ctx, queuePriorityConfigKey+cfg.QueueID, data, 0).Err()
}

func (r *RedisPriorityRepository) GetScore(ctx context.Context, orderID string) (*domain.OrderPriorityScore, error) {
	data, err := r.client.Get(ctx, priorityScoreKeyPrefix+orderID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound("priority_score", orderID)
		}
		return nil, fmt.Errorf("failed to get priority score: %w", err)
	}
	var score domain.OrderPriorityScore
	if err := json.Unmarshal([]byte(data), &score); err != nil {
		return nil, fmt.Errorf("failed to unmarshal priority score: %w", err)
	}
	return &score, nil
}

func (r *RedisPriorityRepository) SaveScore(ctx context.Context, score *domain.OrderPriorityScore) error {
	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to marshal priority score: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, priorityScoreKeyPrefix+score.OrderID, data, 0)
	pipe.ZAdd(ctx, fmt.Sprintf(queueScoresSetPrefix, score.QueueID), &redis.Z{Score: score.Total, Member: score.OrderID})
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisPriorityRepository) GetScoresForQueue(ctx context.Context, queueID string) ([]*domain.OrderPriorityScore, error) {
	orderIDs, err := r.client.ZRevRangeByScore(ctx, fmt.Sprintf(queueScoresSetPrefix, queueID), &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list queue scores: %w", err)
	}
	scores := make([]*domain.OrderPriorityScore, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		score, err := r.GetScore(ctx, orderID)
		if err != nil {
			continue
		}
		scores = append(scores, score)
	}
	return scores, nil
}

func (r *RedisPriorityRepository) GetActiveBoosts(ctx context.Context, orderID string) ([]*domain.Boost, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(orderBoostsSetPrefix, orderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list boost ids: %w", err)
	}
	boosts := make([]*domain.Boost, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		data, err := r.client.Get(ctx, boostKeyPrefix+id).Result()
		if err != nil {
			continue
		}
		var boost domain.Boost
		if err := json.Unmarshal([]byte(data), &boost); err != nil {
			continue
		}
		if !boost.IsExpired(now) {
			boosts = append(boosts, &boost)
		}
	}
	return boosts, nil
}

func (r *RedisPriorityRepository) SaveBoost(ctx context.Context, boost *domain.Boost) error {
	data, err := json.Marshal(boost)
	if err != nil {
		return fmt.Errorf("failed to marshal boost: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, boostKeyPrefix+boost.ID, data, 0)
	pipe.SAdd(ctx, fmt.Sprintf(orderBoostsSetPrefix, boost.OrderID), boost.ID)
	pipe.SAdd(ctx, allBoostsSet, boost.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisPriorityRepository) GetExpiredBoosts(ctx context.Context, asOf time.Time) ([]*domain.Boost, error) {
	ids, err := r.client.SMembers(ctx, allBoostsSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list all boost ids: %w", err)
	}
	var expired []*domain.Boost
	for _, id := range ids {
		data, err := r.client.Get(ctx, boostKeyPrefix+id).Result()
		if err != nil {
			continue
		}
		var boost domain.Boost
		if err := json.Unmarshal([]byte(data), &boost); err != nil {
			continue
		}
		if boost.IsExpired(asOf) {
			expired = append(expired, &boost)
		}
	}
	return expired, nil
}

func (r *RedisPriorityRepository) DeleteBoost(ctx context.Context, id string) error {
	data, err := r.client.Get(ctx, boostKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to get boost for delete: %w", err)
	}
	var boost domain.Boost
	if err := json.Unmarshal([]byte(data), &boost); err != nil {
		return fmt.Errorf("failed to unmarshal boost: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, boostKeyPrefix+id)
	pipe.SRem(ctx, fmt.Sprintf(orderBoostsSetPrefix, boost.OrderID), id)
	pipe.SRem(ctx, allBoostsSet, id)
	_, err = pipe.Exec(ctx)
	return err
}
