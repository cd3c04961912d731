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

// RedisQueueRepository implements domain.QueueRepository, grounded in the
// teacher's key-prefix + secondary-index-set pattern: a queue's metadata
// lives at kitchen:queue:<id>, and a restaurant-scoped set indexes its
// live queues for GetQueuesByRestaurant.
type RedisQueueRepository struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisQueueRepository creates a new Redis queue repository.
func NewRedisQueueRepository(client *redis.Client, log *logger.Logger) domain.QueueRepository {
	return &RedisQueueRepository{client: client, logger: log}
}

const (
	queueKeyPrefix    = "kitchen:queue:"
	queueByRestaurant = "kitchen:queue:by_restaurant:"
)

type queueDTO struct {
	ID              string             `json:"id"`
	RestaurantID    string             `json:"restaurant_id"`
	Name            string             `json:"name"`
	Type            domain.QueueType   `json:"type"`
	Status          domain.QueueStatus `json:"status"`
	Capacity        int32              `json:"capacity"`
	CurrentSize     int32              `json:"current_size"`
	DefaultPrepTime time.Duration      `json:"default_prep_time"`
	WarningSLA      time.Duration      `json:"warning_sla"`
	CriticalSLA     time.Duration      `json:"critical_sla"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (r *RedisQueueRepository) SaveQueue(ctx context.Context, queue *domain.StationQueue) error {
	dto := queueDTO{
		ID: queue.ID(), RestaurantID: queue.RestaurantID(), Name: queue.Name(), Type: queue.Type(),
		Status: queue.Status(), Capacity: queue.Capacity(), CurrentSize: queue.CurrentSize(),
		DefaultPrepTime: queue.DefaultPrepTime(), WarningSLA: queue.WarningSLA(), CriticalSLA: queue.CriticalSLA(),
		UpdatedAt: queue.UpdatedAt(),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, queueKeyPrefix+queue.ID(), data, 0)
	pipe.SAdd(ctx, queueByRestaurant+queue.RestaurantID(), queue.ID())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).WithField("queue_id", queue.ID()).Error("failed to save queue")
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

func (r *RedisQueueRepository) GetQueue(ctx context.Context, id string) (*domain.StationQueue, error) {
	data, err := r.client.Get(ctx, queueKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound("queue", id)
		}
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	var dto queueDTO
	if err := json.Unmarshal([]byte(data), &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue: %w", err)
	}
	return domain.ReconstructStationQueue(dto.ID, dto.RestaurantID, dto.Name, dto.Type, dto.Status,
		dto.Capacity, dto.CurrentSize, dto.DefaultPrepTime, dto.WarningSLA, dto.CriticalSLA,
		dto.CreatedAt, dto.UpdatedAt), nil
}

func (r *RedisQueueRepository) GetQueuesByRestaurant(ctx context.Context, restaurantID string) ([]*domain.StationQueue, error) {
	ids, err := r.client.SMembers(ctx, queueByRestaurant+restaurantID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list queue ids: %w", err)
	}
	queues := make([]*domain.StationQueue, 0, len(ids))
	for _, id := range ids {
		q, err := r.GetQueue(ctx, id)
		if err != nil {
			continue
		}
		queues = append(queues, q)
	}
	return queues, nil
}

func (r *RedisQueueRepository) DeleteQueue(ctx context.Context, id string) error {
	q, err := r.GetQueue(ctx, id)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, queueKeyPrefix+id)
	pipe.SRem(ctx, queueByRestaurant+q.RestaurantID(), id)
	_, err = pipe.Exec(ctx)
	return err
}

// GetThroughputStats computes a coarse throughput snapshot from the live
// item count; richer historical stats would require a time-series store,
// out of scope for this core.
func (r *RedisQueueRepository) GetThroughputStats(ctx context.Context, queueID string, start, end time.Time) (*domain.ThroughputStats, error) {
	q, err := r.GetQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	return &domain.ThroughputStats{
		AverageQueueLength: float32(q.CurrentSize()),
		MaxQueueLength:     q.Capacity(),
		CalculatedAt:       time.Now(),
	}, nil
}

// RedisQueueItemRepository implements domain.QueueItemRepository. Items
// live at kitchen:queue:<queueID>:items as a sorted set keyed by sequence
// number (for ordered scans) alongside a kitchen:item:<id> key for the
// item body, plus kitchen:queue:<queueID>:order_index mapping order id to
// item id for GetByOrderID.
type RedisQueueItemRepository struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisQueueItemRepository creates a new Redis queue item repository.
func NewRedisQueueItemRepository(client *redis.Client, log *logger.Logger) domain.QueueItemRepository {
	return &RedisQueueItemRepository{client: client, logger: log}
}

const (
	itemKeyPrefix    = "kitchen:item:"
	queueItemsZSet   = "kitchen:queue:%s:items"
	queueOrderIndex  = "kitchen:queue:%s:order_index"
	queueSequenceKey = "kitchen:queue:%s:next_seq"
	itemHistoryKey   = "kitchen:item:%s:history"
	globalOrderIndex = "kitchen:order_index"
)

type queueItemDTO struct {
	ID               string                 `json:"id"`
	QueueID          string                 `json:"queue_id"`
	OrderID          string                 `json:"order_id"`
	SequenceNumber   int64                  `json:"sequence_number"`
	Priority         float64                `json:"priority"`
	Expedited        bool                   `json:"expedited"`
	Status           domain.QueueItemStatus `json:"status"`
	Assignment       domain.ItemAssignment  `json:"assignment"`
	QueuedAt         time.Time              `json:"queued_at"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	ReadyAt          *time.Time             `json:"ready_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	HoldUntil        *time.Time             `json:"hold_until,omitempty"`
	HoldReason       string                 `json:"hold_reason,omitempty"`
	EstimatedReadyAt *time.Time             `json:"estimated_ready_at,omitempty"`
	PrepTimeActual   time.Duration          `json:"prep_time_actual"`
	WaitTimeActual   time.Duration          `json:"wait_time_actual"`
}

func toItemDTO(item *domain.QueueItem) queueItemDTO {
	return queueItemDTO{
		ID: item.ID(), QueueID: item.QueueID(), OrderID: item.OrderID(), SequenceNumber: item.SequenceNumber(),
		Priority: item.Priority(), Expedited: item.Expedited(), Status: item.Status(), Assignment: item.Assignment(),
		QueuedAt: item.QueuedAt(), StartedAt: item.StartedAt(), ReadyAt: item.ReadyAt(), CompletedAt: item.CompletedAt(),
		HoldUntil: item.HoldUntil(), HoldReason: item.HoldReason(), EstimatedReadyAt: item.EstimatedReadyAt(),
		PrepTimeActual: item.PrepTimeActual(), WaitTimeActual: item.WaitTimeActual(),
	}
}

func fromItemDTO(dto queueItemDTO) *domain.QueueItem {
	return domain.ReconstructQueueItem(dto.ID, dto.QueueID, dto.OrderID, dto.SequenceNumber, dto.Priority,
		dto.Expedited, dto.Status, dto.Assignment, dto.QueuedAt, dto.StartedAt, dto.ReadyAt, dto.CompletedAt,
		dto.HoldUntil, dto.HoldReason, dto.EstimatedReadyAt, dto.PrepTimeActual, dto.WaitTimeActual)
}

func (r *RedisQueueItemRepository) Create(ctx context.Context, item *domain.QueueItem) error {
	data, err := json.Marshal(toItemDTO(item))
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, itemKeyPrefix+item.ID(), data, 0)
	pipe.ZAdd(ctx, fmt.Sprintf(queueItemsZSet, item.QueueID()), &redis.Z{Score: float64(item.SequenceNumber()), Member: item.ID()})
	pipe.HSet(ctx, fmt.Sprintf(queueOrderIndex, item.QueueID()), item.OrderID(), item.ID())
	pipe.HSet(ctx, globalOrderIndex, item.OrderID(), item.ID())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).WithField("item_id", item.ID()).Error("failed to create queue item")
		return fmt.Errorf("failed to create queue item: %w", err)
	}
	return nil
}

func (r *RedisQueueItemRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	data, err := r.client.Get(ctx, itemKeyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound("queue_item", id)
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	var dto queueItemDTO
	if err := json.Unmarshal([]byte(data), &dto); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return fromItemDTO(dto), nil
}

func (r *RedisQueueItemRepository) Update(ctx context.Context, item *domain.QueueItem) error {
	data, err := json.Marshal(toItemDTO(item))
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, itemKeyPrefix+item.ID(), data, 0)
	pipe.ZAdd(ctx, fmt.Sprintf(queueItemsZSet, item.QueueID()), &redis.Z{Score: float64(item.SequenceNumber()), Member: item.ID()})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	return nil
}

func (r *RedisQueueItemRepository) Delete(ctx context.Context, id string) error {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, itemKeyPrefix+id)
	pipe.ZRem(ctx, fmt.Sprintf(queueItemsZSet, item.QueueID()), id)
	pipe.HDel(ctx, fmt.Sprintf(queueOrderIndex, item.QueueID()), item.OrderID())
	pipe.HDel(ctx, globalOrderIndex, item.OrderID())
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisQueueItemRepository) GetByQueue(ctx context.Context, queueID string) ([]*domain.QueueItem, error) {
	ids, err := r.client.ZRangeByScore(ctx, fmt.Sprintf(queueItemsZSet, queueID), &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list queue item ids: %w", err)
	}
	items := make([]*domain.QueueItem, 0, len(ids))
	for _, id := range ids {
		item, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// GetByOrderID looks up an order's current queue item via the global
// order-index hash, populated by Create/Delete. At most one live item may
// exist per order (spec.md §3 "order id (unique across live items)").
func (r *RedisQueueItemRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.QueueItem, error) {
	itemID, err := r.client.HGet(ctx, globalOrderIndex, orderID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound("queue_item_by_order", orderID)
		}
		return nil, fmt.Errorf("failed to look up queue item by order: %w", err)
	}
	return r.GetByID(ctx, itemID)
}

func (r *RedisQueueItemRepository) GetLiveCount(ctx context.Context, queueID string) (int32, error) {
	items, err := r.GetByQueue(ctx, queueID)
	if err != nil {
		return 0, err
	}
	var count int32
	for _, item := range items {
		if item.IsLive() {
			count++
		}
	}
	return count, nil
}

// NextSequenceNumber atomically allocates the next sequence number for a
// queue via INCR, the optimistic-concurrency-free path for the common
// append-to-tail admission case.
func (r *RedisQueueItemRepository) NextSequenceNumber(ctx context.Context, queueID string) (int64, error) {
	n, err := r.client.Incr(ctx, fmt.Sprintf(queueSequenceKey, queueID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence number: %w", err)
	}
	return n, nil
}

func (r *RedisQueueItemRepository) AppendStatusHistory(ctx context.Context, history *domain.QueueItemStatusHistory) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal status history: %w", err)
	}
	key := fmt.Sprintf(itemHistoryKey, history.QueueItemID)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// RedisSequenceRuleRepository implements domain.SequenceRuleRepository.
type RedisSequenceRuleRepository struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisSequenceRuleRepository creates a new Redis sequence rule repository.
func NewRedisSequenceRuleRepository(client *redis.Client, log *logger.Logger) domain.SequenceRuleRepository {
	return &RedisSequenceRuleRepository{client: client, logger: log}
}

const sequenceRulesSet = "kitchen:queue:%s:rules"

func (r *RedisSequenceRuleRepository) GetByQueue(ctx context.Context, queueID string) ([]*domain.SequenceRule, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(sequenceRulesSet, queueID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sequence rule ids: %w", err)
	}
	rules := make([]*domain.SequenceRule, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, "kitchen:sequence_rule:"+id).Result()
		if err != nil {
			continue
		}
		var rule domain.SequenceRule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			continue
		}
		rules = append(rules, &rule)
	}
	return rules, nil
}

func (r *RedisSequenceRuleRepository) Save(ctx context.Context, rule *domain.SequenceRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal sequence rule: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, "kitchen:sequence_rule:"+rule.ID, data, 0)
	pipe.SAdd(ctx, fmt.Sprintf(sequenceRulesSet, rule.QueueID), rule.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisSequenceRuleRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, "kitchen:sequence_rule:"+id).Err()
}
