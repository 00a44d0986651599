package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"eventstage/internal/model"
	"eventstage/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	NotificationStream = "eventstage:notifications"
	DispatcherGroup    = "notification-dispatchers"

	payloadField = "notification"
)

// StreamOptions tunes the stream queue. Zero fields take the defaults.
type StreamOptions struct {
	RedeliverAfter time.Duration // 待確認超過此時間就重新領取
	MaxDeliveries  int           // 投遞超過此次數的通知直接丟棄
	BlockFor       time.Duration
	BatchSize      int64
	MaxLen         int64 // 0 = 不裁切
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.RedeliverAfter <= 0 {
		o.RedeliverAfter = 10 * time.Second
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 5
	}
	if o.BlockFor <= 0 {
		o.BlockFor = 2 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	return o
}

// RedisStreamNotificationQueueImpl shares notifications between server
// instances through one consumer group. Unacked entries are claimed again
// after RedeliverAfter, which gives the dispatcher delayed retries.
type RedisStreamNotificationQueueImpl struct {
	rdb      *redis.Client
	consumer string
	opts     StreamOptions
}

func NewRedisStreamNotificationQueue(ctx context.Context, rdb *redis.Client, consumer string, opts StreamOptions) (NotificationQueue, error) {
	if consumer == "" {
		consumer = "dispatcher-" + uuid.New().String()
	}
	err := rdb.XGroupCreateMkStream(ctx, NotificationStream, DispatcherGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create group %s: %w", DispatcherGroup, err)
	}
	return &RedisStreamNotificationQueueImpl{
		rdb:      rdb,
		consumer: consumer,
		opts:     opts.withDefaults(),
	}, nil
}

func (q *RedisStreamNotificationQueueImpl) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	args := &redis.XAddArgs{
		Stream: NotificationStream,
		Values: []any{payloadField, string(payload)},
	}
	if q.opts.MaxLen > 0 {
		args.MaxLen = q.opts.MaxLen
		args.Approx = true
	}
	if err := q.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}

// Subscribe reads new entries and reclaims stale ones until ctx ends.
// The channel closes once both loops have returned.
func (q *RedisStreamNotificationQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		q.consume(ctx, out)
	}()
	go func() {
		defer wg.Done()
		q.reclaim(ctx, out)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (q *RedisStreamNotificationQueueImpl) consume(ctx context.Context, out chan<- Delivery) {
	log := logger.WithComponent("mq")
	for ctx.Err() == nil {
		msgs, err := q.readNew(ctx)
		if err != nil {
			log.Error("read notifications failed", zap.String("consumer", q.consumer), zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		for _, msg := range msgs {
			if !q.emit(ctx, out, msg, 1) {
				return
			}
		}
	}
}

// readNew only asks for entries never delivered to the group; anything left
// pending is the reclaim loop's job.
func (q *RedisStreamNotificationQueueImpl) readNew(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    DispatcherGroup,
		Consumer: q.consumer,
		Streams:  []string{NotificationStream, ">"},
		Count:    q.opts.BatchSize,
		Block:    q.opts.BlockFor,
	}).Result()
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

func (q *RedisStreamNotificationQueueImpl) reclaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.opts.RedeliverAfter)
	defer ticker.Stop()

	cursor := "0-0"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		msgs, next, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   NotificationStream,
			Group:    DispatcherGroup,
			Consumer: q.consumer,
			MinIdle:  q.opts.RedeliverAfter,
			Start:    cursor,
			Count:    q.opts.BatchSize,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.WithComponent("mq").Error("reclaim notifications failed", zap.Error(err))
			continue
		}
		cursor = next
		if cursor == "" {
			cursor = "0-0"
		}

		for _, msg := range msgs {
			n := q.deliveries(ctx, msg.ID)
			if n > q.opts.MaxDeliveries {
				logger.WithComponent("mq").Warn("dropping notification after max deliveries",
					zap.String("message_id", msg.ID), zap.Int("deliveries", n))
				q.ack(ctx, msg.ID)
				continue
			}
			if !q.emit(ctx, out, msg, max(n, 2)) {
				return
			}
		}
	}
}

// deliveries is how often the group has handed out messageID, or 0 when
// redis cannot tell.
func (q *RedisStreamNotificationQueueImpl) deliveries(ctx context.Context, messageID string) int {
	pending, err := q.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: NotificationStream,
		Group:  DispatcherGroup,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.WithComponent("mq").Warn("pending lookup failed", zap.String("message_id", messageID), zap.Error(err))
		}
		return 0
	}
	return int(pending[0].RetryCount)
}

func (q *RedisStreamNotificationQueueImpl) emit(ctx context.Context, out chan<- Delivery, msg redis.XMessage, attempt int) bool {
	d, ok := q.decode(ctx, msg, attempt)
	if !ok {
		return true
	}
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// decode turns a stream entry into a Delivery. Entries that do not hold a
// notification are acked so they stop coming back.
func (q *RedisStreamNotificationQueueImpl) decode(ctx context.Context, msg redis.XMessage, attempt int) (Delivery, bool) {
	var n model.Notification
	raw, ok := msg.Values[payloadField].(string)
	if !ok || json.Unmarshal([]byte(raw), &n) != nil {
		logger.WithComponent("mq").Warn("skipping malformed notification entry", zap.String("message_id", msg.ID))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}
	id := msg.ID
	return Delivery{
		Data:    &n,
		Attempt: attempt,
		Ack:     func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if !requeue {
				q.ack(ctx, id)
			}
		},
	}, true
}

func (q *RedisStreamNotificationQueueImpl) ack(ctx context.Context, id string) {
	if err := q.rdb.XAck(ctx, NotificationStream, DispatcherGroup, id).Err(); err != nil {
		logger.WithComponent("mq").Error("ack notification failed", zap.String("message_id", id), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
