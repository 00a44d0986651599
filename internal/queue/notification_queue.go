package queue

import (
	"context"
	"errors"

	"eventstage/internal/model"
	"eventstage/pkg/logger"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("notification queue is full")

type Delivery struct {
	Data    *model.Notification
	Attempt int
	Ack     func()
	Nack    func(requeue bool)
}

type NotificationQueue interface {
	// 發送通知到隊列
	Publish(ctx context.Context, n *model.Notification) error
	// 訂閱通知隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type envelope struct {
	n       *model.Notification
	attempt int
}

type NotificationQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch         chan envelope
	maxRetries int
}

func NewNotificationQueue(bufferSize, maxRetries int) NotificationQueue {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &NotificationQueueImpl{
		ch:         make(chan envelope, bufferSize),
		maxRetries: maxRetries,
	}
}

// Publish never waits for room: callers fan out one notification per
// recipient and a slow dispatcher must not hold up their request.
func (q *NotificationQueueImpl) Publish(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- envelope{n: n, attempt: 1}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *NotificationQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-q.ch:
				d := Delivery{
					Data:    env.n,
					Attempt: env.attempt,
					Ack:     func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.requeue(env)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// requeue never blocks the worker: a full buffer or exhausted retries drops the message.
func (q *NotificationQueueImpl) requeue(env envelope) {
	if env.attempt >= q.maxRetries {
		logger.WithComponent("mq").Warn("discard notification after retries",
			zap.String("notification_id", env.n.ID), zap.Int("retries", env.attempt))
		return
	}
	select {
	case q.ch <- envelope{n: env.n, attempt: env.attempt + 1}:
	default:
		logger.WithComponent("mq").Warn("notification queue full, dropping retry",
			zap.String("notification_id", env.n.ID))
	}
}
