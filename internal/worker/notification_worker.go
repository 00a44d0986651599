package worker

import (
	"context"

	"eventstage/internal/metrics"
	"eventstage/internal/notify"
	"eventstage/internal/queue"
	"eventstage/pkg/logger"

	"go.uber.org/zap"
)

type NotificationWorker interface {
	// 訂閱通知隊列，回傳的 channel 在隊列關閉後 close
	Start(ctx context.Context) (<-chan struct{}, error)
}

type NotificationWorkerImpl struct {
	dispatcher notify.Dispatcher
	queue      queue.NotificationQueue
}

func NewNotificationWorker(dispatcher notify.Dispatcher, queue queue.NotificationQueue) NotificationWorker {
	return &NotificationWorkerImpl{
		dispatcher: dispatcher,
		queue:      queue,
	}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) (<-chan struct{}, error) {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			n := msg.Data
			if err := w.dispatcher.Dispatch(ctx, n); err != nil {
				logger.WithComponent("worker").Warn("dispatch failed, requeue",
					zap.String("notification_id", n.ID),
					zap.Int("attempt", msg.Attempt),
					zap.Error(err),
				)
				metrics.TrackNotification(notify.StageDispatch, string(n.Type), notify.StatusFailed)
				msg.Nack(true)
				continue
			}
			metrics.TrackNotification(notify.StageDispatch, string(n.Type), notify.StatusOK)
			msg.Ack()
		}
	}()
	return done, nil
}
