package notify

import (
	"context"
	"time"

	"eventstage/internal/metrics"
	"eventstage/internal/model"
	"eventstage/internal/queue"
	"eventstage/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StagePublish  = "publish"
	StageDispatch = "dispatch"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Sink accepts notifications from the services. Notify never fails the caller.
type Sink interface {
	Notify(ctx context.Context, n model.Notification)
}

// QueueSink publishes onto a NotificationQueue. timeout bounds queues that
// talk to the network; the in-process queue drops instead of waiting.
type QueueSink struct {
	queue   queue.NotificationQueue
	timeout time.Duration
}

func NewQueueSink(q queue.NotificationQueue, timeout time.Duration) Sink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &QueueSink{
		queue:   q,
		timeout: timeout,
	}
}

func (s *QueueSink) Notify(ctx context.Context, n model.Notification) {
	if n.ReceiverID == "" {
		return
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	// 請求結束後仍要送出，不跟隨請求的取消
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.queue.Publish(pubCtx, &n); err != nil {
		logger.WithComponent("notify").Warn("failed to publish notification",
			zap.String("type", string(n.Type)),
			zap.String("receiver_id", n.ReceiverID),
			zap.Error(err),
		)
		metrics.TrackNotification(StagePublish, string(n.Type), StatusFailed)
		return
	}
	metrics.TrackNotification(StagePublish, string(n.Type), StatusOK)
}
