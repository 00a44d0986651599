package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventstage/internal/model"
	"eventstage/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingQueue struct {
	queue.NotificationQueue
}

func (f *failingQueue) Publish(context.Context, *model.Notification) error {
	return errors.New("queue down")
}

func TestQueueSink_Notify(t *testing.T) {
	t.Run("Success - fills id and timestamp", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewNotificationQueue(4, 3)
		ch, err := q.Subscribe(ctx)
		require.NoError(t, err)

		sink := NewQueueSink(q, time.Second)
		sink.Notify(ctx, model.Notification{Type: model.NotificationEventInvite, ReceiverID: "user-2"})

		select {
		case d := <-ch:
			assert.NotEmpty(t, d.Data.ID)
			assert.False(t, d.Data.CreatedAt.IsZero())
			assert.Equal(t, "user-2", d.Data.ReceiverID)
		case <-time.After(time.Second):
			t.Fatal("notification not published")
		}
	})

	t.Run("Success - cancelled request still publishes", func(t *testing.T) {
		q := queue.NewNotificationQueue(4, 3)
		reqCtx, cancelReq := context.WithCancel(context.Background())
		cancelReq()

		NewQueueSink(q, time.Second).Notify(reqCtx, model.Notification{Type: model.NotificationTicketPurchased, ReceiverID: "user-3"})

		subCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ch, err := q.Subscribe(subCtx)
		require.NoError(t, err)
		select {
		case d := <-ch:
			assert.Equal(t, "user-3", d.Data.ReceiverID)
		case <-time.After(time.Second):
			t.Fatal("notification not published")
		}
	})

	t.Run("Failed - queue error is swallowed", func(t *testing.T) {
		sink := NewQueueSink(&failingQueue{}, time.Second)
		assert.NotPanics(t, func() {
			sink.Notify(context.Background(), model.Notification{Type: model.NotificationEventCancelled, ReceiverID: "user-2"})
		})
	})

	t.Run("Failed - full queue drops without waiting", func(t *testing.T) {
		q := queue.NewNotificationQueue(1, 3)
		sink := NewQueueSink(q, 0)
		sink.Notify(context.Background(), model.Notification{ReceiverID: "holder-0"})

		// one notify per ticket holder, as a cancellation does
		start := time.Now()
		for i := 0; i < 50; i++ {
			sink.Notify(context.Background(), model.Notification{Type: model.NotificationEventCancelled, ReceiverID: "holder"})
		}
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}
