package queue

import (
	"context"
	"testing"
	"time"

	"eventstage/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotification(id string) *model.Notification {
	return &model.Notification{
		ID:         id,
		Type:       model.NotificationEventInvite,
		Title:      "You're invited",
		ReceiverID: "user-2",
		SenderID:   "user-1",
		Metadata:   map[string]string{"event_id": "event-1"},
	}
}

func receive(t *testing.T, ch <-chan Delivery) Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "channel closed")
		return d
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery")
	}
	return Delivery{}
}

func TestNotificationQueue_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewNotificationQueue(4, 3)
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, newTestNotification("n-1")))

	d := receive(t, ch)
	assert.Equal(t, "n-1", d.Data.ID)
	assert.Equal(t, 1, d.Attempt)
	d.Ack()
}

func TestNotificationQueue_NackRequeue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewNotificationQueue(4, 2)
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, newTestNotification("n-1")))

	t.Run("Success - redelivered with next attempt", func(t *testing.T) {
		d := receive(t, ch)
		d.Nack(true)

		again := receive(t, ch)
		assert.Equal(t, "n-1", again.Data.ID)
		assert.Equal(t, 2, again.Attempt)

		// 已達重試上限，不再投遞
		again.Nack(true)
		select {
		case d := <-ch:
			t.Fatalf("unexpected redelivery of %s", d.Data.ID)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestNotificationQueue_NackDiscard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewNotificationQueue(4, 3)
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, newTestNotification("n-1")))

	receive(t, ch).Nack(false)

	select {
	case d := <-ch:
		t.Fatalf("unexpected redelivery of %s", d.Data.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotificationQueue_PublishFullBuffer(t *testing.T) {
	q := NewNotificationQueue(1, 3)
	require.NoError(t, q.Publish(context.Background(), newTestNotification("n-1")))

	t.Run("Failed - full buffer returns at once", func(t *testing.T) {
		start := time.Now()
		err := q.Publish(context.Background(), newTestNotification("n-2"))
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("Failed - cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, q.Publish(ctx, newTestNotification("n-3")), context.Canceled)
	})
}

func TestNotificationQueue_SubscribeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewNotificationQueue(1, 3)
	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription did not close")
	}
}
