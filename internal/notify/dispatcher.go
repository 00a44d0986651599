package notify

import (
	"context"
	"fmt"

	"eventstage/config"
	"eventstage/internal/model"
	"eventstage/pkg/logger"

	pubnub "github.com/pubnub/go/v7"
	"go.uber.org/zap"
)

// Dispatcher delivers a notification to its receiver.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *model.Notification) error
}

// LogDispatcher only writes the notification to the log. Used when no push
// provider is configured.
type LogDispatcher struct{}

func NewLogDispatcher() Dispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(_ context.Context, n *model.Notification) error {
	logger.WithComponent("notify").Info("notification",
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("receiver_id", n.ReceiverID),
		zap.String("title", n.Title),
	)
	return nil
}

type publishFunc func(channel string, message interface{}) error

type PubNubDispatcher struct {
	publish publishFunc
}

func NewPubNubClient(cfg config.NotifyConfig) *pubnub.PubNub {
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	return pubnub.NewPubNub(pnConfig)
}

func NewPubNubDispatcher(pn *pubnub.PubNub) Dispatcher {
	return &PubNubDispatcher{
		publish: func(channel string, message interface{}) error {
			_, status, err := pn.Publish().
				Channel(channel).
				Message(message).
				Execute()
			if err != nil {
				return err
			}
			if status.Error != nil {
				return status.Error
			}
			return nil
		},
	}
}

// UserChannel is the PubNub channel a client subscribes to for its own notifications.
func UserChannel(userID string) string {
	return "user-" + userID
}

func (d *PubNubDispatcher) Dispatch(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.publish(UserChannel(n.ReceiverID), n); err != nil {
		return fmt.Errorf("pubnub publish: %w", err)
	}
	return nil
}
