package model

import "time"

type NotificationType string

const (
	NotificationEventInvite     NotificationType = "event_invite"
	NotificationTicketPurchased NotificationType = "ticket_purchased"
	NotificationEventCancelled  NotificationType = "event_cancelled"
	NotificationEventUpdated    NotificationType = "event_updated"
)

// Notification is the payload handed to the notification sink.
type Notification struct {
	ID         string            `json:"id"`
	Type       NotificationType  `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	ReceiverID string            `json:"receiver_id"`
	SenderID   string            `json:"sender_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
