package domain

import (
	"context"
	"time"
)

// NotificationType classifies the origin of a notification.
type NotificationType string

const (
	NotificationSystem   NotificationType = "system"
	NotificationUser     NotificationType = "user"
	NotificationProperty NotificationType = "property"
	NotificationPayment  NotificationType = "payment"
)

// NotificationStatus tracks whether the viewer has read a notification.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// Notification is a message shown in the admin feed. TargetUserID and
// TargetPropertyID are optional: a notification with neither set is global.
type Notification struct {
	ID               string
	Title            string
	Message          string
	Type             NotificationType
	Status           NotificationStatus
	TargetUserID     string
	TargetPropertyID string
	CreatedAt        time.Time
}

// NotificationRepository defines data access for notifications. ListVisible
// returns notifications visible to the given viewer: global entries, entries
// targeted at the user, and entries scoped to the given property.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	Update(ctx context.Context, n *Notification) error
	Delete(ctx context.Context, id string) error
	ListVisible(ctx context.Context, userID, propertyID string) ([]*Notification, error)
	MarkAllRead(ctx context.Context, userID, propertyID string) error
}

// FeedEvent is one change delivered by the change feed.
type FeedEvent struct {
	Type       string `json:"type"` // insert, update, delete
	Entity     string `json:"entity"`
	RecordID   string `json:"recordId"`
	PropertyID string `json:"propertyId,omitempty"`
}

// FeedSubscription is a live handle on the change feed. The owner must call
// Close before opening another subscription for the same viewer.
type FeedSubscription interface {
	Events() <-chan FeedEvent
	Close() error
}

// ChangeFeed is the push side of the persistence gateway: writers publish
// committed mutations, the notification hub subscribes per property.
// Subscriptions also receive events with no property id (global entries).
type ChangeFeed interface {
	Subscribe(ctx context.Context, propertyID string) (FeedSubscription, error)
	Publish(ctx context.Context, ev FeedEvent) error
}
