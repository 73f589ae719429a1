package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
)

// ListNotificationsOptions filters a notification listing.
type ListNotificationsOptions struct {
	UnreadOnly bool
	Limit      int // 0 = DefaultNotificationLimit
}

// DefaultNotificationLimit caps notification listings.
const DefaultNotificationLimit = 50

// NotificationStore defines the interface for notification storage.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error

	// List returns the organization's notifications newest first.
	List(ctx context.Context, orgID uuid.UUID, opts ListNotificationsOptions) ([]*models.Notification, error)

	// MarkRead flags a notification as read.
	// Returns ErrNotificationNotFound if it doesn't exist in the organization.
	MarkRead(ctx context.Context, orgID, notificationID uuid.UUID) error

	// MarkAllRead flags every unread notification in the organization as read
	// and returns how many changed.
	MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error)
}

func (o ListNotificationsOptions) EffectiveLimit() int {
	if o.Limit <= 0 || o.Limit > DefaultNotificationLimit {
		return DefaultNotificationLimit
	}
	return o.Limit
}
