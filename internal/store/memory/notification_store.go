package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// NotificationStore implements store.NotificationStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type NotificationStore struct {
	mu sync.RWMutex

	notifications map[uuid.UUID]*models.Notification
}

// NewNotificationStore creates a new in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		notifications: make(map[uuid.UUID]*models.Notification),
	}
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *n
	s.notifications[n.ID] = &clone

	return nil
}

func (s *NotificationStore) List(ctx context.Context, orgID uuid.UUID, opts store.ListNotificationsOptions) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.Notification
	for _, n := range s.notifications {
		if n.OrganizationID != orgID || (opts.UnreadOnly && n.IsRead) {
			continue
		}
		clone := *n
		list = append(list, &clone)
	}

	sortNewestFirst(list, func(n *models.Notification) (int64, uuid.UUID) {
		return n.CreatedAt.UnixNano(), n.ID
	})

	return limit(list, opts.EffectiveLimit()), nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, orgID, notificationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notifications[notificationID]
	if !exists || n.OrganizationID != orgID {
		return store.ErrNotificationNotFound
	}

	n.IsRead = true

	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, n := range s.notifications {
		if n.OrganizationID == orgID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}

	return changed, nil
}
