package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// NotificationStore implements store.NotificationStore using PostgreSQL.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a new PostgreSQL-backed notification store.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{
		pool: pool,
	}
}

const notificationColumns = `
	id, organization_id, title, message, type,
	user_id, service_id, incident_id, is_read, created_at`

// Create inserts a notification.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		n.ID,
		n.OrganizationID,
		n.Title,
		n.Message,
		n.Type,
		n.UserID,
		n.ServiceID,
		n.IncidentID,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("notification_id", n.ID.String()).
		Str("type", string(n.Type)).
		Msg("Created notification")

	return nil
}

// List returns the organization's latest notifications, newest first.
func (s *NotificationStore) List(ctx context.Context, orgID uuid.UUID, opts store.ListNotificationsOptions) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE organization_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, orgID, opts.UnreadOnly, opts.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID,
			&n.OrganizationID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.UserID,
			&n.ServiceID,
			&n.IncidentID,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead marks a single notification as read.
func (s *NotificationStore) MarkRead(ctx context.Context, orgID, notificationID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND organization_id = $2`

	result, err := s.pool.Exec(ctx, query, notificationID, orgID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotificationNotFound
	}

	return nil
}

// MarkAllRead marks every unread notification in the organization as read and
// returns how many changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, orgID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = true WHERE organization_id = $1 AND NOT is_read`

	result, err := s.pool.Exec(ctx, query, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}
