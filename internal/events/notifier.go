package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/telemetry"
)

// Notifier stores notifications and publishes them to the event feed.
type Notifier struct {
	notifications store.NotificationStore
	publisher     Publisher
}

// NewNotifier creates a notifier. A nil publisher discards feed events.
func NewNotifier(notifications store.NotificationStore, publisher Publisher) *Notifier {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Notifier{notifications: notifications, publisher: publisher}
}

// Create stores a notification for the organization and publishes it.
// Feed failures are logged and do not fail the call.
func (n *Notifier) Create(ctx context.Context, orgID uuid.UUID, in models.NotificationInput) (*models.Notification, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	notification := &models.Notification{
		ID:             id,
		OrganizationID: orgID,
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		UserID:         in.UserID,
		ServiceID:      in.ServiceID,
		IncidentID:     in.IncidentID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := n.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	telemetry.GetMetrics().RecordNotification(ctx, string(notification.Type))

	n.publish(ctx, notification)

	return notification, nil
}

func (n *Notifier) publish(ctx context.Context, notification *models.Notification) {
	subject := Subject(notification.OrganizationID, notification.Type)

	data, err := json.Marshal(notification)
	if err == nil {
		err = n.publisher.Publish(ctx, subject, data)
	}

	telemetry.GetMetrics().RecordPublish(ctx, subject, err)

	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

// notify records a side-effect notification; failures are logged only.
func (n *Notifier) notify(ctx context.Context, orgID uuid.UUID, in models.NotificationInput) {
	if _, err := n.Create(ctx, orgID, in); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("type", string(in.Type)).Msg("Failed to record notification")
	}
}

// IncidentCreated records a new incident or scheduled maintenance.
func (n *Notifier) IncidentCreated(ctx context.Context, actor *models.User, incident *models.Incident) {
	in := models.NotificationInput{
		Title:      "Incident created",
		Message:    fmt.Sprintf("New incident: %s", incident.Title),
		Type:       models.NotificationIncidentCreated,
		UserID:     actorID(actor),
		ServiceID:  &incident.ServiceID,
		IncidentID: &incident.ID,
	}
	if incident.Status == models.IncidentScheduledMaintenance {
		in.Title = "Maintenance scheduled"
		in.Message = fmt.Sprintf("Maintenance scheduled: %s", incident.Title)
		in.Type = models.NotificationMaintenanceScheduled
	}
	n.notify(ctx, incident.OrganizationID, in)
}

// IncidentChanged records an edit to an incident, distinguishing resolution.
func (n *Notifier) IncidentChanged(ctx context.Context, actor *models.User, before, after *models.Incident) {
	in := models.NotificationInput{
		Title:      "Incident updated",
		Message:    fmt.Sprintf("Incident updated: %s", after.Title),
		Type:       models.NotificationIncidentUpdated,
		UserID:     actorID(actor),
		ServiceID:  &after.ServiceID,
		IncidentID: &after.ID,
	}
	if after.Status == models.IncidentResolved && before.Status != models.IncidentResolved {
		in.Title = "Incident resolved"
		in.Message = fmt.Sprintf("Incident resolved: %s", after.Title)
		in.Type = models.NotificationIncidentResolved
	}
	n.notify(ctx, after.OrganizationID, in)
}

// UpdatePosted records a progress update on an incident.
func (n *Notifier) UpdatePosted(ctx context.Context, actor *models.User, incident *models.Incident, update *models.IncidentUpdate) {
	n.notify(ctx, incident.OrganizationID, models.NotificationInput{
		Title:      "Incident update posted",
		Message:    fmt.Sprintf("%s: %s", incident.Title, truncate(update.Content, 140)),
		Type:       models.NotificationIncidentUpdated,
		UserID:     actorID(actor),
		ServiceID:  &incident.ServiceID,
		IncidentID: &incident.ID,
	})
}

// ServiceStatusChanged records a service moving between statuses. Changes that
// are neither a degradation, an outage nor a recovery are not recorded.
func (n *Notifier) ServiceStatusChanged(ctx context.Context, actor *models.User, before, after *models.Service) {
	if before.Status == after.Status {
		return
	}

	in := models.NotificationInput{
		UserID:    actorID(actor),
		ServiceID: &after.ID,
	}

	switch {
	case after.Status == models.ServiceOperational:
		in.Type = models.NotificationServiceRestored
		in.Title = "Service restored"
		in.Message = fmt.Sprintf("%s is operational again", after.Name)
	case after.Status.IsOutage():
		in.Type = models.NotificationServiceDown
		in.Title = "Service down"
		in.Message = fmt.Sprintf("%s is experiencing an outage (%s)", after.Name, after.Status)
	default:
		in.Type = models.NotificationServiceDegraded
		in.Title = "Service degraded"
		in.Message = fmt.Sprintf("%s is degraded (%s)", after.Name, after.Status)
	}

	n.notify(ctx, after.OrganizationID, in)
}

// UserInvited records a user added to the organization.
func (n *Notifier) UserInvited(ctx context.Context, actor, invited *models.User) {
	n.notify(ctx, invited.OrganizationID, models.NotificationInput{
		Title:   "User invited",
		Message: fmt.Sprintf("%s was added as %s", invited.Email, invited.Role),
		Type:    models.NotificationUserInvited,
		UserID:  actorID(actor),
	})
}

// RoleChanged records a change of a user's role.
func (n *Notifier) RoleChanged(ctx context.Context, actor *models.User, before, after *models.User) {
	if before.Role == after.Role {
		return
	}
	n.notify(ctx, after.OrganizationID, models.NotificationInput{
		Title:   "Role changed",
		Message: fmt.Sprintf("%s is now %s (was %s)", after.Email, after.Role, before.Role),
		Type:    models.NotificationRoleChanged,
		UserID:  actorID(actor),
	})
}

func actorID(actor *models.User) *uuid.UUID {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
