package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
	"github.com/wolfeidau/statuspage/internal/store/memory"
)

type message struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, message{subject: subject, data: data})
	return nil
}

func (p *recordingPublisher) Close() {}

func newNotifier(t *testing.T) (*Notifier, *memory.NotificationStore, *recordingPublisher) {
	t.Helper()
	notifications := memory.NewNotificationStore()
	pub := &recordingPublisher{}
	return NewNotifier(notifications, pub), notifications, pub
}

func listAll(t *testing.T, s store.NotificationStore, orgID uuid.UUID) []*models.Notification {
	t.Helper()
	list, err := s.List(t.Context(), orgID, store.ListNotificationsOptions{})
	require.NoError(t, err)
	return list
}

func TestSubject(t *testing.T) {
	orgID := uuid.MustParse("0190a8c4-0000-7000-8000-000000000001")
	require.Equal(t, "statuspage.0190a8c4-0000-7000-8000-000000000001.incident_created",
		Subject(orgID, models.NotificationIncidentCreated))
}

func TestNotifier_CreateStoresAndPublishes(t *testing.T) {
	n, notifications, pub := newNotifier(t)
	orgID := uuid.Must(uuid.NewV7())

	created, err := n.Create(t.Context(), orgID, models.NotificationInput{
		Title:   "Heads up",
		Message: "Planned database upgrade",
		Type:    models.NotificationSystemAlert,
	})
	require.NoError(t, err)
	require.False(t, created.IsRead)

	list := listAll(t, notifications, orgID)
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)

	require.Len(t, pub.msgs, 1)
	require.Equal(t, Subject(orgID, models.NotificationSystemAlert), pub.msgs[0].subject)

	var decoded models.Notification
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &decoded))
	require.Equal(t, "Heads up", decoded.Title)
}

func TestNotifier_PublishFailureDoesNotFailCreate(t *testing.T) {
	n, notifications, pub := newNotifier(t)
	pub.err = errors.New("connection closed")
	orgID := uuid.Must(uuid.NewV7())

	_, err := n.Create(t.Context(), orgID, models.NotificationInput{
		Title: "t", Message: "m", Type: models.NotificationSystemAlert,
	})
	require.NoError(t, err)
	require.Len(t, listAll(t, notifications, orgID), 1)
}

func TestNotifier_IncidentCreated(t *testing.T) {
	tests := []struct {
		status models.IncidentStatus
		want   models.NotificationType
	}{
		{models.IncidentOpen, models.NotificationIncidentCreated},
		{models.IncidentScheduledMaintenance, models.NotificationMaintenanceScheduled},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			n, notifications, _ := newNotifier(t)
			incident := &models.Incident{
				ID:             uuid.Must(uuid.NewV7()),
				OrganizationID: uuid.Must(uuid.NewV7()),
				ServiceID:      uuid.Must(uuid.NewV7()),
				Title:          "API errors",
				Status:         tt.status,
			}
			actor := &models.User{ID: uuid.Must(uuid.NewV7())}

			n.IncidentCreated(t.Context(), actor, incident)

			list := listAll(t, notifications, incident.OrganizationID)
			require.Len(t, list, 1)
			require.Equal(t, tt.want, list[0].Type)
			require.Equal(t, incident.ID, *list[0].IncidentID)
			require.Equal(t, actor.ID, *list[0].UserID)
		})
	}
}

func TestNotifier_IncidentChanged(t *testing.T) {
	n, notifications, _ := newNotifier(t)
	orgID := uuid.Must(uuid.NewV7())
	before := &models.Incident{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID, Title: "Slow", Status: models.IncidentOpen}

	edited := *before
	edited.Description = "Investigating"
	n.IncidentChanged(t.Context(), nil, before, &edited)

	resolved := *before
	resolved.Status = models.IncidentResolved
	n.IncidentChanged(t.Context(), nil, before, &resolved)

	list := listAll(t, notifications, orgID)
	require.Len(t, list, 2)
	require.Equal(t, models.NotificationIncidentResolved, list[0].Type)
	require.Equal(t, models.NotificationIncidentUpdated, list[1].Type)
	require.Nil(t, list[0].UserID)
}

func TestNotifier_ServiceStatusChanged(t *testing.T) {
	tests := []struct {
		name     string
		from, to models.ServiceStatus
		want     models.NotificationType
	}{
		{"degraded", models.ServiceOperational, models.ServiceDegraded, models.NotificationServiceDegraded},
		{"partial outage", models.ServiceOperational, models.ServicePartialOutage, models.NotificationServiceDegraded},
		{"down", models.ServiceDegraded, models.ServiceDown, models.NotificationServiceDown},
		{"major outage", models.ServiceOperational, models.ServiceMajorOutage, models.NotificationServiceDown},
		{"restored", models.ServiceDown, models.ServiceOperational, models.NotificationServiceRestored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, notifications, _ := newNotifier(t)
			before := &models.Service{ID: uuid.Must(uuid.NewV7()), OrganizationID: uuid.Must(uuid.NewV7()), Name: "API", Status: tt.from}
			after := *before
			after.Status = tt.to

			n.ServiceStatusChanged(t.Context(), nil, before, &after)

			list := listAll(t, notifications, before.OrganizationID)
			require.Len(t, list, 1)
			require.Equal(t, tt.want, list[0].Type)
			require.Equal(t, before.ID, *list[0].ServiceID)
		})
	}

	t.Run("unchanged status is not recorded", func(t *testing.T) {
		n, notifications, _ := newNotifier(t)
		svc := &models.Service{ID: uuid.Must(uuid.NewV7()), OrganizationID: uuid.Must(uuid.NewV7()), Name: "API", Status: models.ServiceDegraded}
		renamed := *svc
		renamed.Name = "Public API"

		n.ServiceStatusChanged(t.Context(), nil, svc, &renamed)

		require.Empty(t, listAll(t, notifications, svc.OrganizationID))
	})
}

func TestNotifier_Users(t *testing.T) {
	n, notifications, pub := newNotifier(t)
	orgID := uuid.Must(uuid.NewV7())
	admin := &models.User{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID, Role: models.RoleAdmin}
	member := &models.User{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID, Email: "sam@example.com", Role: models.RoleMember}

	n.UserInvited(t.Context(), admin, member)

	promoted := *member
	promoted.Role = models.RoleManager
	n.RoleChanged(t.Context(), admin, member, &promoted)
	n.RoleChanged(t.Context(), admin, &promoted, &promoted)

	list := listAll(t, notifications, orgID)
	require.Len(t, list, 2)
	require.Equal(t, models.NotificationRoleChanged, list[0].Type)
	require.Equal(t, "sam@example.com is now MANAGER (was MEMBER)", list[0].Message)
	require.Equal(t, models.NotificationUserInvited, list[1].Type)
	require.Len(t, pub.msgs, 2)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abc…", truncate("abcdef", 3))
}
