package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

func (f *fixture) service(t *testing.T, user *models.User, name string) models.Service {
	t.Helper()
	rec := f.do(t, user, http.MethodPost, "/api/services", map[string]any{"name": name, "status": "OPERATIONAL"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody[models.Service](t, rec)
}

func TestIncidents_Lifecycle(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)
	svc := f.service(t, member, "API")

	rec := f.do(t, member, http.MethodPost, "/api/incidents", map[string]any{
		"title": "Elevated errors", "status": "OPEN", "serviceId": svc.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	incident := decodeBody[models.Incident](t, rec)
	require.NotNil(t, incident.Service)
	require.Equal(t, "API", incident.Service.Name)
	require.Equal(t, member.ID, *incident.CreatedByID)

	path := "/api/incidents/" + incident.ID.String()

	rec = f.do(t, member, http.MethodPost, path+"/updates", map[string]any{"content": "Investigating"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, member, http.MethodPost, path+"/updates", map[string]any{"content": "Fix deployed"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, member, http.MethodGet, path+"/updates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updates := decodeBody[[]models.IncidentUpdate](t, rec)
	require.Len(t, updates, 2)
	require.Equal(t, "Fix deployed", updates[0].Content)

	rec = f.do(t, member, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[struct {
		models.Incident
		Updates []models.IncidentUpdate `json:"updates"`
	}](t, rec)
	require.Equal(t, "Elevated errors", detail.Title)
	require.Len(t, detail.Updates, 2)

	rec = f.do(t, member, http.MethodPatch, path, map[string]any{"status": "RESOLVED"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.IncidentResolved, decodeBody[models.Incident](t, rec).Status)

	stored, err := f.stores.Users.Get(t.Context(), f.org.ID, member.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TotalIncidentsCreated)
	require.Equal(t, 2, stored.TotalUpdatesPosted)
	require.NotNil(t, stored.LastIncidentCreatedAt)

	notifications, err := f.stores.Notifications.List(t.Context(), f.org.ID, store.ListNotificationsOptions{})
	require.NoError(t, err)
	require.Len(t, notifications, 4)
	require.Equal(t, models.NotificationIncidentResolved, notifications[0].Type)
	require.Equal(t, models.NotificationIncidentCreated, notifications[3].Type)
}

func TestIncidents_CreateValidation(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)

	rec := f.do(t, member, http.MethodPost, "/api/incidents", map[string]any{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing required fields: title, status, serviceId", errorMessage(t, rec))

	other := newOrganization(t, f.stores, "Globex")
	outsider := f.userIn(t, other.ID, "outsider@example.com", models.RoleMember)
	foreign := f.service(t, outsider, "Globex API")

	rec = f.do(t, member, http.MethodPost, "/api/incidents", map[string]any{
		"title": "Hijack", "status": "OPEN", "serviceId": foreign.ID,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Service not found", errorMessage(t, rec))
}

func TestIncidents_UpdatesRequireContentAndIncident(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)
	svc := f.service(t, member, "API")

	rec := f.do(t, member, http.MethodPost, "/api/incidents", map[string]any{
		"title": "Slow", "status": "OPEN", "serviceId": svc.ID,
	})
	incident := decodeBody[models.Incident](t, rec)

	rec = f.do(t, member, http.MethodPost, "/api/incidents/"+incident.ID.String()+"/updates", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing required field: content", errorMessage(t, rec))

	missing := "/api/incidents/0190a8c4-0000-7000-8000-000000000099/updates"
	require.Equal(t, http.StatusNotFound, f.do(t, member, http.MethodGet, missing, nil).Code)
	require.Equal(t, http.StatusNotFound, f.do(t, member, http.MethodPost, missing, map[string]any{"content": "x"}).Code)
}

func TestIncidents_DeleteCascadesAndNeedsPermission(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)
	manager := f.user(t, "manager@example.com", models.RoleManager)
	svc := f.service(t, member, "API")

	rec := f.do(t, member, http.MethodPost, "/api/incidents", map[string]any{
		"title": "Slow", "status": "SCHEDULED_MAINTENANCE", "serviceId": svc.ID,
	})
	incident := decodeBody[models.Incident](t, rec)
	path := "/api/incidents/" + incident.ID.String()
	f.do(t, member, http.MethodPost, path+"/updates", map[string]any{"content": "Starting"})

	require.Equal(t, http.StatusForbidden, f.do(t, member, http.MethodDelete, path, nil).Code)

	viewer := f.user(t, "viewer@example.com", models.RoleViewer)
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rec = f.do(t, viewer, method, path, map[string]any{"title": ""})
		require.Equal(t, http.StatusForbidden, rec.Code, method)
	}

	rec = f.do(t, manager, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Incident deleted successfully"}`, rec.Body.String())

	rec = f.do(t, manager, http.MethodGet, path+"/updates", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Incident not found", errorMessage(t, rec))
}

func TestIncidents_ListNewestFirst(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)
	svc := f.service(t, member, "API")

	for _, title := range []string{"first", "second", "third"} {
		rec := f.do(t, member, http.MethodPost, "/api/incidents", map[string]any{
			"title": title, "status": "OPEN", "serviceId": svc.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, member, http.MethodGet, "/api/incidents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	incidents := decodeBody[[]models.Incident](t, rec)
	require.Len(t, incidents, 3)
	require.Equal(t, "third", incidents[0].Title)
	require.Equal(t, "first", incidents[2].Title)
	require.Equal(t, svc.ID, incidents[0].Service.ID)
}
