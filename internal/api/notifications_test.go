package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/models"
)

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)
	viewer := f.user(t, "viewer@example.com", models.RoleViewer)

	rec := f.do(t, member, http.MethodPost, "/api/notifications", map[string]any{"title": "only a title"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing required fields: message, type", errorMessage(t, rec))

	rec = f.do(t, member, http.MethodPost, "/api/notifications", map[string]any{
		"title": "t", "message": "m", "type": "CARRIER_PIGEON",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, viewer, http.MethodPost, "/api/notifications", map[string]any{
		"title": "t", "message": "m", "type": "SYSTEM_ALERT",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var ids []string
	for i := range 3 {
		rec = f.do(t, member, http.MethodPost, "/api/notifications", map[string]any{
			"title": fmt.Sprintf("alert %d", i), "message": "m", "type": "SYSTEM_ALERT",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeBody[models.Notification](t, rec).ID.String())
	}

	rec = f.do(t, viewer, http.MethodPatch, "/api/notifications/"+ids[0]+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, viewer, http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]models.Notification](t, rec), 2)

	rec = f.do(t, viewer, http.MethodPost, "/api/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"updated":2}`, rec.Body.String())

	rec = f.do(t, viewer, http.MethodGet, "/api/notifications", nil)
	list := decodeBody[[]models.Notification](t, rec)
	require.Len(t, list, 3)
	require.Equal(t, "alert 2", list[0].Title)

	rec = f.do(t, viewer, http.MethodPatch, "/api/notifications/0190a8c4-0000-7000-8000-000000000099/read", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotifications_ReferencesStayInOrganization(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member@example.com", models.RoleMember)
	svc := f.service(t, member, "API")

	other := newOrganization(t, f.stores, "Globex")
	outsider := f.userIn(t, other.ID, "admin@globex.example", models.RoleAdmin)
	foreign := f.service(t, outsider, "Globex API")

	tests := []struct {
		name    string
		field   string
		id      string
		message string
	}{
		{name: "service in another organization", field: "serviceId", id: foreign.ID.String(), message: "Service not found"},
		{name: "unknown incident", field: "incidentId", id: "0190a8c4-0000-7000-8000-000000000042", message: "Incident not found"},
		{name: "user in another organization", field: "userId", id: outsider.ID.String(), message: "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, member, http.MethodPost, "/api/notifications", map[string]any{
				"title": "t", "message": "m", "type": "SYSTEM_ALERT", tt.field: tt.id,
			})
			require.Equal(t, http.StatusNotFound, rec.Code)
			require.Equal(t, tt.message, errorMessage(t, rec))
		})
	}

	rec := f.do(t, member, http.MethodPost, "/api/notifications", map[string]any{
		"title": "t", "message": "m", "type": "SYSTEM_ALERT",
		"serviceId": svc.ID.String(), "userId": member.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, member, http.MethodGet, "/api/notifications", nil)
	require.Len(t, decodeBody[[]models.Notification](t, rec), 1)
}
