package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

func createService(t *testing.T, stores store.Stores, orgID uuid.UUID, name string) *models.Service {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	now := time.Now().UTC()
	svc := &models.Service{
		ID:             id,
		OrganizationID: orgID,
		Name:           name,
		Status:         models.ServiceOperational,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, stores.Services.Create(context.Background(), svc))
	return svc
}

func createIncident(t *testing.T, stores store.Stores, svc *models.Service, title string, at time.Time) *models.Incident {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	incident := &models.Incident{
		ID:             id,
		OrganizationID: svc.OrganizationID,
		ServiceID:      svc.ID,
		Title:          title,
		Status:         models.IncidentOpen,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	require.NoError(t, stores.Incidents.Create(context.Background(), incident))
	return incident
}

func TestIncidentStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	orgID := uuid.New()
	svc := createService(t, stores, orgID, "API")

	base := time.Now().UTC()
	oldest := createIncident(t, stores, svc, "first", base)
	middle := createIncident(t, stores, svc, "second", base.Add(time.Minute))
	newest := createIncident(t, stores, svc, "third", base.Add(2*time.Minute))

	incidents, err := stores.Incidents.List(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, incidents, 3)
	require.Equal(t, []uuid.UUID{newest.ID, middle.ID, oldest.ID},
		[]uuid.UUID{incidents[0].ID, incidents[1].ID, incidents[2].ID})
	require.NotNil(t, incidents[0].Service)
	require.Equal(t, "API", incidents[0].Service.Name)

	recent, err := stores.Incidents.ListByService(ctx, orgID, svc.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, newest.ID, recent[0].ID)
}

func TestIncidentStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	orgA, orgB := uuid.New(), uuid.New()
	svcB := createService(t, stores, orgB, "B's API")

	id, err := uuid.NewV7()
	require.NoError(t, err)

	err = stores.Incidents.Create(ctx, &models.Incident{
		ID:             id,
		OrganizationID: orgA,
		ServiceID:      svcB.ID,
		Title:          "cross tenant",
		Status:         models.IncidentOpen,
	})
	require.ErrorIs(t, err, store.ErrServiceNotFound)

	incident := createIncident(t, stores, svcB, "outage", time.Now().UTC())

	_, err = stores.Incidents.Get(ctx, orgA, incident.ID)
	require.ErrorIs(t, err, store.ErrIncidentNotFound)

	_, err = stores.Incidents.ListUpdates(ctx, orgA, incident.ID, 0)
	require.ErrorIs(t, err, store.ErrIncidentNotFound)
}

func TestIncidentStore_UpdatesAndCascade(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	orgID := uuid.New()
	svc := createService(t, stores, orgID, "Database")
	incident := createIncident(t, stores, svc, "slow queries", time.Now().UTC())

	base := time.Now().UTC()
	for i, content := range []string{"investigating", "identified", "monitoring", "resolved"} {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		require.NoError(t, stores.Incidents.AddUpdate(ctx, orgID, &models.IncidentUpdate{
			ID:         id,
			IncidentID: incident.ID,
			Content:    content,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	updates, err := stores.Incidents.ListUpdates(ctx, orgID, incident.ID, 3)
	require.NoError(t, err)
	require.Len(t, updates, 3)
	require.Equal(t, "resolved", updates[0].Content)
	require.Equal(t, "identified", updates[2].Content)

	require.NoError(t, stores.Services.Delete(ctx, orgID, svc.ID))

	_, err = stores.Incidents.Get(ctx, orgID, incident.ID)
	require.ErrorIs(t, err, store.ErrIncidentNotFound)
}

func TestIncidentStore_UpdatePatch(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	orgID := uuid.New()
	svc := createService(t, stores, orgID, "Website")
	other := createService(t, stores, orgID, "API")
	foreign := createService(t, stores, uuid.New(), "Elsewhere")
	incident := createIncident(t, stores, svc, "down", time.Now().UTC())

	status := models.IncidentResolved
	updated, err := stores.Incidents.Update(ctx, orgID, incident.ID, models.IncidentPatch{
		Status:    &status,
		ServiceID: &other.ID,
	})
	require.NoError(t, err)
	require.Equal(t, models.IncidentResolved, updated.Status)
	require.Equal(t, "down", updated.Title)
	require.Equal(t, "API", updated.Service.Name)

	_, err = stores.Incidents.Update(ctx, orgID, incident.ID, models.IncidentPatch{ServiceID: &foreign.ID})
	require.ErrorIs(t, err, store.ErrServiceNotFound)
}
