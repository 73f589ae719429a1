package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// IncidentStore implements store.IncidentStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type IncidentStore struct {
	mu sync.RWMutex

	incidents map[uuid.UUID]*models.Incident         // incident_id -> Incident
	updates   map[uuid.UUID][]*models.IncidentUpdate // incident_id -> updates

	services *ServiceStore
}

// NewIncidentStore creates a new in-memory incident store which resolves
// service references against services.
func NewIncidentStore(services *ServiceStore) *IncidentStore {
	return &IncidentStore{
		incidents: make(map[uuid.UUID]*models.Incident),
		updates:   make(map[uuid.UUID][]*models.IncidentUpdate),
		services:  services,
	}
}

// Create stores a new incident.
func (s *IncidentStore) Create(ctx context.Context, incident *models.Incident) error {
	if !s.services.exists(incident.OrganizationID, incident.ServiceID) {
		return store.ErrServiceNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *incident
	clone.Service = nil
	s.incidents[incident.ID] = &clone

	return nil
}

// Get retrieves an incident with its service summary.
func (s *IncidentStore) Get(ctx context.Context, orgID, incidentID uuid.UUID) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incident, exists := s.incidents[incidentID]
	if !exists || incident.OrganizationID != orgID {
		return nil, store.ErrIncidentNotFound
	}

	return s.withService(incident), nil
}

// List returns the organization's incidents, newest first.
func (s *IncidentStore) List(ctx context.Context, orgID uuid.UUID) ([]*models.Incident, error) {
	return s.list(func(i *models.Incident) bool {
		return i.OrganizationID == orgID
	}, 0), nil
}

// ListByService returns up to limit of a service's most recent incidents.
func (s *IncidentStore) ListByService(ctx context.Context, orgID, serviceID uuid.UUID, n int) ([]*models.Incident, error) {
	return s.list(func(i *models.Incident) bool {
		return i.OrganizationID == orgID && i.ServiceID == serviceID
	}, n), nil
}

// Update applies a patch to an incident.
func (s *IncidentStore) Update(ctx context.Context, orgID, incidentID uuid.UUID, patch models.IncidentPatch) (*models.Incident, error) {
	if patch.ServiceID != nil && !s.services.exists(orgID, *patch.ServiceID) {
		return nil, store.ErrServiceNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	incident, exists := s.incidents[incidentID]
	if !exists || incident.OrganizationID != orgID {
		return nil, store.ErrIncidentNotFound
	}

	updated := *incident
	patch.Apply(&updated)
	updated.UpdatedAt = time.Now().UTC()
	s.incidents[incidentID] = &updated

	return s.withService(&updated), nil
}

// Delete removes an incident and its updates.
func (s *IncidentStore) Delete(ctx context.Context, orgID, incidentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, exists := s.incidents[incidentID]
	if !exists || incident.OrganizationID != orgID {
		return store.ErrIncidentNotFound
	}

	delete(s.incidents, incidentID)
	delete(s.updates, incidentID)

	return nil
}

// AddUpdate appends an update to an incident.
func (s *IncidentStore) AddUpdate(ctx context.Context, orgID uuid.UUID, update *models.IncidentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, exists := s.incidents[update.IncidentID]
	if !exists || incident.OrganizationID != orgID {
		return store.ErrIncidentNotFound
	}

	clone := *update
	s.updates[update.IncidentID] = append(s.updates[update.IncidentID], &clone)

	return nil
}

// ListUpdates returns up to limit of an incident's updates, newest first.
func (s *IncidentStore) ListUpdates(ctx context.Context, orgID, incidentID uuid.UUID, n int) ([]*models.IncidentUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incident, exists := s.incidents[incidentID]
	if !exists || incident.OrganizationID != orgID {
		return nil, store.ErrIncidentNotFound
	}

	updates := make([]*models.IncidentUpdate, 0, len(s.updates[incidentID]))
	for _, u := range s.updates[incidentID] {
		clone := *u
		updates = append(updates, &clone)
	}

	sortNewestFirst(updates, func(u *models.IncidentUpdate) (int64, uuid.UUID) {
		return u.CreatedAt.UnixNano(), u.ID
	})

	return limit(updates, n), nil
}

func (s *IncidentStore) list(match func(*models.Incident) bool, n int) []*models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var incidents []*models.Incident
	for _, i := range s.incidents {
		if match(i) {
			incidents = append(incidents, s.withService(i))
		}
	}

	sortNewestFirst(incidents, func(i *models.Incident) (int64, uuid.UUID) {
		return i.CreatedAt.UnixNano(), i.ID
	})

	return limit(incidents, n)
}

// deleteByService cascades a service delete.
func (s *IncidentStore) deleteByService(serviceID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, i := range s.incidents {
		if i.ServiceID == serviceID {
			delete(s.incidents, id)
			delete(s.updates, id)
		}
	}
}

// withService returns a copy of the incident with its service summary attached.
func (s *IncidentStore) withService(i *models.Incident) *models.Incident {
	clone := *i
	clone.Service = s.services.summary(i.ServiceID)
	return &clone
}
