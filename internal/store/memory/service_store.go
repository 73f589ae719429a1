package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// ServiceStore implements store.ServiceStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type ServiceStore struct {
	mu sync.RWMutex

	services map[uuid.UUID]*models.Service // service_id -> Service

	// incidents receives cascade deletes; set by NewStores.
	incidents *IncidentStore
}

// NewServiceStore creates a new in-memory service store.
func NewServiceStore() *ServiceStore {
	return &ServiceStore{
		services: make(map[uuid.UUID]*models.Service),
	}
}

// Create stores a new service.
func (s *ServiceStore) Create(ctx context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *svc
	s.services[svc.ID] = &clone

	return nil
}

// Get retrieves a service within an organization.
func (s *ServiceStore) Get(ctx context.Context, orgID, serviceID uuid.UUID) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, exists := s.services[serviceID]
	if !exists || svc.OrganizationID != orgID {
		return nil, store.ErrServiceNotFound
	}

	clone := *svc
	return &clone, nil
}

// List returns the organization's services ordered by name.
func (s *ServiceStore) List(ctx context.Context, orgID uuid.UUID) ([]*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var services []*models.Service
	for _, svc := range s.services {
		if svc.OrganizationID == orgID {
			clone := *svc
			services = append(services, &clone)
		}
	}

	sortOldestFirst(services, func(svc *models.Service) (int64, uuid.UUID) {
		return svc.CreatedAt.UnixNano(), svc.ID
	})
	sortByName(services)

	return services, nil
}

// Update applies a patch to a service.
func (s *ServiceStore) Update(ctx context.Context, orgID, serviceID uuid.UUID, patch models.ServicePatch) (*models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, exists := s.services[serviceID]
	if !exists || svc.OrganizationID != orgID {
		return nil, store.ErrServiceNotFound
	}

	updated := *svc
	patch.Apply(&updated)
	updated.UpdatedAt = time.Now().UTC()
	s.services[serviceID] = &updated

	clone := updated
	return &clone, nil
}

// Delete removes a service and cascades to its incidents.
func (s *ServiceStore) Delete(ctx context.Context, orgID, serviceID uuid.UUID) error {
	s.mu.Lock()
	svc, exists := s.services[serviceID]
	if !exists || svc.OrganizationID != orgID {
		s.mu.Unlock()
		return store.ErrServiceNotFound
	}
	delete(s.services, serviceID)
	s.mu.Unlock()

	if s.incidents != nil {
		s.incidents.deleteByService(serviceID)
	}

	return nil
}

// summary returns the embedded form of a service, or nil if it is gone.
func (s *ServiceStore) summary(serviceID uuid.UUID) *models.ServiceSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, exists := s.services[serviceID]
	if !exists {
		return nil
	}
	return svc.Summary()
}

func (s *ServiceStore) exists(orgID, serviceID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[serviceID]
	return ok && svc.OrganizationID == orgID
}

func sortByName(services []*models.Service) {
	slices.SortStableFunc(services, func(a, b *models.Service) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
