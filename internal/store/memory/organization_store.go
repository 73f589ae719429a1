package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type OrganizationStore struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[uuid.UUID]*models.Organization),
	}
}

// Create creates a new organization in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[org.ID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	clone := *org
	s.organizations[org.ID] = &clone

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// First returns the earliest created organization.
func (s *OrganizationStore) First(ctx context.Context) (*models.Organization, error) {
	orgs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, store.ErrOrganizationNotFound
	}
	return orgs[0], nil
}

// List returns all organizations, oldest first.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgs := make([]*models.Organization, 0, len(s.organizations))
	for _, org := range s.organizations {
		clone := *org
		orgs = append(orgs, &clone)
	}

	sortOldestFirst(orgs, func(o *models.Organization) (int64, uuid.UUID) {
		return o.CreatedAt.UnixNano(), o.ID
	})

	return orgs, nil
}
