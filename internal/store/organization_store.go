package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations are the tenants of the system; every other record belongs to one.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// Returns ErrOrganizationAlreadyExists if an organization with the same ID already exists.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// First returns the earliest created organization.
	// This is the fallback tenant for users created by identity-provider webhooks.
	// Returns ErrOrganizationNotFound if there are no organizations.
	First(ctx context.Context) (*models.Organization, error)

	// List returns all organizations ordered by creation time, oldest first.
	List(ctx context.Context) ([]*models.Organization, error)
}
