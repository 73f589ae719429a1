package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
)

// ServiceStore defines the interface for service storage operations.
// Every method is scoped to an organization.
type ServiceStore interface {
	Create(ctx context.Context, svc *models.Service) error

	// Get returns ErrServiceNotFound if the service doesn't exist in the organization.
	Get(ctx context.Context, orgID, serviceID uuid.UUID) (*models.Service, error)

	// List returns the organization's services ordered by name.
	List(ctx context.Context, orgID uuid.UUID) ([]*models.Service, error)

	// Update applies a patch and returns the updated service.
	Update(ctx context.Context, orgID, serviceID uuid.UUID, patch models.ServicePatch) (*models.Service, error)

	// Delete removes the service and, by cascade, its incidents and their updates.
	Delete(ctx context.Context, orgID, serviceID uuid.UUID) error
}
