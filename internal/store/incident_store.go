package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
)

// IncidentStore defines the interface for incident and incident update storage.
// Every method is scoped to an organization. Callers verify that a referenced
// service belongs to the organization before creating or moving an incident.
type IncidentStore interface {
	// Create stores a new incident.
	// Returns ErrServiceNotFound if the referenced service doesn't exist.
	Create(ctx context.Context, incident *models.Incident) error

	// Get retrieves an incident with its service summary populated.
	// Returns ErrIncidentNotFound if the incident doesn't exist in the organization.
	Get(ctx context.Context, orgID, incidentID uuid.UUID) (*models.Incident, error)

	// List returns the organization's incidents newest first, with service summaries.
	List(ctx context.Context, orgID uuid.UUID) ([]*models.Incident, error)

	// ListByService returns up to limit of the service's most recent incidents.
	// A limit of zero returns all of them.
	ListByService(ctx context.Context, orgID, serviceID uuid.UUID, limit int) ([]*models.Incident, error)

	// Update applies a patch and returns the updated incident.
	// Returns ErrIncidentNotFound if the incident doesn't exist in the organization.
	Update(ctx context.Context, orgID, incidentID uuid.UUID, patch models.IncidentPatch) (*models.Incident, error)

	// Delete removes the incident and its updates.
	Delete(ctx context.Context, orgID, incidentID uuid.UUID) error

	// AddUpdate appends an update to an incident.
	// Returns ErrIncidentNotFound if the incident doesn't exist in the organization.
	AddUpdate(ctx context.Context, orgID uuid.UUID, update *models.IncidentUpdate) error

	// ListUpdates returns up to limit of the incident's updates, newest first.
	// A limit of zero returns all of them.
	// Returns ErrIncidentNotFound if the incident doesn't exist in the organization.
	ListUpdates(ctx context.Context, orgID, incidentID uuid.UUID, limit int) ([]*models.IncidentUpdate, error)
}
