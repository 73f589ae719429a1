// Package status builds and serves the public, unauthenticated status page of
// an organization.
package status

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

const (
	// IncidentsPerService is the number of recent incidents shown per service.
	IncidentsPerService = 5
	// UpdatesPerIncident is the number of recent updates shown per incident.
	UpdatesPerIncident = 3
)

// Page is the public view of an organization's services.
type Page struct {
	Organization *models.Organization `json:"organization"`
	Services     []*ServiceView       `json:"services"`
}

// ServiceView is a service with its most recent incidents.
type ServiceView struct {
	*models.Service
	Incidents []*IncidentView `json:"incidents"`
}

// IncidentView is an incident with its most recent updates.
type IncidentView struct {
	*models.Incident
	Updates []*models.IncidentUpdate `json:"updates"`
}

// Builder assembles status pages from the stores.
type Builder struct {
	stores store.Stores
}

// NewBuilder creates a status page builder.
func NewBuilder(stores store.Stores) *Builder {
	return &Builder{stores: stores}
}

// Build reads the organization's services, each with up to IncidentsPerService
// incidents, each with up to UpdatesPerIncident updates, all newest first.
func (b *Builder) Build(ctx context.Context, orgID uuid.UUID) (*Page, error) {
	org, err := b.stores.Organizations.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	services, err := b.stores.Services.List(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	page := &Page{Organization: org, Services: make([]*ServiceView, 0, len(services))}

	for _, svc := range services {
		incidents, err := b.stores.Incidents.ListByService(ctx, orgID, svc.ID, IncidentsPerService)
		if err != nil {
			return nil, fmt.Errorf("failed to list incidents for service %s: %w", svc.ID, err)
		}

		view := &ServiceView{Service: svc, Incidents: make([]*IncidentView, 0, len(incidents))}

		for _, incident := range incidents {
			updates, err := b.stores.Incidents.ListUpdates(ctx, orgID, incident.ID, UpdatesPerIncident)
			if err != nil {
				return nil, fmt.Errorf("failed to list updates for incident %s: %w", incident.ID, err)
			}
			if updates == nil {
				updates = []*models.IncidentUpdate{}
			}

			incident.Service = nil
			view.Incidents = append(view.Incidents, &IncidentView{Incident: incident, Updates: updates})
		}

		page.Services = append(page.Services, view)
	}

	return page, nil
}
