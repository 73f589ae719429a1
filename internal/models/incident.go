package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	IncidentOpen                 IncidentStatus = "OPEN"
	IncidentResolved             IncidentStatus = "RESOLVED"
	IncidentScheduledMaintenance IncidentStatus = "SCHEDULED_MAINTENANCE"
)

// Valid reports whether s is a known incident status.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentOpen, IncidentResolved, IncidentScheduledMaintenance:
		return true
	}
	return false
}

// Incident is a time-bounded event affecting a service.
type Incident struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organizationId"`
	ServiceID      uuid.UUID      `json:"serviceId"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Status         IncidentStatus `json:"status"`
	CreatedByID    *uuid.UUID     `json:"createdById,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	// Populated by reads that join the owning service.
	Service *ServiceSummary `json:"service,omitempty"`
}

// IncidentUpdate is an append-only progress note posted under an incident.
type IncidentUpdate struct {
	ID         uuid.UUID  `json:"id"`
	IncidentID uuid.UUID  `json:"incidentId"`
	Content    string     `json:"content"`
	AuthorID   *uuid.UUID `json:"authorId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IncidentDetail is an incident together with its service and updates.
type IncidentDetail struct {
	*Incident
	Updates []*IncidentUpdate `json:"updates"`
}

// IncidentInput is the body of an incident create or full update.
type IncidentInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`
	ServiceID   uuid.UUID      `json:"serviceId"`
}

// Validate checks required fields and the status value.
func (in *IncidentInput) Validate() error {
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Status == "" {
		missing = append(missing, "status")
	}
	if in.ServiceID == uuid.Nil {
		missing = append(missing, "serviceId")
	}
	if len(missing) > 0 {
		return MissingFields(missing...)
	}
	if !in.Status.Valid() {
		return Invalid("Invalid incident status: " + string(in.Status))
	}
	return nil
}

// Patch converts a full update into a patch setting every field.
func (in *IncidentInput) Patch() IncidentPatch {
	return IncidentPatch{
		Title:       &in.Title,
		Description: &in.Description,
		Status:      &in.Status,
		ServiceID:   &in.ServiceID,
	}
}

// IncidentPatch is a partial incident update. Nil fields are left unchanged.
type IncidentPatch struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *IncidentStatus `json:"status,omitempty"`
	ServiceID   *uuid.UUID      `json:"serviceId,omitempty"`
}

// Validate checks the patch values.
func (p *IncidentPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return Invalid("Incident title cannot be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return Invalid("Invalid incident status: " + string(*p.Status))
	}
	if p.ServiceID != nil && *p.ServiceID == uuid.Nil {
		return Invalid("Invalid serviceId")
	}
	return nil
}

// Apply copies the set fields onto i.
func (p *IncidentPatch) Apply(i *Incident) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	if p.ServiceID != nil {
		i.ServiceID = *p.ServiceID
	}
}
