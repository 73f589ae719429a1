package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceStatus is the operational state of a service.
type ServiceStatus string

const (
	ServiceOperational   ServiceStatus = "OPERATIONAL"
	ServiceDegraded      ServiceStatus = "DEGRADED"
	ServicePartialOutage ServiceStatus = "PARTIAL_OUTAGE"
	ServiceMajorOutage   ServiceStatus = "MAJOR_OUTAGE"
	ServiceDown          ServiceStatus = "DOWN"
)

// Valid reports whether s is a known service status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceOperational, ServiceDegraded, ServicePartialOutage, ServiceMajorOutage, ServiceDown:
		return true
	}
	return false
}

// IsOutage returns true for the statuses shown as an outage.
func (s ServiceStatus) IsOutage() bool {
	return s == ServiceMajorOutage || s == ServiceDown
}

// Service is a monitored component belonging to an organization.
type Service struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organizationId"`
	Name           string        `json:"name"`
	Status         ServiceStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ServiceSummary is the subset of a service embedded in incident responses.
type ServiceSummary struct {
	ID     uuid.UUID     `json:"id"`
	Name   string        `json:"name"`
	Status ServiceStatus `json:"status"`
}

// Summary returns the embedded form of the service.
func (s *Service) Summary() *ServiceSummary {
	return &ServiceSummary{ID: s.ID, Name: s.Name, Status: s.Status}
}

// ServiceInput is the body of a service create or full update.
type ServiceInput struct {
	Name   string        `json:"name"`
	Status ServiceStatus `json:"status"`
}

// Validate checks required fields and the status value.
func (in *ServiceInput) Validate() error {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return MissingFields(missing...)
	}
	if !in.Status.Valid() {
		return Invalid("Invalid service status: " + string(in.Status))
	}
	return nil
}

// Patch converts a full update into a patch setting every field.
func (in *ServiceInput) Patch() ServicePatch {
	return ServicePatch{Name: &in.Name, Status: &in.Status}
}

// ServicePatch is a partial service update. Nil fields are left unchanged.
type ServicePatch struct {
	Name   *string        `json:"name,omitempty"`
	Status *ServiceStatus `json:"status,omitempty"`
}

// Validate checks the patch values.
func (p *ServicePatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return Invalid("Service name cannot be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return Invalid("Invalid service status: " + string(*p.Status))
	}
	return nil
}

// Apply copies the set fields onto s.
func (p *ServicePatch) Apply(s *Service) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
}
