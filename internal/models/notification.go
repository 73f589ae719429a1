package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification for display and routing.
type NotificationType string

const (
	NotificationIncidentCreated      NotificationType = "INCIDENT_CREATED"
	NotificationIncidentUpdated      NotificationType = "INCIDENT_UPDATED"
	NotificationIncidentResolved     NotificationType = "INCIDENT_RESOLVED"
	NotificationServiceDegraded      NotificationType = "SERVICE_DEGRADED"
	NotificationServiceDown          NotificationType = "SERVICE_DOWN"
	NotificationServiceRestored      NotificationType = "SERVICE_RESTORED"
	NotificationMaintenanceScheduled NotificationType = "MAINTENANCE_SCHEDULED"
	NotificationSystemAlert          NotificationType = "SYSTEM_ALERT"
	NotificationUserInvited          NotificationType = "USER_INVITED"
	NotificationRoleChanged          NotificationType = "ROLE_CHANGED"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationIncidentCreated, NotificationIncidentUpdated, NotificationIncidentResolved,
		NotificationServiceDegraded, NotificationServiceDown, NotificationServiceRestored,
		NotificationMaintenanceScheduled, NotificationSystemAlert,
		NotificationUserInvited, NotificationRoleChanged:
		return true
	}
	return false
}

// Notification is an in-app message shown to the members of an organization.
type Notification struct {
	ID             uuid.UUID        `json:"id"`
	OrganizationID uuid.UUID        `json:"organizationId"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	UserID         *uuid.UUID       `json:"userId"`
	ServiceID      *uuid.UUID       `json:"serviceId"`
	IncidentID     *uuid.UUID       `json:"incidentId"`
	IsRead         bool             `json:"isRead"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// NotificationInput is the body of a notification create.
type NotificationInput struct {
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Type       NotificationType `json:"type"`
	UserID     *uuid.UUID       `json:"userId"`
	ServiceID  *uuid.UUID       `json:"serviceId"`
	IncidentID *uuid.UUID       `json:"incidentId"`
}

// Validate checks required fields and the type value.
func (in *NotificationInput) Validate() error {
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Message == "" {
		missing = append(missing, "message")
	}
	if in.Type == "" {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return MissingFields(missing...)
	}
	if !in.Type.Valid() {
		return Invalid("Invalid notification type: " + string(in.Type))
	}
	return nil
}
