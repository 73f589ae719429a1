package store

import "errors"

// Sentinel errors shared by every store implementation.
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrServiceNotFound      = errors.New("service not found")
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Stores groups the stores a server needs so they can be handed around together.
type Stores struct {
	Organizations OrganizationStore
	Users         UserStore
	Services      ServiceStore
	Incidents     IncidentStore
	Notifications NotificationStore
}
