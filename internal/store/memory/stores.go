package memory

import "github.com/wolfeidau/statuspage/internal/store"

// NewStores returns a full set of in-memory stores with service deletes
// cascading to incidents.
func NewStores() store.Stores {
	services := NewServiceStore()
	incidents := NewIncidentStore(services)
	services.incidents = incidents

	return store.Stores{
		Organizations: NewOrganizationStore(),
		Users:         NewUserStore(),
		Services:      services,
		Incidents:     incidents,
		Notifications: NewNotificationStore(),
	}
}
