package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/statuspage/internal/store"
)

// NewStores returns every store backed by the shared pool.
func NewStores(pool *pgxpool.Pool) store.Stores {
	return store.Stores{
		Organizations: NewOrganizationStore(pool),
		Users:         NewUserStore(pool),
		Services:      NewServiceStore(pool),
		Incidents:     NewIncidentStore(pool),
		Notifications: NewNotificationStore(pool),
	}
}
