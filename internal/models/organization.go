package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary. Services, incidents, users and
// notifications all belong to exactly one organization.
type Organization struct {
	ID        uuid.UUID `json:"id"` // UUIDv7
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
