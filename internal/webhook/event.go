package webhook

import (
	"strings"

	"github.com/wolfeidau/statuspage/internal/models"
)

// Event types handled by the reconciler.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is an identity-provider lifecycle event.
type Event struct {
	Type string    `json:"type"`
	Data EventUser `json:"data"`
}

// EventUser is the user payload of an event.
type EventUser struct {
	ID                    string         `json:"id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              *string        `json:"image_url"`
}

// EmailAddress is one of the user's addresses.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the normalized primary address, falling back to the first one.
func (u EventUser) PrimaryEmail() string {
	if u.PrimaryEmailAddressID != nil {
		for _, addr := range u.EmailAddresses {
			if addr.ID == *u.PrimaryEmailAddressID && addr.EmailAddress != "" {
				return models.NormalizeEmail(addr.EmailAddress)
			}
		}
	}
	for _, addr := range u.EmailAddresses {
		if strings.TrimSpace(addr.EmailAddress) != "" {
			return models.NormalizeEmail(addr.EmailAddress)
		}
	}
	return ""
}

// Profile returns the profile fields carried by the event.
func (u EventUser) Profile() models.Profile {
	return models.Profile{
		FirstName: nonEmpty(u.FirstName),
		LastName:  nonEmpty(u.LastName),
		Avatar:    nonEmpty(u.ImageURL),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
