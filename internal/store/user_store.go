package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
)

// UserStore is the local user directory. It maps identity-provider accounts
// and email addresses to local user records.
type UserStore interface {
	// Create stores a new user.
	// Returns ErrUserAlreadyExists if an active user with the same email
	// (compared case-insensitively) already exists in the organization.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID within an organization.
	// Returns ErrUserNotFound if the user doesn't exist or belongs to another organization.
	Get(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error)

	// GetByExternalID retrieves the user linked to an identity-provider account.
	// Active users are preferred when more than one row carries the ID.
	// Returns ErrUserNotFound if no user is linked.
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// GetByEmail retrieves a user in the organization by email, ignoring case.
	// An active user is preferred over deactivated ones.
	// Returns ErrUserNotFound if there is no match.
	GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error)

	// FindActiveByEmail retrieves the oldest active user with the email in the
	// organization, or in any organization when orgID is uuid.Nil.
	// Returns ErrUserNotFound if there is no match.
	FindActiveByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error)

	// ListByOrg returns all users of an organization, newest first.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)

	// Update applies a patch to a user and returns the updated record.
	// Returns ErrUserNotFound if the user doesn't exist in the organization.
	Update(ctx context.Context, orgID, userID uuid.UUID, patch models.UserPatch) (*models.User, error)

	// LinkExternalID sets the identity-provider account ID on a user.
	// Returns ErrUserNotFound if the user doesn't exist.
	LinkExternalID(ctx context.Context, userID uuid.UUID, externalID string) error

	// UpdateProfile replaces the identity-provider owned profile fields.
	// Returns ErrUserNotFound if the user doesn't exist.
	UpdateProfile(ctx context.Context, userID uuid.UUID, profile models.Profile) error

	// RecordActivity increments the counter for the given activity.
	// Returns ErrUserNotFound if the user doesn't exist.
	RecordActivity(ctx context.Context, userID uuid.UUID, activity models.Activity) error

	// Deactivate marks a user inactive (soft delete) and returns the updated record.
	// Returns ErrUserNotFound if the user doesn't exist in the organization.
	Deactivate(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error)

	// Delete removes a user row. This is only used when the identity provider
	// reports the account as deleted.
	// Returns ErrUserNotFound if the user doesn't exist.
	Delete(ctx context.Context, userID uuid.UUID) error
}
