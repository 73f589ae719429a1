package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

var (
	// ErrNoEmail is returned for user events without any email address.
	ErrNoEmail = errors.New("No email found")
	// ErrNoUserID is returned for user events without the provider's user ID.
	ErrNoUserID = errors.New("No user id found")
	// ErrNoDefaultOrganization is returned when a new user has no organization to join.
	ErrNoDefaultOrganization = errors.New("no default organization configured")
)

// Outcome describes what the reconciler did with an event.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeLinked    Outcome = "linked"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeIgnored   Outcome = "ignored"
)

// Reconciler applies identity-provider lifecycle events to the local user directory.
type Reconciler struct {
	users        store.UserStore
	orgs         store.OrganizationStore
	defaultOrgID uuid.UUID
}

// NewReconciler creates a reconciler. New users join defaultOrgID, or the first
// organization when it is uuid.Nil.
func NewReconciler(users store.UserStore, orgs store.OrganizationStore, defaultOrgID uuid.UUID) *Reconciler {
	return &Reconciler{users: users, orgs: orgs, defaultOrgID: defaultOrgID}
}

// Apply reconciles one event. Replaying an event is idempotent.
func (r *Reconciler) Apply(ctx context.Context, evt Event) (Outcome, error) {
	switch evt.Type {
	case EventUserCreated, EventUserUpdated:
		return r.upsert(ctx, evt.Data)
	case EventUserDeleted:
		return r.delete(ctx, evt.Data.ID)
	default:
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) upsert(ctx context.Context, data EventUser) (Outcome, error) {
	if data.ID == "" {
		return "", ErrNoUserID
	}

	email := data.PrimaryEmail()
	if email == "" {
		return "", ErrNoEmail
	}

	profile := data.Profile()

	user, err := r.users.GetByExternalID(ctx, data.ID)
	if err == nil {
		return r.refresh(ctx, user, data.ID, profile)
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return "", fmt.Errorf("failed to look up user by external id: %w", err)
	}

	orgID, err := r.defaultOrganization(ctx)
	if err != nil {
		return "", err
	}

	user, err = r.users.GetByEmail(ctx, orgID, email)
	if err == nil {
		return r.refresh(ctx, user, data.ID, profile)
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return "", fmt.Errorf("failed to look up user by email: %w", err)
	}

	user, err = models.NewUser(orgID, email, models.RoleMember)
	if err != nil {
		return "", err
	}
	externalID := data.ID
	user.ExternalID = &externalID
	profile.Apply(user)

	err = r.users.Create(ctx, user)
	if errors.Is(err, store.ErrUserAlreadyExists) {
		// Lost a race with a concurrent delivery; converge on the winner's row.
		existing, lookupErr := r.users.GetByEmail(ctx, orgID, email)
		if lookupErr != nil {
			return "", fmt.Errorf("failed to re-read user after conflict: %w", lookupErr)
		}
		return r.refresh(ctx, existing, data.ID, profile)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", user.ID.String()).
		Str("org_id", orgID.String()).
		Msg("Created user from identity provider")

	return OutcomeCreated, nil
}

// refresh links the external ID when unset and copies profile fields,
// leaving role and active state alone. Nothing is written when nothing changed.
func (r *Reconciler) refresh(ctx context.Context, user *models.User, externalID string, profile models.Profile) (Outcome, error) {
	outcome := OutcomeUnchanged

	if !user.HasExternalID() {
		if err := r.users.LinkExternalID(ctx, user.ID, externalID); err != nil {
			return "", fmt.Errorf("failed to link external id: %w", err)
		}
		outcome = OutcomeLinked
	}

	if !profile.Matches(user) {
		if err := r.users.UpdateProfile(ctx, user.ID, profile); err != nil {
			return "", fmt.Errorf("failed to update profile: %w", err)
		}
		if outcome == OutcomeUnchanged {
			outcome = OutcomeUpdated
		}
	}

	return outcome, nil
}

func (r *Reconciler) delete(ctx context.Context, externalID string) (Outcome, error) {
	if externalID == "" {
		return "", ErrNoUserID
	}

	user, err := r.users.GetByExternalID(ctx, externalID)
	if errors.Is(err, store.ErrUserNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user by external id: %w", err)
	}

	if err := r.users.Delete(ctx, user.ID); err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return "", fmt.Errorf("failed to delete user: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", user.ID.String()).
		Msg("Deleted user removed from identity provider")

	return OutcomeDeleted, nil
}

func (r *Reconciler) defaultOrganization(ctx context.Context) (uuid.UUID, error) {
	if r.defaultOrgID != uuid.Nil {
		return r.defaultOrgID, nil
	}

	org, err := r.orgs.First(ctx)
	if errors.Is(err, store.ErrOrganizationNotFound) {
		return uuid.Nil, ErrNoDefaultOrganization
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get default organization: %w", err)
	}

	return org.ID, nil
}
