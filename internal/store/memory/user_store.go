package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users map[uuid.UUID]*models.User // user_id -> User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[uuid.UUID]*models.User),
	}
}

// Create stores a new user, enforcing one active user per organization and email
// and one active user per external ID.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return store.ErrUserAlreadyExists
	}

	if user.IsActive && s.activeConflict(user, uuid.Nil) {
		return store.ErrUserAlreadyExists
	}

	s.users[user.ID] = cloneUser(user)

	return nil
}

// Get retrieves a user by ID within an organization.
func (s *UserStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists || user.OrganizationID != orgID {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// GetByExternalID retrieves the user linked to an identity-provider account, preferring active users.
func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, store.ErrUserNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pick(func(u *models.User) bool {
		return u.ExternalID != nil && *u.ExternalID == externalID
	})
}

// GetByEmail retrieves a user in the organization by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pick(func(u *models.User) bool {
		return u.OrganizationID == orgID && strings.EqualFold(u.Email, email)
	})
}

// FindActiveByEmail retrieves the oldest active user with the email, limited to
// orgID unless it is uuid.Nil.
func (s *UserStore) FindActiveByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.User
	for _, u := range s.users {
		if !u.IsActive || !strings.EqualFold(u.Email, email) {
			continue
		}
		if orgID != uuid.Nil && u.OrganizationID != orgID {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			found = u
		}
	}

	if found == nil {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(found), nil
}

// ListByOrg returns all users of an organization, newest first.
func (s *UserStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			users = append(users, cloneUser(u))
		}
	}

	sortNewestFirst(users, func(u *models.User) (int64, uuid.UUID) {
		return u.CreatedAt.UnixNano(), u.ID
	})

	return users, nil
}

// Update applies a patch to a user.
func (s *UserStore) Update(ctx context.Context, orgID, userID uuid.UUID, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists || user.OrganizationID != orgID {
		return nil, store.ErrUserNotFound
	}

	updated := cloneUser(user)
	patch.Apply(updated)

	// Reactivating must not create a second active user with the same email or external ID.
	if updated.IsActive && !user.IsActive && s.activeConflict(updated, userID) {
		return nil, store.ErrUserAlreadyExists
	}

	updated.UpdatedAt = time.Now().UTC()
	s.users[userID] = updated

	return cloneUser(updated), nil
}

// LinkExternalID sets the identity-provider account ID on a user.
func (s *UserStore) LinkExternalID(ctx context.Context, userID uuid.UUID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	if user.IsActive && s.activeExternalIDTaken(externalID, userID) {
		return store.ErrUserAlreadyExists
	}

	updated := cloneUser(user)
	updated.ExternalID = &externalID
	updated.UpdatedAt = time.Now().UTC()
	s.users[userID] = updated

	return nil
}

// UpdateProfile replaces the identity-provider owned profile fields.
func (s *UserStore) UpdateProfile(ctx context.Context, userID uuid.UUID, profile models.Profile) error {
	return s.mutate(userID, profile.Apply)
}

// RecordActivity increments the counter for the given activity.
func (s *UserStore) RecordActivity(ctx context.Context, userID uuid.UUID, activity models.Activity) error {
	now := time.Now().UTC()
	return s.mutate(userID, func(u *models.User) {
		switch activity {
		case models.ActivityIncidentCreated:
			u.TotalIncidentsCreated++
			u.LastIncidentCreatedAt = &now
		case models.ActivityUpdatePosted:
			u.TotalUpdatesPosted++
		}
		u.LastActivityAt = &now
	})
}

// Deactivate marks a user inactive.
func (s *UserStore) Deactivate(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	inactive := false
	return s.Update(ctx, orgID, userID, models.UserPatch{IsActive: &inactive})
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID]; !exists {
		return store.ErrUserNotFound
	}

	delete(s.users, userID)

	return nil
}

func (s *UserStore) mutate(userID uuid.UUID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	updated := cloneUser(user)
	fn(updated)
	updated.UpdatedAt = time.Now().UTC()
	s.users[userID] = updated

	return nil
}

// pick returns the best match, preferring active users and then the oldest.
// Callers must hold the lock.
func (s *UserStore) pick(match func(*models.User) bool) (*models.User, error) {
	var found *models.User
	for _, u := range s.users {
		if !match(u) {
			continue
		}
		switch {
		case found == nil:
			found = u
		case u.IsActive && !found.IsActive:
			found = u
		case u.IsActive == found.IsActive && u.CreatedAt.Before(found.CreatedAt):
			found = u
		}
	}

	if found == nil {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(found), nil
}

// activeConflict reports whether another active user shares u's email within its
// organization or u's external ID. Callers must hold the lock.
func (s *UserStore) activeConflict(u *models.User, except uuid.UUID) bool {
	if s.activeEmailTaken(u.OrganizationID, u.Email, except) {
		return true
	}
	return u.HasExternalID() && s.activeExternalIDTaken(*u.ExternalID, except)
}

// activeExternalIDTaken reports whether another active user is linked to externalID.
// Callers must hold the lock.
func (s *UserStore) activeExternalIDTaken(externalID string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && u.IsActive && u.ExternalID != nil && *u.ExternalID == externalID {
			return true
		}
	}
	return false
}

// activeEmailTaken reports whether another active user in the org has the email.
// Callers must hold the lock.
func (s *UserStore) activeEmailTaken(orgID uuid.UUID, email string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && u.IsActive && u.OrganizationID == orgID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// cloneUser copies a user including its pointer fields so callers can't mutate stored state.
func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.ExternalID = clonePtr(u.ExternalID)
	clone.FirstName = clonePtr(u.FirstName)
	clone.LastName = clonePtr(u.LastName)
	clone.FullName = clonePtr(u.FullName)
	clone.Avatar = clonePtr(u.Avatar)
	clone.LastLoginAt = clonePtr(u.LastLoginAt)
	clone.LastActivityAt = clonePtr(u.LastActivityAt)
	clone.LastIncidentCreatedAt = clonePtr(u.LastIncidentCreatedAt)
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
