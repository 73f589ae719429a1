package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

func newTestUser(t *testing.T, orgID uuid.UUID, email string) *models.User {
	t.Helper()
	user, err := models.NewUser(orgID, email, models.RoleMember)
	require.NoError(t, err)
	return user
}

func TestUserStore_Create(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("duplicate active email in org is rejected", func(t *testing.T) {
		st := NewUserStore()

		require.NoError(t, st.Create(ctx, newTestUser(t, orgID, "jane@example.com")))

		err := st.Create(ctx, newTestUser(t, orgID, "Jane@Example.com"))
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("same email in another org is allowed", func(t *testing.T) {
		st := NewUserStore()

		require.NoError(t, st.Create(ctx, newTestUser(t, orgID, "jane@example.com")))
		require.NoError(t, st.Create(ctx, newTestUser(t, uuid.New(), "jane@example.com")))
	})

	t.Run("deactivated user does not block a new active user", func(t *testing.T) {
		st := NewUserStore()

		first := newTestUser(t, orgID, "jane@example.com")
		require.NoError(t, st.Create(ctx, first))

		_, err := st.Deactivate(ctx, orgID, first.ID)
		require.NoError(t, err)

		require.NoError(t, st.Create(ctx, newTestUser(t, orgID, "jane@example.com")))
	})

	t.Run("reactivating a duplicate is rejected", func(t *testing.T) {
		st := NewUserStore()

		first := newTestUser(t, orgID, "jane@example.com")
		require.NoError(t, st.Create(ctx, first))
		_, err := st.Deactivate(ctx, orgID, first.ID)
		require.NoError(t, err)
		require.NoError(t, st.Create(ctx, newTestUser(t, orgID, "jane@example.com")))

		active := true
		_, err = st.Update(ctx, orgID, first.ID, models.UserPatch{IsActive: &active})
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("external id is unique among active users", func(t *testing.T) {
		st := NewUserStore()
		externalID := "user_2abc"

		first := newTestUser(t, orgID, "jane@example.com")
		first.ExternalID = &externalID
		require.NoError(t, st.Create(ctx, first))

		second := newTestUser(t, uuid.New(), "jane@other.example")
		second.ExternalID = &externalID
		require.ErrorIs(t, st.Create(ctx, second), store.ErrUserAlreadyExists)

		third := newTestUser(t, orgID, "john@example.com")
		require.NoError(t, st.Create(ctx, third))
		require.ErrorIs(t, st.LinkExternalID(ctx, third.ID, externalID), store.ErrUserAlreadyExists)

		_, err := st.Deactivate(ctx, orgID, first.ID)
		require.NoError(t, err)
		require.NoError(t, st.LinkExternalID(ctx, third.ID, externalID))

		active := true
		_, err = st.Update(ctx, orgID, first.ID, models.UserPatch{IsActive: &active})
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})
}

func TestUserStore_Lookups(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	st := NewUserStore()

	user := newTestUser(t, orgID, "jane@example.com")
	require.NoError(t, st.Create(ctx, user))
	require.NoError(t, st.LinkExternalID(ctx, user.ID, "user_2abc"))

	t.Run("by external id", func(t *testing.T) {
		found, err := st.GetByExternalID(ctx, "user_2abc")
		require.NoError(t, err)
		require.Equal(t, user.ID, found.ID)

		_, err = st.GetByExternalID(ctx, "user_missing")
		require.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = st.GetByExternalID(ctx, "")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("by email ignores case", func(t *testing.T) {
		found, err := st.GetByEmail(ctx, orgID, "JANE@example.COM")
		require.NoError(t, err)
		require.Equal(t, user.ID, found.ID)

		_, err = st.GetByEmail(ctx, uuid.New(), "jane@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("find active by email honours the organization", func(t *testing.T) {
		otherOrg := uuid.New()
		other := newTestUser(t, otherOrg, "jane@example.com")
		require.NoError(t, st.Create(ctx, other))
		t.Cleanup(func() { _ = st.Delete(ctx, other.ID) })

		found, err := st.FindActiveByEmail(ctx, otherOrg, "jane@example.com")
		require.NoError(t, err)
		require.Equal(t, other.ID, found.ID)

		found, err = st.FindActiveByEmail(ctx, uuid.Nil, "jane@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, found.ID)

		_, err = st.FindActiveByEmail(ctx, uuid.New(), "jane@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("find active by email skips inactive users", func(t *testing.T) {
		found, err := st.FindActiveByEmail(ctx, uuid.Nil, "Jane@Example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, found.ID)

		_, err = st.Deactivate(ctx, orgID, user.ID)
		require.NoError(t, err)

		_, err = st.FindActiveByEmail(ctx, uuid.Nil, "jane@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("get is scoped to the organization", func(t *testing.T) {
		_, err := st.Get(ctx, uuid.New(), user.ID)
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestUserStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	st := NewUserStore()

	user := newTestUser(t, orgID, "jane@example.com")
	require.NoError(t, st.Create(ctx, user))

	role := models.RoleAdmin
	tz := "Australia/Melbourne"
	updated, err := st.Update(ctx, orgID, user.ID, models.UserPatch{Role: &role, Timezone: &tz})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, updated.Role)
	require.Equal(t, "Australia/Melbourne", updated.Timezone)
	require.Equal(t, "en", updated.Language)

	_, err = st.Update(ctx, orgID, uuid.New(), models.UserPatch{Role: &role})
	require.ErrorIs(t, err, store.ErrUserNotFound)

	require.NoError(t, st.RecordActivity(ctx, user.ID, models.ActivityIncidentCreated))
	require.NoError(t, st.RecordActivity(ctx, user.ID, models.ActivityUpdatePosted))
	require.NoError(t, st.RecordActivity(ctx, user.ID, models.ActivityUpdatePosted))

	got, err := st.Get(ctx, orgID, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalIncidentsCreated)
	require.Equal(t, 2, got.TotalUpdatesPosted)
	require.NotNil(t, got.LastIncidentCreatedAt)

	require.NoError(t, st.Delete(ctx, user.ID))
	require.ErrorIs(t, st.Delete(ctx, user.ID), store.ErrUserNotFound)
}

func TestUserStore_ListByOrgNewestFirst(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	st := NewUserStore()

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := newTestUser(t, orgID, email)
		u.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.Create(ctx, u))
		ids = append(ids, u.ID)
	}
	require.NoError(t, st.Create(ctx, newTestUser(t, uuid.New(), "other@example.com")))

	users, err := st.ListByOrg(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, ids[2], users[0].ID)
	require.Equal(t, ids[0], users[2].ID)
}
