package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/auth"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

var (
	errMasterAdminRequired      = fmt.Errorf("%w: master admin privileges required", auth.ErrForbidden)
	errUserExistsInOrganization = fmt.Errorf("%w in this organization", store.ErrUserAlreadyExists)
)

// userRequest is the body of the user create endpoints.
type userRequest struct {
	Email              string      `json:"email"`
	FirstName          *string     `json:"firstName"`
	LastName           *string     `json:"lastName"`
	Role               models.Role `json:"role"`
	ExternalID         *string     `json:"externalId"`
	Timezone           *string     `json:"timezone"`
	Language           *string     `json:"language"`
	EmailNotifications *bool       `json:"emailNotifications"`
	PushNotifications  *bool       `json:"pushNotifications"`
}

func (in *userRequest) validate() error {
	if in.Email == "" {
		return models.MissingFields("email")
	}
	if err := models.ValidateEmail(models.NormalizeEmail(in.Email)); err != nil {
		return err
	}
	if in.Role != "" && !in.Role.Valid() {
		return models.Invalid("Invalid role: " + string(in.Role))
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil {
			return models.Invalid("Invalid timezone: " + *in.Timezone)
		}
	}
	return nil
}

func (in *userRequest) user(orgID uuid.UUID) (*models.User, error) {
	user, err := models.NewUser(orgID, in.Email, in.Role)
	if err != nil {
		return nil, err
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.FullName = models.JoinName(in.FirstName, in.LastName)
	if in.ExternalID != nil && *in.ExternalID != "" {
		user.ExternalID = in.ExternalID
	}
	if in.Timezone != nil {
		user.Timezone = *in.Timezone
	}
	if in.Language != nil {
		user.Language = *in.Language
	}
	if in.EmailNotifications != nil {
		user.EmailNotifications = *in.EmailNotifications
	}
	if in.PushNotifications != nil {
		user.PushNotifications = *in.PushNotifications
	}

	return user, nil
}

// canManage reports whether actor may change the access of target. Only master
// admins change another master admin's role or active flag.
func canManage(actor, target *models.User) bool {
	return target.Role != models.RoleMasterAdmin || auth.HasPermission(actor.Role, auth.PermUsersAdminister)
}

// canGrant reports whether actor may assign role. Only master admins grant master admin.
func canGrant(actor *models.User, role models.Role) bool {
	return role != models.RoleMasterAdmin || auth.HasPermission(actor.Role, auth.PermUsersAdminister)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, auth.PermUsersRead)
	if !ok {
		return
	}

	users, err := h.stores.Users.ListByOrg(r.Context(), user.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(users))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authorize(w, r, auth.PermUsersManage)
	if !ok {
		return
	}

	created, err := h.create(w, r, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// addUser invites a user by email; they are linked to their identity-provider
// account on first sign-in.
func (h *Handler) addUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authorize(w, r, auth.PermUsersManage)
	if !ok {
		return
	}

	var in userRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.ExternalID = nil
	if err := in.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	_, err := h.stores.Users.GetByEmail(r.Context(), actor.OrganizationID, in.Email)
	switch {
	case err == nil:
		writeError(w, r, errUserExistsInOrganization)
		return
	case !errors.Is(err, store.ErrUserNotFound):
		writeError(w, r, err)
		return
	}

	created, err := h.insert(r, actor, &in)
	if errors.Is(err, store.ErrUserAlreadyExists) {
		err = errUserExistsInOrganization
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User added successfully",
		"user": map[string]any{
			"id":        created.ID,
			"email":     created.Email,
			"firstName": created.FirstName,
			"lastName":  created.LastName,
			"role":      created.Role,
			"isActive":  created.IsActive,
		},
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, actor *models.User) (*models.User, error) {
	var in userRequest
	if err := decode(w, r, &in); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	return h.insert(r, actor, &in)
}

func (h *Handler) insert(r *http.Request, actor *models.User, in *userRequest) (*models.User, error) {
	if !canGrant(actor, in.Role) {
		return nil, errMasterAdminRequired
	}

	user, err := in.user(actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	if err := h.stores.Users.Create(r.Context(), user); err != nil {
		return nil, err
	}

	h.notifier.UserInvited(r.Context(), actor, user)

	return user, nil
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authorize(w, r, auth.PermUsersRead)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.stores.Users.Get(r.Context(), actor.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// patchUser lets user managers change any field and everyone else change the
// profile and preference fields of their own record.
func (h *Handler) patchUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	id, err := pathID(r, store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	manager := auth.HasPermission(actor.Role, auth.PermUsersManage)
	if !manager && id != actor.ID {
		writeError(w, r, fmt.Errorf("%w: cannot change user %s", auth.ErrForbidden, id))
		return
	}

	var patch models.UserPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if !manager && patch.TouchesAccess() {
		writeError(w, r, fmt.Errorf("%w: cannot change access of user %s", auth.ErrForbidden, id))
		return
	}

	updated, err := h.update(r, actor, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) update(r *http.Request, actor *models.User, id uuid.UUID, patch models.UserPatch) (*models.User, error) {
	if patch.Role != nil && !canGrant(actor, *patch.Role) {
		return nil, errMasterAdminRequired
	}

	ctx := r.Context()

	before, err := h.stores.Users.Get(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if patch.TouchesAccess() && !canManage(actor, before) {
		return nil, errMasterAdminRequired
	}

	updated, err := h.stores.Users.Update(ctx, actor.OrganizationID, id, patch)
	if err != nil {
		return nil, err
	}

	h.notifier.RoleChanged(ctx, actor, before, updated)

	return updated, nil
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authorize(w, r, auth.PermUsersManage)
	if !ok {
		return
	}

	id, err := pathID(r, store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	target, err := h.stores.Users.Get(r.Context(), actor.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !canManage(actor, target) {
		writeError(w, r, errMasterAdminRequired)
		return
	}

	user, err := h.stores.Users.Deactivate(r.Context(), actor.OrganizationID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "User deactivated", "user": user})
}

// masterAdmin returns the caller when they hold master admin privileges.
func masterAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return nil, false
	}
	if !auth.HasPermission(user.Role, auth.PermUsersAdminister) {
		writeError(w, r, errMasterAdminRequired)
		return nil, false
	}
	return user, true
}

func (h *Handler) masterAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := masterAdmin(w, r); !ok {
		return
	}
	h.listUsers(w, r)
}

func (h *Handler) masterAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := masterAdmin(w, r)
	if !ok {
		return
	}

	created, err := h.create(w, r, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

type bulkUserUpdate struct {
	ID uuid.UUID `json:"id"`
	models.UserPatch
}

type bulkUserRequest struct {
	Users []bulkUserUpdate `json:"users"`
}

// masterAdminUpdateUsers applies patches to several users in turn. Entries
// without an id are skipped; the first failure stops the batch.
func (h *Handler) masterAdminUpdateUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := masterAdmin(w, r)
	if !ok {
		return
	}

	var in bulkUserRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Users == nil {
		writeError(w, r, models.Invalid("Users array is required"))
		return
	}

	for _, u := range in.Users {
		if err := u.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
	}

	updated := make([]*models.User, 0, len(in.Users))
	for _, u := range in.Users {
		if u.ID == uuid.Nil {
			continue
		}

		user, err := h.update(r, actor, u.ID, u.UserPatch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		updated = append(updated, user)
	}

	writeJSON(w, http.StatusOK, updated)
}
