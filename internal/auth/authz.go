package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/wolfeidau/statuspage/internal/models"
)

var (
	// ErrUnauthenticated is returned when no user is attached to the request.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the user's role lacks a permission.
	ErrForbidden = errors.New("permission denied")
)

// Permission represents an authorized action
type Permission string

const (
	PermServicesRead   Permission = "services:read"
	PermServicesWrite  Permission = "services:write"
	PermServicesDelete Permission = "services:delete"

	PermIncidentsRead   Permission = "incidents:read"
	PermIncidentsWrite  Permission = "incidents:write"
	PermIncidentsDelete Permission = "incidents:delete"

	PermNotificationsRead  Permission = "notifications:read"
	PermNotificationsWrite Permission = "notifications:write"

	PermUsersRead       Permission = "users:read"
	PermUsersManage     Permission = "users:manage"
	PermUsersAdminister Permission = "users:administer"
)

var (
	viewerPerms = []Permission{
		PermServicesRead,
		PermIncidentsRead,
		PermNotificationsRead,
		PermUsersRead,
	}
	memberPerms = append(slices.Clone(viewerPerms),
		PermServicesWrite,
		PermIncidentsWrite,
		PermNotificationsWrite,
	)
	managerPerms = append(slices.Clone(memberPerms),
		PermServicesDelete,
		PermIncidentsDelete,
	)
	adminPerms       = append(slices.Clone(managerPerms), PermUsersManage)
	masterAdminPerms = append(slices.Clone(adminPerms), PermUsersAdminister)
)

// RolePermissions maps user roles to allowed permissions
var RolePermissions = map[models.Role][]Permission{
	models.RoleViewer:      viewerPerms,
	models.RoleMember:      memberPerms,
	models.RoleManager:     managerPerms,
	models.RoleAdmin:       adminPerms,
	models.RoleSuperAdmin:  adminPerms,
	models.RoleMasterAdmin: masterAdminPerms,
}

// HasPermission checks if a role has a specific permission
func HasPermission(role models.Role, perm Permission) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	return slices.Contains(perms, perm)
}

// RequirePermission checks authorization and returns an error if not authorized
func RequirePermission(ctx context.Context, perm Permission) error {
	user, ok := UserFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	if !HasPermission(user.Role, perm) {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, user.Role, perm)
	}

	return nil
}
