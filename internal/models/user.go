package models

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a user's role within its organization.
type Role string

const (
	RoleViewer      Role = "VIEWER"
	RoleMember      Role = "MEMBER"
	RoleManager     Role = "MANAGER"
	RoleAdmin       Role = "ADMIN"
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleMasterAdmin Role = "MASTER_ADMIN"
)

// DefaultRole is assigned when a user is created without an explicit role.
const DefaultRole = RoleMember

// Roles lists every valid role from least to most privileged.
var Roles = []Role{RoleViewer, RoleMember, RoleManager, RoleAdmin, RoleSuperAdmin, RoleMasterAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is a local user record, linked to the external identity provider by ExternalID.
//
// ExternalID is nil until the user first signs in (or the identity provider
// sends a lifecycle webhook for them). Users are deactivated rather than deleted,
// except when the identity provider reports the account as deleted.
type User struct {
	ID             uuid.UUID `json:"id"` // UUIDv7
	OrganizationID uuid.UUID `json:"organizationId"`
	Email          string    `json:"email"`
	ExternalID     *string   `json:"externalId"`

	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	FullName  *string `json:"fullName"`
	Avatar    *string `json:"avatar"`

	Role     Role `json:"role"`
	IsActive bool `json:"isActive"`

	// Preferences
	Timezone           string `json:"timezone"`
	Language           string `json:"language"`
	EmailNotifications bool   `json:"emailNotifications"`
	PushNotifications  bool   `json:"pushNotifications"`
	ProfileCompleted   bool   `json:"profileCompleted"`

	// Activity
	LastLoginAt           *time.Time `json:"lastLoginAt"`
	LastActivityAt        *time.Time `json:"lastActivityAt"`
	TotalIncidentsCreated int        `json:"totalIncidentsCreated"`
	TotalUpdatesPosted    int        `json:"totalUpdatesPosted"`
	LastIncidentCreatedAt *time.Time `json:"lastIncidentCreatedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasExternalID returns true once the user has been linked to an identity-provider account.
func (u *User) HasExternalID() bool {
	return u.ExternalID != nil && *u.ExternalID != ""
}

// NewUser returns a user with an allocated ID and the default preferences.
func NewUser(orgID uuid.UUID, email string, role Role) (*User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = DefaultRole
	}

	now := time.Now().UTC()
	return &User{
		ID:                 id,
		OrganizationID:     orgID,
		Email:              NormalizeEmail(email),
		Role:               role,
		IsActive:           true,
		Timezone:           "UTC",
		Language:           "en",
		EmailNotifications: true,
		PushNotifications:  true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// NormalizeEmail lowercases and trims an email address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address parses as a bare RFC 5322 address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Invalid("Invalid email address")
	}
	return nil
}

// JoinName builds a full name from first and last names, returning nil unless both are set.
func JoinName(first, last *string) *string {
	if first == nil || last == nil || *first == "" || *last == "" {
		return nil
	}
	full := *first + " " + *last
	return &full
}

// UserPatch lists every user field that can be changed through the API.
// Nil fields are left unchanged.
type UserPatch struct {
	FirstName          *string `json:"firstName,omitempty"`
	LastName           *string `json:"lastName,omitempty"`
	FullName           *string `json:"fullName,omitempty"`
	Avatar             *string `json:"avatar,omitempty"`
	Role               *Role   `json:"role,omitempty"`
	IsActive           *bool   `json:"isActive,omitempty"`
	Timezone           *string `json:"timezone,omitempty"`
	Language           *string `json:"language,omitempty"`
	EmailNotifications *bool   `json:"emailNotifications,omitempty"`
	PushNotifications  *bool   `json:"pushNotifications,omitempty"`
	ProfileCompleted   *bool   `json:"profileCompleted,omitempty"`
}

// Validate checks the patch values.
func (p *UserPatch) Validate() error {
	if p.Role != nil && !p.Role.Valid() {
		return Invalid("Invalid role: " + string(*p.Role))
	}
	if p.Timezone != nil {
		if _, err := time.LoadLocation(*p.Timezone); err != nil {
			return Invalid("Invalid timezone: " + *p.Timezone)
		}
	}
	return nil
}

// IsEmpty returns true when the patch changes nothing.
func (p *UserPatch) IsEmpty() bool {
	return *p == UserPatch{}
}

// TouchesAccess returns true if the patch changes the role or active flag,
// which only user managers may do.
func (p *UserPatch) TouchesAccess() bool {
	return p.Role != nil || p.IsActive != nil
}

// Apply copies the set fields of the patch onto u.
func (p *UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.FullName != nil {
		u.FullName = p.FullName
	}
	if p.Avatar != nil {
		u.Avatar = p.Avatar
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Timezone != nil {
		u.Timezone = *p.Timezone
	}
	if p.Language != nil {
		u.Language = *p.Language
	}
	if p.EmailNotifications != nil {
		u.EmailNotifications = *p.EmailNotifications
	}
	if p.PushNotifications != nil {
		u.PushNotifications = *p.PushNotifications
	}
	if p.ProfileCompleted != nil {
		u.ProfileCompleted = *p.ProfileCompleted
	}
}

// Profile is the identity-provider owned part of a user record,
// refreshed by lifecycle webhooks.
type Profile struct {
	FirstName *string
	LastName  *string
	Avatar    *string
}

// Matches reports whether u already carries this profile.
func (p Profile) Matches(u *User) bool {
	return equalPtr(p.FirstName, u.FirstName) &&
		equalPtr(p.LastName, u.LastName) &&
		equalPtr(JoinName(p.FirstName, p.LastName), u.FullName) &&
		equalPtr(p.Avatar, u.Avatar)
}

// Apply copies the profile onto u.
func (p Profile) Apply(u *User) {
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.FullName = JoinName(p.FirstName, p.LastName)
	u.Avatar = p.Avatar
}

// Activity identifies a counter tracked on a user record.
type Activity int

const (
	ActivityIncidentCreated Activity = iota + 1
	ActivityUpdatePosted
)

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
