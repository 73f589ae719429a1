package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

const userColumns = `
	id, organization_id, email, external_id,
	first_name, last_name, full_name, avatar,
	role, is_active,
	timezone, language, email_notifications, push_notifications, profile_completed,
	last_login_at, last_activity_at, total_incidents_created, total_updates_posted, last_incident_created_at,
	created_at, updated_at`

// Active rows sort first, then the oldest.
const userPreference = `ORDER BY is_active DESC, created_at ASC, id ASC LIMIT 1`

// Create inserts a new user.
// Returns store.ErrUserAlreadyExists if an active user with the same email exists in the organization.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22
		)
	`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.OrganizationID,
		user.Email,
		user.ExternalID,
		user.FirstName,
		user.LastName,
		user.FullName,
		user.Avatar,
		user.Role,
		user.IsActive,
		user.Timezone,
		user.Language,
		user.EmailNotifications,
		user.PushNotifications,
		user.ProfileCompleted,
		user.LastLoginAt,
		user.LastActivityAt,
		user.TotalIncidentsCreated,
		user.TotalUpdatesPosted,
		user.LastIncidentCreatedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("user_id", user.ID.String()).
		Str("org_id", user.OrganizationID.String()).
		Str("role", string(user.Role)).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID within an organization.
func (s *UserStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND organization_id = $2`
	return s.queryOne(ctx, "get user", query, userID, orgID)
}

// GetByExternalID retrieves the user linked to an identity-provider account, preferring active users.
func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, store.ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1 ` + userPreference
	return s.queryOne(ctx, "get user by external id", query, externalID)
}

// GetByEmail retrieves a user in the organization by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE organization_id = $1 AND lower(email) = $2
		` + userPreference

	return s.queryOne(ctx, "get user by email", query, orgID, models.NormalizeEmail(email))
}

// FindActiveByEmail retrieves the oldest active user with the email, limited to
// orgID unless it is uuid.Nil.
func (s *UserStore) FindActiveByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active AND lower(email) = $1
		  AND ($2::uuid = '00000000-0000-0000-0000-000000000000' OR organization_id = $2)
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	return s.queryOne(ctx, "find active user by email", query, models.NormalizeEmail(email), orgID)
}

// ListByOrg returns all users of an organization, newest first.
func (s *UserStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Update applies a patch to a user inside a transaction holding the row lock.
func (s *UserStore) Update(ctx context.Context, orgID, userID uuid.UUID, patch models.UserPatch) (*models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND organization_id = $2 FOR UPDATE`

	user, err := scanUser(tx.QueryRow(ctx, query, userID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	patch.Apply(user)
	user.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE users SET
			first_name = $2,
			last_name = $3,
			full_name = $4,
			avatar = $5,
			role = $6,
			is_active = $7,
			timezone = $8,
			language = $9,
			email_notifications = $10,
			push_notifications = $11,
			profile_completed = $12,
			updated_at = $13
		WHERE id = $1
	`,
		user.ID,
		user.FirstName,
		user.LastName,
		user.FullName,
		user.Avatar,
		user.Role,
		user.IsActive,
		user.Timezone,
		user.Language,
		user.EmailNotifications,
		user.PushNotifications,
		user.ProfileCompleted,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user update: %w", err)
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("org_id", orgID.String()).
		Msg("Updated user")

	return user, nil
}

// LinkExternalID sets the identity-provider account ID on a user.
func (s *UserStore) LinkExternalID(ctx context.Context, userID uuid.UUID, externalID string) error {
	query := `UPDATE users SET external_id = $2, updated_at = $3 WHERE id = $1`
	return s.exec(ctx, "link external id", query, userID, externalID, time.Now().UTC())
}

// UpdateProfile replaces the identity-provider owned profile fields.
func (s *UserStore) UpdateProfile(ctx context.Context, userID uuid.UUID, profile models.Profile) error {
	query := `
		UPDATE users SET
			first_name = $2,
			last_name = $3,
			full_name = $4,
			avatar = $5,
			updated_at = $6
		WHERE id = $1
	`

	return s.exec(ctx, "update profile", query,
		userID,
		profile.FirstName,
		profile.LastName,
		models.JoinName(profile.FirstName, profile.LastName),
		profile.Avatar,
		time.Now().UTC(),
	)
}

// RecordActivity increments the counter for the given activity.
func (s *UserStore) RecordActivity(ctx context.Context, userID uuid.UUID, activity models.Activity) error {
	var query string
	switch activity {
	case models.ActivityIncidentCreated:
		query = `
			UPDATE users SET
				total_incidents_created = total_incidents_created + 1,
				last_incident_created_at = $2,
				last_activity_at = $2,
				updated_at = $2
			WHERE id = $1
		`
	case models.ActivityUpdatePosted:
		query = `
			UPDATE users SET
				total_updates_posted = total_updates_posted + 1,
				last_activity_at = $2,
				updated_at = $2
			WHERE id = $1
		`
	default:
		return fmt.Errorf("unknown activity %d", activity)
	}

	return s.exec(ctx, "record activity", query, userID, time.Now().UTC())
}

// Deactivate marks a user inactive.
func (s *UserStore) Deactivate(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error) {
	inactive := false
	return s.Update(ctx, orgID, userID, models.UserPatch{IsActive: &inactive})
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID.String()).
		Msg("Deleted user")

	return nil
}

func (s *UserStore) queryOne(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return user, nil
}

func (s *UserStore) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to %s: %w", op, mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.OrganizationID,
		&u.Email,
		&u.ExternalID,
		&u.FirstName,
		&u.LastName,
		&u.FullName,
		&u.Avatar,
		&u.Role,
		&u.IsActive,
		&u.Timezone,
		&u.Language,
		&u.EmailNotifications,
		&u.PushNotifications,
		&u.ProfileCompleted,
		&u.LastLoginAt,
		&u.LastActivityAt,
		&u.TotalIncidentsCreated,
		&u.TotalUpdatesPosted,
		&u.LastIncidentCreatedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
