package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/statuspage/internal/store"
)

// Constraint names from migrations/1_initial_schema.sql.
const (
	constraintUsersActiveEmail      = "idx_users_active_email"
	constraintUsersExternalID       = "idx_users_external_id"
	constraintIncidentsService      = "incidents_service_id_fkey"
	constraintUpdatesIncident       = "incident_updates_incident_id_fkey"
	constraintUsersOrganization     = "users_organization_id_fkey"
	constraintServicesOrganization  = "services_organization_id_fkey"
	constraintNotificationsUser     = "notifications_user_id_fkey"
	constraintNotificationsService  = "notifications_service_id_fkey"
	constraintNotificationsIncident = "notifications_incident_id_fkey"
)

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case constraintUsersActiveEmail, constraintUsersExternalID:
			return store.ErrUserAlreadyExists
		case "organizations_pkey":
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintIncidentsService, constraintNotificationsService:
			return fmt.Errorf("%w: %s", store.ErrServiceNotFound, pgErr.Detail)
		case constraintNotificationsUser:
			return fmt.Errorf("%w: %s", store.ErrUserNotFound, pgErr.Detail)
		case constraintUpdatesIncident, constraintNotificationsIncident:
			return fmt.Errorf("%w: %s", store.ErrIncidentNotFound, pgErr.Detail)
		case constraintUsersOrganization, constraintServicesOrganization:
			return fmt.Errorf("%w: %s", store.ErrOrganizationNotFound, pgErr.Detail)
		}
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict: %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
