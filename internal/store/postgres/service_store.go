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

// ServiceStore implements store.ServiceStore using PostgreSQL.
type ServiceStore struct {
	pool *pgxpool.Pool
}

// NewServiceStore creates a new PostgreSQL-backed service store.
func NewServiceStore(pool *pgxpool.Pool) *ServiceStore {
	return &ServiceStore{
		pool: pool,
	}
}

const serviceColumns = `id, organization_id, name, status, created_at, updated_at`

// Create inserts a new service.
func (s *ServiceStore) Create(ctx context.Context, svc *models.Service) error {
	query := `
		INSERT INTO services (` + serviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		svc.ID,
		svc.OrganizationID,
		svc.Name,
		svc.Status,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("service_id", svc.ID.String()).
		Str("org_id", svc.OrganizationID.String()).
		Str("status", string(svc.Status)).
		Msg("Created service")

	return nil
}

// Get retrieves a service by ID within an organization.
func (s *ServiceStore) Get(ctx context.Context, orgID, serviceID uuid.UUID) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND organization_id = $2`

	svc, err := scanService(s.pool.QueryRow(ctx, query, serviceID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	return svc, nil
}

// List returns the organization's services ordered by name.
func (s *ServiceStore) List(ctx context.Context, orgID uuid.UUID) ([]*models.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE organization_id = $1
		ORDER BY name ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating services: %w", err)
	}

	return services, nil
}

// Update applies a patch to a service.
func (s *ServiceStore) Update(ctx context.Context, orgID, serviceID uuid.UUID, patch models.ServicePatch) (*models.Service, error) {
	query := `
		UPDATE services SET
			name = COALESCE($3, name),
			status = COALESCE($4, status),
			updated_at = $5
		WHERE id = $1 AND organization_id = $2
		RETURNING ` + serviceColumns

	svc, err := scanService(s.pool.QueryRow(ctx, query,
		serviceID,
		orgID,
		patch.Name,
		patch.Status,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to update service: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("service_id", serviceID.String()).
		Str("status", string(svc.Status)).
		Msg("Updated service")

	return svc, nil
}

// Delete removes a service. Its incidents and their updates are cascade-deleted via FK constraint.
func (s *ServiceStore) Delete(ctx context.Context, orgID, serviceID uuid.UUID) error {
	query := `DELETE FROM services WHERE id = $1 AND organization_id = $2`

	result, err := s.pool.Exec(ctx, query, serviceID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrServiceNotFound
	}

	log.Info().
		Str("service_id", serviceID.String()).
		Str("org_id", orgID.String()).
		Msg("Deleted service (and cascade-deleted its incidents)")

	return nil
}

func scanService(row pgx.Row) (*models.Service, error) {
	var svc models.Service
	err := row.Scan(
		&svc.ID,
		&svc.OrganizationID,
		&svc.Name,
		&svc.Status,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}
