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

// IncidentStore implements store.IncidentStore using PostgreSQL.
type IncidentStore struct {
	pool *pgxpool.Pool
}

// NewIncidentStore creates a new PostgreSQL-backed incident store.
func NewIncidentStore(pool *pgxpool.Pool) *IncidentStore {
	return &IncidentStore{
		pool: pool,
	}
}

const incidentSelect = `
	SELECT
		i.id, i.organization_id, i.service_id, i.title, i.description, i.status,
		i.created_by_id, i.created_at, i.updated_at,
		s.id, s.name, s.status
	FROM incidents i
	JOIN services s ON s.id = i.service_id`

const incidentUpdateColumns = `id, incident_id, content, author_id, created_at`

// Create inserts a new incident. The service must belong to the incident's organization.
func (s *IncidentStore) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			id, organization_id, service_id, title, description, status,
			created_by_id, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE EXISTS (SELECT 1 FROM services WHERE id = $3 AND organization_id = $2)
	`

	result, err := s.pool.Exec(ctx, query,
		incident.ID,
		incident.OrganizationID,
		incident.ServiceID,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.CreatedByID,
		incident.CreatedAt,
		incident.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrServiceNotFound
	}

	log.Debug().
		Str("incident_id", incident.ID.String()).
		Str("service_id", incident.ServiceID.String()).
		Str("status", string(incident.Status)).
		Msg("Created incident")

	return nil
}

// Get retrieves an incident with its service summary.
func (s *IncidentStore) Get(ctx context.Context, orgID, incidentID uuid.UUID) (*models.Incident, error) {
	return s.get(ctx, s.pool, orgID, incidentID)
}

// List returns the organization's incidents, newest first.
func (s *IncidentStore) List(ctx context.Context, orgID uuid.UUID) ([]*models.Incident, error) {
	query := incidentSelect + `
		WHERE i.organization_id = $1
		ORDER BY i.created_at DESC, i.id DESC
	`

	return s.query(ctx, query, orgID)
}

// ListByService returns up to limit of a service's incidents, newest first. A limit of zero returns all.
func (s *IncidentStore) ListByService(ctx context.Context, orgID, serviceID uuid.UUID, limit int) ([]*models.Incident, error) {
	query := incidentSelect + `
		WHERE i.organization_id = $1 AND i.service_id = $2
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT NULLIF($3, 0)
	`

	return s.query(ctx, query, orgID, serviceID, limit)
}

// Update applies a patch to an incident. Moving it to another service requires
// that service to belong to the same organization.
func (s *IncidentStore) Update(ctx context.Context, orgID, incidentID uuid.UUID, patch models.IncidentPatch) (*models.Incident, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if patch.ServiceID != nil {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM services WHERE id = $1 AND organization_id = $2)`,
			*patch.ServiceID, orgID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check service: %w", err)
		}
		if !exists {
			return nil, store.ErrServiceNotFound
		}
	}

	query := `
		UPDATE incidents SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			status = COALESCE($5, status),
			service_id = COALESCE($6, service_id),
			updated_at = $7
		WHERE id = $1 AND organization_id = $2
	`

	result, err := tx.Exec(ctx, query,
		incidentID,
		orgID,
		patch.Title,
		patch.Description,
		patch.Status,
		patch.ServiceID,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update incident: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return nil, store.ErrIncidentNotFound
	}

	incident, err := s.get(ctx, tx, orgID, incidentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit incident update: %w", err)
	}

	log.Debug().
		Str("incident_id", incidentID.String()).
		Str("status", string(incident.Status)).
		Msg("Updated incident")

	return incident, nil
}

// Delete removes an incident and, via FK constraint, its updates.
func (s *IncidentStore) Delete(ctx context.Context, orgID, incidentID uuid.UUID) error {
	query := `DELETE FROM incidents WHERE id = $1 AND organization_id = $2`

	result, err := s.pool.Exec(ctx, query, incidentID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrIncidentNotFound
	}

	log.Info().
		Str("incident_id", incidentID.String()).
		Msg("Deleted incident")

	return nil
}

// AddUpdate appends a progress update to an incident in the organization.
func (s *IncidentStore) AddUpdate(ctx context.Context, orgID uuid.UUID, update *models.IncidentUpdate) error {
	query := `
		INSERT INTO incident_updates (` + incidentUpdateColumns + `)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM incidents WHERE id = $2 AND organization_id = $6)
	`

	result, err := s.pool.Exec(ctx, query,
		update.ID,
		update.IncidentID,
		update.Content,
		update.AuthorID,
		update.CreatedAt,
		orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to add incident update: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrIncidentNotFound
	}

	return nil
}

// ListUpdates returns up to limit of an incident's updates, newest first. A limit of zero returns all.
func (s *IncidentStore) ListUpdates(ctx context.Context, orgID, incidentID uuid.UUID, limit int) ([]*models.IncidentUpdate, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1 AND organization_id = $2)`,
		incidentID, orgID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check incident: %w", err)
	}
	if !exists {
		return nil, store.ErrIncidentNotFound
	}

	query := `
		SELECT ` + incidentUpdateColumns + `
		FROM incident_updates
		WHERE incident_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2, 0)
	`

	rows, err := s.pool.Query(ctx, query, incidentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident updates: %w", err)
	}
	defer rows.Close()

	var updates []*models.IncidentUpdate
	for rows.Next() {
		var u models.IncidentUpdate
		if err := rows.Scan(&u.ID, &u.IncidentID, &u.Content, &u.AuthorID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident update: %w", err)
		}
		updates = append(updates, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incident updates: %w", err)
	}

	return updates, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *IncidentStore) get(ctx context.Context, q querier, orgID, incidentID uuid.UUID) (*models.Incident, error) {
	query := incidentSelect + ` WHERE i.id = $1 AND i.organization_id = $2`

	incident, err := scanIncident(q.QueryRow(ctx, query, incidentID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	return incident, nil
}

func (s *IncidentStore) query(ctx context.Context, query string, args ...any) ([]*models.Incident, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*models.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}

	return incidents, nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var (
		i   models.Incident
		svc models.ServiceSummary
	)
	err := row.Scan(
		&i.ID,
		&i.OrganizationID,
		&i.ServiceID,
		&i.Title,
		&i.Description,
		&i.Status,
		&i.CreatedByID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&svc.ID,
		&svc.Name,
		&svc.Status,
	)
	if err != nil {
		return nil, err
	}
	i.Service = &svc
	return &i, nil
}
