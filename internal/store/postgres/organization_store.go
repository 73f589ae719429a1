package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pool: pool}
}

// Columns are selected in models.Organization field order for RowToAddrOfStructByPos.
const selectOrganizations = `SELECT id, name, created_at, updated_at FROM organizations`

func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		org.ID, org.Name, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().Str("org_id", org.ID.String()).Str("name", org.Name).Msg("Created organization")

	return nil
}

func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	return s.one(ctx, selectOrganizations+` WHERE id = $1`, orgID)
}

// First returns the oldest organization, the default tenant for webhook-created users.
func (s *OrganizationStore) First(ctx context.Context) (*models.Organization, error) {
	return s.one(ctx, selectOrganizations+` ORDER BY created_at, id LIMIT 1`)
}

// List returns all organizations, oldest first.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.pool.Query(ctx, selectOrganizations+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	orgs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[models.Organization])
	if err != nil {
		return nil, fmt.Errorf("failed to scan organizations: %w", err)
	}

	return orgs, nil
}

func (s *OrganizationStore) one(ctx context.Context, query string, args ...any) (*models.Organization, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	org, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[models.Organization])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}
