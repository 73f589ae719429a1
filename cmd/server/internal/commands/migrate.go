package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/logger"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/store"
	postgresstore "github.com/wolfeidau/statuspage/internal/store/postgres"
)

// MigrateCmd applies the embedded database migrations.
type MigrateCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	if err := c.PostgresStore.Validate(); err != nil {
		return err
	}

	cfg := c.PostgresStore.poolConfig()
	cfg.AutoMigrate = false

	pool, err := postgresstore.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := postgresstore.RunMigrations(ctx, pool); err != nil {
		return err
	}

	log.Info().Msg("Migrations applied")

	return nil
}

// OrgCmd groups organization management commands.
type OrgCmd struct {
	Create OrgCreateCmd `cmd:"" help:"Create an organization"`
	List   OrgListCmd   `cmd:"" help:"List organizations, oldest (the default tenant) first"`
}

type OrgCreateCmd struct {
	Name          string             `help:"organization name" required:""`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	stores, closeStores, err := openStores(ctx, "postgres", &c.PostgresStore)
	if err != nil {
		return err
	}
	defer closeStores()

	org, err := createOrganization(ctx, stores, c.Name)
	if err != nil {
		return err
	}

	fmt.Println(org.ID)

	return nil
}

type OrgListCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *OrgListCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	stores, closeStores, err := openStores(ctx, "postgres", &c.PostgresStore)
	if err != nil {
		return err
	}
	defer closeStores()

	orgs, err := stores.Organizations.List(ctx)
	if err != nil {
		return err
	}

	for _, org := range orgs {
		fmt.Printf("%s\t%s\t%s\n", org.ID, org.CreatedAt.Format(time.RFC3339), org.Name)
	}

	return nil
}

func createOrganization(ctx context.Context, stores store.Stores, name string) (*models.Organization, error) {
	if name == "" {
		return nil, models.Invalid("organization name is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	org := &models.Organization{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}

	if err := stores.Organizations.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}
