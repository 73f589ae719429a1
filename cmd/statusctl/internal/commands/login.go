package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/statuspage/cmd/statusctl/internal/credentials"
)

type LoginCmd struct {
	Name string `help:"Profile name" default:"default"`
}

// Run verifies the token against the server and saves it as a profile.
func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	if globals.Token == "" {
		return errors.New("--token (or STATUSCTL_TOKEN) is required")
	}

	c, err := globals.client()
	if err != nil {
		return err
	}

	user, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}

	store, err := credentials.NewStore(globals.CredentialsDir)
	if err != nil {
		return err
	}

	profile, err := store.Save(credentials.Profile{
		Name:      l.Name,
		ServerURL: c.BaseURL(),
		Token:     globals.Token,
		Email:     user.Email,
		OrgID:     user.OrganizationID.String(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(globals.Out, "Signed in as %s (%s), saved profile %q [%s]\n",
		user.Email, user.Role, profile.Name, profile.Fingerprint)

	return nil
}

type LogoutCmd struct {
	Name string `help:"Profile name" default:"default"`
}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	store, err := credentials.NewStore(globals.CredentialsDir)
	if err != nil {
		return err
	}

	if err := store.Delete(l.Name); err != nil {
		return fmt.Errorf("failed to remove profile %q: %w", l.Name, err)
	}

	fmt.Fprintf(globals.Out, "Removed profile %q\n", l.Name)
	return nil
}
