package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/status"
)

type StatusCmd struct {
	OrgID string `arg:"" help:"Organization ID"`
}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := uuid.Parse(s.OrgID)
	if err != nil {
		return fmt.Errorf("invalid organization ID %q", s.OrgID)
	}

	c, err := globals.client()
	if err != nil {
		return err
	}

	page, cached, err := c.Status(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to fetch status page: %w", err)
	}

	printStatusPage(globals, page, cached)
	return nil
}

func printStatusPage(globals *Globals, page *status.Page, cached bool) {
	out := globals.Out

	title := page.Organization.Name + " status"
	if cached {
		title += " (cached)"
	}
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, strings.Repeat("─", 80))

	if len(page.Services) == 0 {
		fmt.Fprintln(out, "No services.")
		return
	}

	for _, svc := range page.Services {
		fmt.Fprintf(out, "%-40s %s\n", truncate(svc.Name, 40), svc.Status)
		for _, inc := range svc.Incidents {
			fmt.Fprintf(out, "  [%s] %s (%s)\n", inc.Status, inc.Title, formatTime(inc.CreatedAt))
			for _, u := range inc.Updates {
				fmt.Fprintf(out, "    %s  %s\n", formatTime(u.CreatedAt), truncate(u.Content, 60))
			}
		}
	}
}
