package commands

import (
	"context"
	"fmt"
	"strings"
)

type ServicesCmd struct{}

func (s *ServicesCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.client()
	if err != nil {
		return err
	}

	services, err := c.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	out := globals.Out
	if len(services) == 0 {
		fmt.Fprintln(out, "No services found.")
		return nil
	}

	fmt.Fprintf(out, "%-36s %-30s %-16s %-20s\n", "Service ID", "Name", "Status", "Updated At")
	fmt.Fprintln(out, strings.Repeat("─", 104))
	for _, svc := range services {
		fmt.Fprintf(out, "%-36s %-30s %-16s %-20s\n",
			svc.ID, truncate(svc.Name, 30), svc.Status, formatTime(svc.UpdatedAt))
	}

	return nil
}

type IncidentsCmd struct {
	Status string `help:"Only show incidents with this status (OPEN, RESOLVED, SCHEDULED_MAINTENANCE)"`
}

func (i *IncidentsCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.client()
	if err != nil {
		return err
	}

	incidents, err := c.ListIncidents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list incidents: %w", err)
	}

	out := globals.Out
	fmt.Fprintf(out, "%-36s %-22s %-20s %-30s %-20s\n", "Incident ID", "Status", "Service", "Title", "Created At")
	fmt.Fprintln(out, strings.Repeat("─", 132))

	shown := 0
	for _, inc := range incidents {
		if i.Status != "" && !strings.EqualFold(string(inc.Status), i.Status) {
			continue
		}

		service := "-"
		if inc.Service != nil {
			service = inc.Service.Name
		}

		fmt.Fprintf(out, "%-36s %-22s %-20s %-30s %-20s\n",
			inc.ID, inc.Status, truncate(service, 20), truncate(inc.Title, 30), formatTime(inc.CreatedAt))
		shown++
	}

	fmt.Fprintf(out, "\nTotal incidents: %d\n", shown)

	return nil
}

type NotificationsCmd struct {
	Unread   bool `help:"Only show unread notifications"`
	MarkRead bool `help:"Mark every notification read after listing"`
}

func (n *NotificationsCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.client()
	if err != nil {
		return err
	}

	notifications, err := c.ListNotifications(ctx, n.Unread)
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}

	out := globals.Out
	if len(notifications) == 0 {
		fmt.Fprintln(out, "No notifications.")
	}

	for _, note := range notifications {
		marker := " "
		if !note.IsRead {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-20s %-20s %s: %s\n",
			marker, formatTime(note.CreatedAt), note.Type, note.Title, truncate(note.Message, 80))
	}

	if n.MarkRead && len(notifications) > 0 {
		if err := c.MarkAllNotificationsRead(ctx); err != nil {
			return fmt.Errorf("failed to mark notifications read: %w", err)
		}
		fmt.Fprintln(out, "Marked all notifications read.")
	}

	return nil
}
