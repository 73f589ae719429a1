package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/client"
	"github.com/wolfeidau/statuspage/internal/models"
	"gopkg.in/yaml.v3"
)

// IncidentManifest describes an incident and the updates to post under it.
// Without an ID the incident is created, otherwise the existing incident is
// replaced with the manifest's fields.
type IncidentManifest struct {
	ID          string                `yaml:"id"`
	Service     string                `yaml:"service"`
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Status      models.IncidentStatus `yaml:"status"`
	Updates     []string              `yaml:"updates"`
}

// LoadIncidentManifest reads a YAML (or JSON) manifest from path.
func LoadIncidentManifest(path string) (*IncidentManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m IncidentManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if m.Status == "" {
		m.Status = models.IncidentOpen
	}
	if m.Service == "" {
		return nil, errors.New("manifest: service is required")
	}
	if m.Title == "" {
		return nil, errors.New("manifest: title is required")
	}
	if !m.Status.Valid() {
		return nil, fmt.Errorf("manifest: invalid status %q", m.Status)
	}

	return &m, nil
}

type IncidentCmd struct {
	Apply IncidentApplyCmd `cmd:"" help:"Create or update an incident from a manifest"`
	Post  IncidentPostCmd  `cmd:"" help:"Post an update to an incident"`
}

type IncidentApplyCmd struct {
	File string `short:"f" help:"Incident manifest (YAML)" required:"" type:"existingfile"`
}

func (a *IncidentApplyCmd) Run(ctx context.Context, globals *Globals) error {
	manifest, err := LoadIncidentManifest(a.File)
	if err != nil {
		return err
	}

	c, err := globals.client()
	if err != nil {
		return err
	}

	serviceID, err := resolveService(ctx, c, manifest.Service)
	if err != nil {
		return err
	}

	input := models.IncidentInput{
		Title:       manifest.Title,
		Description: manifest.Description,
		Status:      manifest.Status,
		ServiceID:   serviceID,
	}

	var incident *models.Incident
	if manifest.ID == "" {
		incident, err = c.CreateIncident(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to create incident: %w", err)
		}
		fmt.Fprintf(globals.Out, "Created incident %s\n", incident.ID)
	} else {
		id, err := uuid.Parse(manifest.ID)
		if err != nil {
			return fmt.Errorf("manifest: invalid id %q", manifest.ID)
		}
		incident, err = c.UpdateIncident(ctx, id, input.Patch())
		if err != nil {
			return fmt.Errorf("failed to update incident: %w", err)
		}
		fmt.Fprintf(globals.Out, "Updated incident %s\n", incident.ID)
	}

	for _, content := range manifest.Updates {
		if _, err := c.PostIncidentUpdate(ctx, incident.ID, content); err != nil {
			return fmt.Errorf("failed to post update: %w", err)
		}
	}
	if n := len(manifest.Updates); n > 0 {
		fmt.Fprintf(globals.Out, "Posted %d update(s)\n", n)
	}

	return nil
}

type IncidentPostCmd struct {
	IncidentID string `arg:"" help:"Incident ID"`
	Content    string `arg:"" help:"Update text"`
}

func (p *IncidentPostCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := uuid.Parse(p.IncidentID)
	if err != nil {
		return fmt.Errorf("invalid incident ID %q", p.IncidentID)
	}

	c, err := globals.client()
	if err != nil {
		return err
	}

	update, err := c.PostIncidentUpdate(ctx, id, p.Content)
	if err != nil {
		return fmt.Errorf("failed to post update: %w", err)
	}

	fmt.Fprintf(globals.Out, "Posted update %s\n", update.ID)
	return nil
}

// resolveService accepts a service ID or a service name.
func resolveService(ctx context.Context, c *client.Client, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}

	services, err := c.ListServices(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list services: %w", err)
	}

	for _, svc := range services {
		if strings.EqualFold(svc.Name, ref) {
			return svc.ID, nil
		}
	}

	return uuid.Nil, fmt.Errorf("service %q not found", ref)
}
