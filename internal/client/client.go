package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
	"github.com/wolfeidau/statuspage/internal/status"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
	CacheDir  string
	Debug     bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the statuspage REST API.
type Client struct {
	baseURL string
	token   string

	http    *http.Client
	caching *http.Client
}

// New creates a client. Authenticated calls send the session token as a bearer
// token; the public status endpoint goes through a caching HTTP client.
func New(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("server URL is required")
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	caching := NewCachingHTTPClient(cfg.CacheDir)
	caching.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		caching: caching,
	}, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the public status page of an organization. The second return
// value reports whether the response was served from the local cache.
func (c *Client) Status(ctx context.Context, orgID uuid.UUID) (*status.Page, bool, error) {
	var page status.Page
	resp, err := c.do(ctx, c.caching, http.MethodGet, "/api/status/"+orgID.String(), nil, &page)
	if err != nil {
		return nil, false, err
	}
	return &page, FromCache(resp), nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, c.http, http.MethodGet, "/api/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListServices returns the caller's organization services.
func (c *Client) ListServices(ctx context.Context) ([]*models.Service, error) {
	var services []*models.Service
	if _, err := c.do(ctx, c.http, http.MethodGet, "/api/services", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// ListIncidents returns the caller's organization incidents, newest first.
func (c *Client) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	var incidents []*models.Incident
	if _, err := c.do(ctx, c.http, http.MethodGet, "/api/incidents", nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// CreateIncident creates an incident.
func (c *Client) CreateIncident(ctx context.Context, in models.IncidentInput) (*models.Incident, error) {
	var incident models.Incident
	if _, err := c.do(ctx, c.http, http.MethodPost, "/api/incidents", in, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// UpdateIncident applies a partial update to an incident.
func (c *Client) UpdateIncident(ctx context.Context, id uuid.UUID, patch models.IncidentPatch) (*models.Incident, error) {
	var incident models.Incident
	if _, err := c.do(ctx, c.http, http.MethodPatch, "/api/incidents/"+id.String(), patch, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// PostIncidentUpdate appends an update to an incident.
func (c *Client) PostIncidentUpdate(ctx context.Context, id uuid.UUID, content string) (*models.IncidentUpdate, error) {
	var update models.IncidentUpdate
	body := map[string]string{"content": content}
	if _, err := c.do(ctx, c.http, http.MethodPost, "/api/incidents/"+id.String()+"/updates", body, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// ListNotifications returns the latest notifications, optionally unread only.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]*models.Notification, error) {
	path := "/api/notifications"
	if unreadOnly {
		path += "?unread=true"
	}

	var notifications []*models.Notification
	if _, err := c.do(ctx, c.http, http.MethodGet, path, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAllNotificationsRead marks every notification read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, c.http, http.MethodPost, "/api/notifications/read-all", nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return resp, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp, nil
}
