// Package events records notifications and fans them out to the event feed.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/models"
)

// SubjectPrefix is the root of every event feed subject.
const SubjectPrefix = "statuspage"

// Subject returns the feed subject for a notification: statuspage.<org_id>.<type>.
func Subject(orgID uuid.UUID, t models.NotificationType) string {
	return SubjectPrefix + "." + orgID.String() + "." + strings.ToLower(string(t))
}

// Publisher delivers serialized events to the feed.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close()
}

// NopPublisher discards events. Used when no feed is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NopPublisher) Close()                                        {}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL           string
	Name          string
	Username      string
	Password      string
	ReconnectWait time.Duration
	MaxReconnects int
}

// NATSPublisher publishes events to NATS core subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

// ConnectNATS connects to NATS and returns a publisher.
func ConnectNATS(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL is required")
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to NATS")

	return NewNATSPublisher(nc), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// Publish sends data on subject. Delivery is at most once.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.nc.Publish(subject, data)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection")
		p.nc.Close()
	}
}
