package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/statuspage"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Access gate decisions, by outcome
	GateDecisionsTotal metric.Int64Counter

	// Identity webhooks, by event type and outcome
	WebhookEventsTotal metric.Int64Counter

	// Notifications and the event feed
	NotificationsCreatedTotal metric.Int64Counter
	EventsPublishedTotal      metric.Int64Counter
	EventPublishErrorsTotal   metric.Int64Counter

	// Public status view
	StatusViewsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.HTTPRequestsTotal, _ = meter.Int64Counter(
		"statuspage.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)

	m.HTTPRequestDuration, _ = meter.Float64Histogram(
		"statuspage.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	m.GateDecisionsTotal, _ = meter.Int64Counter(
		"statuspage.gate.decisions.total",
		metric.WithDescription("Total number of access gate decisions"),
		metric.WithUnit("{decision}"),
	)

	m.WebhookEventsTotal, _ = meter.Int64Counter(
		"statuspage.webhooks.events.total",
		metric.WithDescription("Total number of identity provider webhook events received"),
		metric.WithUnit("{event}"),
	)

	m.NotificationsCreatedTotal, _ = meter.Int64Counter(
		"statuspage.notifications.created.total",
		metric.WithDescription("Total number of notifications created"),
		metric.WithUnit("{notification}"),
	)

	m.EventsPublishedTotal, _ = meter.Int64Counter(
		"statuspage.events.published.total",
		metric.WithDescription("Total number of events published to the event feed"),
		metric.WithUnit("{event}"),
	)

	m.EventPublishErrorsTotal, _ = meter.Int64Counter(
		"statuspage.events.publish.errors.total",
		metric.WithDescription("Total number of event feed publish errors"),
		metric.WithUnit("{error}"),
	)

	m.StatusViewsTotal, _ = meter.Int64Counter(
		"statuspage.status.views.total",
		metric.WithDescription("Total number of public status page views"),
		metric.WithUnit("{view}"),
	)

	return m
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// RecordGateDecision records an access gate outcome such as "allowed" or "forbidden".
func (m *Metrics) RecordGateDecision(ctx context.Context, outcome string) {
	m.GateDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordWebhookEvent records a processed identity provider webhook.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, eventType, outcome string) {
	m.WebhookEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", eventType),
		attribute.String("outcome", outcome),
	))
}

// RecordNotification records a created notification by type.
func (m *Metrics) RecordNotification(ctx context.Context, notificationType string) {
	m.NotificationsCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", notificationType)))
}

// RecordPublish records an event feed publish attempt.
func (m *Metrics) RecordPublish(ctx context.Context, subject string, err error) {
	if err != nil {
		m.EventPublishErrorsTotal.Add(ctx, 1)
		return
	}
	m.EventsPublishedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
}

// RecordStatusView records a public status view render.
func (m *Metrics) RecordStatusView(ctx context.Context, format string) {
	m.StatusViewsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}
