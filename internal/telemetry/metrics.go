package telemetry

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/WailSalutem-Health-Care/micu-service"

// Metrics holds all custom metrics for the service. A nil *Metrics records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	PatientTotal metric.Int64Counter
	RecordTotal  metric.Int64Counter
	UserTotal    metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
	AuthorizationDecisions  metric.Int64Counter
}

// InitMetrics creates the metrics on the global meter provider.
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(meterName))
}

// NewMetrics creates the metrics on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.PatientTotal, "patient_total", "Total number of patient operations", "{operation}"},
		{&m.RecordTotal, "clinical_record_total", "Total number of clinical record operations", "{operation}"},
		{&m.UserTotal, "user_total", "Total number of user operations", "{operation}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of authentication failures", "{failure}"},
		{&m.AuthorizationDecisions, "authorization_decisions_total", "Authorization engine decisions by outcome", "{decision}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	log.Info("✓ Custom metrics initialized")
	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

// RecordPatientOperation records a patient operation metric
func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.PatientTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordRecordOperation records a clinical record operation per section.
func (m *Metrics) RecordRecordOperation(ctx context.Context, operation, section string) {
	if m == nil {
		return
	}
	m.RecordTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("section", section),
	))
}

// RecordUserOperation records a user operation metric
func (m *Metrics) RecordUserOperation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.UserTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}

// RecordAuthorizationDecision counts one engine decision. The engine is
// context-free, so the measurement is taken on a background context.
func (m *Metrics) RecordAuthorizationDecision(operation string, allowed bool, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "ALLOWED"
	}
	m.AuthorizationDecisions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("allowed", allowed),
		attribute.String("reason", reason),
	))
}
