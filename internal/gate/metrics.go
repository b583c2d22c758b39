package gate

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Login outcome attribute values.
const (
	outcomeSuccess            = "success"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeDisabled           = "disabled"
	outcomeThrottled          = "throttled"
	outcomeError              = "error"
)

// gateMetrics holds the gate's counters. Instruments come from the global
// MeterProvider, so they are no-ops until telemetry is set up.
type gateMetrics struct {
	loginAttempts    metric.Int64Counter
	sessionEvictions metric.Int64Counter
	tokenRotations   metric.Int64Counter
	reuseDetections  metric.Int64Counter
}

func newGateMetrics() *gateMetrics {
	meter := otel.Meter("authgate/gate")
	m := &gateMetrics{}
	var err error
	m.loginAttempts, err = meter.Int64Counter("authgate.login.attempts",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		log.Printf("gate: register login attempts counter: %v", err)
	}
	m.sessionEvictions, err = meter.Int64Counter("authgate.sessions.evicted",
		metric.WithDescription("Sessions evicted to stay under the concurrency cap"))
	if err != nil {
		log.Printf("gate: register session evictions counter: %v", err)
	}
	m.tokenRotations, err = meter.Int64Counter("authgate.tokens.rotated",
		metric.WithDescription("Refresh token rotations"))
	if err != nil {
		log.Printf("gate: register token rotations counter: %v", err)
	}
	m.reuseDetections, err = meter.Int64Counter("authgate.tokens.reuse_detected",
		metric.WithDescription("Replays of already-rotated refresh tokens"))
	if err != nil {
		log.Printf("gate: register reuse detections counter: %v", err)
	}
	return m
}

func (m *gateMetrics) recordLogin(ctx context.Context, outcome string) {
	if m == nil || m.loginAttempts == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *gateMetrics) recordEvictions(ctx context.Context, n int) {
	if m == nil || m.sessionEvictions == nil || n == 0 {
		return
	}
	m.sessionEvictions.Add(ctx, int64(n))
}

func (m *gateMetrics) recordRotation(ctx context.Context) {
	if m == nil || m.tokenRotations == nil {
		return
	}
	m.tokenRotations.Add(ctx, 1)
}

func (m *gateMetrics) recordReuse(ctx context.Context) {
	if m == nil || m.reuseDetections == nil {
		return
	}
	m.reuseDetections.Add(ctx, 1)
}
