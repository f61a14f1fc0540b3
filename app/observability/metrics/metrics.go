package metrics

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "inphantil-api"

// AppMetrics holds the auth core's metric instruments.
type AppMetrics struct {
	RegisterRequestsTotal  metric.Int64Counter
	LoginRequestsTotal     metric.Int64Counter
	AuthDurationSeconds    metric.Float64Histogram
	GateDecisionsTotal     metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	initErr    error
	once       sync.Once
)

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.RegisterRequestsTotal, err = meter.Int64Counter(
		"auth_register_requests_total",
		metric.WithDescription("Total number of register requests completed, by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_register_requests_total: %w", err)
	}

	m.LoginRequestsTotal, err = meter.Int64Counter(
		"auth_login_requests_total",
		metric.WithDescription("Total number of login requests completed, by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_login_requests_total: %w", err)
	}

	m.AuthDurationSeconds, err = meter.Float64Histogram(
		"auth_operation_duration_seconds",
		metric.WithDescription("Duration of register and login operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_operation_duration_seconds: %w", err)
	}

	m.GateDecisionsTotal, err = meter.Int64Counter(
		"auth_gate_decisions_total",
		metric.WithDescription("Protected-route admissions and rejections, by decision"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_gate_decisions_total: %w", err)
	}

	m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: db_query_duration_seconds: %w", err)
	}

	m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: db_query_errors_total: %w", err)
	}

	return m, nil
}

// InitAppMetrics creates the global instruments once, from the globally
// configured MeterProvider.
func InitAppMetrics() error {
	once.Do(func() {
		appMetrics, initErr = New(otel.GetMeterProvider().Meter(meterName))
	})
	return initErr
}

// Get returns the global instruments.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

// Noop returns instruments that record nothing, for tests and tools.
func Noop() *AppMetrics {
	m, err := New(noop.NewMeterProvider().Meter(meterName))
	if err != nil {
		panic(err)
	}
	return m
}
