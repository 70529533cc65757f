package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"gradecli/internal/config"
	"gradecli/pkg/contracts"
)

const (
	ServiceName = "gradebook-analyzer"
	MeterName   = "gradecli"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics according to cfg.
// Disabled signals fall back to the global no-op providers.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()
	version := contracts.GetVersionInfo().Version

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		otel.SetTracerProvider(tp)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	providers.Tracer = otel.Tracer(MeterName, trace.WithInstrumentationVersion(version))

	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}
	providers.Meter = otel.Meter(MeterName, metric.WithInstrumentationVersion(version))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter),
		slog.String("environment", cfg.Environment))

	return providers, nil
}

// BusinessMetrics holds the application metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Gradebook metrics
	UploadsTotal     metric.Int64Counter
	UploadBytes      metric.Int64Histogram
	ParseDuration    metric.Float64Histogram
	ParseErrors      metric.Int64Counter
	StudentsParsed   metric.Int64Histogram
	ActiveSessions   metric.Int64UpDownCounter
	ExportsTotal     metric.Int64Counter
	SessionEvictions metric.Int64Counter
}

// CreateBusinessMetrics registers the application metrics on meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m    BusinessMetrics
		errs []error
		err  error
	)

	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	errs = append(errs, err)

	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests"))
	errs = append(errs, err)

	m.UploadsTotal, err = meter.Int64Counter("gradebook_uploads_total",
		metric.WithDescription("Total number of gradebook uploads"))
	errs = append(errs, err)

	m.UploadBytes, err = meter.Int64Histogram("gradebook_upload_bytes",
		metric.WithDescription("Size of uploaded gradebooks"),
		metric.WithUnit("By"))
	errs = append(errs, err)

	m.ParseDuration, err = meter.Float64Histogram("gradebook_parse_duration_seconds",
		metric.WithDescription("Time to parse and analyze a gradebook"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.ParseErrors, err = meter.Int64Counter("gradebook_parse_errors_total",
		metric.WithDescription("Total number of rejected gradebooks"))
	errs = append(errs, err)

	m.StudentsParsed, err = meter.Int64Histogram("gradebook_students",
		metric.WithDescription("Number of students per parsed gradebook"))
	errs = append(errs, err)

	m.ActiveSessions, err = meter.Int64UpDownCounter("gradebook_active_sessions",
		metric.WithDescription("Number of live analysis sessions"))
	errs = append(errs, err)

	m.ExportsTotal, err = meter.Int64Counter("gradebook_exports_total",
		metric.WithDescription("Total number of report exports"))
	errs = append(errs, err)

	m.SessionEvictions, err = meter.Int64Counter("gradebook_session_evictions_total",
		metric.WithDescription("Sessions removed by expiry or capacity eviction"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordUploadMetrics records the outcome of one gradebook upload
func RecordUploadMetrics(ctx context.Context, m *BusinessMetrics, format string, size int64, students int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", status),
	)

	m.UploadsTotal.Add(ctx, 1, attrs)
	m.UploadBytes.Record(ctx, size, attrs)
	m.ParseDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.ParseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", fmt.Sprintf("%T", err))))
		return
	}
	m.StudentsParsed.Record(ctx, int64(students))
}

// RecordSessionChange records a change in the number of live sessions
func RecordSessionChange(ctx context.Context, m *BusinessMetrics, delta int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

// RecordSessionRemoved records a session leaving the store
func RecordSessionRemoved(ctx context.Context, m *BusinessMetrics, reason string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
	if reason != "deleted" {
		m.SessionEvictions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordExport records one report export
func RecordExport(ctx context.Context, m *BusinessMetrics, format string) {
	if m == nil {
		return
	}
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

// Shutdown flushes and stops the configured providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext returns the OpenTelemetry trace ID of the current span
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
