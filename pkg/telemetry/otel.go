// Package telemetry provides optional OpenTelemetry OTLP gRPC export.
// Disabled by default; an analyze run becomes a single span with trace
// metadata attached so capture-to-trace pipelines show up in an existing
// observability stack.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config configures the OTLP gRPC exporter.
type Config struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName identifies this tool in traces.
	ServiceName string

	// ServiceVersion is the tool version.
	ServiceVersion string

	// InsecureTLS disables TLS for the gRPC connection (local collectors).
	InsecureTLS bool

	// Headers are additional headers sent with each request.
	Headers map[string]string

	// BatchTimeout is how long to wait before sending a batch of spans.
	BatchTimeout time.Duration

	// ExportTimeout is the timeout for exporting a batch.
	ExportTimeout time.Duration
}

// DefaultConfig returns sensible defaults for a local collector.
func DefaultConfig(version string) Config {
	return Config{
		Endpoint:       "localhost:4317",
		ServiceName:    "protoview",
		ServiceVersion: version,
		InsecureTLS:    true,
		BatchTimeout:   5 * time.Second,
		ExportTimeout:  30 * time.Second,
	}
}

// Exporter manages the OTLP gRPC exporter lifecycle.
type Exporter struct {
	mu sync.Mutex

	cfg         Config
	provider    *sdktrace.TracerProvider
	tracer      trace.Tracer
	shutdown    func(context.Context) error
	initialized bool
}

// New creates an uninitialized exporter.
func New(cfg Config) *Exporter {
	return &Exporter{cfg: cfg}
}

// Init connects the exporter and installs the global tracer provider. The
// returned shutdown function flushes and closes the exporter.
func (e *Exporter) Init(ctx context.Context) (func(context.Context) error, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return e.shutdown, nil
	}

	dialOpts := []grpc.DialOption{}
	if e.cfg.InsecureTLS {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(e.cfg.Endpoint),
		otlptracegrpc.WithDialOption(dialOpts...),
		otlptracegrpc.WithTimeout(e.cfg.ExportTimeout),
	}
	if e.cfg.InsecureTLS {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(e.cfg.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(e.cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(e.cfg.ServiceName),
			semconv.ServiceVersion(e.cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	e.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(e.cfg.BatchTimeout),
			sdktrace.WithExportTimeout(e.cfg.ExportTimeout),
		),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(e.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	e.tracer = e.provider.Tracer(e.cfg.ServiceName)

	e.shutdown = func(ctx context.Context) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.initialized {
			return nil
		}
		e.initialized = false
		return e.provider.Shutdown(ctx)
	}
	e.initialized = true
	return e.shutdown, nil
}

// Tracer returns the exporter's tracer, or nil before Init.
func (e *Exporter) Tracer() trace.Tracer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracer
}

// Init connects a one-shot exporter and returns its shutdown function.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	return New(cfg).Init(ctx)
}

// StartAnalyzeSpan starts a span around one analyze run.
func StartAnalyzeSpan(ctx context.Context, inputPath string) (context.Context, trace.Span) {
	return otel.Tracer("protoview").Start(ctx, "analyze",
		trace.WithAttributes(attribute.String("capture.file", inputPath)))
}

// EndAnalyzeSpan records the run outcome and ends the span.
func EndAnalyzeSpan(span trace.Span, traceID string, events int64, err error) {
	span.SetAttributes(
		attribute.String("trace.id", traceID),
		attribute.Int64("trace.events", events),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(1, err.Error())
	}
	span.End()
}
