package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
)

var tracer trace.Tracer

// Options describe the traced process. Host and transform become resource
// attributes, so every span of a run carries the machine it was measured on.
type Options struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Host           domain.HostInfo
	Transform      string
}

// Init initializes OpenTelemetry tracing
func Init(opts Options) (func(context.Context) error, error) {
	if opts.Endpoint == "" {
		logger.Debug("OpenTelemetry tracing disabled (no OTLP endpoint)")
		return func(ctx context.Context) error { return nil }, nil
	}

	ctx := context.Background()

	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create OTLP exporter
	conn, err := grpc.NewClient(opts.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// Create trace provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = tp.Tracer(opts.ServiceName)

	logger.Info("OpenTelemetry tracing initialized", "endpoint", opts.Endpoint)

	// Return shutdown function
	return tp.Shutdown, nil
}

func newResource(ctx context.Context, opts Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(opts.ServiceVersion))
	}
	if opts.Host.Hostname != "" {
		attrs = append(attrs, semconv.HostNameKey.String(opts.Host.Hostname))
	}
	if opts.Host.LogicalCPUs > 0 {
		attrs = append(attrs,
			attribute.Int("bench.host.logical_cpus", opts.Host.LogicalCPUs),
			attribute.Int("bench.host.physical_cpus", opts.Host.PhysicalCPUs),
			attribute.String("bench.host.cpu_model", opts.Host.CPUModel))
	}
	if opts.Transform != "" {
		attrs = append(attrs, attribute.String("bench.transform", opts.Transform))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// Get returns the global tracer
func Get() trace.Tracer {
	if tracer == nil {
		return otel.Tracer("noop")
	}
	return tracer
}

// StartSpan starts a new span with the given name and attributes
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Get().Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on the span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
