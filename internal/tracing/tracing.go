package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Bucknalla/go-vessel-simulator/vessel"
)

const tracerName = "github.com/Bucknalla/go-vessel-simulator/internal/tracing"

// Logger is the subset of a leveled logger tracing setup reports to
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Config governs how tracing is initialised.
type Config struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64
}

// ConfigFromEnv pulls tracing configuration from environment variables,
// using defaults when unset.
func ConfigFromEnv() Config {
	enabled := strings.EqualFold(os.Getenv("VESSEL_TRACING_ENABLED"), "true")
	exporter := strings.ToLower(os.Getenv("VESSEL_TRACING_EXPORTER"))
	if exporter == "" {
		exporter = "stdout"
	}
	service := os.Getenv("VESSEL_TRACING_SERVICE_NAME")
	if service == "" {
		service = "vessel-simulator"
	}

	ratio := 1.0
	if rawRatio := os.Getenv("VESSEL_TRACING_SAMPLE_RATIO"); rawRatio != "" {
		if parsed, err := strconv.ParseFloat(rawRatio, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	return Config{
		Enabled:     enabled,
		ServiceName: service,
		Exporter:    exporter,
		Endpoint:    os.Getenv("VESSEL_OTLP_ENDPOINT"),
		SampleRatio: ratio,
	}
}

// Init wires a tracer provider, exporter, propagators and sampler from cfg.
// It returns a shutdown function that flushes pending spans.
func Init(ctx context.Context, cfg Config, log Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		if log != nil {
			log.Infof("tracing disabled; using noop tracer provider")
		}
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "vessel"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	if log != nil {
		log.Infof("tracing enabled exporter=%s service_name=%s sampler=parentbased_traceidratio_%0.2f",
			cfg.Exporter, cfg.ServiceName, cfg.SampleRatio)
	}

	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes shutdown with a bounded timeout, logging
// rather than returning any error.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log Logger) {
	if shutdown == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil && log != nil {
		log.Warnf("tracing shutdown failed: %v", err)
	}
}

// RunSpans records one span per simulation run. The span opens on
// RunStarted with the leg parameters and closes on RunFinished with the tick
// count and outcome.
type RunSpans struct {
	tracer trace.Tracer

	mu    sync.Mutex
	span  trace.Span
	ticks int
}

var _ vessel.Recorder = (*RunSpans)(nil)

// NewRunSpans uses the tracer from provider, or the global provider when nil.
func NewRunSpans(provider trace.TracerProvider) *RunSpans {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &RunSpans{tracer: provider.Tracer(tracerName)}
}

// RunStarted implements vessel.Recorder
func (r *RunSpans) RunStarted(plan vessel.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.span != nil {
		r.span.End()
	}
	_, r.span = r.tracer.Start(context.Background(), "vessel.run",
		trace.WithAttributes(
			attribute.String("vessel.start", plan.Start.String()),
			attribute.String("vessel.end", plan.End.String()),
			attribute.Float64("vessel.speed_kmh", plan.SpeedKmH),
			attribute.Float64("vessel.refresh_rate_hz", plan.RefreshRateHz),
			attribute.Float64("vessel.distance_km", plan.DistanceKm),
			attribute.Float64("vessel.total_steps", plan.TotalSteps),
		))
	r.ticks = 0
}

// TickEmitted implements vessel.Recorder
func (r *RunSpans) TickEmitted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
}

// RunFinished implements vessel.Recorder
func (r *RunSpans) RunFinished(phase vessel.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.span == nil {
		return
	}
	r.span.SetAttributes(
		attribute.Int("vessel.ticks", r.ticks),
		attribute.String("vessel.outcome", phase.String()),
	)
	r.span.End()
	r.span = nil
}
