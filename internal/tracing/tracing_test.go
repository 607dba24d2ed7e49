package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Bucknalla/go-vessel-simulator/vessel"
)

type captureLogger struct {
	infos []string
	warns []string
}

func (l *captureLogger) Infof(format string, args ...interface{}) {
	l.infos = append(l.infos, format)
}

func (l *captureLogger) Warnf(format string, args ...interface{}) {
	l.warns = append(l.warns, format)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("VESSEL_TRACING_ENABLED", "")
	t.Setenv("VESSEL_TRACING_EXPORTER", "")
	t.Setenv("VESSEL_TRACING_SERVICE_NAME", "")
	t.Setenv("VESSEL_TRACING_SAMPLE_RATIO", "")
	t.Setenv("VESSEL_OTLP_ENDPOINT", "")

	cfg := ConfigFromEnv()
	if cfg.Enabled {
		t.Error("Expected tracing disabled by default")
	}
	if cfg.Exporter != "stdout" {
		t.Errorf("Expected stdout exporter, got %s", cfg.Exporter)
	}
	if cfg.ServiceName != "vessel-simulator" {
		t.Errorf("Expected service name vessel-simulator, got %s", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1.0 {
		t.Errorf("Expected sample ratio 1.0, got %v", cfg.SampleRatio)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("VESSEL_TRACING_ENABLED", "TRUE")
	t.Setenv("VESSEL_TRACING_EXPORTER", "OTLP")
	t.Setenv("VESSEL_TRACING_SERVICE_NAME", "harbour-sim")
	t.Setenv("VESSEL_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("VESSEL_OTLP_ENDPOINT", "collector:4317")

	cfg := ConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.ServiceName != "harbour-sim" ||
		cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	t.Setenv("VESSEL_TRACING_SAMPLE_RATIO", "1.5")
	if got := ConfigFromEnv().SampleRatio; got != 1.0 {
		t.Errorf("Out of range ratio should fall back to 1.0, got %v", got)
	}
}

func TestInitDisabled(t *testing.T) {
	log := &captureLogger{}
	shutdown, err := Init(context.Background(), Config{Enabled: false}, log)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Noop shutdown returned %v", err)
	}
	if len(log.infos) != 1 {
		t.Errorf("Expected one info message, got %d", len(log.infos))
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true, Exporter: "zipkin", SampleRatio: 1}, nil)
	if err == nil {
		t.Fatal("Expected error for unsupported exporter")
	}
}

func TestShutdownWithTimeoutLogsFailure(t *testing.T) {
	log := &captureLogger{}
	ShutdownWithTimeout(context.Background(), func(context.Context) error {
		return errors.New("flush failed")
	}, log)
	if len(log.warns) != 1 {
		t.Errorf("Expected one warning, got %d", len(log.warns))
	}

	// nil shutdown is a no-op
	ShutdownWithTimeout(context.Background(), nil, log)
}

func TestRunSpansRecordsOneSpanPerRun(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	spans := NewRunSpans(provider)
	plan := vessel.NewPlan(vessel.DefaultConfig().Parameters())

	spans.RunStarted(plan)
	spans.TickEmitted()
	spans.TickEmitted()
	spans.RunFinished(vessel.PhaseCancelled)

	// A finish without a run is ignored
	spans.RunFinished(vessel.PhaseCompleted)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("Expected 1 ended span, got %d", len(ended))
	}
	span := ended[0]
	if span.Name() != "vessel.run" {
		t.Errorf("Expected span name vessel.run, got %s", span.Name())
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if got := attrs["vessel.ticks"].AsInt64(); got != 2 {
		t.Errorf("Expected vessel.ticks 2, got %d", got)
	}
	if got := attrs["vessel.outcome"].AsString(); got != "cancelled" {
		t.Errorf("Expected vessel.outcome cancelled, got %s", got)
	}
	if got := attrs["vessel.speed_kmh"].AsFloat64(); got != 20 {
		t.Errorf("Expected vessel.speed_kmh 20, got %v", got)
	}
	if got := attrs["vessel.start"].AsString(); got != "22.1696, 91.4996" {
		t.Errorf("Expected vessel.start 22.1696, 91.4996, got %s", got)
	}
}
