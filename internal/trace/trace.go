package trace

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "calcagent"

// Config holds tracing configuration. Tracing stays disabled (the global
// no-op provider) while Endpoint is empty.
type Config struct {
	Endpoint    string `toml:"endpoint" envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	URLPath     string `toml:"url_path" ignored:"true"`
	APIKey      string `toml:"api_key" ignored:"true"`
	Insecure    bool   `toml:"insecure" ignored:"true"`
	ServiceName string `toml:"service_name" ignored:"true"`
}

// otelErrorHandler logs OTel internal errors via slog.
type otelErrorHandler struct{}

func (otelErrorHandler) Handle(err error) {
	slog.Error("otel error", "error", err)
}

func noop(context.Context) error { return nil }

// Init installs the global tracer provider and returns its shutdown func.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		slog.Debug("tracing disabled")
		return noop, nil
	}

	otel.SetErrorHandler(otelErrorHandler{})

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithHTTPClient(&http.Client{
			Transport: &loggingTransport{inner: http.DefaultTransport},
		}),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(cfg.URLPath))
	}
	if cfg.APIKey != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}))
	}

	slog.Debug("otlp exporter config", "endpoint", cfg.Endpoint, "url_path", cfg.URLPath, "has_api_key", cfg.APIKey != "")

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = instrumentationName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("tracing enabled", "endpoint", cfg.Endpoint, "service", serviceName)
	return tp.Shutdown, nil
}

// loggingTransport wraps an http.RoundTripper and logs failed exports.
type loggingTransport struct {
	inner http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		slog.Error("otlp http error", "url", req.URL.String(), "error", err)
		return resp, err
	}
	if resp.StatusCode >= 400 {
		slog.Warn("otlp export rejected", "status", resp.StatusCode, "url", req.URL.String())
	}
	return resp, nil
}

// Tracer returns the calcagent tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
