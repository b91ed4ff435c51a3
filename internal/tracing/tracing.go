// Package tracing настраивает OpenTelemetry для процесса.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Экспортёры спанов.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config описывает настройки трассировки.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Exporter: none, stdout или otlp.
	Exporter string
	// Endpoint — адрес OTLP/HTTP коллектора (host:port).
	Endpoint string
	Insecure bool
	// Writer для stdout-экспортёра. По умолчанию os.Stdout.
	Writer io.Writer
}

// Provider хранит настроенный TracerProvider.
type Provider struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// Tracer возвращает именованный tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.provider == nil {
		return nooptrace.NewTracerProvider().Tracer(name)
	}
	return p.provider.Tracer(name)
}

// TracerProvider возвращает провайдер для middleware.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p == nil || p.provider == nil {
		return nooptrace.NewTracerProvider()
	}
	return p.provider
}

// Shutdown сбрасывает накопленные спаны.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// Init создаёт TracerProvider и регистрирует его глобально.
// Для ExporterNone возвращается noop-провайдер без глобальной регистрации.
func Init(ctx context.Context, cfg Config, logger *log.Entry) (*Provider, error) {
	if logger == nil {
		logger = log.WithField("component", "tracing")
	}

	exporterName := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if exporterName == "" || exporterName == ExporterNone {
		logger.Debug("tracing disabled")
		return &Provider{provider: nooptrace.NewTracerProvider()}, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", valueOrDefault(cfg.Environment, "local")),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build tracing resource: %w", err)
	}

	exporter, err := newSpanExporter(ctx, exporterName, cfg, logger)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.WithField("exporter", exporterName).Info("tracing initialized")

	return &Provider{
		provider: tp,
		shutdown: func(ctx context.Context) error {
			return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
		},
	}, nil
}

func newSpanExporter(ctx context.Context, name string, cfg Config, logger *log.Entry) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout:
		return newStdoutExporter(cfg)
	case ExporterOTLP:
		var opts []otlptracehttp.Option
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err == nil {
			return exporter, nil
		}
		logger.WithError(err).Warn("failed to initialize OTLP trace exporter, falling back to stdout")
		return newStdoutExporter(cfg)
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", name)
	}
}

func newStdoutExporter(cfg Config) (sdktrace.SpanExporter, error) {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}
	return stdouttrace.New(stdouttrace.WithWriter(writer))
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
