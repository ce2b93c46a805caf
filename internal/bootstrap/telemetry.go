package bootstrap

import (
	"browser-agent/internal/config"
	"context"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// newTraceProvider exports spans as pretty-printed JSON into the configured
// trace file. Stdout belongs to the REPL, so spans never go there.
func newTraceProvider(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) *sdktrace.TracerProvider {
	if err := os.MkdirAll(filepath.Dir(config.AppConfig.TraceFile), 0o755); err != nil {
		logger.Fatal("Failed to create trace directory", zap.Error(err))
	}

	traceFile, err := os.OpenFile(config.AppConfig.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Fatal("Failed to open trace file", zap.Error(err))
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithWriter(traceFile),
	)
	if err != nil {
		logger.Fatal("Failed to create trace exporter", zap.Error(err))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("browser-agent"),
		),
	)
	if err != nil {
		logger.Fatal("Failed to create resource", zap.Error(err))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := tp.Shutdown(ctx); err != nil {
				return err
			}

			return traceFile.Close()
		},
	})

	return tp
}
