package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName — имя сервиса в трассировках.
const ServiceName = "rowpipe"

// Tracer возвращает трассировщик Rowpipe из глобального провайдера.
// Пока InitTracer не вызван, спаны не записываются.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// InitTracer включает трассировку OpenTelemetry с выгрузкой спанов в файл.
//
// Пустой path оставляет no-op провайдер. Возвращаемая функция
// сбрасывает буфер спанов и закрывает файл.
func InitTracer(path string, logger *slog.Logger) (func(context.Context) error, error) {
	if path == "" {
		return func(context.Context) error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(ServiceName),
		),
	)
	if err != nil {
		f.Close()
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", slog.String("file", path))

	return func(ctx context.Context) error {
		shutdownErr := tp.Shutdown(ctx)
		if err := f.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
		return shutdownErr
	}, nil
}
