package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogLevel определяет уровень логирования из переменной окружения.
// Возможные значения: DEBUG, INFO, WARN, ERROR
// По умолчанию: INFO
func LogLevel() slog.Level {
	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер.
//
// Логи пишутся в stderr: stdout занят прогрессом обработки строк.
//
// Формат вывода определяется переменной LOG_FORMAT:
//   - "json" (по умолчанию) — JSON формат для production
//   - "text" — человекочитаемый формат для разработки
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stderr, os.Getenv("LOG_FORMAT"), LogLevel())
	slog.SetDefault(logger)

	return logger
}

// NewLogger создаёт логгер с заданным выводом, форматом и уровнем.
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// DiscardLogger возвращает логгер, который ничего не пишет. Нужен в тестах.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Ключи контекста для передачи данных в логгер.
type ctxKey string

const (
	// CtxLogger — ключ для логгера в контексте.
	CtxLogger ctxKey = "logger"
)

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithBatchID возвращает логгер с добавленным batch_id.
func WithBatchID(logger *slog.Logger, batchID string) *slog.Logger {
	return logger.With("batch_id", batchID)
}

// WithRow возвращает логгер с добавленным номером строки.
func WithRow(logger *slog.Logger, row int) *slog.Logger {
	return logger.With("row", row)
}

// WithStep возвращает логгер с добавленным именем шага.
func WithStep(logger *slog.Logger, step string) *slog.Logger {
	return logger.With("step", step)
}
