package sysconf

import (
	"context"
	"log/slog"
	"time"
)

// LogEvent describes one controller or evaluator step for logging.
type LogEvent struct {
	Op       string
	Option   OptionID
	Key      string
	Value    Value
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
	Level    slog.Level
}

// Logger records controller events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// NewSlogLogger adapts a *slog.Logger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Log(event LogEvent) {
	attrs := []slog.Attr{slog.String("op", event.Op)}
	if event.Option != "" {
		attrs = append(attrs, slog.String("option", string(event.Option)))
	}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}
	if event.Value.IsValid() {
		attrs = append(attrs, slog.String("value", event.Value.String()))
	}
	if event.Engine != "" {
		attrs = append(attrs, slog.String("engine", event.Engine), slog.String("expr", event.Expr), slog.Duration("duration", event.Duration))
	}
	level := event.Level
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
		if level < slog.LevelWarn {
			level = slog.LevelWarn
		}
	}
	l.logger.LogAttrs(context.Background(), level, "sysconf", attrs...)
}
