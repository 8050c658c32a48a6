package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level       string // debug, info, warn, error
	Environment string // dev, test, prod
}

// Init configures the global zerolog logger.
// Development gets a console writer, everything else JSON on stdout.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	switch cfg.Environment {
	case "dev", "development", "local":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	case "test":
		out = io.Discard
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

type contextKey string

const ContextKey contextKey = "logger"

// FromContext returns the request logger stored in ctx or the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ContextKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return &log.Logger
}

func WithContext(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ContextKey, l)
}

// LogError logs err with key/value pairs.
func LogError(ctx context.Context, err error, msg string, fields ...any) {
	withFields(FromContext(ctx).Error().Err(err), fields).Msg(msg)
}

func LogWarn(ctx context.Context, msg string, fields ...any) {
	withFields(FromContext(ctx).Warn(), fields).Msg(msg)
}

func LogInfo(ctx context.Context, msg string, fields ...any) {
	withFields(FromContext(ctx).Info(), fields).Msg(msg)
}

func LogDebug(ctx context.Context, msg string, fields ...any) {
	withFields(FromContext(ctx).Debug(), fields).Msg(msg)
}

func withFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, fields[i+1])
	}
	return e
}
