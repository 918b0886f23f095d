package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init replaces the global logger. Local runs get colored console output at debug level;
// everything else writes JSON lines at info level.
func Init(local bool) {
	var (
		out   io.Writer = os.Stdout
		level           = zerolog.InfoLevel
	)
	if local {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// With returns ctx carrying a logger derived from the one already in ctx, plus one field.
func With(ctx context.Context, key, value string) context.Context {
	return log.Ctx(ctx).With().Str(key, value).Logger().WithContext(ctx)
}

// WithSubject tags the context logger with the subject being worked on.
func WithSubject(ctx context.Context, category, id string) context.Context {
	return log.Ctx(ctx).With().
		Str("category", category).
		Str("subject_id", id).
		Logger().WithContext(ctx)
}

// WithTrace tags the context logger with the ids of the span in ctx. Contexts without a
// valid span are returned unchanged.
func WithTrace(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return log.Ctx(ctx).With().
		Stringer("trace_id", sc.TraceID()).
		Stringer("span_id", sc.SpanID()).
		Logger().WithContext(ctx)
}
