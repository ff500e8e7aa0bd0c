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

// Logger is the process-wide logger. It writes JSON to stderr until Init runs.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Hook(traceHook{})

// traceHook copies the span of the event context onto the entry
type traceHook struct{}

func (traceHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	e.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
}

// Init configures the global logger for a service
func Init(serviceName string, isDevelopment bool) {
	InitWithWriter(serviceName, isDevelopment, os.Stdout)
}

// InitWithWriter is Init with an explicit destination.
// Development mode switches to the human readable console format with callers.
func InitWithWriter(serviceName string, isDevelopment bool, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	ctx := zerolog.New(out).With()
	if isDevelopment {
		ctx = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).With().Caller()
	}

	Logger = ctx.Timestamp().Str("service", serviceName).Logger().Hook(traceHook{})
	log.Logger = Logger
}

func Info(ctx context.Context) *zerolog.Event {
	return Logger.Info().Ctx(ctx)
}

func Error(ctx context.Context) *zerolog.Event {
	return Logger.Error().Ctx(ctx)
}

func Debug(ctx context.Context) *zerolog.Event {
	return Logger.Debug().Ctx(ctx)
}

func Warn(ctx context.Context) *zerolog.Event {
	return Logger.Warn().Ctx(ctx)
}

// SetLevel sets the global level; unknown names fall back to info
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
