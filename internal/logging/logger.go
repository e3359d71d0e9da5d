package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Options selects the log format and threshold for the process.
type Options struct {
	// Console switches to the human readable writer with caller info.
	Console bool
	// Level is a zerolog level name; empty means info.
	Level string
	// Service is stamped on every line.
	Service string
}

var (
	mu     sync.RWMutex
	opts   = Options{Level: "info"}
	logger = build(os.Stdout, opts, zerolog.InfoLevel)
)

// Init configures the package logger. An unknown level leaves the logger at
// info and is reported back.
func Init(o Options) error {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := parseLevel(o.Level)
	var out io.Writer = os.Stdout
	if o.Console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	opts = o
	logger = build(out, o, lvl)
	mu.Unlock()
	return err
}

// SetOutput redirects the package logger as JSON, keeping the configured
// level and service. Tests use it to assert on log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	lvl, _ := parseLevel(opts.Level)
	o := opts
	o.Console = false
	logger = build(w, o, lvl)
}

func parseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

func build(w io.Writer, o Options, lvl zerolog.Level) zerolog.Logger {
	c := zerolog.New(w).Level(lvl).Hook(spanHook{}).With().Timestamp()
	if o.Service != "" {
		c = c.Str("service", o.Service)
	}
	if o.Console {
		c = c.Caller()
	}
	return c.Logger()
}

// spanHook stamps the active span of the event's context onto the line.
type spanHook struct{}

func (spanHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	e.Str("traceId", sc.TraceID().String()).Str("spanId", sc.SpanID().String())
}

func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Info(ctx context.Context) *zerolog.Event {
	return Logger().Info().Ctx(ctx)
}

func Error(ctx context.Context) *zerolog.Event {
	return Logger().Error().Ctx(ctx)
}

func Debug(ctx context.Context) *zerolog.Event {
	return Logger().Debug().Ctx(ctx)
}

func Warn(ctx context.Context) *zerolog.Event {
	return Logger().Warn().Ctx(ctx)
}
