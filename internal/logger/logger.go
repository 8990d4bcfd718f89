package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level   string
	Format  string
	Service string
	Env     string
	Output  string
}

type ctxKey int

const ctxKeyLogger ctxKey = iota

var (
	levelVar      slog.LevelVar
	defaultLogger *slog.Logger
)

func Default() *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger
	}
	return slog.Default()
}

// Init builds the process-wide slog logger and installs it as the slog
// default. Service and env are attached to every record so logs from the
// three deployables can be told apart in one stream.
func Init(cfg Config) *slog.Logger {
	SetLevel(cfg.Level)

	w := resolveWriter(cfg.Output)
	opts := &slog.HandlerOptions{Level: &levelVar}

	var h slog.Handler
	if strings.ToLower(strings.TrimSpace(cfg.Format)) == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	service := strings.TrimSpace(cfg.Service)
	if service == "" {
		service = serviceNameFromArgv()
	}

	base := slog.New(h).With("service", service)
	if env := strings.TrimSpace(cfg.Env); env != "" {
		base = base.With("env", env)
	}

	defaultLogger = base
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info", "":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyLogger, l)
}

func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return Default()
	}
	if v := ctx.Value(ctxKeyLogger); v != nil {
		if lg, ok := v.(*slog.Logger); ok && lg != nil {
			return lg
		}
	}
	return Default()
}

func resolveWriter(output string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	}
}

func serviceNameFromArgv() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "app"
	}
	path := os.Args[0]
	if i := strings.LastIndexByte(path, '/'); i >= 0 && i+1 < len(path) {
		return path[i+1:]
	}
	return path
}
