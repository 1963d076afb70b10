package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"stockperf/internal/config"
)

// process holds the logger installed by InitializeLogger and the log file it owns
var process struct {
	mu     sync.Mutex
	logger *slog.Logger
	file   *os.File
}

// InitializeLogger builds the session logger, installs it as the slog default
// and keeps its log file open until CloseLogFile. Console output goes to console.
func InitializeLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	process.mu.Lock()
	defer process.mu.Unlock()

	if process.logger != nil {
		return process.logger, nil
	}

	logger, file, err := NewLogger(cfg, console)
	if err != nil {
		return nil, err
	}
	process.logger, process.file = logger, file
	slog.SetDefault(logger)
	return logger, nil
}

// NewLogger builds a logger without installing it. The caller owns the returned
// file, which is nil for console-only output. A nil console means stdout.
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, *os.File, error) {
	if console == nil {
		console = os.Stdout
	}
	var (
		sink io.Writer
		file *os.File
		err  error
	)
	mode := strings.ToLower(cfg.Output)
	if mode == "file" || mode == "both" {
		if file, err = openLogFile(cfg.FilePath); err != nil {
			return nil, nil, err
		}
	}
	switch mode {
	case "file":
		sink = file
	case "both":
		sink = io.MultiWriter(console, file)
	default:
		sink = console
	}

	level := parseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	var h slog.Handler = slog.NewJSONHandler(sink, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(sink, opts)
	}
	return slog.New(runHandler{h}), file, nil
}

// runHandler stamps every record with the run id and active span carried by its context
type runHandler struct {
	slog.Handler
}

func (h runHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetRunID(ctx); id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return runHandler{h.Handler.WithAttrs(attrs)}
}

func (h runHandler) WithGroup(name string) slog.Handler {
	return runHandler{h.Handler.WithGroup(name)}
}

// parseLogLevel accepts slog level names plus "warning"; anything else is info
func parseLogLevel(name string) slog.Level {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// CloseLogFile closes the file opened by InitializeLogger, if any
func CloseLogFile() error {
	process.mu.Lock()
	defer process.mu.Unlock()

	if process.file == nil {
		return nil
	}
	err := process.file.Close()
	process.file = nil
	return err
}

// ResetLoggerForTesting forgets the installed logger. Tests only.
func ResetLoggerForTesting() {
	_ = CloseLogFile()

	process.mu.Lock()
	process.logger = nil
	process.mu.Unlock()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
