// Package logging configures the process-wide slog logger: a console
// handler plus rotating tfe-catalog.log and errors.log files.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tfecatalog/tfe-catalog/internal/config"
)

const (
	mainLogName  = "tfe-catalog.log"
	errorLogName = "errors.log"
)

var (
	closers   []io.Closer
	closersMu sync.Mutex
)

// Initialize builds a logger from cfg and installs it as slog's default.
func Initialize(cfg config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	slog.Info("Logging initialized",
		"level", cfg.Level,
		"dir", cfg.Dir,
		"console", cfg.Console.Enabled,
		"file", cfg.File.Enabled,
		"dedup", cfg.Dedup.Enabled,
	)
	return nil
}

// NewLogger builds a logger without touching the global default.
// Files opened here stay open until Shutdown.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var handlers []slog.Handler

	if cfg.Console.Enabled {
		handlers = append(handlers, newHandler(os.Stdout, cfg.Console.Format, ParseLevel(cfg.Console.Level)))
	}

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		mainFile := rotatingFile(filepath.Join(cfg.Dir, mainLogName), cfg.Rotation)
		handlers = append(handlers, newHandler(mainFile, cfg.File.Format, ParseLevel(cfg.File.Level)))

		// errors.log keeps warnings and above regardless of the file level.
		errs := rotatingFile(filepath.Join(cfg.Dir, errorLogName), cfg.Rotation)
		handlers = append(handlers, NewLevelFilter(newHandler(errs, cfg.File.Format, slog.LevelWarn), slog.LevelWarn))
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, nil)
	case 1:
		handler = handlers[0]
	default:
		handler = NewMultiHandler(handlers...)
	}

	if cfg.Dedup.Enabled {
		dedup := NewDedupHandler(handler, cfg.Dedup.Window)
		track(dedup)
		handler = dedup
	}

	return slog.New(handler), nil
}

// Shutdown flushes pending dedup summaries and closes every log file opened
// by NewLogger.
func Shutdown() error {
	closersMu.Lock()
	pending := closers
	closers = nil
	closersMu.Unlock()

	// Close in reverse so dedup handlers flush before their files close.
	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		if err := pending[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close log output: %w", err)
	}
	return nil
}

func rotatingFile(path string, r config.RotationConfig) *lumberjack.Logger {
	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSize,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAge,
		Compress:   r.Compress,
	}
	track(f)
	return f
}

func track(c io.Closer) {
	closersMu.Lock()
	defer closersMu.Unlock()
	closers = append(closers, c)
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
