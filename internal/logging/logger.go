// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var (
	initOnce sync.Once
	logger   *slog.Logger
)

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Init installs the process logger. Only the first call has an effect.
func Init(w io.Writer, level string) *slog.Logger {
	initOnce.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		handler := tint.NewHandler(w, &tint.Options{
			Level:      ParseLevel(level),
			TimeFormat: time.DateTime,
			NoColor:    !isTerminal(w),
		})
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
	return logger
}

// Get returns the process logger, falling back to slog's default before Init.
func Get() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
