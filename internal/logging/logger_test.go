// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitOnlyOnce(t *testing.T) {
	var first, second bytes.Buffer

	l1 := Init(&first, "info")
	l2 := Init(&second, "debug")
	if l1 != l2 {
		t.Fatal("Init returned different loggers")
	}

	Get().Info("feed written", "key", "wr_news")
	if !strings.Contains(first.String(), "feed written") {
		t.Errorf("first writer missing log line: %q", first.String())
	}
	if second.Len() != 0 {
		t.Errorf("second writer should be unused, got %q", second.String())
	}
}

func TestIsTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		name string
		w    io.Writer
		want bool
	}{
		{"buffer", &bytes.Buffer{}, false},
		{"regular file", f, false},
	}
	for _, tt := range tests {
		if got := isTerminal(tt.w); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
