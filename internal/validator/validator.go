// SPDX-License-Identifier: AGPL-3.0-only

// Package validator checks generated feeds after a run. A feed without a
// single item usually means the pipeline silently stopped producing
// entries, so zero-item files fail validation.
package validator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/mmcdole/gofeed"
)

// FileReport is the result for one feed file.
type FileReport struct {
	Path     string
	FeedType string
	Items    int
	Err      error
}

type NoFeedsError struct {
	Dir string
}

func (e *NoFeedsError) Error() string {
	return fmt.Sprintf("no feed files found in %s", e.Dir)
}

type EmptyFeedError struct {
	Path string
}

func (e *EmptyFeedError) Error() string {
	return fmt.Sprintf("no entries found in %s", e.Path)
}

// ValidateDir parses every *.xml file in dir and counts RSS items and Atom
// entries. It reports on all files before returning the joined failures.
func ValidateDir(dir string, logger *slog.Logger) ([]FileReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &NoFeedsError{Dir: dir}
	}
	sort.Strings(paths)

	var (
		reports []FileReport
		errs    []error
	)
	for _, p := range paths {
		r := ValidateFile(p)
		reports = append(reports, r)
		if r.Err != nil {
			logger.Error("Feed failed validation", "path", p, "error", r.Err)
			errs = append(errs, r.Err)
			continue
		}
		logger.Info("Feed validated", "path", p, "type", r.FeedType, "items", r.Items)
	}

	return reports, errors.Join(errs...)
}

func ValidateFile(path string) FileReport {
	report := FileReport{Path: path}

	f, err := os.Open(path)
	if err != nil {
		report.Err = err
		return report
	}
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		report.Err = fmt.Errorf("parsing %s: %w", path, err)
		return report
	}

	report.FeedType = parsed.FeedType
	report.Items = len(parsed.Items)
	if report.Items == 0 {
		report.Err = &EmptyFeedError{Path: path}
	}

	return report
}
