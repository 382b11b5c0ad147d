// SPDX-License-Identifier: AGPL-3.0-only
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser owns a browser process; Close releases it.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one isolated tab with its own browser context.
type Page interface {
	SetCookies(ctx context.Context, cookies []*network.Cookie) error
	// OnResponse must be registered before Navigate.
	OnResponse(fn func(Response))
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	ResponseBody(ctx context.Context, requestID string) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

type VisitOptions struct {
	URL     string
	Marker  string
	Timeout time.Duration
	// Settle bounds the extra wait for a first matching response when the
	// marker shows up before any match has finished loading.
	Settle     time.Duration
	Match      func(url string) bool
	Cookies    []*network.Cookie
	BufferSize int
	Logger     *slog.Logger
}

// MarkerTimeoutError is returned when the content marker never became
// visible. HTML holds the page as rendered at that point, if it could be
// read.
type MarkerTimeoutError struct {
	URL    string
	Marker string
	HTML   string
	Err    error
}

func (e *MarkerTimeoutError) Error() string {
	return fmt.Sprintf("waiting for %q on %s: %v", e.Marker, e.URL, e.Err)
}

func (e *MarkerTimeoutError) Unwrap() error { return e.Err }

// InspectFunc receives the page while it is still open along with the
// matching responses in arrival order.
type InspectFunc func(ctx context.Context, page Page, captured []Response) error

// Visit launches a browser, opens a page, records matching responses,
// navigates and waits for the marker, then hands the recorded responses
// to inspect. The page and the browser are closed on every return path.
func Visit(ctx context.Context, l Launcher, opts VisitOptions, inspect InspectFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Match == nil {
		opts.Match = func(string) bool { return true }
	}

	b, err := l.Launch(ctx)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logger.Warn("Failed to close browser", "url", opts.URL, "error", cerr)
		}
	}()

	page, err := b.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("opening page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("Failed to close page", "url", opts.URL, "error", cerr)
		}
	}()

	if len(opts.Cookies) > 0 {
		if err := page.SetCookies(ctx, opts.Cookies); err != nil {
			return fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	buf := NewCaptureBuffer(opts.BufferSize)
	page.OnResponse(func(r Response) {
		if opts.Match(r.URL) {
			buf.Push(r)
		}
	})

	if err := page.Navigate(ctx, opts.URL); err != nil {
		return fmt.Errorf("navigating to %s: %w", opts.URL, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	err = page.WaitVisible(waitCtx, opts.Marker)
	cancel()
	if err != nil {
		mErr := &MarkerTimeoutError{URL: opts.URL, Marker: opts.Marker, Err: err}
		htmlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if html, herr := page.HTML(htmlCtx); herr == nil {
			mErr.HTML = html
		}
		cancel()
		return mErr
	}

	if buf.Len() == 0 && opts.Settle > 0 {
		waitForCapture(ctx, buf, opts.Settle)
	}

	if d := buf.Dropped(); d > 0 {
		logger.Debug("Capture buffer full, later responses dropped", "url", opts.URL, "dropped", d)
	}

	return inspect(ctx, page, buf.Snapshot())
}

func waitForCapture(ctx context.Context, buf *CaptureBuffer, settle time.Duration) {
	deadline := time.NewTimer(settle)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for buf.Len() == 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}
