// SPDX-License-Identifier: AGPL-3.0-only
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fluffyriot/tweetrss/internal/api"
	"github.com/fluffyriot/tweetrss/internal/config"
	"github.com/fluffyriot/tweetrss/internal/fetcher"
	"github.com/fluffyriot/tweetrss/internal/fetcher/browser"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/fetcher/sources"
	"github.com/fluffyriot/tweetrss/internal/logging"
	"github.com/fluffyriot/tweetrss/internal/notify"
	"github.com/fluffyriot/tweetrss/internal/validator"
	"github.com/fluffyriot/tweetrss/internal/worker"
)

type Options struct {
	EnvFile  string
	LogLevel string
}

// App holds what every command needs once configuration is loaded.
type App struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

func Bootstrap(opts Options) (*App, error) {
	if err := config.LoadEnv(opts.EnvFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger := logging.Init(os.Stderr, level)

	return &App{Config: cfg, Logger: logger}, nil
}

func (a *App) loadAccounts(only []string) ([]common.Account, error) {
	accounts, err := config.LoadAccounts(a.Config.AccountsFile)
	if err != nil {
		return nil, err
	}
	accounts, err = config.FilterAccounts(accounts, only)
	if err != nil {
		return nil, err
	}

	a.Logger.Info("Config loaded",
		"accounts_file", a.Config.AccountsFile,
		"accounts", len(accounts),
		"output_dir", a.Config.OutputDir,
		"on_post_error", a.Config.OnPostError,
	)
	return accounts, nil
}

// NewWorker wires the browser-backed pipeline for the selected accounts.
func (a *App) NewWorker(only []string) (*worker.Worker, error) {
	accounts, err := a.loadAccounts(only)
	if err != nil {
		return nil, err
	}

	cookies, err := browser.LoadSession(a.Config.CookiesFile, a.Config.AuthToken, a.Config.CSRFToken)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("Session established", "cookies", len(cookies))

	launcher := &browser.ChromeLauncher{ExecPath: a.Config.ChromePath}
	pipeline := &fetcher.Pipeline{
		Searcher: &sources.SearchClient{
			Launcher: launcher,
			Cookies:  cookies,
			Timeout:  a.Config.MarkerTimeout,
			Logger:   a.Logger,
		},
		Details: &sources.DetailFetcher{
			Launcher: launcher,
			Cookies:  cookies,
			Timeout:  a.Config.MarkerTimeout,
			Logger:   a.Logger,
		},
		Policy: a.Config.OnPostError,
		Logger: a.Logger,
	}

	w := worker.NewWorker(pipeline, accounts, a.Config.OutputDir, a.Config.PublicBaseURL, a.Config.MaxRetries, a.Logger)

	if a.Config.DiscordWebhookURL != "" {
		rep, err := notify.NewDiscordReporter(a.Config.DiscordWebhookURL)
		if err != nil {
			a.Logger.Warn("Run reports disabled", "error", err)
		} else {
			w.Reporter = rep
		}
	}

	return w, nil
}

func HandleRun(ctx context.Context, a *App, only []string, since string, validate bool) error {
	var opts worker.RunOptions
	if since != "" {
		t, err := time.Parse(time.DateOnly, since)
		if err != nil {
			return fmt.Errorf("--since must be YYYY-MM-DD: %w", err)
		}
		opts.Since = t
	}

	w, err := a.NewWorker(only)
	if err != nil {
		a.Logger.Error("Run aborted before fetching", "error", err)
		return err
	}

	if _, err := w.SyncAll(ctx, opts); err != nil {
		return err
	}

	if validate {
		return HandleValidate(a, a.Config.OutputDir)
	}
	return nil
}

func HandleValidate(a *App, dir string) error {
	if dir == "" {
		dir = a.Config.OutputDir
	}
	reports, err := validator.ValidateDir(dir, a.Logger)
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Printf("%s contains %d %s entries.\n", r.Path, r.Items, r.FeedType)
	}
	return nil
}

// HandleSession writes the configured session to a cookies file.
func HandleSession(a *App, out string) error {
	cookies, err := browser.LoadSession(a.Config.CookiesFile, a.Config.AuthToken, a.Config.CSRFToken)
	if err != nil {
		return err
	}
	if err := browser.SaveCookies(out, cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	a.Logger.Info("Session saved", "path", out, "cookies", len(cookies))
	return nil
}

// HandleServe serves the output directory. With a non-zero interval the
// job also runs on that schedule.
func HandleServe(ctx context.Context, a *App, addr string, interval time.Duration) error {
	var w *worker.Worker
	if interval > 0 {
		var err error
		w, err = a.NewWorker(nil)
		if err != nil {
			return err
		}
		w.Start(ctx, interval)
		defer func() {
			if w.IsActive() {
				w.Stop()
			}
		}()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(ctx, a.Config, w, a.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Preview server listening", "addr", addr, "dir", a.Config.OutputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
