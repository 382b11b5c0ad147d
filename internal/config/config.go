// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

type PostErrorPolicy string

const (
	PostErrorAbort PostErrorPolicy = "abort"
	PostErrorSkip  PostErrorPolicy = "skip"
)

type AppConfig struct {
	AccountsFile      string
	OutputDir         string
	PublicBaseURL     string
	OnPostError       PostErrorPolicy
	MaxRetries        int
	MarkerTimeout     time.Duration
	LogLevel          string
	AuthToken         string
	CSRFToken         string
	CookiesFile       string
	ChromePath        string
	DiscordWebhookURL string
	APIToken          string
}

// LoadEnv reads an optional dotenv file into the process environment.
// A missing file is not an error; existing variables are not overridden.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := gotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		AccountsFile:      envOr("TWEETRSS_ACCOUNTS", "twitter.toml"),
		OutputDir:         envOr("TWEETRSS_OUTPUT_DIR", "public"),
		PublicBaseURL:     os.Getenv("TWEETRSS_PUBLIC_BASE_URL"),
		OnPostError:       PostErrorPolicy(strings.ToLower(envOr("TWEETRSS_ON_POST_ERROR", string(PostErrorAbort)))),
		MaxRetries:        3,
		MarkerTimeout:     30 * time.Second,
		LogLevel:          envOr("TWEETRSS_LOG_LEVEL", "info"),
		AuthToken:         os.Getenv("TWITTER_AUTH_TOKEN"),
		CSRFToken:         os.Getenv("TWITTER_CT0"),
		CookiesFile:       os.Getenv("TWEETRSS_COOKIES_FILE"),
		ChromePath:        os.Getenv("TWEETRSS_CHROME_PATH"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		APIToken:          os.Getenv("TWEETRSS_API_TOKEN"),
	}

	if v := os.Getenv("TWEETRSS_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid TWEETRSS_MAX_RETRIES %q", v)
		}
		cfg.MaxRetries = n
	}

	if v := os.Getenv("TWEETRSS_MARKER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid TWEETRSS_MARKER_TIMEOUT %q", v)
		}
		cfg.MarkerTimeout = d
	}

	switch cfg.OnPostError {
	case PostErrorAbort, PostErrorSkip:
	default:
		return nil, fmt.Errorf("invalid TWEETRSS_ON_POST_ERROR %q: want abort or skip", cfg.OnPostError)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
