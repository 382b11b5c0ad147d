// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"context"
	"log/slog"

	"github.com/fluffyriot/tweetrss/internal/config"
	"github.com/fluffyriot/tweetrss/internal/worker"
)

type Handler struct {
	Config *config.AppConfig
	Worker *worker.Worker
	Logger *slog.Logger

	// RunCtx bounds runs triggered over HTTP; it ends with the server.
	RunCtx context.Context
}

func NewHandler(ctx context.Context, cfg *config.AppConfig, w *worker.Worker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handler{
		Config: cfg,
		Worker: w,
		Logger: logger,
		RunCtx: ctx,
	}
}
