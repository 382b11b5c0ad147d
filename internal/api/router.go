// SPDX-License-Identifier: AGPL-3.0-only

// Package api serves the generated feeds for preview and exposes a small
// control surface for the run loop.
package api

import (
	"context"
	"log/slog"

	"github.com/fluffyriot/tweetrss/internal/api/handlers"
	"github.com/fluffyriot/tweetrss/internal/config"
	"github.com/fluffyriot/tweetrss/internal/middleware"
	"github.com/fluffyriot/tweetrss/internal/worker"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the preview server. Runs triggered through it are
// cancelled when ctx ends.
func NewRouter(ctx context.Context, cfg *config.AppConfig, w *worker.Worker, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := handlers.NewHandler(ctx, cfg, w, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeadersMiddleware())

	r.GET("/health", h.HealthCheckHandler)
	r.GET("/feeds/:name", h.ServeFeedHandler)

	apiGroup := r.Group("/api")
	apiGroup.GET("/feeds", h.ListFeedsHandler)
	apiGroup.POST("/sync", middleware.TokenMiddleware(cfg.APIToken), h.TriggerSyncHandler)

	return r
}
