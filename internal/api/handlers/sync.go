// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"
	"time"

	"github.com/fluffyriot/tweetrss/internal/worker"
	"github.com/gin-gonic/gin"
)

type TriggerSyncRequest struct {
	Since string `json:"since"`
}

func (h *Handler) TriggerSyncHandler(c *gin.Context) {
	if h.Worker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "Runs are not enabled on this server"})
		return
	}

	// The query parameter wins over a JSON body.
	req := TriggerSyncRequest{Since: c.Query("since")}
	if req.Since == "" && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request: " + err.Error()})
			return
		}
	}

	var opts worker.RunOptions
	if req.Since != "" {
		since, err := time.Parse(time.DateOnly, req.Since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "since must be YYYY-MM-DD"})
			return
		}
		opts.Since = since
	}

	if h.Worker.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "A run is already in progress"})
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.Logger.Error("Panic in manual run trigger", "panic", r)
			}
		}()
		if _, err := h.Worker.SyncAll(h.RunCtx, opts); err != nil {
			h.Logger.Error("Manual run failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "ok",
		"message": "Run triggered successfully",
	})
}
