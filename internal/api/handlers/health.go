// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	info, err := os.Stat(h.Config.OutputDir)
	if err != nil || !info.IsDir() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "failure", "details": "output directory not available"})
		return
	}

	resp := gin.H{"status": "ok"}
	if h.Worker != nil {
		resp["scheduler_active"] = h.Worker.IsActive()
		resp["run_in_progress"] = h.Worker.IsRunning()
	}
	c.JSON(http.StatusOK, resp)
}
