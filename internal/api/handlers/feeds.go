// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fluffyriot/tweetrss/internal/config"
	"github.com/fluffyriot/tweetrss/internal/helpers"
	"github.com/fluffyriot/tweetrss/internal/validator"
	"github.com/gin-gonic/gin"
)

type FeedInfo struct {
	Key      string    `json:"key"`
	URL      string    `json:"url"`
	Items    int       `json:"items"`
	Modified time.Time `json:"modified"`
	Error    string    `json:"error,omitempty"`
}

func (h *Handler) ListFeedsHandler(c *gin.Context) {
	paths, err := filepath.Glob(filepath.Join(h.Config.OutputDir, "*.xml"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sort.Strings(paths)

	feeds := make([]FeedInfo, 0, len(paths))
	for _, p := range paths {
		key := strings.TrimSuffix(filepath.Base(p), ".xml")
		info := FeedInfo{
			Key: key,
			URL: helpers.FeedURL(h.Config.PublicBaseURL, "/feeds", key),
		}
		if st, err := os.Stat(p); err == nil {
			info.Modified = st.ModTime().UTC()
		}
		report := validator.ValidateFile(p)
		info.Items = report.Items
		if report.Err != nil {
			info.Error = report.Err.Error()
		}
		feeds = append(feeds, info)
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds})
}

func (h *Handler) ServeFeedHandler(c *gin.Context) {
	name := c.Param("name")
	key, ok := strings.CutSuffix(name, ".xml")
	if !ok || config.ValidateKey(key) != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	path := filepath.Join(h.Config.OutputDir, key+".xml")
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.File(path)
}
