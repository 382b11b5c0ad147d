// SPDX-License-Identifier: AGPL-3.0-only
package helpers

import (
	"fmt"
	"net/url"
	"strings"
)

const SiteURL = "https://x.com"

func ProfileURL(handle string) string {
	return SiteURL + "/" + strings.TrimPrefix(handle, "@")
}

func PostURL(handle, postID string) string {
	return SiteURL + "/" + strings.TrimPrefix(handle, "@") + "/status/" + postID
}

func SearchURL(query string) string {
	return SiteURL + "/search?q=" + url.QueryEscape(query) + "&src=typed_query&f=live"
}

// PostIDFromURL returns the numeric id of a canonical post URL.
func PostIDFromURL(postURL string) (string, error) {
	u, err := url.Parse(postURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != "status" {
			continue
		}
		id := parts[i+1]
		if id == "" || strings.Trim(id, "0123456789") != "" {
			break
		}
		return id, nil
	}

	return "", fmt.Errorf("no post id in %v", postURL)
}

// FeedURL is where a written feed is expected to be reachable. Without a
// base URL the local path is returned.
func FeedURL(baseURL, dir, key string) string {
	if baseURL == "" {
		return strings.TrimSuffix(dir, "/") + "/" + key + ".xml"
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + key + ".xml"
}
