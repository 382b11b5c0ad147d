// SPDX-License-Identifier: AGPL-3.0-only
package common

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanText unescapes HTML entities in a post body and drops the trailing
// short links that point at media already carried as attachments.
func CleanText(input string, mediaLinks []string) string {
	text := strings.TrimSpace(html.UnescapeString(input))

	for {
		trimmed := false
		for _, link := range mediaLinks {
			if link == "" {
				continue
			}
			if strings.HasSuffix(text, link) {
				text = strings.TrimSpace(strings.TrimSuffix(text, link))
				trimmed = true
			}
		}
		if !trimmed {
			break
		}
	}

	return text
}

// Dedupe returns values in first-seen order without repeats or blanks.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
