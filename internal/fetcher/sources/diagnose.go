// SPDX-License-Identifier: AGPL-3.0-only
package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiagnosePage explains, where it can, why a rendered page never showed
// its content marker.
func DiagnosePage(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if doc.Find(`input[autocomplete="username"], [data-testid="loginButton"], form[action="/sessions"]`).Length() > 0 {
		return "session expired: login prompt shown"
	}

	if msg := strings.TrimSpace(doc.Find(`[data-testid="error-detail"]`).First().Text()); msg != "" {
		return "page error: " + msg
	}

	if msg := strings.TrimSpace(doc.Find(`[data-testid="empty_state_header_text"]`).First().Text()); msg != "" {
		return "unavailable: " + msg
	}

	var notice string
	doc.Find(`[data-testid="primaryColumn"] span`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(text, "unavailable") || strings.Contains(text, "doesn’t exist") || strings.Contains(text, "doesn't exist") {
			notice = text
			return false
		}
		return true
	})
	if notice != "" {
		return "unavailable: " + notice
	}

	return ""
}
