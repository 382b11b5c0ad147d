// SPDX-License-Identifier: AGPL-3.0-only
package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/network"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
)

const cookieDomain = ".x.com"

// LoadSession returns the cookies that authenticate every page the job
// opens. A cookies file takes precedence over a bare auth token.
func LoadSession(cookiesFile, authToken, csrfToken string) ([]*network.Cookie, error) {
	if cookiesFile != "" {
		cookies, err := LoadCookies(cookiesFile)
		if err != nil {
			return nil, &common.SessionError{Err: err}
		}
		if !hasCookie(cookies, "auth_token") {
			return nil, &common.SessionError{Err: fmt.Errorf("cookies file %s has no auth_token", cookiesFile)}
		}
		return cookies, nil
	}

	if authToken == "" {
		return nil, &common.SessionError{Err: errors.New("no cookies file and no auth token configured")}
	}

	cookies := []*network.Cookie{sessionCookie("auth_token", authToken, true)}
	if csrfToken != "" {
		cookies = append(cookies, sessionCookie("ct0", csrfToken, false))
	}
	return cookies, nil
}

// sessionCookie fills every enum field so the cookie survives a
// SaveCookies/LoadCookies round trip; cdproto rejects empty enum values.
func sessionCookie(name, value string, httpOnly bool) *network.Cookie {
	return &network.Cookie{
		Name:         name,
		Value:        value,
		Domain:       cookieDomain,
		Path:         "/",
		Secure:       true,
		HTTPOnly:     httpOnly,
		Session:      true,
		SameSite:     network.CookieSameSiteLax,
		Priority:     network.CookiePriorityMedium,
		SourceScheme: network.CookieSourceSchemeSecure,
		SourcePort:   443,
	}
}

func SaveCookies(path string, cookies []*network.Cookie) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	return os.Chmod(path, 0600)
}

func LoadCookies(path string) ([]*network.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []*network.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}
	return cookies, nil
}

func hasCookie(cookies []*network.Cookie, name string) bool {
	for _, c := range cookies {
		if c != nil && c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}
