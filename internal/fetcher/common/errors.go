// SPDX-License-Identifier: AGPL-3.0-only
package common

import (
	"fmt"
	"strings"
)

type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: account %q: %s", e.Key, e.Reason)
}

type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// NoDetailCapturedError means the page was loaded but no usable post-detail
// response was observed. Diagnosis is filled from the rendered page when
// available.
type NoDetailCapturedError struct {
	URL       string
	Matched   int
	Diagnosis string
	Err       error
}

func (e *NoDetailCapturedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no post detail captured for %s (%d matching responses)", e.URL, e.Matched)
	if e.Diagnosis != "" {
		b.WriteString(": " + e.Diagnosis)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *NoDetailCapturedError) Unwrap() error { return e.Err }

type MissingFieldError struct {
	Field string
	Paths []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s (tried %s)", e.Field, strings.Join(e.Paths, ", "))
}

type ReplyResolutionError struct {
	PostID   string
	ParentID string
	Err      error
}

func (e *ReplyResolutionError) Error() string {
	return fmt.Sprintf("resolving parent %s of post %s: %v", e.ParentID, e.PostID, e.Err)
}

func (e *ReplyResolutionError) Unwrap() error { return e.Err }

type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("writing feed %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
