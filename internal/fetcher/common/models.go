// SPDX-License-Identifier: AGPL-3.0-only
package common

import (
	"time"
)

type MediaKind string

const (
	MediaPhoto       MediaKind = "photo"
	MediaVideo       MediaKind = "video"
	MediaAnimatedGIF MediaKind = "animated_gif"
	MediaOther       MediaKind = "other"
)

// Media is one attachment of a post. URL always points at a displayable
// image; for videos and GIFs it is the preview frame.
type Media struct {
	URL      string
	Kind     MediaKind
	Link     string
	VideoURL string
}

// PostHandle identifies a post returned by search before it is resolved.
type PostHandle struct {
	ID        string
	CreatedAt time.Time
}

// PostRecord is the normalized form of a post after extraction.
type PostRecord struct {
	ID                string
	AuthorHandle      string
	AuthorDisplayName string
	CreatedAt         time.Time
	FullText          string
	Language          string
	Media             []Media
	MentionHandles    []string
	Hashtags          []string
	InReplyToHandle   string
	InReplyToPostID   string
}

func (p PostRecord) IsReply() bool {
	return p.InReplyToPostID != ""
}

// ResolvedPost pairs a post with its parent when the post is a reply.
type ResolvedPost struct {
	Post   PostRecord
	Parent *PostRecord
}

// Account is one configured feed.
type Account struct {
	Key         string
	Handle      string
	DisplayName string
	Description string
	Exclude     []string
}
