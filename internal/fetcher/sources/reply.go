// SPDX-License-Identifier: AGPL-3.0-only
package sources

import (
	"context"
	"log/slog"

	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
)

// ReplyResolver expands a reply with the post it answers. It goes exactly
// one hop: the parent's own reply target is left alone.
type ReplyResolver struct {
	Details DetailSource
	Logger  *slog.Logger
}

func (r *ReplyResolver) Resolve(ctx context.Context, post common.PostRecord) (common.ResolvedPost, error) {
	resolved := common.ResolvedPost{Post: post}
	if !post.IsReply() {
		return resolved, nil
	}

	handle := post.InReplyToHandle
	if handle == "" {
		// x.com resolves /i/status/<id> for any author.
		handle = "i"
	}
	parentURL := helpers.PostURL(handle, post.InReplyToPostID)
	if r.Logger != nil {
		r.Logger.Debug("Resolving reply parent", "post", post.ID, "parent", parentURL)
	}

	parent, err := FetchPost(ctx, r.Details, parentURL)
	if err != nil {
		return resolved, &common.ReplyResolutionError{PostID: post.ID, ParentID: post.InReplyToPostID, Err: err}
	}

	resolved.Parent = &parent
	return resolved, nil
}
