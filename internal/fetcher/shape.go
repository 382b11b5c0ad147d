// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"strings"
	"time"

	"github.com/fluffyriot/tweetrss/internal/feed"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
)

const (
	photoMarker = "📷"
	videoMarker = "🎬"

	entryTimeLayout = "2006-01-02 15:04 MST"
)

func mediaMarker(kind common.MediaKind) string {
	switch kind {
	case common.MediaPhoto:
		return photoMarker
	case common.MediaVideo, common.MediaAnimatedGIF:
		return videoMarker
	default:
		return ""
	}
}

// mediaMarkers returns one marker per distinct kind group, in the order the
// groups first appear.
func mediaMarkers(media []common.Media) []string {
	var markers []string
	for _, m := range media {
		marker := mediaMarker(m.Kind)
		if marker == "" {
			continue
		}
		dup := false
		for _, seen := range markers {
			if seen == marker {
				dup = true
				break
			}
		}
		if !dup {
			markers = append(markers, marker)
		}
	}
	return markers
}

// ShapeEntry builds the feed entry for a resolved post. A reply is shown
// through its parent: the parent's author heads the title and the parent's
// text fills the description. Identity and time always belong to the post
// itself.
func ShapeEntry(rp common.ResolvedPost) feed.Entry {
	post := rp.Post
	shown := post

	prefix := ""
	if rp.Parent != nil {
		shown = *rp.Parent
		prefix = "↩ @" + post.AuthorHandle + " replied to "
	}

	suffix := " (@" + shown.AuthorHandle + ")"
	if markers := mediaMarkers(shown.Media); len(markers) > 0 {
		suffix += " " + strings.Join(markers, "")
	}
	title := prefix + helpers.FitText(shown.AuthorDisplayName, prefix+suffix, helpers.TitleBudget) + suffix

	credit := "\n\n— @" + shown.AuthorHandle + " · " + shown.CreatedAt.UTC().Format(entryTimeLayout)
	description := helpers.FitText(shown.FullText, credit, helpers.DescriptionBudget) + credit

	link := helpers.PostURL(post.AuthorHandle, post.ID)

	return feed.Entry{
		ID:          link,
		Link:        link,
		Title:       title,
		Description: description,
		Published:   post.CreatedAt,
		Media:       append([]common.Media(nil), shown.Media...),
		Creator:     "@" + post.AuthorHandle,
	}
}

// sinceDate is the UTC calendar day of t.
func sinceDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
