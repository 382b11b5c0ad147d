// SPDX-License-Identifier: AGPL-3.0-only
package sources

import (
	"fmt"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/tidwall/gjson"
)

const createdAtLayout = time.RubyDate

// fieldSpec declares where a value lives in a post-detail document. The
// first path that exists wins.
type fieldSpec struct {
	name     string
	paths    []string
	required bool
}

var (
	fieldID = fieldSpec{name: "id", required: true, paths: []string{
		"rest_id",
		"legacy.id_str",
	}}
	fieldAuthorHandle = fieldSpec{name: "author_handle", required: true, paths: []string{
		"core.user_results.result.core.screen_name",
		"core.user_results.result.legacy.screen_name",
	}}
	fieldAuthorName = fieldSpec{name: "author_display_name", required: true, paths: []string{
		"core.user_results.result.core.name",
		"core.user_results.result.legacy.name",
	}}
	fieldCreatedAt = fieldSpec{name: "created_at", required: true, paths: []string{
		"legacy.created_at",
	}}
	fieldFullText = fieldSpec{name: "full_text", required: true, paths: []string{
		"note_tweet.note_tweet_results.result.text",
		"legacy.full_text",
	}}
	fieldLanguage = fieldSpec{name: "language", required: true, paths: []string{
		"legacy.lang",
	}}
	fieldReplyHandle = fieldSpec{name: "in_reply_to_handle", paths: []string{
		"legacy.in_reply_to_screen_name",
	}}
	fieldReplyPostID = fieldSpec{name: "in_reply_to_post_id", paths: []string{
		"legacy.in_reply_to_status_id_str",
	}}

	mediaRoots = []string{
		"legacy.extended_entities.media",
		"legacy.entities.media",
	}
)

func (f fieldSpec) lookup(doc gjson.Result) (string, error) {
	for _, p := range f.paths {
		if r := doc.Get(p); r.Exists() && r.Type != gjson.Null {
			return r.String(), nil
		}
	}
	if f.required {
		return "", &common.MissingFieldError{Field: f.name, Paths: f.paths}
	}
	return "", nil
}

// ExtractPost maps a raw post-detail document onto a PostRecord.
func ExtractPost(raw []byte) (common.PostRecord, error) {
	doc := unwrapResult(gjson.ParseBytes(raw))

	var (
		rec    common.PostRecord
		values = make(map[string]string, 8)
	)
	for _, f := range []fieldSpec{fieldID, fieldAuthorHandle, fieldAuthorName, fieldCreatedAt, fieldFullText, fieldLanguage, fieldReplyHandle, fieldReplyPostID} {
		v, err := f.lookup(doc)
		if err != nil {
			return rec, err
		}
		values[f.name] = v
	}

	createdAt, err := time.Parse(createdAtLayout, values[fieldCreatedAt.name])
	if err != nil {
		return rec, fmt.Errorf("parsing created_at %q: %w", values[fieldCreatedAt.name], err)
	}

	media, mediaLinks := extractMedia(doc)

	rec = common.PostRecord{
		ID:                values[fieldID.name],
		AuthorHandle:      values[fieldAuthorHandle.name],
		AuthorDisplayName: values[fieldAuthorName.name],
		CreatedAt:         createdAt.UTC(),
		FullText:          common.CleanText(values[fieldFullText.name], mediaLinks),
		Language:          values[fieldLanguage.name],
		Media:             media,
		MentionHandles:    common.Dedupe(stringsAt(doc, "legacy.entities.user_mentions.#.screen_name")),
		Hashtags:          common.Dedupe(stringsAt(doc, "legacy.entities.hashtags.#.text")),
		InReplyToHandle:   values[fieldReplyHandle.name],
		InReplyToPostID:   values[fieldReplyPostID.name],
	}

	return rec, nil
}

// extractMedia zips the parallel media sequences by index. Every field is
// read from the same element, a missing field being empty at that index.
// Zipping stops at the shorter of the image and type sequences. It also
// returns the short links of the kept items so they can be trimmed from
// the text.
func extractMedia(doc gjson.Result) ([]common.Media, []string) {
	var items []gjson.Result
	for _, r := range mediaRoots {
		if v := doc.Get(r); v.IsArray() {
			items = v.Array()
			break
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	n := min(sequenceLen(items, "media_url_https"), sequenceLen(items, "type"))

	var (
		media []common.Media
		links []string
	)
	for _, item := range items[:n] {
		image := item.Get("media_url_https").String()
		kind := mediaKind(item.Get("type").String())
		if kind == common.MediaOther || image == "" {
			continue
		}

		m := common.Media{URL: image, Kind: kind, Link: item.Get("expanded_url").String()}
		if kind != common.MediaPhoto {
			m.VideoURL = bestVariant(item.Get("video_info"))
		}
		media = append(media, m)

		if short := item.Get("url").String(); short != "" {
			links = append(links, short)
		}
	}

	return media, links
}

// sequenceLen is the length of the field's sequence: up to and including
// the last element that carries it.
func sequenceLen(items []gjson.Result, field string) int {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Get(field).Exists() {
			return i + 1
		}
	}
	return 0
}

func mediaKind(platformType string) common.MediaKind {
	switch platformType {
	case "photo":
		return common.MediaPhoto
	case "video":
		return common.MediaVideo
	case "animated_gif":
		return common.MediaAnimatedGIF
	default:
		return common.MediaOther
	}
}

// bestVariant picks the highest bitrate mp4 rendition.
func bestVariant(info gjson.Result) string {
	var (
		best    string
		bitrate int64 = -1
	)
	for _, v := range info.Get("variants").Array() {
		if v.Get("content_type").String() != "video/mp4" {
			continue
		}
		if b := v.Get("bitrate").Int(); b > bitrate {
			bitrate = b
			best = v.Get("url").String()
		}
	}
	return best
}

func stringsAt(doc gjson.Result, path string) []string {
	arr := doc.Get(path).Array()
	out := make([]string, 0, len(arr))
	for _, r := range arr {
		out = append(out, r.String())
	}
	return out
}

// unwrapResult strips the visibility wrapper some results come in.
func unwrapResult(r gjson.Result) gjson.Result {
	if r.Get("__typename").String() == "TweetWithVisibilityResults" {
		if inner := r.Get("tweet"); inner.Exists() {
			return inner
		}
	}
	return r
}
