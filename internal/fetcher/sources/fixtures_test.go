// SPDX-License-Identifier: AGPL-3.0-only
package sources

import (
	"encoding/json"
	"testing"
)

type tweetFixture struct {
	ID          string
	Handle      string
	Name        string
	CreatedAt   string
	Text        string
	NoteText    string
	Lang        string
	ReplyHandle string
	ReplyID     string
	Media       []map[string]any
	Mentions    []string
	Hashtags    []string
	LegacyUser  bool
	Omit        string
}

func photo(image, short string) map[string]any {
	return map[string]any{
		"type":            "photo",
		"media_url_https": image,
		"url":             short,
		"expanded_url":    "https://x.com/i/photo/1",
	}
}

func (f tweetFixture) result() map[string]any {
	user := map[string]any{}
	if f.LegacyUser {
		user["legacy"] = map[string]any{"screen_name": f.Handle, "name": f.Name}
	} else {
		user["core"] = map[string]any{"screen_name": f.Handle, "name": f.Name}
	}

	mentions := make([]map[string]any, 0, len(f.Mentions))
	for _, m := range f.Mentions {
		mentions = append(mentions, map[string]any{"screen_name": m})
	}
	hashtags := make([]map[string]any, 0, len(f.Hashtags))
	for _, h := range f.Hashtags {
		hashtags = append(hashtags, map[string]any{"text": h})
	}

	legacy := map[string]any{
		"id_str":     f.ID,
		"created_at": f.CreatedAt,
		"full_text":  f.Text,
		"lang":       f.Lang,
		"entities": map[string]any{
			"user_mentions": mentions,
			"hashtags":      hashtags,
		},
	}
	if f.ReplyID != "" {
		legacy["in_reply_to_status_id_str"] = f.ReplyID
		legacy["in_reply_to_screen_name"] = f.ReplyHandle
	}
	if f.Media != nil {
		legacy["extended_entities"] = map[string]any{"media": f.Media}
	}

	res := map[string]any{
		"__typename": "Tweet",
		"rest_id":    f.ID,
		"core":       map[string]any{"user_results": map[string]any{"result": user}},
		"legacy":     legacy,
	}
	if f.NoteText != "" {
		res["note_tweet"] = map[string]any{"note_tweet_results": map[string]any{"result": map[string]any{"text": f.NoteText}}}
	}

	switch f.Omit {
	case "created_at", "full_text", "lang":
		delete(legacy, f.Omit)
	case "screen_name":
		user = map[string]any{"core": map[string]any{"name": f.Name}}
		res["core"] = map[string]any{"user_results": map[string]any{"result": user}}
	}

	return res
}

func (f tweetFixture) raw(t *testing.T) []byte {
	t.Helper()
	return mustJSON(t, f.result())
}

// detailPayload wraps results the way the TweetResultByRestId endpoint does.
func (f tweetFixture) detailPayload(t *testing.T) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{"data": map[string]any{"tweetResult": map[string]any{"result": f.result()}}})
}

// conversationPayload wraps results the way the TweetDetail endpoint does.
func (f tweetFixture) conversationPayload(t *testing.T) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{"data": map[string]any{
		"threaded_conversation_with_injections_v2": map[string]any{
			"instructions": []any{
				map[string]any{
					"type": "TimelineAddEntries",
					"entries": []any{
						map[string]any{"entryId": "tweet-999", "content": map[string]any{}},
						map[string]any{
							"entryId": "tweet-" + f.ID,
							"content": map[string]any{"itemContent": map[string]any{"tweet_results": map[string]any{"result": f.result()}}},
						},
					},
				},
			},
		},
	}})
}

func searchPayload(t *testing.T, fixtures ...tweetFixture) []byte {
	t.Helper()
	entries := make([]any, 0, len(fixtures)+1)
	for _, f := range fixtures {
		entries = append(entries, map[string]any{
			"entryId": "tweet-" + f.ID,
			"content": map[string]any{"itemContent": map[string]any{"tweet_results": map[string]any{"result": f.result()}}},
		})
	}
	entries = append(entries, map[string]any{"entryId": "cursor-bottom-0", "content": map[string]any{"value": "abc"}})

	return mustJSON(t, map[string]any{"data": map[string]any{"search_by_raw_query": map[string]any{
		"search_timeline": map[string]any{"timeline": map[string]any{
			"instructions": []any{map[string]any{"type": "TimelineAddEntries", "entries": entries}},
		}},
	}}})
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func baseFixture() tweetFixture {
	return tweetFixture{
		ID:        "1001",
		Handle:    "wildrift",
		Name:      "League of Legends: Wild Rift",
		CreatedAt: "Wed May 01 10:00:00 +0000 2024",
		Text:      "Patch 5.1 is live &amp; ready",
		Lang:      "en",
	}
}
