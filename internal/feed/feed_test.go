// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/mmcdole/gofeed"
)

func testDocument() *Document {
	doc := NewDocument(common.Account{Key: "wr_news", Handle: "wildrift", DisplayName: "Wild Rift News"})
	doc.Updated = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	doc.SelfURL = "https://example.org/feeds/wr_news.xml"
	return doc
}

func TestWriteParsesBack(t *testing.T) {
	doc := testDocument()
	doc.Append(Entry{
		ID:          "https://x.com/wildrift/status/10",
		Link:        "https://x.com/wildrift/status/10",
		Title:       "Wild Rift News (@wildrift) 📷",
		Description: "Patch notes <b>&</b> more",
		Published:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Creator:     "@wildrift",
		Media:       []common.Media{{URL: "https://pbs.twimg.com/media/a.jpg", Kind: common.MediaPhoto}},
	})
	doc.Append(Entry{
		ID:        "https://x.com/wildrift/status/11",
		Link:      "https://x.com/wildrift/status/11",
		Title:     "Wild Rift News (@wildrift)",
		Published: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Creator:   "@wildrift",
		Media: []common.Media{{
			URL:      "https://pbs.twimg.com/thumb.jpg",
			Kind:     common.MediaVideo,
			VideoURL: "https://video.twimg.com/v.mp4",
		}},
	})

	dir := filepath.Join(t.TempDir(), "public")
	path, err := Write(dir, "wr_news", doc)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(dir, "wr_news.xml"); path != want {
		t.Fatalf("got path %q, want %q", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		t.Fatalf("parsing written feed: %v", err)
	}

	if parsed.FeedType != "rss" {
		t.Errorf("FeedType = %q", parsed.FeedType)
	}
	if parsed.Title != "Wild Rift News" || parsed.Link != "https://x.com/wildrift" || parsed.Language != "en" {
		t.Errorf("channel = %q %q %q", parsed.Title, parsed.Link, parsed.Language)
	}
	if parsed.Description != "Wild Rift News" {
		t.Errorf("Description = %q, want the display name fallback", parsed.Description)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(parsed.Items))
	}

	first := parsed.Items[0]
	if first.GUID != "https://x.com/wildrift/status/10" || first.Link != first.GUID {
		t.Errorf("guid/link = %q %q", first.GUID, first.Link)
	}
	if first.Description != "Patch notes <b>&</b> more" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Published = %v", first.PublishedParsed)
	}
	if first.DublinCoreExt == nil || len(first.DublinCoreExt.Creator) != 1 || first.DublinCoreExt.Creator[0] != "@wildrift" {
		t.Errorf("dc:creator = %+v", first.DublinCoreExt)
	}

	media := first.Extensions["media"]["content"]
	if len(media) != 1 || media[0].Attrs["url"] != "https://pbs.twimg.com/media/a.jpg" || media[0].Attrs["medium"] != "image" {
		t.Errorf("media:content = %+v", media)
	}
	video := parsed.Items[1].Extensions["media"]["content"]
	if len(video) != 1 || video[0].Attrs["url"] != "https://video.twimg.com/v.mp4" || video[0].Attrs["medium"] != "video" {
		t.Errorf("video media:content = %+v", video)
	}
}

func TestWriteZeroEntries(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "empty", testDocument())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		t.Fatalf("zero-entry feed does not parse: %v", err)
	}
	if len(parsed.Items) != 0 {
		t.Fatalf("got %d items, want 0", len(parsed.Items))
	}
}

func TestWriteExistingDirAndReplace(t *testing.T) {
	dir := t.TempDir()
	doc := testDocument()

	if _, err := Write(dir, "wr_news", doc); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	doc.Append(Entry{ID: "https://x.com/wildrift/status/1", Link: "https://x.com/wildrift/status/1", Title: "t", Published: time.Now()})
	path, err := Write(dir, "wr_news", doc)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "<item>"); got != 1 {
		t.Fatalf("got %d items after rewrite, want 1", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestWriteFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "public")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Write(blocker, "wr_news", testDocument())
	var sErr *common.SerializationError
	if !errors.As(err, &sErr) {
		t.Fatalf("got %v, want SerializationError", err)
	}
	if sErr.Path != filepath.Join(blocker, "wr_news.xml") {
		t.Errorf("Path = %q", sErr.Path)
	}
}
