// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
)

const (
	Generator       = "tweetrss"
	DefaultLanguage = "en"

	nsAtom  = "http://www.w3.org/2005/Atom"
	nsMedia = "http://search.yahoo.com/mrss/"
	nsDC    = "http://purl.org/dc/elements/1.1/"
)

// Entry is one item of a feed. ID and Link are the canonical post URL.
type Entry struct {
	ID          string
	Title       string
	Description string
	Link        string
	Published   time.Time
	Media       []common.Media
	Creator     string
}

// Document is the feed for one account. It is built empty, appended to in
// processing order and written once.
type Document struct {
	ID          string
	Title       string
	Author      string
	Link        string
	Language    string
	Description string
	SelfURL     string
	Updated     time.Time

	Entries []Entry
}

// NewDocument sets the channel fields from an account.
func NewDocument(acc common.Account) *Document {
	profile := helpers.ProfileURL(acc.Handle)
	desc := acc.Description
	if desc == "" {
		desc = acc.DisplayName
	}
	return &Document{
		ID:          profile,
		Title:       acc.DisplayName,
		Author:      acc.Handle,
		Link:        profile,
		Language:    DefaultLanguage,
		Description: desc,
	}
}

func (d *Document) Append(e Entry) {
	d.Entries = append(d.Entries, e)
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Media   string     `xml:"xmlns:media,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	Creator       string    `xml:"dc:creator,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Generator     string    `xml:"generator"`
	Self          *atomLink `xml:"atom:link,omitempty"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssItem struct {
	Title       string         `xml:"title"`
	Link        string         `xml:"link"`
	Description string         `xml:"description"`
	GUID        rssGUID        `xml:"guid"`
	PubDate     string         `xml:"pubDate"`
	Creator     string         `xml:"dc:creator,omitempty"`
	Media       []mediaContent `xml:"media:content"`
}

type mediaContent struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr"`
	Type   string `xml:"type,attr,omitempty"`
}

func medium(m common.Media) mediaContent {
	if m.Kind == common.MediaPhoto || m.VideoURL == "" {
		return mediaContent{URL: m.URL, Medium: "image"}
	}
	return mediaContent{URL: m.VideoURL, Medium: "video", Type: "video/mp4"}
}

// Marshal renders the document as RSS 2.0 with the media and Dublin Core
// extensions.
func Marshal(d *Document) ([]byte, error) {
	updated := d.Updated
	if updated.IsZero() {
		updated = time.Now()
	}

	ch := rssChannel{
		Title:         d.Title,
		Link:          d.Link,
		Description:   d.Description,
		Language:      d.Language,
		Creator:       "@" + d.Author,
		LastBuildDate: updated.UTC().Format(time.RFC1123Z),
		Generator:     Generator,
		Items:         make([]rssItem, 0, len(d.Entries)),
	}
	if d.SelfURL != "" {
		ch.Self = &atomLink{Href: d.SelfURL, Rel: "self", Type: "application/rss+xml"}
	}

	for _, e := range d.Entries {
		item := rssItem{
			Title:       e.Title,
			Link:        e.Link,
			Description: e.Description,
			GUID:        rssGUID{IsPermaLink: true, Value: e.ID},
			PubDate:     e.Published.UTC().Format(time.RFC1123Z),
			Creator:     e.Creator,
		}
		for _, m := range e.Media {
			item.Media = append(item.Media, medium(m))
		}
		ch.Items = append(ch.Items, item)
	}

	out, err := xml.MarshalIndent(rssDoc{
		Version: "2.0",
		Atom:    nsAtom,
		Media:   nsMedia,
		DC:      nsDC,
		Channel: ch,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding feed %s: %w", d.ID, err)
	}

	return append([]byte(xml.Header), out...), nil
}
