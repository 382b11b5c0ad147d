// SPDX-License-Identifier: AGPL-3.0-only

// Package browsertest provides a scripted in-memory browser for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/fluffyriot/tweetrss/internal/fetcher/browser"
)

// Served is one response a scripted page emits while navigating.
type Served struct {
	URL     string
	Body    []byte
	BodyErr error
}

// Script describes how a page behaves for one URL.
type Script struct {
	Responses   []Served
	NavigateErr error
	MarkerErr   error
	HTML        string
}

type Launcher struct {
	mu sync.Mutex

	Scripts   map[string]*Script
	LaunchErr error
	PageErr   error

	Launches      int
	BrowserCloses int
	PageOpens     int
	PageCloses    int
	Visited       []string
	Cookies       []*network.Cookie
}

func NewLauncher() *Launcher {
	return &Launcher{Scripts: make(map[string]*Script)}
}

func (l *Launcher) Handle(url string, s *Script) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Scripts[url] = s
}

// Balanced reports whether every opened browser and page was closed.
func (l *Launcher) Balanced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Launches == l.BrowserCloses && l.PageOpens == l.PageCloses
}

func (l *Launcher) VisitedURLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.Visited))
	copy(out, l.Visited)
	return out
}

func (l *Launcher) Launch(ctx context.Context) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	l.Launches++
	return &fakeBrowser{l: l}, nil
}

type fakeBrowser struct {
	l      *Launcher
	closed bool
}

func (b *fakeBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	b.l.mu.Lock()
	defer b.l.mu.Unlock()
	if b.l.PageErr != nil {
		return nil, b.l.PageErr
	}
	b.l.PageOpens++
	return &fakePage{l: b.l, bodies: make(map[string]Served)}, nil
}

func (b *fakeBrowser) Close() error {
	b.l.mu.Lock()
	defer b.l.mu.Unlock()
	if b.closed {
		return errors.New("browser closed twice")
	}
	b.closed = true
	b.l.BrowserCloses++
	return nil
}

type fakePage struct {
	l        *Launcher
	listener func(browser.Response)
	script   *Script
	bodies   map[string]Served
	closed   bool
}

func (p *fakePage) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	p.l.mu.Lock()
	defer p.l.mu.Unlock()
	p.l.Cookies = append(p.l.Cookies, cookies...)
	return nil
}

func (p *fakePage) OnResponse(fn func(browser.Response)) {
	p.listener = fn
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.l.mu.Lock()
	p.l.Visited = append(p.l.Visited, url)
	s, ok := p.l.Scripts[url]
	p.l.mu.Unlock()

	if !ok {
		return fmt.Errorf("browsertest: no script for %s", url)
	}
	p.script = s
	if s.NavigateErr != nil {
		return s.NavigateErr
	}

	for i, r := range s.Responses {
		id := strconv.Itoa(i + 1)
		p.bodies[id] = r
		if p.listener != nil {
			p.listener(browser.Response{RequestID: id, URL: r.URL, Status: 200, MimeType: "application/json"})
		}
	}
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if p.script != nil && p.script.MarkerErr != nil {
		return p.script.MarkerErr
	}
	return ctx.Err()
}

func (p *fakePage) ResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	r, ok := p.bodies[requestID]
	if !ok {
		return nil, fmt.Errorf("browsertest: unknown request %s", requestID)
	}
	return r.Body, r.BodyErr
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.script == nil {
		return "", errors.New("browsertest: page not navigated")
	}
	return p.script.HTML, nil
}

func (p *fakePage) Close() error {
	p.l.mu.Lock()
	defer p.l.mu.Unlock()
	if p.closed {
		return errors.New("page closed twice")
	}
	p.closed = true
	p.l.PageCloses++
	return nil
}
