// SPDX-License-Identifier: AGPL-3.0-only
package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ChromeLauncher starts a fresh headless Chrome per Launch call, so every
// fetch runs with its own cookies and cache.
type ChromeLauncher struct {
	ExecPath  string
	UserAgent string
	Headful   bool
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	ua := l.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1280, 1800),
		chromedp.Flag("headless", !l.Headful),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &chromeBrowser{ctx: allocCtx, cancel: cancel}, nil
}

type chromeBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	// The first Run allocates the browser and binds it to the context it is
	// given, so it has to run on the tab context itself.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancel()
		return nil, err
	}

	return &chromePage{ctx: tabCtx, cancel: cancel, pending: make(map[network.RequestID]Response)}, nil
}

func (b *chromeBrowser) Close() error {
	b.cancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[network.RequestID]Response
}

func (p *chromePage) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	runCtx, stop := bind(p.ctx, ctx)
	defer stop()

	return chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, cookie := range cookies {
				err := network.SetCookie(cookie.Name, cookie.Value).
					WithDomain(cookie.Domain).
					WithPath(cookie.Path).
					WithSecure(cookie.Secure).
					WithHTTPOnly(cookie.HTTPOnly).
					WithSameSite(cookie.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

// OnResponse reports a response once its body has finished loading, which
// is when Network.getResponseBody can serve it.
func (p *chromePage) OnResponse(fn func(Response)) {
	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		switch evt := ev.(type) {
		case *network.EventResponseReceived:
			if evt.Response == nil {
				return
			}
			p.mu.Lock()
			p.pending[evt.RequestID] = Response{
				RequestID: string(evt.RequestID),
				URL:       evt.Response.URL,
				Status:    evt.Response.Status,
				MimeType:  evt.Response.MimeType,
			}
			p.mu.Unlock()
		case *network.EventLoadingFinished:
			p.mu.Lock()
			r, ok := p.pending[evt.RequestID]
			delete(p.pending, evt.RequestID)
			p.mu.Unlock()
			if ok {
				fn(r)
			}
		case *network.EventLoadingFailed:
			p.mu.Lock()
			delete(p.pending, evt.RequestID)
			p.mu.Unlock()
		}
	})
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	runCtx, stop := bind(p.ctx, ctx)
	defer stop()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	runCtx, stop := bind(p.ctx, ctx)
	defer stop()
	return chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) ResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	runCtx, stop := bind(p.ctx, ctx)
	defer stop()

	var body []byte
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(network.RequestID(requestID)).Do(ctx)
		return err
	}))
	return body, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	runCtx, stop := bind(p.ctx, ctx)
	defer stop()

	var html string
	err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// bind derives a context from the chromedp tab context that also honours
// the deadline and cancellation of the caller's context. Cancelling the
// derived context leaves the tab open.
func bind(tab, caller context.Context) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := caller.Deadline(); ok {
		ctx, cancel = context.WithDeadline(tab, deadline)
	} else {
		ctx, cancel = context.WithCancel(tab)
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
