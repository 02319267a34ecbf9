// Package browser drives a Chrome page through the DevTools protocol.
package browser

import (
	"context"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"

	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/readiness"
)

// Load states accepted by WaitForLoadState.
const (
	LoadStateDOMContentLoaded = "domcontentloaded"
	LoadStateLoad             = "load"
	LoadStateNetworkIdle      = "networkidle"
)

const (
	// DefaultIdleWindow is how long the network must stay quiet to count as idle.
	DefaultIdleWindow = 500 * time.Millisecond

	pollInterval = 100 * time.Millisecond
)

// Options configures the Chrome instance behind a Page.
type Options struct {
	Headless bool
	// ChromePath overrides the browser binary; empty means autodetect.
	ChromePath string
	// Headers are sent with every request the page makes.
	Headers    map[string]string
	IdleWindow time.Duration
	Width      int
	Height     int
}

var _ readiness.Page = (*Page)(nil)

// Page is a single browser tab.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *tracker
	idle    time.Duration
}

// NewPage starts Chrome and opens a blank tab. Close releases both.
func NewPage(ctx context.Context, opts Options) (*Page, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 800
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(width, height),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	p := &Page{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		tracker: newTracker(),
		idle:    opts.IdleWindow,
	}
	if p.idle <= 0 {
		p.idle = DefaultIdleWindow
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			p.tracker.start(string(e.RequestID))
		case *network.EventLoadingFinished:
			p.tracker.finish(string(e.RequestID))
		case *network.EventLoadingFailed:
			p.tracker.finish(string(e.RequestID))
		}
	})

	actions := []chromedp.Action{network.Enable()}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		p.cancel()
		return nil, errors.Wrap(err, "start browser")
	}
	return p, nil
}

// bind derives a context for one action that is cancelled with either the
// tab or ctx.
func (p *Page) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Goto navigates the tab to url and waits for the load event.
func (p *Page) Goto(ctx context.Context, url string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	logs.Debugf("[browser] navigate %s", url)
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

// WaitForLoadState blocks until the page reaches state.
func (p *Page) WaitForLoadState(ctx context.Context, state string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	switch state {
	case LoadStateDOMContentLoaded:
		return p.pollReadyState(runCtx, func(rs string) bool { return rs != "loading" })
	case LoadStateLoad, "":
		return p.pollReadyState(runCtx, func(rs string) bool { return rs == "complete" })
	case LoadStateNetworkIdle:
		if err := p.pollReadyState(runCtx, func(rs string) bool { return rs == "complete" }); err != nil {
			return err
		}
		return p.waitNetworkIdle(runCtx)
	default:
		return errors.Newf("unknown load state %q", state)
	}
}

func (p *Page) pollReadyState(ctx context.Context, done func(string) bool) error {
	for {
		var rs string
		if err := chromedp.Run(ctx, chromedp.Evaluate(`document.readyState`, &rs)); err != nil {
			return errors.Wrap(err, "read document.readyState")
		}
		if done(rs) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (p *Page) waitNetworkIdle(ctx context.Context) error {
	for !p.tracker.idleFor(p.idle, time.Now()) {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "network still busy with %d requests", p.tracker.inflight())
		case <-time.After(pollInterval):
		}
	}
	return nil
}

// Screenshot writes a full-page PNG to path.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return errors.Wrap(err, "capture screenshot")
	}
	return os.WriteFile(path, buf, 0644)
}

// Title returns the document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var title string
	err := chromedp.Run(runCtx, chromedp.Title(&title))
	return title, err
}

// Close shuts the tab and the browser down.
func (p *Page) Close() {
	p.cancel()
}
