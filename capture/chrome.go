package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chimbori.dev/shutter/engine"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// CSS pixels per PDF inch.
const pixelsPerInch = 96

// Chrome launches pages in a headless Chrome, Chromium or Edge driven over the DevTools protocol.
type Chrome struct {
	Idle  IdleOptions
	Debug bool
}

// Launch starts one browser with one tab, as described by lc.
// Closing the returned [Page] terminates the browser.
func (c Chrome) Launch(ctx context.Context, lc engine.LaunchConfig) (Page, error) {
	execPath, err := lc.Executable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	slog.Debug("launching browser", "engine", lc.Kind, "path", execPath, "flags", lc.SandboxFlags)

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(execPath))
	for _, flag := range lc.SandboxFlags {
		opts = append(opts, chromedp.Flag(strings.TrimPrefix(flag, "--"), true))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	ctxOpts := []chromedp.ContextOption{chromedp.WithErrorf(logf(slog.LevelWarn))}
	if c.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(logf(slog.LevelDebug)))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)

	// The first Run starts the browser & opens the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, execPath, err)
	}

	return &chromePage{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		idle:        c.Idle,
	}, nil
}

type chromePage struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	idle        IdleOptions
}

func (p *chromePage) SetViewport(width, height int) error {
	return chromedp.Run(p.ctx,
		chromedp.EmulateViewport(int64(width), int64(height), chromedp.EmulateScale(1)),
	)
}

func (p *chromePage) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	tracker := newNetworkIdle(p.idle, time.Now)
	listenCtx, stopListening := context.WithCancel(p.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			tracker.requestStarted(string(e.RequestID))
		case *network.EventLoadingFinished:
			tracker.requestFinished(string(e.RequestID))
		case *network.EventLoadingFailed:
			tracker.requestFinished(string(e.RequestID))
		}
	})

	if err := chromedp.Run(ctx, network.Enable(), chromedp.Navigate(url)); err != nil {
		return err
	}
	return tracker.wait(ctx)
}

const scrollByJs = `(function() {
	var el = document.scrollingElement || document.documentElement;
	var maxScrollable = el.scrollHeight - window.innerHeight;
	window.scrollBy(0, %v);
	return maxScrollable;
})()`

func (p *chromePage) ScrollBy(dy float64) (maxScrollable float64, err error) {
	err = chromedp.Run(p.ctx, chromedp.Evaluate(fmt.Sprintf(scrollByJs, dy), &maxScrollable))
	return maxScrollable, err
}

func (p *chromePage) ScrollToBottom() error {
	var ok bool
	return chromedp.Run(p.ctx, chromedp.Evaluate(`(function() {
		var el = document.scrollingElement || document.documentElement;
		window.scrollTo(0, el.scrollHeight);
		return true;
	})()`, &ok))
}

// ContentSize measures the rendered document. Layouts sometimes under-report one of the
// client, scroll or offset metrics, so the largest of the three is used.
func (p *chromePage) ContentSize() (width, height float64, err error) {
	var size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	err = chromedp.Run(p.ctx, chromedp.Evaluate(`(function() {
		var el = document.documentElement;
		return {
			width: Math.max(el.clientWidth, el.scrollWidth, el.offsetWidth),
			height: Math.max(el.clientHeight, el.scrollHeight, el.offsetHeight),
		};
	})()`, &size))
	return size.Width, size.Height, err
}

func (p *chromePage) Screenshot() ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(p.ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// PDF prints the page onto one sheet of exactly widthPx × heightPx.
func (p *chromePage) PDF(widthPx, heightPx float64) ([]byte, error) {
	var buf []byte
	var ok bool
	err := chromedp.Run(p.ctx,
		// Zero margins are dropped from PrintToPDF params, which would leave Chrome’s 1cm default,
		// so the page margin is pinned from CSS instead.
		chromedp.Evaluate(`(function() {
			var style = document.createElement('style');
			style.textContent = '@page { margin: 0 }';
			(document.head || document.documentElement).appendChild(style);
			return true;
		})()`, &ok),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(widthPx / pixelsPerInch).
				WithPaperHeight(heightPx / pixelsPerInch).
				WithPageRanges("1").
				WithPreferCSSPageSize(false).
				WithScale(1).
				Do(ctx)
			return err
		}),
	)
	return buf, err
}

// Close shuts the browser down & releases its tab.
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancelTab()
	p.cancelAlloc()
	return err
}

func logf(level slog.Level) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		slog.Log(context.Background(), level, "chromedp: "+fmt.Sprintf(format, args...))
	}
}
