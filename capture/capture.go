// Package capture drives a browser through navigation & content realization, then saves the
// rendered page as a full-page PNG or a single-page PDF.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chimbori.dev/shutter/core"
	"chimbori.dev/shutter/engine"
	"chimbori.dev/shutter/output"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
)

// Page is one browser tab, exclusively owned by a single capture.
// Every method blocks until the browser has completed the operation.
type Page interface {
	// SetViewport emulates a width × height viewport at a device scale factor of 1.
	SetViewport(width, height int) error

	// Navigate loads url & waits until the network is quiet, or until timeout elapses.
	Navigate(url string, timeout time.Duration) error

	// ScrollBy measures the scrollable height, then scrolls down by dy pixels.
	ScrollBy(dy float64) (maxScrollable float64, err error)

	ScrollToBottom() error

	// ContentSize returns the rendered document size in CSS pixels.
	ContentSize() (width, height float64, err error)

	// Screenshot returns a PNG of the entire scrollable page.
	Screenshot() ([]byte, error)

	// PDF returns a single-page PDF whose page is widthPx × heightPx.
	PDF(widthPx, heightPx float64) ([]byte, error)

	Close() error
}

// LaunchFunc starts a browser session as described by a [engine.LaunchConfig].
type LaunchFunc func(ctx context.Context, lc engine.LaunchConfig) (Page, error)

// Pipeline runs captures, one at a time, each in its own browser session.
type Pipeline struct {
	Launch LaunchFunc
	Paths  *output.Resolver
	Scroll ScrollOptions
}

// Capture runs every stage for req in order, & writes the artifact.
// The browser session is closed before returning, whether or not the capture succeeded.
func (p *Pipeline) Capture(ctx context.Context, req Request, lc engine.LaunchConfig) (Artifact, error) {
	if err := req.Validate(); err != nil {
		return Artifact{}, err
	}

	path, err := p.Paths.Resolve(req.TargetUrl, string(req.Format), req.OutputName)
	if err != nil {
		return Artifact{}, err
	}

	slog.Info("capturing",
		"url", req.TargetUrl,
		"format", req.Format,
		"viewport", fmt.Sprintf("%dx%d", req.Width, req.Height),
		"engine", lc.Kind)

	page, err := p.Launch(ctx, lc)
	if err != nil {
		if !errors.Is(err, ErrLaunch) {
			err = fmt.Errorf("%w: %w", ErrLaunch, err)
		}
		return Artifact{}, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Debug("error closing browser", tint.Err(err))
		}
	}()

	if err := page.SetViewport(req.Width, req.Height); err != nil {
		return Artifact{}, fmt.Errorf("%w: set viewport: %w", ErrRendering, err)
	}

	start := time.Now()
	if err := page.Navigate(req.TargetUrl, req.NavigationTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Artifact{}, fmt.Errorf("%w after %s: %s: %w", ErrNavigationTimeout, req.NavigationTimeout, req.TargetUrl, err)
		}
		return Artifact{}, fmt.Errorf("navigate to %s: %w", req.TargetUrl, err)
	}
	slog.Debug("page loaded", "url", req.TargetUrl, "elapsed", time.Since(start))

	if err := realizeContent(ctx, page, p.Scroll); err != nil {
		return Artifact{}, err
	}

	if req.PostScrollDelay > 0 {
		select {
		case <-ctx.Done():
			return Artifact{}, ctx.Err()
		case <-time.After(req.PostScrollDelay):
		}
	}

	buf, err := render(page, req.Format)
	if err != nil {
		return Artifact{}, err
	}

	if err := core.WriteFile(path, buf); err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}

	slog.Info("artifact saved", "path", path, "format", req.Format, "size", humanize.Bytes(uint64(len(buf))))
	return Artifact{Path: path, Format: req.Format, Size: len(buf)}, nil
}

func render(page Page, format Format) ([]byte, error) {
	switch format {
	case PNG:
		buf, err := page.Screenshot()
		if err != nil {
			return nil, fmt.Errorf("%w: screenshot: %w", ErrRendering, err)
		}
		return buf, nil

	case PDF:
		width, height, err := page.ContentSize()
		if err != nil {
			return nil, fmt.Errorf("%w: measure document: %w", ErrEvaluation, err)
		}
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("%w: document measured %.0fx%.0f", ErrRendering, width, height)
		}
		slog.Debug("document measured", "width", width, "height", height)
		buf, err := page.PDF(width, height)
		if err != nil {
			return nil, fmt.Errorf("%w: print to pdf: %w", ErrRendering, err)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w, got %q", ErrInvalidFormat, format)
}
