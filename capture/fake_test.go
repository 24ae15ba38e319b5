package capture

import (
	"context"
	"math"
	"time"

	"chimbori.dev/shutter/engine"
)

// fakePage simulates a page whose scrollable height is fixed, or grows by Grow per step.
type fakePage struct {
	Scrollable float64
	Grow       float64

	Width, Height float64

	NavErr    error
	ScrollErr error
	SizeErr   error
	ShotErr   error
	PdfErr    error

	calls    []string
	position float64
	scrolls  int
	closed   int

	viewportW, viewportH int
	navTimeout           time.Duration
	pdfW, pdfH           float64
}

func (f *fakePage) SetViewport(width, height int) error {
	f.calls = append(f.calls, "viewport")
	f.viewportW, f.viewportH = width, height
	return nil
}

func (f *fakePage) Navigate(url string, timeout time.Duration) error {
	f.calls = append(f.calls, "navigate")
	f.navTimeout = timeout
	return f.NavErr
}

func (f *fakePage) ScrollBy(dy float64) (float64, error) {
	if f.ScrollErr != nil {
		return 0, f.ScrollErr
	}
	if len(f.calls) == 0 || f.calls[len(f.calls)-1] != "scroll" {
		f.calls = append(f.calls, "scroll")
	}
	f.scrolls++
	measured := f.Scrollable
	f.position = math.Min(f.position+dy, f.Scrollable)
	f.Scrollable += f.Grow
	return measured, nil
}

func (f *fakePage) ScrollToBottom() error {
	f.calls = append(f.calls, "bottom")
	f.position = f.Scrollable
	return nil
}

func (f *fakePage) ContentSize() (float64, float64, error) {
	f.calls = append(f.calls, "measure")
	return f.Width, f.Height, f.SizeErr
}

func (f *fakePage) Screenshot() ([]byte, error) {
	f.calls = append(f.calls, "screenshot")
	if f.ShotErr != nil {
		return nil, f.ShotErr
	}
	return []byte("\x89PNG\r\n\x1a\nfake"), nil
}

func (f *fakePage) PDF(widthPx, heightPx float64) ([]byte, error) {
	f.calls = append(f.calls, "pdf")
	f.pdfW, f.pdfH = widthPx, heightPx
	if f.PdfErr != nil {
		return nil, f.PdfErr
	}
	return []byte("%PDF-1.4 fake"), nil
}

func (f *fakePage) Close() error {
	f.calls = append(f.calls, "close")
	f.closed++
	return nil
}

// launcherFor returns a LaunchFunc handing out page, & counts launches.
func launcherFor(page Page, launches *int) LaunchFunc {
	return func(ctx context.Context, lc engine.LaunchConfig) (Page, error) {
		*launches++
		return page, nil
	}
}
