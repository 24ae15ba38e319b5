package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultScrollStep     = 400
	DefaultScrollInterval = 50 * time.Millisecond
	DefaultScrollMaxSteps = 2000

	// Tolerates sub-pixel rounding of scroll heights.
	scrollEpsilon = 2
)

// ScrollOptions tune how a page is scrolled to make lazily-loaded content render.
type ScrollOptions struct {
	Step     float64
	Interval time.Duration

	// MaxSteps caps pages that keep growing as they are scrolled; zero or negative means no cap.
	MaxSteps int
}

func DefaultScrollOptions() ScrollOptions {
	return ScrollOptions{
		Step:     DefaultScrollStep,
		Interval: DefaultScrollInterval,
		MaxSteps: DefaultScrollMaxSteps,
	}
}

// scrollState tracks the content-realization walk down a page.
// Position is the accumulated scroll distance; Target is the most recently measured
// scrollable height (scrollHeight minus the viewport height).
type scrollState struct {
	Position float64
	Target   float64
	Steps    int
}

// advance records one step of the given size, against a freshly measured target.
func (s scrollState) advance(step, target float64) scrollState {
	return scrollState{
		Position: s.Position + step,
		Target:   target,
		Steps:    s.Steps + 1,
	}
}

func (s scrollState) done() bool {
	return s.Position >= s.Target-scrollEpsilon
}

// realizeContent scrolls page down in fixed steps at a fixed cadence until the bottom is
// reached, then snaps to the exact bottom. Each step re-measures the page, so content that
// appears while scrolling extends the walk.
func realizeContent(ctx context.Context, page Page, opts ScrollOptions) error {
	if opts.Step <= 0 {
		opts.Step = DefaultScrollStep
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultScrollInterval
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var state scrollState
	for !state.done() || state.Steps == 0 {
		if opts.MaxSteps > 0 && state.Steps >= opts.MaxSteps {
			slog.Warn("page kept growing while scrolling; capturing what has loaded so far",
				"steps", state.Steps,
				"scrolled", state.Position,
				"scrollable", state.Target)
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		target, err := page.ScrollBy(opts.Step)
		if err != nil {
			return fmt.Errorf("%w: scroll step %d: %w", ErrEvaluation, state.Steps+1, err)
		}
		state = state.advance(opts.Step, target)
	}

	if err := page.ScrollToBottom(); err != nil {
		return fmt.Errorf("%w: scroll to bottom: %w", ErrEvaluation, err)
	}
	slog.Debug("content realized", "steps", state.Steps, "scrollable", state.Target)
	return nil
}
