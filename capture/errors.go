package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat means the request selected neither PNG nor PDF.
	ErrInvalidFormat = errors.New("output format must be png or pdf")

	ErrLaunch            = errors.New("browser launch failed")
	ErrNavigationTimeout = errors.New("navigation timed out")

	// ErrRendering covers any failure while the page is being realized or rendered.
	ErrRendering = errors.New("rendering failed")

	// ErrEvaluation is a script run inside the page that failed; it is also an [ErrRendering].
	ErrEvaluation = fmt.Errorf("%w: page script evaluation failed", ErrRendering)

	ErrWrite = errors.New("artifact could not be written")
)
