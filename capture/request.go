package capture

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Format is the kind of artifact produced by a capture.
type Format string

const (
	PNG Format = "png"
	PDF Format = "pdf"
)

func (f Format) Valid() bool {
	return f == PNG || f == PDF
}

const (
	DefaultUrl               = "http://127.0.0.1:3333"
	DefaultWidth             = 1920
	DefaultHeight            = 1080
	DefaultPostScrollDelay   = 300 * time.Millisecond
	DefaultNavigationTimeout = 60 * time.Second
)

// Request describes one capture. It is built once from caller input & never modified.
type Request struct {
	TargetUrl         string
	Format            Format
	Width             int
	Height            int
	PostScrollDelay   time.Duration
	NavigationTimeout time.Duration

	// OutputName overrides the synthesized artifact name when not blank.
	OutputName string
}

// Validate reports whether r can be captured; invalid requests must not launch a browser.
func (r Request) Validate() error {
	if !r.Format.Valid() {
		return fmt.Errorf("%w, got %q", ErrInvalidFormat, r.Format)
	}
	u, err := url.Parse(r.TargetUrl)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", r.TargetUrl, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("url %q is not absolute", r.TargetUrl)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.PostScrollDelay < 0 {
		return errors.New("post-scroll delay must not be negative")
	}
	if r.NavigationTimeout <= 0 {
		return errors.New("navigation timeout must be positive")
	}
	return nil
}

// Artifact is a capture written to disk.
type Artifact struct {
	Path   string
	Format Format
	Size   int
}
