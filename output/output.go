// Package output derives where a capture artifact is written.
package output

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"chimbori.dev/shutter/core"
)

// Resolver maps a capture target to a file path under BaseDir.
type Resolver struct {
	BaseDir string
	Now     func() time.Time
}

// NewResolver returns a Resolver rooted at baseDir, using the wall clock for default names.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir, Now: time.Now}
}

// Resolve returns the absolute destination path for an artifact.
// A non-blank explicitName is used as-is (trimmed), relative to BaseDir; otherwise a name
// of the form “<hostname>-<timestamp>.<ext>” is synthesized from targetUrl.
func (r *Resolver) Resolve(targetUrl, ext, explicitName string) (string, error) {
	name := strings.TrimSpace(explicitName)
	if name == "" {
		u, err := url.Parse(targetUrl)
		if err != nil {
			return "", fmt.Errorf("invalid url %q: %w", targetUrl, err)
		}
		name = fmt.Sprintf("%s-%s.%s", core.SanitizeHostname(u.Hostname()), core.FileTimestamp(r.now()), ext)
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.BaseDir, name)
	}
	return filepath.Abs(path)
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
