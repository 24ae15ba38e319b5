package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/utils"
)

// Provider yields a browser executable for one [Kind] of engine.
type Provider interface {
	Kind() Kind
	Executable(ctx context.Context) (string, error)
}

// LocalExecutable is a browser already installed on the host.
type LocalExecutable struct {
	Path string
}

func (LocalExecutable) Kind() Kind { return LocallyInstalled }

// Executable returns the probed path; it is not re-checked at launch.
func (l LocalExecutable) Executable(context.Context) (string, error) {
	return l.Path, nil
}

// ManagedDownload is a pinned Chromium revision, downloaded once & cached under Dir.
type ManagedDownload struct {
	Dir string
}

func (ManagedDownload) Kind() Kind { return Downloaded }

// Executable returns the cached browser, downloading it first if it is missing or corrupt.
func (m ManagedDownload) Executable(ctx context.Context) (string, error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	if m.Dir != "" {
		b.RootDir = m.Dir
	}
	b.Logger = utils.Log(func(msg ...interface{}) {
		slog.Info("browser download", "msg", fmt.Sprint(msg...))
	})

	slog.Debug("resolving managed browser", "revision", b.Revision, "path", b.BinPath())
	path, err := b.Get()
	if err != nil {
		return "", &EnvironmentError{
			Err: fmt.Errorf("%w: download of Chromium r%d failed: %w", ErrNoBrowserAvailable, b.Revision, err),
			Remediation: fmt.Sprintf(
				"Check network access to the Chromium download hosts, or install Chrome/Chromium/Edge & set %s to its executable.",
				OverrideEnvVars[0]),
		}
	}
	return path, nil
}
