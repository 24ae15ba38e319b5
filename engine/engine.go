// Package engine decides which browser executable drives a capture, & how to launch it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"chimbori.dev/shutter/core"
	"github.com/go-rod/rod/lib/launcher"
)

// Kind identifies where the browser executable comes from.
type Kind int

const (
	// Downloaded is a pinned Chromium build fetched on first use & cached on disk.
	Downloaded Kind = iota
	// LocallyInstalled is a Chrome/Chromium/Edge already installed on the host.
	LocallyInstalled
)

func (k Kind) String() string {
	switch k {
	case Downloaded:
		return "downloaded"
	case LocallyInstalled:
		return "local"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// OverrideEnvVars name the executable, in priority order.
var OverrideEnvVars = []string{"CHROME_PATH", "PUPPETEER_EXECUTABLE_PATH"}

// Local browsers are launched without the sandbox so that captures also work as root & in containers.
var localSandboxFlags = []string{"--no-sandbox", "--disable-setuid-sandbox"}

// LaunchConfig is produced once by [Resolver.Resolve] and consumed once to start a browser.
type LaunchConfig struct {
	Kind Kind

	// ExecutablePath is set for [LocallyInstalled] engines.
	ExecutablePath string

	// DownloadDir is where a [Downloaded] engine is cached; empty means the downloader default.
	DownloadDir string

	SandboxFlags []string
}

// Provider returns the engine variant that can produce an executable for this config.
func (c LaunchConfig) Provider() Provider {
	if c.Kind == LocallyInstalled {
		return LocalExecutable{Path: c.ExecutablePath}
	}
	return ManagedDownload{Dir: c.DownloadDir}
}

// Resolver probes the host environment for a usable browser engine.
type Resolver struct {
	// Getenv looks up override variables; defaults to [os.Getenv].
	Getenv func(string) string

	// ExecPath is a configured executable, consulted after the environment variables.
	ExecPath string

	// Candidates are well-known install locations, probed in order.
	Candidates []string

	// SearchPath is a last-resort lookup (e.g. via $PATH) after Candidates; may be nil.
	SearchPath func() (string, bool)

	// AllowDownload enables the [ManagedDownload] fallback.
	AllowDownload bool

	DownloadDir string
}

// NewResolver returns a Resolver that probes this OS’s well-known install locations.
func NewResolver(execPath string, allowDownload bool, downloadDir string) *Resolver {
	return &Resolver{
		Getenv:        os.Getenv,
		ExecPath:      execPath,
		Candidates:    DefaultCandidates(runtime.GOOS, os.Getenv),
		SearchPath:    launcher.LookPath,
		AllowDownload: allowDownload,
		DownloadDir:   downloadDir,
	}
}

// Resolve returns a [LaunchConfig] for the first local engine found, falling back to a
// downloaded engine. Only existence checks are performed; nothing is written or downloaded.
func (r *Resolver) Resolve() (LaunchConfig, error) {
	if path, ok := r.findLocal(); ok {
		if !core.IsExecutable(path) {
			return LaunchConfig{}, &EnvironmentError{
				Err: fmt.Errorf("%w: %s is not executable", ErrMissingAutomationClient, path),
				Remediation: fmt.Sprintf(
					"Make %s executable (chmod +x), or point %s at a working Chrome/Chromium/Edge binary.",
					path, OverrideEnvVars[0]),
			}
		}
		return LaunchConfig{
			Kind:           LocallyInstalled,
			ExecutablePath: path,
			SandboxFlags:   slices.Clone(localSandboxFlags),
		}, nil
	}

	if !r.AllowDownload {
		return LaunchConfig{}, &EnvironmentError{
			Err: ErrNoBrowserAvailable,
			Remediation: strings.Join([]string{
				"Do one of the following:",
				"1) Enable the managed browser download (set “browser.download: true” in shutter.yml); a pinned Chromium is fetched on first use.",
				fmt.Sprintf("2) Install Chrome, Chromium or Edge, & set %s to its executable.", OverrideEnvVars[0]),
			}, "\n"),
		}
	}
	return LaunchConfig{Kind: Downloaded, DownloadDir: r.DownloadDir}, nil
}

func (r *Resolver) findLocal() (string, bool) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	var overrides []string
	for _, name := range OverrideEnvVars {
		overrides = append(overrides, getenv(name))
	}
	overrides = append(overrides, r.ExecPath)

	for _, path := range append(overrides, r.Candidates...) {
		if path == "" {
			continue
		}
		if exists, _ := core.FileExists(path); exists {
			return path, true
		}
	}

	if r.SearchPath != nil {
		return r.SearchPath()
	}
	return "", false
}

// DefaultCandidates lists well-known Chrome, Chromium & Edge install paths for goos.
func DefaultCandidates(goos string, getenv func(string) string) []string {
	switch goos {
	case "windows":
		var paths []string
		for _, rel := range []string{
			`Google\Chrome\Application\chrome.exe`,
			`Microsoft\Edge\Application\msedge.exe`,
		} {
			for _, root := range []string{
				getenv("ProgramFiles"),
				getenv("ProgramFiles(x86)"),
				getenv("LOCALAPPDATA"),
			} {
				if root != "" {
					paths = append(paths, filepath.Join(root, rel))
				}
			}
		}
		return paths
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	default:
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"/usr/bin/microsoft-edge",
		}
	}
}

// Executable returns a path to a runnable browser for c, downloading one if required.
func (c LaunchConfig) Executable(ctx context.Context) (string, error) {
	path, err := c.Provider().Executable(ctx)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("engine provider returned an empty executable path")
	}
	return path, nil
}
