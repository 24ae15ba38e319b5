package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chimbori.dev/shutter/capture"
	"chimbori.dev/shutter/conf"
	"chimbori.dev/shutter/core"
	"chimbori.dev/shutter/engine"
	"chimbori.dev/shutter/output"
	"chimbori.dev/shutter/scheduler"
	"github.com/lmittmann/tint"
)

const defaultConfigYml = "shutter.yml"

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitInvalidFormat = 2
)

var errInvalidArgs = errors.New("invalid arguments")

type options struct {
	ConfigPath     string
	ConfigExplicit bool
	Debug          bool
	Schedule       bool
	Request        capture.Request
}

// parseArgs parses command-line arguments. Flags may appear before or after the URL.
// A request with neither `--png` nor `--pdf` is returned with an empty format, to be rejected
// by the caller only if a capture is attempted.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet(conf.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: shutter [url] (--png | --pdf) [flags]\n       shutter --schedule [--config=shutter.yml]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.ConfigPath, "config", defaultConfigYml, "path to shutter.yml")
	fs.BoolVar(&opts.Debug, "debug", false, "print logs at DEBUG or above")
	fs.BoolVar(&opts.Schedule, "schedule", false, "run configured captures on their schedules until terminated")
	png := fs.Bool("png", false, "capture a full-page PNG screenshot")
	pdf := fs.Bool("pdf", false, "capture a single-page PDF; wins over --png")
	fs.StringVar(&opts.Request.OutputName, "out", "", "output file name; synthesized from host & time if empty")
	width := fs.String("width", strconv.Itoa(capture.DefaultWidth), "viewport width in pixels")
	height := fs.String("height", strconv.Itoa(capture.DefaultHeight), "viewport height in pixels")
	waitMs := fs.String("wait", strconv.Itoa(int(capture.DefaultPostScrollDelay.Milliseconds())), "settle delay after scrolling, in milliseconds")
	timeoutMs := fs.String("timeout", strconv.Itoa(int(capture.DefaultNavigationTimeout.Milliseconds())), "navigation timeout, in milliseconds")

	args = withoutUnknownFlags(fs, args)
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return opts, err
			}
			return opts, fmt.Errorf("%w: %w", errInvalidArgs, err)
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			opts.ConfigExplicit = true
		}
	})

	opts.Request.TargetUrl = capture.DefaultUrl
	if len(positional) > 0 {
		opts.Request.TargetUrl = normalizeUrl(positional[0])
	}
	if len(positional) > 1 {
		slog.Warn("Capturing the first url only", "ignored", positional[1:])
	}
	switch {
	case *pdf:
		opts.Request.Format = capture.PDF
	case *png:
		opts.Request.Format = capture.PNG
	}
	opts.Request.Width = parseIntArg("width", *width, capture.DefaultWidth)
	opts.Request.Height = parseIntArg("height", *height, capture.DefaultHeight)
	opts.Request.PostScrollDelay = time.Duration(parseIntArg("wait", *waitMs, int(capture.DefaultPostScrollDelay.Milliseconds()))) * time.Millisecond
	opts.Request.NavigationTimeout = time.Duration(parseIntArg("timeout", *timeoutMs, int(capture.DefaultNavigationTimeout.Milliseconds()))) * time.Millisecond
	return opts, nil
}

// withoutUnknownFlags drops flags that fs does not define, so they are ignored rather than fatal.
// Everything after a `--` terminator is kept as is.
func withoutUnknownFlags(fs *flag.FlagSet, args []string) []string {
	var kept []string
	for i, arg := range args {
		if arg == "--" {
			return append(kept, args[i:]...)
		}
		if len(arg) > 1 && strings.HasPrefix(arg, "-") {
			name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
			if fs.Lookup(name) == nil && name != "h" && name != "help" {
				slog.Warn("Ignoring unknown flag", "flag", arg)
				continue
			}
		}
		kept = append(kept, arg)
	}
	return kept
}

// parseIntArg parses a numeric flag value, falling back to def when it is not an integer.
func parseIntArg(name, value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("Not a number, using default", "flag", name, "value", value, "default", def)
		return def
	}
	return n
}

// opaqueSchemes are URL schemes without a `//` authority, which must not be prefixed.
var opaqueSchemes = map[string]bool{"about": true, "blob": true, "data": true}

// normalizeUrl prefixes scheme-less URLs with `http://`, so `example.com` becomes `http://example.com`.
func normalizeUrl(rawUrl string) string {
	rawUrl = strings.TrimSpace(rawUrl)
	if u, err := url.Parse(rawUrl); err == nil && opaqueSchemes[strings.ToLower(u.Scheme)] {
		return rawUrl
	}
	if !strings.Contains(rawUrl, "://") {
		rawUrl = "http://" + rawUrl
	}
	return rawUrl
}

// run executes one invocation of the command & returns its exit code. A nil launch uses Chrome.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, launch capture.LaunchFunc) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		slog.Error("Invalid arguments", tint.Err(err))
		return exitFailure
	}
	if opts.Debug {
		setupLogging(stderr, true)
	}

	// A missing config file is only an error if it was asked for by name.
	conf.Config, err = conf.ReadConfig(opts.ConfigPath)
	if err != nil && (opts.ConfigExplicit || !errors.Is(err, os.ErrNotExist)) {
		slog.Error("Failed to read config", tint.Err(err))
		return exitFailure
	}
	if conf.Config.Debug {
		setupLogging(stderr, true)
	}
	conf.Config.Print()

	if opts.Schedule {
		return runScheduler(ctx, opts)
	}

	if err := opts.Request.Validate(); err != nil {
		slog.Error("Invalid capture request", tint.Err(err))
		if errors.Is(err, capture.ErrInvalidFormat) {
			fmt.Fprintln(stderr, "Usage: shutter [url] (--png | --pdf) [--out=name] [--width=n] [--height=n] [--wait=ms] [--timeout=ms]")
			return exitInvalidFormat
		}
		return exitFailure
	}

	resolver := engine.NewResolver(conf.Config.Browser.ExecPath, *conf.Config.Browser.Download, conf.Config.Browser.DownloadDir)
	lc, err := resolver.Resolve()
	if err != nil {
		slog.Error("No usable browser", tint.Err(err))
		return exitFailure
	}
	slog.Debug("Browser resolved", "engine", lc.Kind, "path", lc.ExecutablePath)

	if launch == nil {
		launch = capture.Chrome{
			Idle: capture.IdleOptions{
				Connections: *conf.Config.Capture.NetworkIdle.Connections,
				Window:      conf.Config.Capture.NetworkIdle.Window,
			},
			Debug: opts.Debug || conf.Config.Debug,
		}.Launch
	}
	pipeline := capture.Pipeline{
		Launch: launch,
		Paths:  output.NewResolver(conf.Config.OutputDir),
		Scroll: capture.ScrollOptions{
			Step:     float64(conf.Config.Capture.Scroll.Step),
			Interval: conf.Config.Capture.Scroll.Interval,
			MaxSteps: conf.Config.Capture.Scroll.MaxSteps,
		},
	}

	artifact, err := pipeline.Capture(ctx, opts.Request, lc)
	if err != nil {
		slog.Error("Capture failed", tint.Err(err), "url", opts.Request.TargetUrl)
		return exitFailure
	}

	fmt.Fprintf(stdout, "%s saved to %s\n", strings.ToUpper(string(artifact.Format)), artifact.Path)
	return exitOK
}

// runScheduler runs every configured job until ctx is cancelled. Each firing re-invokes this
// executable with the job’s args, so a capture that crashes never takes the scheduler down.
func runScheduler(ctx context.Context, opts options) int {
	exe, err := os.Executable()
	if err != nil {
		slog.Error("Failed to locate own executable", tint.Err(err))
		return exitFailure
	}

	runner := scheduler.ExecRunner{Path: exe}
	if exists, _ := core.FileExists(opts.ConfigPath); exists {
		configPath, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			slog.Error("Failed to get path to config file", tint.Err(err))
			return exitFailure
		}
		runner.Args = append(runner.Args, "--config="+configPath)
	}
	if opts.Debug {
		runner.Args = append(runner.Args, "--debug")
	}

	s := scheduler.New(runner.Run)
	for _, job := range conf.Config.Schedule.Jobs {
		if err := s.Add(ctx, job); err != nil {
			slog.Error("Invalid scheduled job", tint.Err(err))
			return exitFailure
		}
	}
	s.Run(ctx)
	return exitOK
}
