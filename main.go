package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"chimbori.dev/shutter/conf"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

func main() {
	setupLogging(os.Stderr, false)
	slog.Debug(conf.AppName, "build-timestamp", conf.BuildTimestamp)

	// Variables from `.env` are visible to the browser probes, but never override the real environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", tint.Err(err))
	}

	// Set up a graceful cleanup for when the process is terminated.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// setupLogging installs a console handler on w, printing DEBUG logs only when debug is set.
func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    noColor,
	})))
}
