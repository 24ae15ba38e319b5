// Package scheduler re-runs captures on a recurring schedule, each in a process of its own.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"chimbori.dev/shutter/conf"
	"chimbori.dev/shutter/core"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"
)

// TimestampPlaceholder in a job’s args is replaced with the firing time.
const TimestampPlaceholder = "{timestamp}"

// RunFunc runs one capture with the given command-line arguments, returning once it exits.
type RunFunc func(ctx context.Context, args []string) error

// Scheduler fires registered jobs until its context is cancelled.
// Firings are independent: a failed capture is logged, & never retried or escalated.
type Scheduler struct {
	cron  *cron.Cron
	run   RunFunc
	now   func() time.Time
	names map[cron.EntryID]string
}

func New(run RunFunc) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		run:   run,
		now:   time.Now,
		names: map[cron.EntryID]string{},
	}
}

// Add registers job, to run in its own timezone. Jobs fire with ctx, so cancelling it
// also terminates captures that are still running.
func (s *Scheduler) Add(ctx context.Context, job conf.Job) error {
	if _, err := time.LoadLocation(job.Timezone); err != nil {
		return fmt.Errorf("job %q: unknown timezone %q: %w", job.Name, job.Timezone, err)
	}
	if len(job.Args) == 0 {
		return fmt.Errorf("job %q: no capture arguments", job.Name)
	}

	id, err := s.cron.AddFunc("CRON_TZ="+job.Timezone+" "+job.Cron, func() {
		s.fire(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Cron, err)
	}
	s.names[id] = job.Name
	return nil
}

// Run starts firing jobs & blocks until ctx is cancelled, then waits for running firings to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		slog.Info("job scheduled", "job", s.names[e.ID], "next", e.Next.Format(time.RFC3339))
	}

	<-ctx.Done()
	slog.Info("Scheduler stopping")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) fire(ctx context.Context, job conf.Job) {
	log := slog.With("job", job.Name, "run", uuid.NewString())
	args := expandArgs(job.Args, s.now())
	log.Info("scheduled capture starting", "args", strings.Join(args, " "))

	start := time.Now()
	err := s.run(ctx, args)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Error("scheduled capture failed", tint.Err(err), "exit-code", exitErr.ExitCode(), "elapsed", elapsed)
		} else {
			log.Error("scheduled capture failed", tint.Err(err), "elapsed", elapsed)
		}
		return
	}
	log.Info("scheduled capture finished", "elapsed", elapsed)
}

func expandArgs(args []string, now time.Time) []string {
	ts := core.FileTimestamp(now)
	expanded := make([]string, len(args))
	for i, arg := range args {
		expanded[i] = strings.ReplaceAll(arg, TimestampPlaceholder, ts)
	}
	return expanded
}

// ExecRunner runs captures by invoking an executable, sharing this process’s stdout, stderr
// & environment.
type ExecRunner struct {
	Path string

	// Args precede each job’s own arguments, e.g. to pass along the config file.
	Args []string
}

func (r ExecRunner) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.Path, append(append([]string{}, r.Args...), args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	return cmd.Run()
}

// cronLogger routes the cron library’s logs into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{tint.Err(err)}, keysAndValues...)...)
}
