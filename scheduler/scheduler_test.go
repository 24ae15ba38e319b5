package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"sync"
	"testing"
	"time"

	"chimbori.dev/shutter/conf"
)

// recorder is a RunFunc that records every invocation.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recorder) run(ctx context.Context, args []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestExpandArgs(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("CST", 8*60*60))
	got := expandArgs(conf.DefaultJob.Args, now)
	want := []string{"http://127.0.0.1:3333", "--png", "--out=after-login-2026-10-19T04-00-00-000Z.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandArgs() = %v, want %v", got, want)
	}
	if conf.DefaultJob.Args[2] != "--out=after-login-{timestamp}.png" {
		t.Error("Expected the job’s own args to be left untouched")
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	s := New((&recorder{}).run)

	if err := s.Add(ctx, conf.DefaultJob); err != nil {
		t.Errorf("Expected default job to be accepted, got %v", err)
	}

	tests := []struct {
		name string
		job  conf.Job
	}{
		{"bad cron", conf.Job{Name: "x", Cron: "61 * * * *", Timezone: "UTC", Args: []string{"a"}}},
		{"bad timezone", conf.Job{Name: "x", Cron: "0 12 * * *", Timezone: "Mars/Olympus", Args: []string{"a"}}},
		{"no args", conf.Job{Name: "x", Cron: "0 12 * * *", Timezone: "UTC"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Add(ctx, tt.job); err == nil {
				t.Errorf("Expected %+v to be rejected", tt.job)
			}
		})
	}
}

func TestNextRunInJobTimezone(t *testing.T) {
	s := New((&recorder{}).run)
	if err := s.Add(context.Background(), conf.DefaultJob); err != nil {
		t.Fatal(err)
	}
	s.cron.Start()
	defer s.cron.Stop()

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected one entry, got %d", len(entries))
	}
	shanghai, _ := time.LoadLocation("Asia/Shanghai")
	next := entries[0].Next.In(shanghai)
	if next.Hour() != 12 || next.Minute() != 0 {
		t.Errorf("Expected next run at 12:00 Asia/Shanghai, got %s", next)
	}
}

func TestFire_FailureDoesNotStopLaterFirings(t *testing.T) {
	rec := &recorder{err: errors.New("capture exited with code 1")}
	s := New(rec.run)
	job := conf.Job{Name: "flaky", Cron: "@every 1s", Timezone: "UTC", Args: []string{"example.com", "--png", "--out=x-{timestamp}.png"}}
	if err := s.Add(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(10 * time.Second)
	for rec.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected repeated firings despite failures, got %d", rec.count())
		case <-time.After(50 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Run to return after cancellation")
	}
}

func TestFire_PassesExpandedArgs(t *testing.T) {
	rec := &recorder{}
	s := New(rec.run)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }

	s.fire(context.Background(), conf.DefaultJob)

	if rec.count() != 1 {
		t.Fatalf("Expected one run, got %d", rec.count())
	}
	if got := rec.calls[0][2]; got != "--out=after-login-2026-01-02T03-04-05-006Z.png" {
		t.Errorf("Unexpected output arg %q", got)
	}
}

// TestHelperProcess stands in for the capture binary when run by ExecRunner tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("SHUTTER_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) > 0 && args[0] == "fail" {
		fmt.Fprintln(os.Stderr, "capture failed")
		os.Exit(3)
	}
	os.Exit(0)
}

func TestExecRunner(t *testing.T) {
	t.Setenv("SHUTTER_WANT_HELPER_PROCESS", "1")
	runner := ExecRunner{Path: os.Args[0], Args: []string{"-test.run=TestHelperProcess", "--"}}

	t.Run("success", func(t *testing.T) {
		if err := runner.Run(context.Background(), []string{"ok"}); err != nil {
			t.Errorf("Expected success, got %v", err)
		}
	})

	t.Run("exit code is reported", func(t *testing.T) {
		err := runner.Run(context.Background(), []string{"fail"})
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("Expected *exec.ExitError, got %v", err)
		}
		if exitErr.ExitCode() != 3 {
			t.Errorf("Expected exit code 3, got %d", exitErr.ExitCode())
		}
	})

	t.Run("missing executable", func(t *testing.T) {
		missing := ExecRunner{Path: "/nonexistent/shutter"}
		if err := missing.Run(context.Background(), []string{"x"}); err == nil {
			t.Error("Expected error for missing executable")
		}
	})
}
