package capture

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultIdleConnections = 2
	DefaultIdleWindow      = 500 * time.Millisecond

	idlePollInterval = 20 * time.Millisecond
)

// IdleOptions define when navigation counts as network-quiet: no more than Connections
// requests in flight, continuously, for Window.
type IdleOptions struct {
	Connections int
	Window      time.Duration
}

func DefaultIdleOptions() IdleOptions {
	return IdleOptions{Connections: DefaultIdleConnections, Window: DefaultIdleWindow}
}

// networkIdle counts in-flight requests, fed from browser network events.
type networkIdle struct {
	opts IdleOptions
	now  func() time.Time

	mu         sync.Mutex
	inflight   map[string]struct{}
	quietSince time.Time // zero while busy
}

func newNetworkIdle(opts IdleOptions, now func() time.Time) *networkIdle {
	if now == nil {
		now = time.Now
	}
	return &networkIdle{
		opts:       opts,
		now:        now,
		inflight:   map[string]struct{}{},
		quietSince: now(),
	}
}

func (n *networkIdle) requestStarted(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inflight[id] = struct{}{}
	if len(n.inflight) > n.opts.Connections {
		n.quietSince = time.Time{}
	}
}

func (n *networkIdle) requestFinished(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.inflight, id)
	if len(n.inflight) <= n.opts.Connections && n.quietSince.IsZero() {
		n.quietSince = n.now()
	}
}

func (n *networkIdle) idle() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.quietSince.IsZero() && n.now().Sub(n.quietSince) >= n.opts.Window
}

// wait blocks until the network has been quiet for the configured window, or ctx is done.
func (n *networkIdle) wait(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for !n.idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
