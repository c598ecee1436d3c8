// Package agent is the background network agent: a process with its own
// lifecycle (install, activate, run) that shares nothing with the page
// except the local store. It serves cached responses when the network is
// down and drains the pending-action queue when connectivity returns.
package agent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wesigned/wesigned/internal/client/monitor"
	"github.com/wesigned/wesigned/internal/common"
	"github.com/wesigned/wesigned/internal/logging"
)

// Reconciler drains one sync channel. Implemented by sync.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, channel string) error
}

// State of the agent lifecycle.
type State string

const (
	StateNew       State = "new"
	StateInstalled State = "installed"
	StateActive    State = "active"
)

// Options configures the agent.
type Options struct {
	// SyncInterval is how often the agent retries a drain while online.
	SyncInterval time.Duration

	// AssetBaseURL and WarmAssets describe the static assets pre-cached
	// at install time.
	AssetBaseURL string
	WarmAssets   []string
}

// Agent reacts to connectivity-restored and explicit sync-request signals
// by invoking the reconciler per channel. Concurrent signals for the same
// channel collapse into a single in-flight drain; a drain in progress is
// never cancelled by a later signal.
type Agent struct {
	reconciler Reconciler
	monitor    *monitor.Monitor
	transport  *CachingTransport
	log        logging.Logger
	opts       Options

	mu      sync.RWMutex
	state   State
	signals chan string
	group   singleflight.Group
}

func New(r Reconciler, m *monitor.Monitor, t *CachingTransport, log logging.Logger, opts Options) *Agent {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = time.Minute
	}
	return &Agent{
		reconciler: r,
		monitor:    m,
		transport:  t,
		log:        log,
		opts:       opts,
		state:      StateNew,
		signals:    make(chan string, 16),
	}
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Transport returns the caching transport; the page's HTTP client plugs it
// in so cache-eligible requests get offline fallback behavior.
func (a *Agent) Transport() *CachingTransport {
	return a.transport
}

// Install warms the cache for the configured asset list. A failed asset is
// skipped; install itself only fails on a cancelled context.
func (a *Agent) Install(ctx context.Context) error {
	if err := a.transport.Warm(ctx, a.opts.AssetBaseURL, a.opts.WarmAssets); err != nil {
		return err
	}
	a.setState(StateInstalled)
	a.log.Info(ctx, "agent installed", "warmed_assets", len(a.opts.WarmAssets))
	return nil
}

// RequestSync signals the agent to drain the given channel. Never blocks;
// when the signal buffer is full the drain is already imminent.
func (a *Agent) RequestSync(channel string) {
	select {
	case a.signals <- channel:
	default:
	}
}

// SyncNow drains the channel immediately, collapsing with any concurrent
// drain of the same channel. Reconciliation failures are logged, never
// propagated: from the outside, "try again later" is the only effect.
func (a *Agent) SyncNow(ctx context.Context, channel string) {
	_, _, _ = a.group.Do(channel, func() (any, error) {
		if err := a.reconciler.Reconcile(ctx, channel); err != nil {
			a.log.Warn(ctx, "reconciliation failed, will retry", "channel", channel, "error", err)
		}
		return nil, nil
	})
}

func (a *Agent) syncAll(ctx context.Context) {
	for _, channel := range []string{common.ChannelAttendance, common.ChannelSessions} {
		a.SyncNow(ctx, channel)
	}
}

// Run activates the agent and processes signals until ctx is cancelled:
// transitions to online drain every channel, explicit requests drain one,
// and a periodic tick retries while online.
func (a *Agent) Run(ctx context.Context) error {
	a.setState(StateActive)
	a.log.Info(ctx, "agent active")

	transitions := a.monitor.Subscribe()
	ticker := time.NewTicker(a.opts.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case status := <-transitions:
			if status == monitor.StatusOnline {
				a.log.Info(ctx, "connectivity restored, draining queues")
				a.syncAll(ctx)
			}

		case channel := <-a.signals:
			a.SyncNow(ctx, channel)

		case <-ticker.C:
			if a.monitor.Online() {
				a.syncAll(ctx)
			}

		case <-ctx.Done():
			return nil
		}
	}
}
