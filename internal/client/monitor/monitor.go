// Package monitor owns the application's belief about online/offline state.
// The belief is explicit state behind a subscribe/query interface, never a
// bare shared variable; transitions are the only trigger for reconciliation.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/wesigned/wesigned/internal/logging"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

const probeTimeout = 3 * time.Second

// Prober reports server reachability. Satisfied by api.Client.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor periodically probes the server and publishes status transitions
// to subscribers. Set allows the page (or a test) to inject a synthetic
// transition. Safe for concurrent use.
type Monitor struct {
	prober   Prober
	interval time.Duration
	log      logging.Logger

	mu     sync.RWMutex
	status Status
	subs   []chan Status
}

func New(p Prober, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{prober: p, interval: interval, log: log, status: StatusUnknown}
}

// Status returns the current belief.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Online reports whether the current belief is "online".
func (m *Monitor) Online() bool {
	return m.Status() == StatusOnline
}

// Subscribe returns a channel that receives every subsequent status
// transition. Slow subscribers miss transitions rather than blocking the
// monitor; the current belief is always available via Status.
func (m *Monitor) Subscribe() <-chan Status {
	ch := make(chan Status, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Set records a transition and notifies subscribers. Setting the current
// status again is a no-op.
func (m *Monitor) Set(ctx context.Context, status Status) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	subs := make([]chan Status, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.log.Info(ctx, "connectivity changed", "status", string(status))
	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Run probes the server immediately and then every interval until ctx is
// cancelled, updating the belief after each probe. The initial probe means
// the belief never stays "unknown" for a full interval after startup.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)

		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := m.prober.Ping(probeCtx)
	cancel()

	if err != nil {
		m.Set(ctx, StatusOffline)
	} else {
		m.Set(ctx, StatusOnline)
	}
}
