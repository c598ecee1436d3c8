package agent

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesigned/wesigned/internal/agent/cache"
	"github.com/wesigned/wesigned/internal/client/monitor"
	"github.com/wesigned/wesigned/internal/common"
	"github.com/wesigned/wesigned/internal/logging"
)

type fakeReconciler struct {
	mu       sync.Mutex
	channels []string
	calls    atomic.Int32
	block    chan struct{}
}

func (f *fakeReconciler) Reconcile(ctx context.Context, channel string) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.channels = append(f.channels, channel)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return nil
}

func (f *fakeReconciler) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.channels))
	copy(out, f.channels)
	return out
}

type alwaysOnline struct{}

func (alwaysOnline) Ping(ctx context.Context) error { return nil }

func newTestAgent(rec Reconciler) (*Agent, *monitor.Monitor) {
	log := logging.NewDefault()
	m := monitor.New(alwaysOnline{}, time.Hour, log)
	transport := NewCachingTransport(http.DefaultTransport, cache.NewMemoryCache(), "http://app/offline.html", log)
	a := New(rec, m, transport, log, Options{SyncInterval: time.Hour})
	return a, m
}

func TestOnlineTransitionDrainsAllChannels(t *testing.T) {
	rec := &fakeReconciler{}
	a, m := newTestAgent(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.State() == StateActive }, time.Second, 5*time.Millisecond)

	m.Set(ctx, monitor.StatusOnline)

	require.Eventually(t, func() bool { return rec.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{common.ChannelAttendance, common.ChannelSessions}, rec.seen())
}

func TestOfflineTransitionDoesNotDrain(t *testing.T) {
	rec := &fakeReconciler{}
	a, m := newTestAgent(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	m.Set(ctx, monitor.StatusOffline)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.calls.Load())
}

func TestRequestSyncDrainsOneChannel(t *testing.T) {
	rec := &fakeReconciler{}
	a, _ := newTestAgent(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	a.RequestSync(common.ChannelAttendance)

	require.Eventually(t, func() bool { return rec.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{common.ChannelAttendance}, rec.seen())
}

func TestConcurrentSignalsCollapse(t *testing.T) {
	rec := &fakeReconciler{block: make(chan struct{})}
	a, _ := newTestAgent(rec)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.SyncNow(ctx, common.ChannelAttendance)
		}()
	}

	// let all three goroutines pile onto the same in-flight drain
	require.Eventually(t, func() bool { return rec.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(rec.block)
	wg.Wait()

	assert.Equal(t, int32(1), rec.calls.Load(), "one in-flight drain, no double submission")
}

func TestStateSafeForConcurrentReads(t *testing.T) {
	rec := &fakeReconciler{}
	a, _ := newTestAgent(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = a.State()
			}
		}()
	}

	require.NoError(t, a.Install(ctx))
	go func() { _ = a.Run(ctx) }()

	wg.Wait()
	require.Eventually(t, func() bool { return a.State() == StateActive }, time.Second, 5*time.Millisecond)
}

func TestInstallSetsState(t *testing.T) {
	rec := &fakeReconciler{}
	a, _ := newTestAgent(rec)

	// no assets configured: warm is a no-op
	require.NoError(t, a.Install(context.Background()))
	assert.Equal(t, StateInstalled, a.State())
}
