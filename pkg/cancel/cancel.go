// Package cancel implements the cancellation-token system (C11): an atomic
// cancel flag with an optional reason and a deadline, a handle offering
// graceful (cleanup-then-cancel) and immediate cancellation, and a
// background reaper that sweeps expired tokens on a fixed tick.
//
// Grounded on original_source's crates/dotvm/runtime/src/async_runtime/
// cancellation.rs, re-expressed with atomic.Bool/atomic.Uint64 in place of
// AtomicBool/AtomicU64 and an owned stop-channel goroutine (per the
// teacher's pkg/scheduler.Scheduler Start/Stop shape) in place of a
// detached std::thread.
package cancel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/synerthink/dotlanth/internal/metrics"
)

// TaskID identifies one cancellable unit of work.
type TaskID = string

// Token is a thread-safe cancellation flag with timeout enforcement.
type Token struct {
	cancelled atomic.Bool
	taskID    TaskID
	createdAt time.Time
	timeout   time.Duration

	mu     sync.Mutex
	reason string
}

// NewToken creates a token for taskID that self-cancels once timeout has
// elapsed, checked lazily on each IsCancelled call.
func NewToken(taskID TaskID, timeout time.Duration) *Token {
	return &Token{taskID: taskID, createdAt: time.Now(), timeout: timeout}
}

// IsCancelled reports the token's cancellation state, first checking
// whether the deadline has passed.
func (t *Token) IsCancelled() bool {
	t.checkTimeout()
	return t.cancelled.Load()
}

// Cancel marks the token cancelled, recording reason if provided.
func (t *Token) Cancel(reason string) {
	if reason != "" {
		t.mu.Lock()
		t.reason = reason
		t.mu.Unlock()
	}
	t.cancelled.Store(true)
}

// Age returns how long ago the token was created.
func (t *Token) Age() time.Duration { return time.Since(t.createdAt) }

// checkTimeout cancels the token with reason "timeout" if its deadline has
// passed, returning whether it did so.
func (t *Token) checkTimeout() bool {
	if t.Age() > t.timeout {
		t.Cancel("timeout")
		return true
	}
	return false
}

// Reason returns the recorded cancellation reason, if any.
func (t *Token) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// metrics accumulates cancellation counters shared by every handle a
// System issues. totalCancelled is always gracefulCancelled +
// timeoutCancelled + every explicit, non-graceful Cancel.
type metrics struct {
	totalCancelled    atomic.Uint64
	gracefulCancelled atomic.Uint64
	timeoutCancelled  atomic.Uint64
	avgLatencyMicros  atomic.Uint64
	maxLatencyMicros  atomic.Uint64
}

// Handle lets a caller cancel the task a Token guards, optionally running
// cleanup first, and feeds latency back into the owning System's metrics.
type Handle struct {
	token   *Token
	metrics *metrics
}

// Cancel marks the token cancelled and bumps the total-cancelled counter.
func (h *Handle) Cancel() {
	h.token.Cancel("")
	h.metrics.totalCancelled.Add(1)
}

// CancelGracefully runs cleanup, then cancels, recording the latency of the
// whole sequence into the system's average/max latency metrics. If cleanup
// returns an error, cancellation still does not happen — the caller must
// retry or call Cancel directly.
func (h *Handle) CancelGracefully(cleanup func() error) error {
	start := time.Now()

	if err := cleanup(); err != nil {
		return err
	}
	h.Cancel()
	h.metrics.gracefulCancelled.Add(1)
	metrics.CancellationsTotal.WithLabelValues("graceful").Inc()

	latency := uint64(time.Since(start).Microseconds())
	for {
		old := h.metrics.avgLatencyMicros.Load()
		if h.metrics.avgLatencyMicros.CompareAndSwap(old, (old+latency)/2) {
			break
		}
	}
	for {
		old := h.metrics.maxLatencyMicros.Load()
		if latency <= old || h.metrics.maxLatencyMicros.CompareAndSwap(old, latency) {
			break
		}
	}
	return nil
}

// Stats is a point-in-time snapshot of a System's cancellation metrics.
type Stats struct {
	Total               uint64
	GracefulCancelCount uint64
	TimeoutCancelCount  uint64
	AvgLatencyMicros    uint64
	MaxLatencyMicros    uint64
}

// System tracks every registered token and runs a background reaper that
// sweeps timed-out tasks on a fixed interval. The reaper is an owned
// resource: call Shutdown to stop it, never leak it.
type System struct {
	mu      sync.Mutex
	handles map[TaskID]*Handle
	metrics *metrics

	tick   time.Duration
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSystem starts a cancellation system with a reaper ticking every 10ms,
// matching the background_cleaner cadence.
func NewSystem() *System {
	return newSystem(10 * time.Millisecond)
}

func newSystem(tick time.Duration) *System {
	s := &System{
		handles: make(map[TaskID]*Handle),
		metrics: &metrics{},
		tick:    tick,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go s.reap()
	return s
}

// reap runs the three-phase maintenance tick: detect timed-out tokens,
// cancel them and bulk-count the cancellations, then prune any handle
// whose token is now cancelled.
func (s *System) reap() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep is the reaper's maintenance tick: checkTimeout already cancels each
// expired token's flag, so the only bookkeeping left here is a single
// fetch_add(n) against the batch — never a per-handle Cancel, which would
// double-count the same n tokens against totalCancelled.
func (s *System) sweep() {
	s.mu.Lock()
	var expired []TaskID
	for id, h := range s.handles {
		if h.token.checkTimeout() {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.metrics.totalCancelled.Add(uint64(len(expired)))
		s.metrics.timeoutCancelled.Add(uint64(len(expired)))
		metrics.CancellationsTotal.WithLabelValues("timeout").Add(float64(len(expired)))
	}

	s.mu.Lock()
	for id, h := range s.handles {
		if h.token.IsCancelled() {
			delete(s.handles, id)
		}
	}
	s.mu.Unlock()
}

// Register creates a token/handle pair for taskID with the given timeout
// and starts tracking it for background timeout enforcement.
func (s *System) Register(taskID TaskID, timeout time.Duration) (*Token, *Handle) {
	token := NewToken(taskID, timeout)
	handle := &Handle{token: token, metrics: s.metrics}

	s.mu.Lock()
	s.handles[taskID] = handle
	s.mu.Unlock()

	return token, handle
}

// CancelTask cancels and removes the handle registered under taskID, a
// no-op if no such task is tracked.
func (s *System) CancelTask(taskID TaskID) {
	s.mu.Lock()
	h, ok := s.handles[taskID]
	delete(s.handles, taskID)
	s.mu.Unlock()
	if ok {
		h.Cancel()
		metrics.CancellationsTotal.WithLabelValues("explicit").Inc()
	}
}

// Stats returns the current cancellation metrics.
func (s *System) Stats() Stats {
	return Stats{
		Total:               s.metrics.totalCancelled.Load(),
		GracefulCancelCount: s.metrics.gracefulCancelled.Load(),
		TimeoutCancelCount:  s.metrics.timeoutCancelled.Load(),
		AvgLatencyMicros:    s.metrics.avgLatencyMicros.Load(),
		MaxLatencyMicros:    s.metrics.maxLatencyMicros.Load(),
	}
}

// Shutdown stops the background reaper and waits for it to exit.
func (s *System) Shutdown() {
	close(s.stopCh)
	<-s.doneCh
}
