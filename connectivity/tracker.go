// Package connectivity tracks consecutive network failures, derives an
// exponential backoff window from them, and answers whether the host is
// currently offline using a rate-limited probe.
package connectivity

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseDelay     = 30 * time.Second
	DefaultMaxDelay      = 30 * time.Minute
	DefaultProbeInterval = 5 * time.Minute
	DefaultProbeTimeout  = 5 * time.Second
)

// State is a snapshot of the failure counters.
type State struct {
	ConsecutiveFailures int
	LastFailureTime     time.Time
}

// BackoffDelay returns min(ceiling, base * 2^ConsecutiveFailures), or zero
// when there are no failures.
func (s State) BackoffDelay(base, ceiling time.Duration) time.Duration {
	if s.ConsecutiveFailures <= 0 {
		return 0
	}
	d := float64(base) * math.Pow(2, float64(s.ConsecutiveFailures))
	if d >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

// Prober checks whether the network is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Tracker is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	state State

	baseDelay     time.Duration
	maxDelay      time.Duration
	probeInterval time.Duration
	probeTimeout  time.Duration

	prober      Prober
	lastProbe   time.Time
	probeOnline bool
	probed      bool

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithBaseDelay(d time.Duration) Option {
	return func(t *Tracker) { t.baseDelay = d }
}

func WithMaxDelay(d time.Duration) Option {
	return func(t *Tracker) { t.maxDelay = d }
}

// WithProbeInterval sets how long a probe result is reused.
func WithProbeInterval(d time.Duration) Option {
	return func(t *Tracker) { t.probeInterval = d }
}

func WithProber(p Prober) Option {
	return func(t *Tracker) { t.prober = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a Tracker. Without WithProber it dials the default
// probe targets over TCP.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		baseDelay:     DefaultBaseDelay,
		maxDelay:      DefaultMaxDelay,
		probeInterval: DefaultProbeInterval,
		probeTimeout:  DefaultProbeTimeout,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.prober == nil {
		t.prober = NewDialProber(DefaultProbeTargets...)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

// RecordFailure counts one more consecutive network failure.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.ConsecutiveFailures++
	t.state.LastFailureTime = t.now()
	t.logger.Debug("network failure recorded",
		zap.Int("consecutive_failures", t.state.ConsecutiveFailures),
		zap.Duration("backoff", t.state.BackoffDelay(t.baseDelay, t.maxDelay)))
}

// RecordSuccess resets the failure counters.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.ConsecutiveFailures > 0 {
		t.logger.Debug("network recovered", zap.Int("after_failures", t.state.ConsecutiveFailures))
	}
	t.state = State{}
}

// State returns a snapshot of the counters.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// BackoffDelay returns the current backoff window length.
func (t *Tracker) BackoffDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.BackoffDelay(t.baseDelay, t.maxDelay)
}

// InBackoff reports whether the last failure is recent enough that
// another network attempt should be skipped.
func (t *Tracker) InBackoff() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked() > 0
}

// Remaining returns how long the current backoff window still lasts.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

func (t *Tracker) remainingLocked() time.Duration {
	delay := t.state.BackoffDelay(t.baseDelay, t.maxDelay)
	if delay == 0 {
		return 0
	}
	elapsed := t.now().Sub(t.state.LastFailureTime)
	if elapsed >= delay {
		return 0
	}
	return delay - elapsed
}

// IsOnline probes the network at most once per probe interval and
// returns the cached answer in between.
func (t *Tracker) IsOnline(ctx context.Context) bool {
	t.mu.Lock()
	if t.probed && t.now().Sub(t.lastProbe) < t.probeInterval {
		online := t.probeOnline
		t.mu.Unlock()
		return online
	}
	t.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	defer cancel()
	err := t.prober.Probe(probeCtx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.probed = true
	t.lastProbe = t.now()
	t.probeOnline = err == nil
	if err != nil {
		t.logger.Info("network connectivity probe failed, treating as offline", zap.Error(err))
	}
	return t.probeOnline
}

// Invalidate forgets the cached probe result.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probed = false
}
