// Package scheduler drives periodic analysis ticks.
//
// A Scheduler fires one warm-up tick shortly after Start and then one tick
// per interval. Ticks run on a single goroutine so they never overlap, and
// Stop does not return until that goroutine has exited. The clock is
// injectable so tests can advance time by hand.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Default timings.
const (
	DefaultWarmup   = time.Second
	DefaultInterval = 3 * time.Second
)

// ErrRunning is returned by Start when the scheduler is already running.
var ErrRunning = errors.New("scheduler: already running")

// TickFunc is called once per tick with the scheduler's context.
type TickFunc func(ctx context.Context)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithWarmup sets the delay before the one-shot warm-up tick.
// Zero disables the warm-up tick.
func WithWarmup(d time.Duration) Option {
	return func(s *Scheduler) { s.warmup = d }
}

// WithInterval sets the period between regular ticks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// Scheduler owns one tick loop at a time.
type Scheduler struct {
	clock    clock.Clock
	warmup   time.Duration
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	ticks   uint64
	running bool
}

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    clock.New(),
		warmup:   DefaultWarmup,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// Start launches the tick loop. The warm-up timer and the interval ticker
// are both armed before Start returns.
func (s *Scheduler) Start(ctx context.Context, fn TickFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	var warm *clock.Timer
	if s.warmup > 0 {
		warm = s.clock.Timer(s.warmup)
	}
	ticker := s.clock.Ticker(s.interval)

	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, fn, warm, ticker, s.done)

	s.logger.Debug("started", "warmup", s.warmup, "interval", s.interval)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, fn TickFunc, warm *clock.Timer, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	var warmC <-chan time.Time
	if warm != nil {
		defer warm.Stop()
		warmC = warm.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-warmC:
			warmC = nil
			s.fire(ctx, fn)
		case <-ticker.C:
			s.fire(ctx, fn)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, fn TickFunc) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()
	fn(ctx)
}

// Stop halts both timers and waits for the loop to exit.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Debug("stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ticks returns how many ticks have fired since New.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}
