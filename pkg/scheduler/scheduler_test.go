package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitTick(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not fire")
	}
}

func noTick(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected tick")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWarmupThenInterval(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock))

	ticked := make(chan struct{}, 10)
	if err := s.Start(context.Background(), func(ctx context.Context) {
		ticked <- struct{}{}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	noTick(t, ticked)

	mock.Add(time.Second)
	waitTick(t, ticked)

	mock.Add(time.Second)
	noTick(t, ticked)

	mock.Add(time.Second)
	waitTick(t, ticked)

	mock.Add(3 * time.Second)
	waitTick(t, ticked)

	if got := s.Ticks(); got != 3 {
		t.Errorf("Ticks() = %d, want 3", got)
	}
}

func TestStopHaltsTicks(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock), WithWarmup(0))

	ticked := make(chan struct{}, 10)
	s.Start(context.Background(), func(ctx context.Context) {
		ticked <- struct{}{}
	})

	mock.Add(3 * time.Second)
	waitTick(t, ticked)

	s.Stop()
	if s.Running() {
		t.Fatal("still running after Stop")
	}

	mock.Add(10 * time.Second)
	noTick(t, ticked)

	// second Stop is a no-op
	s.Stop()
}

func TestStartTwice(t *testing.T) {
	s := New(WithClock(clock.NewMock()))
	fn := func(ctx context.Context) {}

	if err := s.Start(context.Background(), fn); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background(), fn); !errors.Is(err, ErrRunning) {
		t.Fatalf("expected ErrRunning, got %v", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock), WithWarmup(0), WithInterval(time.Second))

	var n atomic.Int32
	ticked := make(chan struct{}, 10)
	fn := func(ctx context.Context) {
		n.Add(1)
		ticked <- struct{}{}
	}

	s.Start(context.Background(), fn)
	mock.Add(time.Second)
	waitTick(t, ticked)
	s.Stop()

	if err := s.Start(context.Background(), fn); err != nil {
		t.Fatalf("restart: %v", err)
	}
	mock.Add(time.Second)
	waitTick(t, ticked)
	s.Stop()

	if n.Load() != 2 {
		t.Errorf("ticks = %d, want 2", n.Load())
	}
}

func TestTicksNeverOverlap(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock), WithWarmup(0), WithInterval(time.Second))

	var active, maxActive atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{}, 10)

	s.Start(context.Background(), func(ctx context.Context) {
		if v := active.Add(1); v > maxActive.Load() {
			maxActive.Store(v)
		}
		entered <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		active.Add(-1)
	})

	mock.Add(time.Second)
	waitTick(t, entered)

	// ticks while the first one is still running are coalesced, not run concurrently
	mock.Add(time.Second)
	mock.Add(time.Second)
	noTick(t, entered)

	close(release)
	s.Stop()

	if maxActive.Load() != 1 {
		t.Errorf("max concurrent ticks = %d, want 1", maxActive.Load())
	}
}

func TestParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(WithClock(clock.NewMock()))
	s.Start(ctx, func(ctx context.Context) {})

	cancel()
	s.Stop()
}
