package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-sensory/internal/log"
	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowd"
	"github.com/teslashibe/go-sensory/pkg/scheduler"
	"github.com/teslashibe/go-sensory/pkg/tts"
	"github.com/teslashibe/go-sensory/pkg/vision"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDevice serves one frame and counts lifecycle calls.
type fakeDevice struct {
	mu       sync.Mutex
	frame    *crowd.Frame
	openErr  error
	opens    int
	closes   int
	captures int
	open     bool

	// closing and unblock, when set, hold Close until unblock is closed.
	closing chan struct{}
	unblock chan struct{}
}

func (d *fakeDevice) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return d.openErr
	}
	d.open = true
	return nil
}

func (d *fakeDevice) Capture(ctx context.Context) (*crowd.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captures++
	if !d.open {
		return nil, capture.ErrNotReady
	}
	return d.frame, nil
}

func (d *fakeDevice) Close() error {
	if d.unblock != nil {
		close(d.closing)
		<-d.unblock
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	d.open = false
	return nil
}

func (d *fakeDevice) counts() (opens, closes, captures int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes, d.captures
}

var _ capture.Device = (*fakeDevice)(nil)

func quietFrame() *crowd.Frame {
	f := crowd.NewFrame(16, 16)
	for i := range f.Pix {
		f.Pix[i] = 200
	}
	return f
}

// busyFrame is half black, half grey 190: twenty people.
func busyFrame() *crowd.Frame {
	f := crowd.NewFrame(32, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			i := (y*32 + x) * 4
			f.Pix[i+3] = 255
			if x >= 16 {
				f.Pix[i], f.Pix[i+1], f.Pix[i+2] = 190, 190, 190
			}
		}
	}
	return f
}

func recorder() (analyzer.Sink, chan *crowd.Analysis) {
	ch := make(chan *crowd.Analysis, 16)
	return analyzer.SinkFunc(func(ctx context.Context, a *crowd.Analysis) { ch <- a }), ch
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func nothing[T any](t *testing.T, ch chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func newSession(dev *fakeDevice, mock *clock.Mock, opts ...Option) *Session {
	base := []Option{
		WithID("test"),
		WithLogger(log.Discard()),
		WithSchedulerOptions(scheduler.WithClock(mock)),
	}
	return New(dev, append(base, opts...)...)
}

func TestStartFailsWhenCameraUnavailable(t *testing.T) {
	denied := errors.New("permission denied")
	dev := &fakeDevice{frame: quietFrame(), openErr: denied}
	mock := clock.NewMock()
	s := newSession(dev, mock)

	err := s.Start(context.Background())
	var rerr *ResourceError
	if !errors.As(err, &rerr) || rerr.Resource != "camera" {
		t.Fatalf("Start error = %v, want ResourceError", err)
	}
	if !errors.Is(err, denied) {
		t.Errorf("error does not wrap cause: %v", err)
	}
	if s.Running() {
		t.Error("session running after failed start")
	}

	mock.Add(10 * time.Second)
	if _, _, captures := dev.counts(); captures != 0 {
		t.Errorf("captures = %d, want 0", captures)
	}
}

func TestSessionLifecycle(t *testing.T) {
	dev := &fakeDevice{frame: busyFrame()}
	mock := clock.NewMock()
	sink, got := recorder()
	s := newSession(dev, mock, WithAnalyzerOptions(analyzer.WithSink(sink)))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start = %v, want ErrRunning", err)
	}

	mock.Add(time.Second)
	a := receive(t, got)
	if a.PeopleCount != 20 || a.CrowdDensity != crowd.DensityHigh {
		t.Errorf("analysis = %+v", a)
	}
	if s.Analyzer().Latest() == nil {
		t.Error("no latest analysis")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Running() {
		t.Error("still running")
	}
	if s.Analyzer().Latest() != nil {
		t.Error("analysis survived Stop")
	}
	opens, closes, _ := dev.counts()
	if opens != 1 || closes != 1 {
		t.Errorf("opens/closes = %d/%d", opens, closes)
	}

	mock.Add(10 * time.Second)
	nothing(t, got)

	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	// restart reopens the device
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	mock.Add(time.Second)
	receive(t, got)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if opens, _, _ := dev.counts(); opens != 2 {
		t.Errorf("opens = %d, want 2", opens)
	}
}

func TestStopDiscardsInFlightEnrichment(t *testing.T) {
	dev := &fakeDevice{frame: busyFrame()}
	mock := clock.NewMock()
	sink, got := recorder()

	started := make(chan struct{})
	release := make(chan struct{})
	enricher := &vision.Mock{AnalyzeFunc: func(ctx context.Context, jpeg []byte) (*vision.Report, error) {
		close(started)
		<-release
		return &vision.Report{SpatialGuidance: "late"}, nil
	}}

	s := newSession(dev, mock, WithAnalyzerOptions(
		analyzer.WithSink(sink),
		analyzer.WithEnricher(enricher),
	))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mock.Add(time.Second)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("enrichment did not start")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	close(release)
	s.Wait()

	nothing(t, got)
	if s.Analyzer().Latest() != nil {
		t.Error("late result was committed")
	}
	if enricher.Calls() != 1 {
		t.Errorf("enricher calls = %d", enricher.Calls())
	}
}

func TestStopIgnoresEnrichmentFinishingDuringClose(t *testing.T) {
	dev := &fakeDevice{
		frame:   busyFrame(),
		closing: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	mock := clock.NewMock()
	sink, got := recorder()

	started := make(chan struct{})
	release := make(chan struct{})
	enricher := &vision.Mock{AnalyzeFunc: func(ctx context.Context, jpeg []byte) (*vision.Report, error) {
		close(started)
		<-release
		return &vision.Report{SpatialGuidance: "late"}, nil
	}}

	s := newSession(dev, mock, WithAnalyzerOptions(
		analyzer.WithSink(sink),
		analyzer.WithEnricher(enricher),
	))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mock.Add(time.Second)
	receive(t, started)

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()
	receive(t, dev.closing)

	// enrichment lands while the camera is still closing
	close(release)
	s.Wait()
	nothing(t, got)
	if s.Analyzer().Latest() != nil {
		t.Error("enrichment committed after Stop began")
	}

	close(dev.unblock)
	if err := receive(t, stopped); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

type announcement struct {
	status crowd.Status
	clip   *tts.Audio
}

func TestAnnouncesStatusChanges(t *testing.T) {
	dev := &fakeDevice{frame: quietFrame()}
	mock := clock.NewMock()
	voice := tts.NewMock()
	narrator := tts.NewNarrator(voice, tts.NewMemoryStore(4), tts.WithNarratorLogger(log.Discard()))

	heard := make(chan announcement, 4)
	s := newSession(dev, mock,
		WithNarrator(narrator),
		WithAnnouncements(func(st crowd.Status, clip *tts.Audio) {
			heard <- announcement{st, clip}
		}),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mock.Add(time.Second)
	a := receive(t, heard)
	if a.status != crowd.StatusSafe || string(a.clip.Data) != "ID3Area is comfortable" {
		t.Errorf("announcement = %s %q", a.status, a.clip.Data)
	}

	// same badge, no repeat
	mock.Add(3 * time.Second)
	nothing(t, heard)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := narrator.Speak(context.Background(), "after close"); !errors.Is(err, tts.ErrClosed) {
		t.Errorf("Speak after Close = %v, want ErrClosed", err)
	}
	if n := len(voice.Texts()); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
}

func TestNarrate(t *testing.T) {
	s := New(&fakeDevice{}, WithLogger(log.Discard()))
	if _, err := s.Narrate(context.Background(), "hello"); !errors.Is(err, ErrNoNarrator) {
		t.Errorf("Narrate without narrator = %v", err)
	}
	if s.ID() == "" {
		t.Error("empty generated id")
	}

	voice := tts.NewMock()
	s = New(&fakeDevice{}, WithLogger(log.Discard()),
		WithNarrator(tts.NewNarrator(voice, tts.NewMemoryStore(4), tts.WithNarratorLogger(log.Discard()))))
	for i := 0; i < 2; i++ {
		clip, err := s.Narrate(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Narrate: %v", err)
		}
		if string(clip.Data) != "ID3hello" {
			t.Errorf("clip = %q", clip.Data)
		}
	}
	if n := len(voice.Texts()); n != 1 {
		t.Errorf("provider calls = %d, want 1 (cached)", n)
	}
}
