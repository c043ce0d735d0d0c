// Package session ties one capture device to the periodic crowd analysis
// loop and the narration cache for as long as the user keeps the camera on.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowd"
	"github.com/teslashibe/go-sensory/pkg/scheduler"
	"github.com/teslashibe/go-sensory/pkg/tts"
)

var (
	// ErrRunning is returned by Start on a session that is already running.
	ErrRunning = errors.New("session: already running")

	// ErrNoNarrator is returned by Narrate when no narrator was configured.
	ErrNoNarrator = errors.New("session: narration not configured")
)

// ResourceError reports a device that could not be acquired.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// AudioFunc receives narrated status announcements.
type AudioFunc func(status crowd.Status, clip *tts.Audio)

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithAnalyzerOptions passes options to the session's analyzer.
func WithAnalyzerOptions(opts ...analyzer.Option) Option {
	return func(s *Session) { s.analyzerOpts = append(s.analyzerOpts, opts...) }
}

// WithSchedulerOptions passes options to the session's scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *Session) { s.schedulerOpts = append(s.schedulerOpts, opts...) }
}

// WithNarrator attaches the narration cache owned by this session.
func WithNarrator(n *tts.Narrator) Option {
	return func(s *Session) { s.narrator = n }
}

// WithAnnouncements speaks the status advice whenever the badge changes
// and hands the clip to fn. It requires a narrator.
func WithAnnouncements(fn AudioFunc) Option {
	return func(s *Session) { s.onAudio = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is one capture session.
type Session struct {
	id            string
	device        capture.Device
	analyzer      *analyzer.Analyzer
	scheduler     *scheduler.Scheduler
	narrator      *tts.Narrator
	onAudio       AudioFunc
	logger        *slog.Logger
	analyzerOpts  []analyzer.Option
	schedulerOpts []scheduler.Option

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	lastStatus crowd.Status
	announcing sync.WaitGroup
}

// New creates a session around device. Nothing is opened until Start.
func New(device capture.Device, opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		device: device,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session", "session_id", s.id)

	aopts := append([]analyzer.Option{analyzer.WithLogger(s.logger)}, s.analyzerOpts...)
	s.analyzer = analyzer.New(device, aopts...)
	if s.narrator != nil && s.onAudio != nil {
		s.analyzer.AddSink(analyzer.SinkFunc(s.announce))
	}

	sopts := append([]scheduler.Option{scheduler.WithLogger(s.logger)}, s.schedulerOpts...)
	s.scheduler = scheduler.New(sopts...)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Analyzer returns the session's analyzer.
func (s *Session) Analyzer() *analyzer.Analyzer { return s.analyzer }

// Running reports whether the session is started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start opens the device and starts the analysis loop. If the device
// cannot be opened a *ResourceError is returned and nothing is sampled.
// ctx bounds opening the device only; the loop runs until Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}

	if err := s.device.Open(ctx); err != nil {
		s.logger.Warn("camera unavailable", "error", err)
		return &ResourceError{Resource: "camera", Err: err}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := s.scheduler.Start(runCtx, s.analyzer.Tick); err != nil {
		cancel()
		s.device.Close()
		return err
	}

	s.cancel = cancel
	s.running = true
	s.logger.Info("session started")
	return nil
}

// Stop halts the loop, releases the device and forgets the session's
// analysis and narration state. It returns once no further tick can
// start. Enrichment already in flight finishes in the background and its
// result is discarded.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.lastStatus = ""
	s.mu.Unlock()

	s.scheduler.Stop()
	cancel()
	// Enrichment finishing from here on is stale.
	s.analyzer.Reset()

	var errs []error
	if err := s.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}

	s.announcing.Wait()
	if s.narrator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.narrator.Reset(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reset narration: %w", err))
		}
		cancel()
	}

	s.logger.Info("session stopped")
	return errors.Join(errs...)
}

// Wait blocks until background enrichment started by this session has
// finished.
func (s *Session) Wait() {
	s.analyzer.Wait()
}

// Close stops the session and disposes of the narrator.
func (s *Session) Close() error {
	err := s.Stop()
	s.Wait()
	if s.narrator != nil {
		err = errors.Join(err, s.narrator.Close())
	}
	return err
}

// Narrate speaks text through the session's narration cache.
func (s *Session) Narrate(ctx context.Context, text string) (*tts.Audio, error) {
	if s.narrator == nil {
		return nil, ErrNoNarrator
	}
	return s.narrator.Speak(ctx, text)
}

// announce runs as an analyzer sink. Synthesis happens off the commit
// path so a slow voice API never delays other sinks.
func (s *Session) announce(ctx context.Context, a *crowd.Analysis) {
	st := a.Status()

	s.mu.Lock()
	if !s.running || st.Label == s.lastStatus {
		s.mu.Unlock()
		return
	}
	s.lastStatus = st.Label
	s.announcing.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.announcing.Done()
		clip, err := s.narrator.Speak(ctx, st.Advice)
		if err != nil {
			s.logger.Debug("announcement failed", "status", st.Label, "error", err)
			return
		}
		s.onAudio(st.Label, clip)
	}()
}
