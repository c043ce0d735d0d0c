// Package analyzer runs one crowd analysis pass per tick.
//
// A pass captures a frame, samples it, estimates and classifies the head
// count, and, when people were seen, asks an optional vision enricher for
// spatial guidance. Each pass is numbered; a pass only becomes the latest
// analysis if no newer pass has been committed before it, so a slow
// enrichment never overwrites a fresher result.
package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// ErrNoSource is returned by Analyze when no capture source is configured.
var ErrNoSource = errors.New("analyzer: no capture source")

// Sink receives every committed analysis, in commit order.
type Sink interface {
	Publish(ctx context.Context, a *crowd.Analysis)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a *crowd.Analysis)

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, a *crowd.Analysis) { f(ctx, a) }

// Result describes one finished pass.
type Result struct {
	Seq       uint64
	Analysis  *crowd.Analysis
	Stats     crowd.Stats
	Committed bool
	At        time.Time
}

// pass is the state of one analysis between sampling and commit.
type pass struct {
	seq      uint64
	epoch    uint64
	frame    *crowd.Frame
	analysis *crowd.Analysis
	stats    crowd.Stats
}

// Analyzer owns the sequencing state for one capture session.
type Analyzer struct {
	source capture.Source
	config *Config
	logger *slog.Logger

	// sampleMu serializes capture and sampling.
	sampleMu sync.Mutex

	// publishMu keeps sink delivery in commit order.
	publishMu sync.Mutex

	mu        sync.Mutex
	seq       uint64
	committed uint64
	epoch     uint64
	latest    *Result

	inflight sync.WaitGroup
}

// New creates an analyzer reading from source. source may be nil when
// only AnalyzeFrame is used.
func New(source capture.Source, opts ...Option) *Analyzer {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &Analyzer{
		source: source,
		config: cfg,
		logger: cfg.Logger.With("component", "analyzer"),
	}
}

// Analyze runs a full pass synchronously, including enrichment.
func (a *Analyzer) Analyze(ctx context.Context) (*Result, error) {
	if a.source == nil {
		return nil, ErrNoSource
	}
	p, err := a.sample(ctx, a.source.Capture)
	if err != nil {
		return nil, err
	}
	a.enrich(ctx, p)
	return a.commit(ctx, p), nil
}

// AnalyzeFrame runs a full pass on a caller-supplied frame.
func (a *Analyzer) AnalyzeFrame(ctx context.Context, f *crowd.Frame) (*Result, error) {
	p, err := a.sample(ctx, func(context.Context) (*crowd.Frame, error) { return f, nil })
	if err != nil {
		return nil, err
	}
	a.enrich(ctx, p)
	return a.commit(ctx, p), nil
}

// Tick is the scheduler entry point. Sampling and classification run
// inline; enrichment runs in the background so the next tick is never
// held up by a slow external call. Frames that are not ready are skipped.
func (a *Analyzer) Tick(ctx context.Context) {
	if a.source == nil {
		return
	}
	p, err := a.sample(ctx, a.source.Capture)
	if err != nil {
		if capture.IsNotReady(err) {
			a.logger.Debug("frame not ready, skipping tick")
		} else {
			a.logger.Warn("capture failed", "error", err)
		}
		return
	}

	if !a.wantsEnrichment(p) {
		a.commit(ctx, p)
		return
	}

	// The pass outlives the tick context so Stop never cancels an
	// in-flight call; Reset makes sure its result is dropped instead.
	bg := context.WithoutCancel(ctx)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		a.enrich(bg, p)
		a.commit(bg, p)
	}()
}

func (a *Analyzer) sample(ctx context.Context, capt func(context.Context) (*crowd.Frame, error)) (*pass, error) {
	a.sampleMu.Lock()
	defer a.sampleMu.Unlock()

	frame, err := capt(ctx)
	if err != nil {
		return nil, err
	}
	analysis, stats, err := crowd.AnalyzeFrame(frame)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.seq++
	p := &pass{seq: a.seq, epoch: a.epoch, frame: frame, analysis: analysis, stats: stats}
	a.mu.Unlock()

	a.logger.Debug("sampled",
		"seq", p.seq,
		"variance", stats.Variance,
		"people", analysis.PeopleCount,
		"density", analysis.CrowdDensity,
	)
	return p, nil
}

func (a *Analyzer) wantsEnrichment(p *pass) bool {
	return a.config.Enricher != nil && p.analysis.PeopleCount > 0
}

// enrich attaches spatial guidance to p. Every failure is logged and
// swallowed; the pass then commits without guidance.
func (a *Analyzer) enrich(ctx context.Context, p *pass) {
	if !a.wantsEnrichment(p) {
		return
	}

	jpeg, err := EncodeJPEG(p.frame, a.config.JPEGQuality)
	if err != nil {
		a.logger.Debug("encode frame failed", "seq", p.seq, "error", err)
		return
	}

	if a.config.EnrichTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.EnrichTimeout)
		defer cancel()
	}

	start := time.Now()
	report, err := a.config.Enricher.Analyze(ctx, jpeg)
	if err != nil {
		a.logger.Debug("enrichment failed", "seq", p.seq, "error", err)
		return
	}
	report.Enrich(p.analysis)

	a.logger.Debug("enriched",
		"seq", p.seq,
		"latency_ms", time.Since(start).Milliseconds(),
		"guidance", p.analysis.HasGuidance(),
	)
}

// commit makes p the latest analysis if it is newer than the last
// committed pass and the analyzer was not reset since p was sampled.
func (a *Analyzer) commit(ctx context.Context, p *pass) *Result {
	res := &Result{Seq: p.seq, Analysis: p.analysis, Stats: p.stats, At: time.Now()}

	a.publishMu.Lock()
	defer a.publishMu.Unlock()

	a.mu.Lock()
	if p.epoch != a.epoch || p.seq <= a.committed {
		a.mu.Unlock()
		a.logger.Debug("discarding stale analysis", "seq", p.seq)
		return res
	}
	a.committed = p.seq
	res.Committed = true
	a.latest = res
	a.mu.Unlock()

	for _, s := range a.config.Sinks {
		s.Publish(ctx, p.analysis)
	}
	return res
}

// AddSink registers s for every future commit.
func (a *Analyzer) AddSink(s Sink) {
	a.publishMu.Lock()
	a.config.Sinks = append(a.config.Sinks, s)
	a.publishMu.Unlock()
}

// Latest returns a copy of the most recent committed analysis, or nil.
func (a *Analyzer) Latest() *crowd.Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		return nil
	}
	return a.latest.Analysis.Clone()
}

// LatestResult returns the most recent committed result, or nil.
func (a *Analyzer) LatestResult() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		return nil
	}
	r := *a.latest
	r.Analysis = r.Analysis.Clone()
	return &r
}

// Reset forgets the latest analysis. Passes sampled before Reset are
// dropped when they finish. A commit already delivering to sinks
// completes before Reset returns.
func (a *Analyzer) Reset() {
	a.publishMu.Lock()
	defer a.publishMu.Unlock()
	a.mu.Lock()
	a.epoch++
	a.latest = nil
	a.mu.Unlock()
}

// Wait blocks until every background enrichment has finished.
func (a *Analyzer) Wait() {
	a.inflight.Wait()
}

// EncodeJPEG encodes f at the given quality (1-100).
func EncodeJPEG(f *crowd.Frame, quality int) ([]byte, error) {
	if !f.Ready() {
		return nil, crowd.ErrFrameNotReady
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.Image(), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
