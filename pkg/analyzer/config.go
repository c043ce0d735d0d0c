package analyzer

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-sensory/pkg/vision"
)

// Config holds analyzer configuration.
type Config struct {
	// Enricher is consulted when at least one person is estimated.
	// Nil disables enrichment.
	Enricher vision.Enricher

	// EnrichTimeout bounds each enrichment call.
	EnrichTimeout time.Duration

	// JPEGQuality is used to encode frames for the enricher.
	JPEGQuality int

	// Sinks receive committed analyses in order.
	Sinks []Sink

	Logger *slog.Logger
}

// Option is a functional option for configuring the analyzer.
type Option func(*Config)

// WithEnricher sets the vision enricher.
func WithEnricher(e vision.Enricher) Option {
	return func(c *Config) { c.Enricher = e }
}

// WithEnrichTimeout bounds each enrichment call.
func WithEnrichTimeout(d time.Duration) Option {
	return func(c *Config) { c.EnrichTimeout = d }
}

// WithJPEGQuality sets the encoding quality for enrichment frames.
func WithJPEGQuality(q int) Option {
	return func(c *Config) {
		if q >= 1 && q <= 100 {
			c.JPEGQuality = q
		}
	}
}

// WithSink appends a sink.
func WithSink(s Sink) Option {
	return func(c *Config) { c.Sinks = append(c.Sinks, s) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults: no enricher, 10s timeout, quality 70.
func DefaultConfig() *Config {
	return &Config{
		EnrichTimeout: 10 * time.Second,
		JPEGQuality:   70,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
