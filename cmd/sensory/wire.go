package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-sensory/internal/config"
	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/capture/webcam"
	"github.com/teslashibe/go-sensory/pkg/events"
	"github.com/teslashibe/go-sensory/pkg/prefs"
	"github.com/teslashibe/go-sensory/pkg/scheduler"
	"github.com/teslashibe/go-sensory/pkg/tts"
	"github.com/teslashibe/go-sensory/pkg/vision"
	"github.com/teslashibe/go-sensory/pkg/vision/detect"
)

// newEnricher builds the vision chain: Gemini (SDK or REST), then the
// remote server, then the local person detector, each only if configured.
// It returns nil when enrichment is disabled or nothing is configured.
func newEnricher(ctx context.Context, c *config.Config, logger *slog.Logger) (vision.Enricher, error) {
	if !c.Analyzer.EnrichmentEnabled {
		return nil, nil
	}

	opts := []vision.Option{
		vision.WithAPIKey(c.Gemini.APIKey),
		vision.WithModel(c.Gemini.Model),
		vision.WithTimeout(c.Gemini.Timeout),
		vision.WithLogger(logger),
	}

	var providers []vision.Enricher
	if c.Gemini.APIKey != "" {
		if c.Gemini.UseSDK {
			g, err := vision.NewGenAI(ctx, opts...)
			if err != nil {
				return nil, err
			}
			providers = append(providers, g)
		}
		g, err := vision.NewGemini(opts...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, g)
	}
	if c.Gemini.RemoteURL != "" {
		providers = append(providers, vision.NewRemote(c.Gemini.RemoteURL, nil))
	}
	if c.Gemini.DetectorModel != "" {
		dcfg := detect.DefaultConfig()
		dcfg.ModelPath = c.Gemini.DetectorModel
		dcfg.Logger = logger
		d, err := detect.New(dcfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, d)
	}

	if len(providers) == 0 {
		logger.Warn("no vision provider configured, spatial guidance disabled")
		return nil, nil
	}
	return vision.NewChain(logger, providers...)
}

// analyzerOptions translates the analyzer config section.
func analyzerOptions(c *config.Config, enricher vision.Enricher, logger *slog.Logger) []analyzer.Option {
	opts := []analyzer.Option{
		analyzer.WithEnrichTimeout(c.Analyzer.EnrichTimeout),
		analyzer.WithJPEGQuality(c.Analyzer.JPEGQuality),
		analyzer.WithLogger(logger),
	}
	if enricher != nil {
		opts = append(opts, analyzer.WithEnricher(enricher))
	}
	return opts
}

func schedulerOptions(c *config.Config, logger *slog.Logger) []scheduler.Option {
	return []scheduler.Option{
		scheduler.WithInterval(c.Analyzer.Interval),
		scheduler.WithWarmup(c.Analyzer.Warmup),
		scheduler.WithLogger(logger),
	}
}

// newNarrator builds ElevenLabs (configured model, then the flash model)
// behind a Redis or in-memory cache. It returns nil without an API key.
func newNarrator(ctx context.Context, c *config.Config, logger *slog.Logger) (*tts.Narrator, error) {
	if c.ElevenLabs.APIKey == "" {
		logger.Warn("ELEVENLABS_API_KEY not set, text-to-speech disabled")
		return nil, nil
	}

	common := []tts.Option{
		tts.WithAPIKey(c.ElevenLabs.APIKey),
		tts.WithVoice(c.ElevenLabs.VoiceID),
		tts.WithLogger(logger),
	}
	providers := make([]tts.Provider, 0, 2)
	for _, model := range []string{c.ElevenLabs.ModelID, tts.ModelFlashV2_5} {
		if len(providers) > 0 && model == c.ElevenLabs.ModelID {
			continue
		}
		p, err := tts.NewElevenLabs(append(common, tts.WithModel(model))...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	// the flash model answers when the primary is rate limited
	provider, err := tts.NewChain(logger, providers...)
	if err != nil {
		return nil, err
	}

	var store tts.NarrationStore
	if c.Redis.Addr != "" {
		rs, err := tts.DialRedis(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB, c.Redis.TTL)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = tts.NewMemoryStore(256)
	}

	return tts.NewNarrator(provider, store,
		tts.WithNarratorLogger(logger),
		tts.WithCacheNamespace(c.ElevenLabs.VoiceID),
	), nil
}

// newPrefsStore opens the configured preferences backend.
func newPrefsStore(ctx context.Context, c *config.Config, logger *slog.Logger) (prefs.Store, error) {
	switch c.Prefs.Backend {
	case "postgres":
		s, err := prefs.OpenPostgres(ctx, c.Prefs.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return prefs.NewJSONStore(c.Prefs.Path, prefs.WithLogger(logger))
	}
}

// newDevice selects the capture source.
func newDevice(c *config.Config) (capture.Device, error) {
	switch c.Camera.Source {
	case "webcam":
		return webcam.New(capture.WithDeviceID(c.Camera.DeviceID)), nil
	case "snapshot":
		if c.Camera.SnapshotURL == "" {
			return nil, errors.New("camera source snapshot requires CAMERA_SNAPSHOT_URL")
		}
		return capture.NewSnapshotSource(c.Camera.SnapshotURL, nil), nil
	case "file":
		if c.Camera.File == "" {
			return nil, errors.New("camera source file requires CAMERA_FILE")
		}
		return capture.NewFileSource(c.Camera.File), nil
	default:
		return nil, fmt.Errorf("unknown camera source %q", c.Camera.Source)
	}
}

// newPublisher returns a Kafka publisher, or nil when no brokers are set.
func newPublisher(c *config.Config, sessionID string, logger *slog.Logger) *events.Publisher {
	if !c.Kafka.Enabled() {
		return nil
	}
	w := events.NewWriter(c.Kafka.Brokers, c.Kafka.Topic)
	return events.NewPublisher(w, sessionID, events.WithLogger(logger))
}
