package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/go-sensory/internal/httpc"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"

	// DefaultVoiceID is the stock "George" voice.
	DefaultVoiceID = "JBFqnCBsd6RMkjVDRZzb"
)

// ElevenLabs model IDs
const (
	// ModelMultilingualV2 is the highest quality multilingual model.
	ModelMultilingualV2 = "eleven_multilingual_v2"

	// ModelFlashV2_5 is the fastest multilingual model.
	ModelFlashV2_5 = "eleven_flash_v2_5"
)

// ElevenLabs implements Provider over the ElevenLabs REST API.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &ElevenLabs{
		config:  cfg,
		client:  client,
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Synthesize converts text to a complete clip.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerElevenLabs, ErrNoText)
	}
	start := time.Now()

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.baseURL, url.PathEscape(e.config.VoiceID), url.QueryEscape(string(e.config.OutputFormat)))

	payload := map[string]interface{}{
		"text":           text,
		"model_id":       e.config.ModelID,
		"voice_settings": e.config.VoiceSettings,
	}
	headers := map[string]string{
		"xi-api-key": e.config.APIKey,
		"Accept":     e.config.OutputFormat.MIME(),
	}

	data, err := e.postWithRetry(ctx, endpoint, payload, headers)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(data),
		"latency_ms", latency,
		"model", e.config.ModelID,
	)

	return &Audio{
		Data:      data,
		Encoding:  e.config.OutputFormat,
		Chars:     len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Provider: providerElevenLabs}
	}
	return nil
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// postWithRetry retries 429 and 5xx responses with linear backoff.
func (e *ElevenLabs) postWithRetry(ctx context.Context, endpoint string, payload any, headers map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.config.RetryDelay * time.Duration(attempt)):
			}
		}

		data, err := httpc.PostJSON(ctx, e.client, endpoint, payload, headers)
		if err == nil {
			return data, nil
		}

		lastErr = e.parseError(err)
		var apiErr *APIError
		if !errors.As(lastErr, &apiErr) || !apiErr.IsRetryable() {
			return nil, lastErr
		}
		e.logger.Warn("retrying request", "attempt", attempt+1, "status", apiErr.StatusCode)
	}

	return nil, lastErr
}

// parseError turns an httpc status error into an APIError.
func (e *ElevenLabs) parseError(err error) error {
	var se *httpc.StatusError
	if !errors.As(err, &se) {
		return WrapError(providerElevenLabs, err)
	}

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	message := se.Body
	if json.Unmarshal([]byte(se.Body), &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
	}

	return &APIError{
		StatusCode: se.StatusCode,
		Message:    message,
		Provider:   providerElevenLabs,
	}
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
