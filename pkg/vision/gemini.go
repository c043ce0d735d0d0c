package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-sensory/internal/httpc"
)

const providerGemini = "gemini"

// Gemini calls the Gemini generateContent REST endpoint directly.
type Gemini struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewGemini creates a REST Gemini provider.
func NewGemini(opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}

	client := cfg.Client
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Gemini{
		config: cfg,
		http:   client,
		logger: cfg.Logger.With("component", "vision.gemini"),
	}, nil
}

// Analyze sends the JPEG with the crowd prompt and parses the answer.
func (g *Gemini) Analyze(ctx context.Context, jpeg []byte) (*Report, error) {
	if len(jpeg) == 0 {
		return nil, WrapError(providerGemini, ErrNoImage)
	}
	start := time.Now()

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": g.config.Prompt},
					{"inline_data": map[string]string{
						"mime_type": "image/jpeg",
						"data":      base64.StdEncoding.EncodeToString(jpeg),
					}},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      g.config.Temperature,
			"topP":             g.config.TopP,
			"topK":             g.config.TopK,
			"maxOutputTokens":  g.config.MaxTokens,
			"responseMimeType": "application/json",
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.config.BaseURL, g.config.Model, g.config.APIKey)
	body, err := httpc.PostJSON(ctx, g.http, url, payload, nil)
	if err != nil {
		return nil, g.wrapHTTPError(err)
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("decode response: %w (body: %s)", err, truncate(string(body), 200)))
	}
	if result.Error.Message != "" {
		return nil, &APIError{StatusCode: result.Error.Code, Message: result.Error.Message, Provider: providerGemini}
	}

	text := result.text()
	if text == "" {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	report, err := reportFromText(providerGemini, text)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("crowd report",
		"latency_ms", time.Since(start).Milliseconds(),
		"guidance", report.SpatialGuidance != "",
		"boxes", len(report.Boxes),
	)
	return report, nil
}

// Close releases idle connections.
func (g *Gemini) Close() error {
	g.http.CloseIdleConnections()
	return nil
}

// wrapHTTPError turns non-2xx responses into APIError.
func (g *Gemini) wrapHTTPError(err error) error {
	var se *httpc.StatusError
	if !errors.As(err, &se) {
		return WrapError(providerGemini, err)
	}

	message := se.Body
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(se.Body), &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}
	return &APIError{StatusCode: se.StatusCode, Message: message, Provider: providerGemini}
}

// geminiResponse is the Gemini API response format.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// Verify Gemini implements Enricher at compile time.
var _ Enricher = (*Gemini)(nil)
