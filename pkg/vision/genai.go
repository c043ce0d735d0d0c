package vision

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const providerGenAI = "genai"

// GenAI calls Gemini through the official Google GenAI SDK.
type GenAI struct {
	client *genai.Client
	config *Config
	logger *slog.Logger
}

// NewGenAI creates an SDK-backed provider.
func NewGenAI(ctx context.Context, opts ...Option) (*GenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGenAI, ErrNoAPIKey)
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Client != nil {
		cc.HTTPClient = cfg.Client
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, WrapError(providerGenAI, fmt.Errorf("create client: %w", err))
	}

	return &GenAI{
		client: client,
		config: cfg,
		logger: cfg.Logger.With("component", "vision.genai"),
	}, nil
}

// Analyze sends the JPEG with the crowd prompt and parses the answer.
func (g *GenAI) Analyze(ctx context.Context, jpeg []byte) (*Report, error) {
	if len(jpeg) == 0 {
		return nil, WrapError(providerGenAI, ErrNoImage)
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	parts := []*genai.Part{
		genai.NewPartFromText(g.config.Prompt),
		genai.NewPartFromBytes(jpeg, "image/jpeg"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.config.Temperature),
		TopP:             genai.Ptr(g.config.TopP),
		TopK:             genai.Ptr(g.config.TopK),
		MaxOutputTokens:  g.config.MaxTokens,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, WrapError(providerGenAI, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, WrapError(providerGenAI, ErrEmptyResponse)
	}
	return reportFromText(providerGenAI, text)
}

// Verify GenAI implements Enricher at compile time.
var _ Enricher = (*GenAI)(nil)
