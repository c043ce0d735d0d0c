package vision

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds provider configuration.
type Config struct {
	// Connection
	BaseURL string
	APIKey  string
	Client  *http.Client

	// Model and sampling
	Model       string
	Prompt      string
	Temperature float32
	TopP        float32
	TopK        float32
	MaxTokens   int32

	Timeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.Client = client }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithPrompt replaces CrowdPrompt.
func WithPrompt(prompt string) Option {
	return func(c *Config) { c.Prompt = prompt }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns low-temperature defaults suited to counting.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		Model:       "gemini-2.0-flash",
		Prompt:      CrowdPrompt,
		Temperature: 0.1,
		TopP:        0.8,
		TopK:        40,
		MaxTokens:   1000,
		Timeout:     15 * time.Second,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
