package vision

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when an API key is required but missing.
	ErrNoAPIKey = errors.New("vision: API key required")

	// ErrNoImage is returned when an empty image is submitted.
	ErrNoImage = errors.New("vision: no image provided")

	// ErrEmptyResponse is returned when the model answered with no content.
	ErrEmptyResponse = errors.New("vision: empty response")

	// ErrUnparseable is matched by UnparseableError.
	ErrUnparseable = errors.New("vision: unparseable response")

	// ErrProviderUnavailable is returned when a chain has no providers.
	ErrProviderUnavailable = errors.New("vision: no providers available")

	// ErrInvalidDataURL is returned for malformed data: URLs.
	ErrInvalidDataURL = errors.New("vision: invalid data URL")
)

// APIError represents an error response from a vision API.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("vision [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable returns true for rate limits and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// UnparseableError keeps the raw model text that failed to decode.
type UnparseableError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *UnparseableError) Error() string {
	return fmt.Sprintf("vision: unparseable response %q: %v", e.Raw, e.Err)
}

// Is matches ErrUnparseable.
func (e *UnparseableError) Is(target error) bool {
	return target == ErrUnparseable
}

// Unwrap returns the decode error.
func (e *UnparseableError) Unwrap() error {
	return e.Err
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("vision [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "vision chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("vision chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("vision chain: all %d providers failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
