package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a fake MP3 clip containing the text.
	SynthesizeFunc func(ctx context.Context, text string) (*Audio, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	mu     sync.Mutex
	texts  []string
	closed bool
}

// NewMock creates a mock that echoes text back as audio bytes.
func NewMock() *Mock {
	return &Mock{}
}

// WithError creates a mock whose Synthesize always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*Audio, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Synthesize records the call and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string) (*Audio, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return &Audio{Data: []byte("ID3" + text), Encoding: EncodingMP3, Chars: len(text)}, nil
}

// Health delegates to HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Texts returns every text passed to Synthesize, in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
