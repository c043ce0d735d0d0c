package vision

import (
	"context"
	"sync"
)

// Mock implements Enricher for testing.
type Mock struct {
	// AnalyzeFunc is called when Analyze is invoked.
	// If nil, returns ErrProviderUnavailable.
	AnalyzeFunc func(ctx context.Context, jpeg []byte) (*Report, error)

	mu    sync.Mutex
	calls int
}

// NewMock returns a mock that always reports the given guidance.
func NewMock(guidance string) *Mock {
	return &Mock{
		AnalyzeFunc: func(ctx context.Context, jpeg []byte) (*Report, error) {
			return &Report{SpatialGuidance: guidance}, nil
		},
	}
}

// MockError returns a mock that always fails with err.
func MockError(err error) *Mock {
	return &Mock{
		AnalyzeFunc: func(ctx context.Context, jpeg []byte) (*Report, error) {
			return nil, err
		},
	}
}

// Analyze calls AnalyzeFunc and counts the call.
func (m *Mock) Analyze(ctx context.Context, jpeg []byte) (*Report, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, jpeg)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Calls returns how many times Analyze was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify Mock implements Enricher at compile time.
var _ Enricher = (*Mock)(nil)
