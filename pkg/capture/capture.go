// Package capture provides the frame sources the analyzer samples from.
//
// A Source hands out one RGBA frame per call. A Device is a Source that
// holds a media resource and must be opened before use and closed after.
package capture

import (
	"context"
	"errors"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

var (
	// ErrNotReady means no frame is available yet; the tick is skipped.
	ErrNotReady = errors.New("capture: frame not ready")

	// ErrClosed is returned by Open on a device that cannot be reopened.
	ErrClosed = errors.New("capture: device closed")
)

// Source produces frames on demand.
type Source interface {
	Capture(ctx context.Context) (*crowd.Frame, error)
}

// Device is a Source backed by a resource that must be acquired.
type Device interface {
	Source
	Open(ctx context.Context) error
	Close() error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*crowd.Frame, error)

// Capture calls f.
func (f SourceFunc) Capture(ctx context.Context) (*crowd.Frame, error) {
	return f(ctx)
}

// IsNotReady reports whether err means "skip this tick".
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, crowd.ErrFrameNotReady)
}
