package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// Fit downscales img to the configured bounds, keeping aspect ratio.
// Images already inside the bounds are returned unchanged.
func (c Config) Fit(img image.Image) image.Image {
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= c.MaxWidth && b.Dy() <= c.MaxHeight {
		return img
	}
	return imaging.Fit(img, c.MaxWidth, c.MaxHeight, imaging.Linear)
}

// DecodeFrame decodes JPEG/PNG bytes, applies EXIF orientation and
// returns a frame within cfg's bounds.
func DecodeFrame(data []byte, cfg Config) (*crowd.Frame, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return crowd.FrameFromImage(cfg.Fit(img)), nil
}

// ImageSource serves the same still image on every tick.
type ImageSource struct {
	path string
	cfg  Config

	mu    sync.RWMutex
	frame *crowd.Frame
}

// NewImageSource wraps an already decoded image. It is open immediately.
func NewImageSource(img image.Image, opts ...Option) *ImageSource {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &ImageSource{cfg: cfg, frame: crowd.FrameFromImage(cfg.Fit(img))}
}

// NewFileSource loads path on Open.
func NewFileSource(path string, opts ...Option) *ImageSource {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &ImageSource{path: path, cfg: cfg}
}

// Open loads the file if the source was created from a path.
func (s *ImageSource) Open(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	img, err := imaging.Open(s.path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.frame = crowd.FrameFromImage(s.cfg.Fit(img))
	s.mu.Unlock()
	return nil
}

// Capture returns the loaded frame or ErrNotReady.
func (s *ImageSource) Capture(ctx context.Context) (*crowd.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return nil, ErrNotReady
	}
	return s.frame, nil
}

// Close drops a file-backed frame. In-memory images stay available.
func (s *ImageSource) Close() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
	return nil
}

// Verify ImageSource implements Device at compile time.
var _ Device = (*ImageSource)(nil)
