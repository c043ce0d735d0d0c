package capture

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/teslashibe/go-sensory/internal/httpc"
	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// SnapshotSource fetches a JPEG from an HTTP snapshot endpoint per tick,
// as exposed by most IP cameras.
type SnapshotSource struct {
	url    string
	client *http.Client
	cfg    Config
	open   atomic.Bool
}

// NewSnapshotSource creates a source for url. A nil client uses httpc.Client.
func NewSnapshotSource(url string, client *http.Client, opts ...Option) *SnapshotSource {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if client == nil {
		client = httpc.Client
	}
	return &SnapshotSource{url: url, client: client, cfg: cfg}
}

// Open checks that the endpoint serves a decodable image.
func (s *SnapshotSource) Open(ctx context.Context) error {
	if _, err := s.fetch(ctx); err != nil {
		return err
	}
	s.open.Store(true)
	return nil
}

// Capture fetches and decodes one snapshot.
func (s *SnapshotSource) Capture(ctx context.Context) (*crowd.Frame, error) {
	if !s.open.Load() {
		return nil, ErrNotReady
	}
	return s.fetch(ctx)
}

func (s *SnapshotSource) fetch(ctx context.Context) (*crowd.Frame, error) {
	data, err := httpc.Get(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.url, err)
	}
	return DecodeFrame(data, s.cfg)
}

// Close marks the source closed.
func (s *SnapshotSource) Close() error {
	s.open.Store(false)
	return nil
}

// Verify SnapshotSource implements Device at compile time.
var _ Device = (*SnapshotSource)(nil)
