package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Narrator speaks guidance for one session. It is created explicitly and
// disposed with Close; nothing about it is global.
type Narrator struct {
	provider Provider
	store    NarrationStore
	logger   *slog.Logger
	voice    string
	timeout  time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	closed  bool
	written map[string]struct{}
}

// DefaultSynthesisTimeout bounds one shared provider request.
const DefaultSynthesisTimeout = 30 * time.Second

// NarratorOption configures a Narrator.
type NarratorOption func(*Narrator)

// WithNarratorLogger sets the narrator's logger.
func WithNarratorLogger(l *slog.Logger) NarratorOption {
	return func(n *Narrator) { n.logger = l }
}

// WithCacheNamespace separates cache entries per voice or model.
func WithCacheNamespace(ns string) NarratorOption {
	return func(n *Narrator) { n.voice = ns }
}

// WithSynthesisTimeout bounds each provider request. The request is not
// tied to any single caller's context.
func WithSynthesisTimeout(d time.Duration) NarratorOption {
	return func(n *Narrator) { n.timeout = d }
}

// NewNarrator wraps provider. A nil store disables caching.
func NewNarrator(provider Provider, store NarrationStore, opts ...NarratorOption) *Narrator {
	n := &Narrator{
		provider: provider,
		store:    store,
		logger:   slog.Default(),
		timeout:  DefaultSynthesisTimeout,
		written:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "tts.narrator")
	return n
}

// Speak returns audio for text, from cache when possible. Concurrent
// calls for the same text share a single provider request.
func (n *Narrator) Speak(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}

	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	key := n.key(text)
	if n.store != nil {
		clip, err := n.store.Get(ctx, key)
		if err == nil {
			n.logger.Debug("cache hit", "chars", len(text))
			return clip, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			n.logger.Warn("cache read failed", "error", err)
		}
	}

	// The shared request is detached from any one caller's ctx.
	ch := n.group.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		clip, err := n.provider.Synthesize(sctx, text)
		if err != nil {
			return nil, err
		}
		if n.store != nil {
			if err := n.store.Put(sctx, key, clip); err != nil {
				n.logger.Warn("cache write failed", "error", err)
			} else {
				n.mu.Lock()
				n.written[key] = struct{}{}
				n.mu.Unlock()
			}
		}
		return clip, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			n.logger.Debug("shared in-flight synthesis", "chars", len(text))
		}
		return res.Val.(*Audio), nil
	}
}

// Reset forgets the clips this narrator cached. Entries written by other
// narrators sharing the store are left alone.
func (n *Narrator) Reset(ctx context.Context) error {
	if n.store == nil {
		return nil
	}

	n.mu.Lock()
	keys := make([]string, 0, len(n.written))
	for k := range n.written {
		keys = append(keys, k)
	}
	n.written = make(map[string]struct{})
	n.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	return n.store.Delete(ctx, keys...)
}

// Close releases the store. Speak fails with ErrClosed afterwards.
// The provider is not closed; it may be shared.
func (n *Narrator) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	if n.store != nil {
		return n.store.Close()
	}
	return nil
}

func (n *Narrator) key(text string) string {
	sum := sha256.Sum256([]byte(n.voice + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
