package tts

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NarrationStore caches synthesized clips by key.
type NarrationStore interface {
	// Get returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) (*Audio, error)
	Put(ctx context.Context, key string, clip *Audio) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Close() error
}

// MemoryStore is a fixed-size LRU.
type MemoryStore struct {
	capacity int

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

type memoryEntry struct {
	key  string
	clip *Audio
}

// NewMemoryStore keeps at most capacity clips.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryStore{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns a cached clip and marks it recently used.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	s.order.MoveToFront(el)
	return el.Value.(*memoryEntry).clip, nil
}

// Put stores clip, evicting the least recently used entry when full.
func (s *MemoryStore) Put(ctx context.Context, key string, clip *Audio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		el.Value.(*memoryEntry).clip = clip
		s.order.MoveToFront(el)
		return nil
	}

	s.items[key] = s.order.PushFront(&memoryEntry{key: key, clip: clip})
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Delete drops the given keys.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if el, ok := s.items[k]; ok {
			s.order.Remove(el)
			delete(s.items, k)
		}
	}
	return nil
}

// Clear drops every entry.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.order.Init()
	s.items = make(map[string]*list.Element)
	s.mu.Unlock()
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	return s.Clear(context.Background())
}

// Len returns the number of cached clips.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// RedisStore caches clips in Redis so they survive restarts and are
// shared between server instances.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	owned  bool
}

// DefaultRedisPrefix namespaces narration keys.
const DefaultRedisPrefix = "sensory:tts:"

// NewRedisStore wraps an existing client. Close does not close client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	s := NewRedisStore(client, ttl)
	s.owned = true
	return s, nil
}

// Get reads a clip.
func (s *RedisStore) Get(ctx context.Context, key string) (*Audio, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get narration: %w", err)
	}

	var clip Audio
	if err := json.Unmarshal(data, &clip); err != nil {
		return nil, fmt.Errorf("unmarshal narration: %w", err)
	}
	return &clip, nil
}

// Put writes a clip with the store's TTL.
func (s *RedisStore) Put(ctx context.Context, key string, clip *Audio) error {
	data, err := json.Marshal(clip)
	if err != nil {
		return fmt.Errorf("marshal narration: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set narration: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("delete narration: %w", err)
	}
	return nil
}

// Clear deletes every key under the store's prefix. Other instances
// sharing the database lose their entries too; sessions use Delete.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan narration keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close closes the client if the store dialed it.
func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

// Verify stores implement NarrationStore at compile time.
var (
	_ NarrationStore = (*MemoryStore)(nil)
	_ NarrationStore = (*RedisStore)(nil)
)
