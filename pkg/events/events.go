// Package events publishes committed crowd analyses to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// Event is the message value written per analysis.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Time      time.Time       `json:"time"`
	Analysis  *crowd.Analysis `json:"analysis"`
	Status    crowd.Status    `json:"status"`
}

// NewEvent wraps a for session.
func NewEvent(sessionID string, a *crowd.Analysis, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Time:      now.UTC(),
		Analysis:  a,
		Status:    a.Status().Label,
	}
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a writer that partitions by key.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // one session per partition
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Publisher queues analyses and writes them from a single goroutine so
// the analyzer never waits on the broker. When the queue is full new
// events are dropped.
type Publisher struct {
	writer    MessageWriter
	sessionID string
	logger    *slog.Logger
	now       func() time.Time

	queue chan kafka.Message
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithQueueSize sets how many events may wait for the broker.
func WithQueueSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan kafka.Message, n)
		}
	}
}

// NewPublisher starts the write loop. sessionID keys every message.
func NewPublisher(w MessageWriter, sessionID string, opts ...Option) *Publisher {
	p := &Publisher{
		writer:    w,
		sessionID: sessionID,
		logger:    slog.Default(),
		now:       time.Now,
		queue:     make(chan kafka.Message, 64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "events", "session_id", sessionID)

	go p.run()
	return p
}

// Publish queues a. It implements analyzer.Sink.
func (p *Publisher) Publish(ctx context.Context, a *crowd.Analysis) {
	if a == nil {
		return
	}
	data, err := json.Marshal(NewEvent(p.sessionID, a, p.now()))
	if err != nil {
		p.logger.Warn("marshal event", "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	select {
	case p.queue <- kafka.Message{Key: []byte(p.sessionID), Value: data}:
	default:
		p.logger.Warn("event queue full, dropping analysis")
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Warn("failed to write message", "error", err)
		}
		cancel()
	}
}

// Close flushes queued events and closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
