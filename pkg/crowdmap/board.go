package crowdmap

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-co-op/gocron/v2"
)

// Entry is one location's status on the board.
type Entry struct {
	LocationID      string     `json:"locationId"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Status          BusyStatus `json:"status"`
	EstimatedPeople int        `json:"estimatedPeople"`
	Color           string     `json:"color"`
}

// Snapshot is the whole board at one hour.
type Snapshot struct {
	Hour    int       `json:"hour"`
	Updated time.Time `json:"updated"`
	Entries []Entry   `json:"entries"`
}

// BuildSnapshot computes every location's status at now.
func BuildSnapshot(locs []Location, now time.Time) Snapshot {
	snap := Snapshot{Hour: now.Hour(), Updated: now, Entries: make([]Entry, 0, len(locs))}
	for _, l := range locs {
		e := Entry{LocationID: l.ID, Name: l.Name, Category: l.Category}
		if p, ok := CurrentStatus(l, now); ok {
			e.Status = p.Status
			e.EstimatedPeople = p.EstimatedPeople
		}
		e.Color = StatusColor(e.Status)
		snap.Entries = append(snap.Entries, e)
	}
	return snap
}

// Board keeps a snapshot that is refreshed at the top of every hour.
type Board struct {
	locations []Location
	clock     clock.Clock
	logger    *slog.Logger

	mu          sync.RWMutex
	snapshot    Snapshot
	subscribers []func(Snapshot)

	scheduler gocron.Scheduler
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithBoardClock sets the clock used to read the current hour.
func WithBoardClock(c clock.Clock) BoardOption {
	return func(b *Board) { b.clock = c }
}

// WithBoardLogger sets the structured logger.
func WithBoardLogger(l *slog.Logger) BoardOption {
	return func(b *Board) { b.logger = l }
}

// NewBoard creates a board over locs and computes the first snapshot.
func NewBoard(locs []Location, opts ...BoardOption) *Board {
	b := &Board{locations: locs, clock: clock.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "crowdmap.board")
	b.snapshot = BuildSnapshot(b.locations, b.clock.Now())
	return b
}

// Subscribe registers fn to receive every refreshed snapshot.
func (b *Board) Subscribe(fn func(Snapshot)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}

// Snapshot returns the current snapshot.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// Refresh recomputes the snapshot and notifies subscribers.
func (b *Board) Refresh() Snapshot {
	snap := BuildSnapshot(b.locations, b.clock.Now())

	b.mu.Lock()
	b.snapshot = snap
	subs := make([]func(Snapshot), len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	b.logger.Debug("board refreshed", "hour", snap.Hour, "locations", len(snap.Entries))
	return snap
}

// Start schedules an hourly refresh.
func (b *Board) Start() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.CronJob("0 * * * *", false),
		gocron.NewTask(func() { b.Refresh() }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.Shutdown()
		return fmt.Errorf("schedule refresh: %w", err)
	}

	b.mu.Lock()
	b.scheduler = s
	b.mu.Unlock()

	s.Start()
	b.Refresh()
	return nil
}

// Stop shuts the scheduler down.
func (b *Board) Stop() error {
	b.mu.Lock()
	s := b.scheduler
	b.scheduler = nil
	b.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Shutdown()
}
