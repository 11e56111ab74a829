package bus

import (
	cryptorand "crypto/rand"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid"
)

// Level is the severity of a log entry.
type Level string

// Entry levels.
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Entry is one immutable activity-log line delivered to subscribers.
type Entry struct {
	// ID is a ULID: unique, and lexically ordered by creation time within
	// a single Bus.
	ID    string `json:"id"`
	Level Level  `json:"level"`
	Text  string `json:"text"`
	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Handler receives published entries. It runs on the publisher's goroutine.
type Handler func(Entry)

// Bus is an in-process publish/subscribe channel for log entries.
//
// A Bus is created once by the application root and handed to every
// component that publishes or subscribes. All methods are safe for
// concurrent use. Nothing is persisted: entries published while no
// subscriber is registered are lost.
type Bus struct {
	mu      sync.Mutex
	subs    []*subscription
	nextSub uint64
	entropy io.Reader // ulid.Monotonic; guarded by mu
	now     func() time.Time // injectable for deterministic tests
}

type subscription struct {
	id     uint64
	fn     Handler
	active atomic.Bool
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // ids, not secrets
		now:     time.Now,
	}
}

// Publish creates an Entry and delivers it synchronously to every registered
// subscriber, in registration order, before returning it.
//
// Subscribers registered while Publish is running do not receive the entry.
// A subscriber that panics is recovered and logged; delivery continues with
// the next subscriber.
func (b *Bus) Publish(level Level, text string) Entry {
	b.mu.Lock()
	now := b.now()
	entry := Entry{
		ID:        b.newID(now),
		Level:     level,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}
	targets := make([]*subscription, len(b.subs))
	copy(targets, b.subs)
	b.mu.Unlock()

	for _, s := range targets {
		// An earlier subscriber may have unsubscribed this one mid-publish.
		if !s.active.Load() {
			continue
		}
		s.deliver(entry)
	}
	return entry
}

// Info publishes an info-level entry.
func (b *Bus) Info(text string) Entry {
	return b.Publish(LevelInfo, text)
}

// Error publishes an error-level entry.
func (b *Bus) Error(text string) Entry {
	return b.Publish(LevelError, text)
}

// Subscribe registers fn and returns the function that removes this
// registration. Registering the same function twice yields two independent
// registrations, each delivered to. The returned function is idempotent.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	s := &subscription{fn: fn}
	s.active.Store(true)

	b.mu.Lock()
	b.nextSub++
	s.id = b.nextSub
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s) })
	}
}

// Len returns the number of active registrations.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// --- internal ---------------------------------------------------------------

func (b *Bus) remove(target *subscription) {
	target.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == target {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// newID must be called with b.mu held; the monotonic entropy source is not
// goroutine-safe.
func (b *Bus) newID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), b.entropy)
	if err != nil {
		// Monotonic overflow within one millisecond. Fall back to fresh
		// randomness; ordering inside that millisecond is no longer strict.
		id = ulid.MustNew(ulid.Timestamp(now), cryptorand.Reader)
	}
	return id.String()
}

func (s *subscription) deliver(e Entry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bus: subscriber panicked",
				"subscription", s.id, "entry", e.ID, "panic", r)
		}
	}()
	s.fn(e)
}
