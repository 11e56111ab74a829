package logpanel

import (
	"sync"

	"github.com/kurohana/kurohana/internal/config"
	"github.com/kurohana/kurohana/pkg/bus"
)

// Panel is a thread-safe, fixed-capacity window of bus entries.
// Entries are kept in arrival order; the oldest is evicted once the window
// is full.
type Panel struct {
	mu          sync.RWMutex
	entries     []bus.Entry // oldest first
	capacity    int
	unsubscribe func()
}

// New creates a Panel holding at most capacity entries.
// A non-positive capacity uses config.DefaultLogWindow.
func New(capacity int) *Panel {
	if capacity <= 0 {
		capacity = config.DefaultLogWindow
	}
	return &Panel{
		entries:  make([]bus.Entry, 0, capacity),
		capacity: capacity,
	}
}

// Mount subscribes the panel to b. Mounting an already-mounted panel first
// detaches it from its previous bus.
func (p *Panel) Mount(b *bus.Bus) {
	unsub := b.Subscribe(p.Append)

	p.mu.Lock()
	prev := p.unsubscribe
	p.unsubscribe = unsub
	p.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Unmount unsubscribes the panel. The window is kept. Unmount is idempotent.
func (p *Panel) Unmount() {
	p.mu.Lock()
	unsub := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Append adds e to the window, evicting the oldest entry when full.
func (p *Panel) Append(e bus.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == p.capacity {
		copy(p.entries, p.entries[1:])
		p.entries = p.entries[:len(p.entries)-1]
	}
	p.entries = append(p.entries, e)
}

// Entries returns a copy of the window, newest first.
func (p *Panel) Entries() []bus.Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]bus.Entry, len(p.entries))
	for i, e := range p.entries {
		out[len(p.entries)-1-i] = e
	}
	return out
}

// Len returns the number of entries currently held.
func (p *Panel) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Capacity returns the window size.
func (p *Panel) Capacity() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.capacity
}

// Resize changes the window size, dropping the oldest entries if the window
// shrinks. Non-positive sizes are ignored.
func (p *Panel) Resize(capacity int) {
	if capacity <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.entries); n > capacity {
		p.entries = append([]bus.Entry(nil), p.entries[n-capacity:]...)
	}
	p.capacity = capacity
}
