package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/pkg/bus"
)

// logsChangedMsg tells the model to re-read the log window.
type logsChangedMsg struct{}

// statusChangedMsg tells the model to re-read the poller status.
type statusChangedMsg struct{}

// Feed turns bus entries and poller changes into refresh signals for the
// model. Signals coalesce: a burst of entries produces a single re-read of
// the log window, so publishers never block on the terminal.
type Feed struct {
	logs   chan struct{}
	status chan struct{}
	done   chan struct{}
}

// NewFeed returns an empty Feed.
func NewFeed() *Feed {
	return &Feed{
		logs:   make(chan struct{}, 1),
		status: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Attach signals the model on every entry published on b until the returned
// func is called.
func (f *Feed) Attach(b *bus.Bus) (detach func()) {
	return b.Subscribe(func(bus.Entry) { signal(f.logs) })
}

// NotifyStatus signals a status change. Its signature matches
// health.Poller.OnChange.
func (f *Feed) NotifyStatus(health.Snapshot) {
	signal(f.status)
}

// Close ends the listen loop.
func (f *Feed) Close() {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

// listen returns a command that blocks until the next signal.
func (f *Feed) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.logs:
			return logsChangedMsg{}
		case <-f.status:
			return statusChangedMsg{}
		case <-f.done:
			return nil
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
