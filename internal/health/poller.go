package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kurohana/kurohana/internal/apiclient"
	"github.com/kurohana/kurohana/internal/config"
	"github.com/kurohana/kurohana/pkg/bus"
)

// Checker fetches the service readiness flags. *apiclient.Client implements it.
type Checker interface {
	Health(ctx context.Context) (*apiclient.HealthResponse, error)
}

// Artifacts mirrors the loaded flags of the last successful health response.
type Artifacts struct {
	EngineModel     bool `json:"engine_model"`
	EngineExplainer bool `json:"engine_explainer"`
	NavalModel      bool `json:"naval_model"`
	NavalExplainer  bool `json:"naval_explainer"`
}

// Status is the snapshot plus the raw observations behind it.
type Status struct {
	Snapshot  Snapshot  `json:"snapshot"`
	RawStatus string    `json:"raw_status,omitempty"` // status text of the last successful response
	LastError string    `json:"last_error,omitempty"` // cleared by the next successful poll
	Artifacts Artifacts `json:"artifacts"`
	CheckedAt time.Time `json:"checked_at,omitempty"` // zero until the first poll completes
	Polls     int       `json:"polls"`
}

// Observer receives the outcome of each applied poll ("success" | "failure"),
// the resulting snapshot and the transitions it caused.
type Observer func(outcome string, snap Snapshot, transitions []Transition)

// Poller polls /health on a fixed interval, keeps the current Snapshot and
// publishes one bus entry per subsystem transition.
//
// All exported methods are safe for concurrent use.
type Poller struct {
	checker  Checker
	bus      *bus.Bus
	now      func() time.Time
	observe  Observer
	resetCh  chan struct{}
	interval time.Duration

	mu        sync.Mutex
	status    Status
	gen       uint64
	stopped   bool
	cancel    context.CancelFunc
	listeners []func(Snapshot)
}

// Option customises a Poller.
type Option func(*Poller)

// WithClock overrides time.Now for CheckedAt (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithObserver installs a hook called after every applied poll.
func WithObserver(fn Observer) Option {
	return func(p *Poller) {
		if fn != nil {
			p.observe = fn
		}
	}
}

// NewPoller returns a Poller that checks c every interval and publishes to b.
// A non-positive interval uses config.DefaultPollInterval.
func NewPoller(c Checker, b *bus.Bus, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	p := &Poller{
		checker:  c,
		bus:      b,
		now:      time.Now,
		observe:  func(string, Snapshot, []Transition) {},
		resetCh:  make(chan struct{}, 1),
		interval: interval,
		status:   Status{Snapshot: InitialSnapshot()},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then every interval until ctx is cancelled or
// Stop is called. It blocks; call it in its own goroutine. Run returns at
// once if Stop was already called, even before Run started.
func (p *Poller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.gen++
	gen := p.gen
	interval := p.interval
	p.mu.Unlock()

	slog.Info("health: poller started", "interval", interval)
	p.tick(ctx, gen)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("health: poller stopped")
			return
		case <-p.resetCh:
			p.mu.Lock()
			interval = p.interval
			p.mu.Unlock()
			t.Reset(interval)
			slog.Info("health: poll interval changed", "interval", interval)
		case <-t.C:
			p.tick(ctx, gen)
		}
	}
}

// Stop ends the poll loop and keeps any later Run from starting one. A poll
// already in flight is cancelled and its result discarded. Stop is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// SetInterval changes the poll interval. A running loop picks it up without
// restarting; the next poll happens one new interval from now.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	changed := d != p.interval
	p.interval = d
	p.mu.Unlock()
	if !changed {
		return
	}
	select {
	case p.resetCh <- struct{}{}:
	default:
	}
}

// Interval returns the current poll interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Snapshot returns the current snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Snapshot
}

// Status returns the current snapshot and the observations behind it.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// OnChange registers fn to receive every snapshot that differs from its
// predecessor. fn runs on the polling goroutine after the transition entries
// have been published.
func (p *Poller) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// tick performs one poll. The result is applied only if the loop that issued
// it is still live; transition entries are published after the lock is released.
func (p *Poller) tick(ctx context.Context, gen uint64) {
	resp, err := p.checker.Health(ctx)

	p.mu.Lock()
	if ctx.Err() != nil || gen != p.gen {
		p.mu.Unlock()
		slog.Debug("health: discarding poll result after teardown")
		return
	}

	prev := p.status.Snapshot
	next := p.apply(prev, resp, err)
	transitions := Diff(prev, next)
	var listeners []func(Snapshot)
	if len(transitions) > 0 {
		listeners = make([]func(Snapshot), len(p.listeners))
		copy(listeners, p.listeners)
	}
	p.mu.Unlock()

	outcome := "success"
	if err != nil {
		outcome = "failure"
		slog.Warn("health: poll failed", "err", err)
	}
	p.observe(outcome, next, transitions)

	for _, t := range transitions {
		if level, text, ok := t.Entry(); ok {
			p.bus.Publish(level, text)
		}
	}
	for _, fn := range listeners {
		fn(next)
	}
}

// apply records the poll outcome and returns the new snapshot. Caller holds p.mu.
func (p *Poller) apply(prev Snapshot, resp *apiclient.HealthResponse, err error) Snapshot {
	p.status.Polls++
	p.status.CheckedAt = p.now()

	if err != nil {
		p.status.LastError = err.Error()
		p.status.Snapshot = DeriveFailure(prev)
		return p.status.Snapshot
	}

	p.status.LastError = ""
	p.status.RawStatus = resp.Status
	p.status.Artifacts = Artifacts{
		EngineModel:     resp.EngineModelLoaded,
		EngineExplainer: resp.EngineExplainerLoaded,
		NavalModel:      resp.NavalModelLoaded,
		NavalExplainer:  resp.NavalExplainerLoaded,
	}
	p.status.Snapshot = Derive(prev, resp)
	return p.status.Snapshot
}
