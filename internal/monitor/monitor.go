// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CONNECTION STATE
// =============================================================================

// State is the monitor's view of server reachability.
type State int

const (
	// StateUnknown means no health check has completed yet.
	StateUnknown State = iota
	// StateDisconnected means the last completed check failed.
	StateDisconnected
	// StateConnected means the last completed check succeeded.
	StateConnected
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// =============================================================================
// MONITOR
// =============================================================================

// Checker is the health probe the monitor drives.
type Checker interface {
	CheckConnection(ctx context.Context) bool
}

// Options tune the monitor's timing. Zero values take the defaults below.
type Options struct {
	// StartupDelay is how long to wait before the first automatic check.
	StartupDelay time.Duration
	// Interval enables periodic re-checks when positive. Zero disables
	// periodic checking; the monitor then runs only on triggers.
	Interval time.Duration
	// MinGap bounds how often on-demand triggers may actually probe.
	MinGap time.Duration
	// Logger receives state transition logs. Defaults to slog.Default.
	Logger *slog.Logger
}

// Defaults for Options.
const (
	DefaultStartupDelay = 1 * time.Second
	DefaultMinGap       = 500 * time.Millisecond
)

// Monitor tracks server reachability. Create one with New, call Start once,
// and Stop when done. All methods are safe for concurrent use.
type Monitor struct {
	checker Checker
	opts    Options
	log     *slog.Logger

	mu    sync.RWMutex
	state State

	limiter *rate.Limiter
	trigger chan struct{}
	updates chan State
	stop    chan struct{}
	done    chan struct{}
}

// New creates a monitor for the given checker.
func New(checker Checker, opts Options) *Monitor {
	if opts.StartupDelay == 0 {
		opts.StartupDelay = DefaultStartupDelay
	}
	if opts.MinGap == 0 {
		opts.MinGap = DefaultMinGap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Monitor{
		checker: checker,
		opts:    opts,
		log:     opts.Logger.With("component", "monitor"),
		state:   StateUnknown,
		limiter: rate.NewLimiter(rate.Every(opts.MinGap), 1),
		trigger: make(chan struct{}, 1),
		updates: make(chan State, 4),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// State returns the current connection state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Updates returns the channel carrying state transitions. Only actual changes
// are delivered; a check that confirms the current state emits nothing. The
// channel is buffered and drops on overflow rather than blocking a check.
func (m *Monitor) Updates() <-chan State {
	return m.updates
}

// CheckNow requests a health check. Requests arriving while one is already
// pending coalesce into a single probe; a request inside the rate-limit gap
// runs once the gap elapses instead of being discarded.
func (m *Monitor) CheckNow() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// ConfigChanged notifies the monitor that the endpoint or model settings
// changed, which invalidates the current reading and schedules a re-check.
func (m *Monitor) ConfigChanged() {
	m.CheckNow()
}

// Start launches the monitor loop. The loop runs until Stop is called or ctx
// is canceled.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop shuts the monitor down and waits for the loop to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	// Startup check after a short delay, so the driver is already
	// interactive when the first probe lands.
	startup := time.NewTimer(m.opts.StartupDelay)
	defer startup.Stop()

	var tick <-chan time.Time
	if m.opts.Interval > 0 {
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-startup.C:
			m.runCheck(ctx)
		case <-m.trigger:
			// The limiter spaces on-demand probes by MinGap. A trigger
			// landing inside the gap is deferred until the gap elapses
			// rather than dropped, so an explicit request always ends in
			// a completed check.
			r := m.limiter.Reserve()
			if d := r.Delay(); d > 0 {
				select {
				case <-time.After(d):
				case <-m.stop:
					r.Cancel()
					return
				case <-ctx.Done():
					r.Cancel()
					return
				}
			}
			m.runCheck(ctx)
		case <-tick:
			m.runCheck(ctx)
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCheck performs one health probe and applies the outcome. This is the
// only place the state ever changes.
func (m *Monitor) runCheck(ctx context.Context) {
	ok := m.checker.CheckConnection(ctx)

	next := StateDisconnected
	if ok {
		next = StateConnected
	}

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev == next {
		return
	}
	m.log.Info("connection state changed", "from", prev.String(), "to", next.String())
	select {
	case m.updates <- next:
	default:
		m.log.Debug("dropping state update, subscriber not keeping up")
	}
}
