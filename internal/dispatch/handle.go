// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// JOB STATUS
// =============================================================================

// Status is the lifecycle position of a dispatched job.
type Status string

const (
	// StatusQueued means the job is waiting for a worker slot.
	StatusQueued Status = "queued"
	// StatusRunning means a worker is executing the job.
	StatusRunning Status = "running"
	// StatusComplete means the terminal result has been delivered.
	StatusComplete Status = "complete"
)

// =============================================================================
// HANDLE
// =============================================================================

// Handle is the caller's reference to one dispatched job. The type parameter
// is the terminal result type. Out delivers exactly one value and is then
// closed; reading it twice yields the value once and then the zero value with
// ok=false.
type Handle[T any] struct {
	id    string
	label string

	mu       sync.RWMutex
	status   Status
	queued   time.Time
	started  time.Time
	finished time.Time

	out chan T
}

func newHandle[T any](label string) *Handle[T] {
	return &Handle[T]{
		id:     uuid.New().String(),
		label:  label,
		status: StatusQueued,
		queued: time.Now(),
		out:    make(chan T, 1),
	}
}

// ID returns the job's correlation ID.
func (h *Handle[T]) ID() string {
	return h.id
}

// Label returns the human-readable job description.
func (h *Handle[T]) Label() string {
	return h.label
}

// Status returns the job's current lifecycle position.
func (h *Handle[T]) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Out returns the terminal result channel: exactly one value, then closed.
func (h *Handle[T]) Out() <-chan T {
	return h.out
}

// Duration returns how long the job ran, or how long it has been running.
func (h *Handle[T]) Duration() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.started.IsZero() {
		return 0
	}
	if h.finished.IsZero() {
		return time.Since(h.started)
	}
	return h.finished.Sub(h.started)
}

func (h *Handle[T]) markRunning() {
	h.mu.Lock()
	h.status = StatusRunning
	h.started = time.Now()
	h.mu.Unlock()
}

// complete records the terminal state and delivers the result. The buffered
// channel guarantees the send never blocks, and the close after the single
// send is what makes delivery exactly-once.
func (h *Handle[T]) complete(result T) {
	h.mu.Lock()
	h.status = StatusComplete
	h.finished = time.Now()
	h.mu.Unlock()

	h.out <- result
	close(h.out)
}
