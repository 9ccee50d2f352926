// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jeranaias/deepchat/internal/gateway"
)

// =============================================================================
// DISPATCHER
// =============================================================================

// DefaultMaxConcurrent is the default worker slot count.
const DefaultMaxConcurrent = 4

// Dispatcher runs jobs on background goroutines, bounded by a semaphore.
// All methods are safe for concurrent use.
type Dispatcher struct {
	sem chan struct{}
	wg  sync.WaitGroup
	log *slog.Logger
}

// New creates a dispatcher with the given worker limit. A non-positive limit
// takes the default.
func New(maxConcurrent int, logger *slog.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sem: make(chan struct{}, maxConcurrent),
		log: logger.With("component", "dispatch"),
	}
}

// Wait blocks until every dispatched job has delivered its result. Call it
// during shutdown after the last dispatch.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch queues op for execution and returns its handle immediately. The
// worker acquires a semaphore slot, runs op with the caller's context, and
// delivers the returned value as the handle's single terminal result. If ctx
// is canceled while the job is still queued, the zero value of T is delivered
// so the handle always terminates.
func Dispatch[T any](d *Dispatcher, ctx context.Context, label string, op func(context.Context) T) *Handle[T] {
	h := newHandle[T](label)
	d.log.Debug("job queued", "id", h.ID(), "label", label)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			var zero T
			h.complete(zero)
			return
		}
		defer func() { <-d.sem }()

		h.markRunning()
		result := op(ctx)
		h.complete(result)
		d.log.Debug("job complete", "id", h.ID(), "label", label, "duration", h.Duration())
	}()
	return h
}

// =============================================================================
// MODEL PULL JOBS
// =============================================================================

// PullHandle is the handle for a model download: progress events stream on
// Progress until the download ends, then the channel closes and the terminal
// success flag arrives on Out.
type PullHandle struct {
	*Handle[bool]
	progress chan gateway.PullProgress
}

// Progress returns the status event stream. It is closed before the terminal
// result is delivered, so draining Progress and then reading Out observes
// every event exactly once and in order.
func (h *PullHandle) Progress() <-chan gateway.PullProgress {
	return h.progress
}

// DispatchPull starts a model download on a worker. Progress events are
// forwarded in stream order; an event is dropped only if ctx ends while the
// consumer is not reading, which also ends the download itself.
func (d *Dispatcher) DispatchPull(ctx context.Context, client *gateway.Client, name string) *PullHandle {
	ph := &PullHandle{
		Handle:   newHandle[bool]("pull " + name),
		progress: make(chan gateway.PullProgress, 16),
	}
	d.log.Debug("pull queued", "id", ph.ID(), "model", name)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			close(ph.progress)
			ph.complete(false)
			return
		}
		defer func() { <-d.sem }()

		ph.markRunning()
		ok := client.PullModel(ctx, name, func(p gateway.PullProgress) {
			select {
			case ph.progress <- p:
			case <-ctx.Done():
			}
		})
		close(ph.progress)
		ph.complete(ok)
		d.log.Debug("pull complete", "id", ph.ID(), "model", name, "ok", ok)
	}()
	return ph
}
