// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch runs gateway calls on background workers so the
// interactive loop never blocks on the network.
//
// Every dispatched job returns a Handle carrying a unique correlation ID and
// a buffered result channel that receives exactly one terminal value before
// closing. Callers match outcomes to requests through the handle they hold,
// never through delivery order; independent jobs complete in whatever order
// the server answers.
//
// A semaphore bounds worker concurrency. Model pulls get a dedicated handle
// type that additionally streams progress events ahead of the terminal
// result.
package dispatch
