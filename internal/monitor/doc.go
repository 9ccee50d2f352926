// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package monitor tracks reachability of the inference server.
//
// The monitor owns a tri-state connection status: Unknown before the first
// check has completed, then Connected or Disconnected. The state changes only
// when a health check finishes; no other code path may flip it, so a
// generation failure never silently marks the server down.
//
// Checks run on three triggers: once shortly after startup, on demand via
// CheckNow, and whenever the endpoint or model configuration changes. A rate
// limiter coalesces rapid on-demand triggers so a user hammering the connect
// button cannot stack up probes.
package monitor
