// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for communicating with a local
// inference server (an Ollama-compatible API).
//
// Every network-facing operation returns its outcome as a value rather than
// an error that escapes the package: generation and chat calls produce a
// Result that is exactly one of success (response text plus timing metadata)
// or a classified failure (connection, timeout, server, malformed). Callers
// always have something renderable; no raw transport fault crosses the
// package boundary.
//
// # Key Types
//
//   - Client: HTTP client for the inference server API
//   - Session: pooled HTTP transport with per-call timeouts
//   - Result: tagged success/failure outcome of a generation
//   - ClientError: classified error with an ErrorKind
//   - PullProgress: streamed status event during a model download
//
// # Usage
//
// Create a client and generate a response:
//
//	client := gateway.NewClient()
//	res := client.GenerateResponse(ctx, "Hello", nil, nil)
//	if res.Succeeded() {
//	    fmt.Println(res.Text)
//	}
//
// Timeout budgets differ per operation class: health checks are short (~5s),
// generation medium (~120s), and model pulls long (~600s). All budgets are
// configurable through ClientConfig.
package gateway
