// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ErrorKind classifies a gateway failure into the categories callers can act
// on. Every failure leaving this package carries exactly one kind.
type ErrorKind int

const (
	// KindUnknown covers failures that fit no other category.
	KindUnknown ErrorKind = iota
	// KindConnection means the server could not be reached at all
	// (refused, DNS failure, unreachable host).
	KindConnection
	// KindTimeout means the operation's time budget elapsed before the
	// server finished responding.
	KindTimeout
	// KindServer means the server answered with a non-2xx HTTP status.
	KindServer
	// KindMalformed means the server answered 2xx but the body was missing
	// the fields the operation requires. Treated as a server fault.
	KindMalformed
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ClientError is a classified gateway failure. Status is set only for
// KindServer. Cause preserves the underlying error for errors.Is/As.
type ClientError struct {
	Kind    ErrorKind
	Message string
	Status  int
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a gateway timeout failure.
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Kind == KindTimeout
}

// IsConnection reports whether err is a gateway connection failure.
func IsConnection(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Kind == KindConnection
}

// classifyTransport maps a raw transport error to a ClientError. Context
// deadline expiry and net timeouts become KindTimeout; everything else that
// happened before a response arrived is a connection failure.
func classifyTransport(err error) *ClientError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Kind: KindTimeout, Message: "request timed out", Cause: err}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &ClientError{Kind: KindTimeout, Message: "request timed out", Cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &ClientError{Kind: KindTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Kind: KindConnection, Message: "cannot reach server", Cause: err}
}

// serverError builds a KindServer failure for a non-2xx HTTP status.
func serverError(status int) *ClientError {
	return &ClientError{
		Kind:    KindServer,
		Message: fmt.Sprintf("HTTP %d", status),
		Status:  status,
	}
}

// malformedError builds a KindMalformed failure for a 2xx response whose body
// did not carry the expected fields.
func malformedError(detail string) *ClientError {
	return &ClientError{Kind: KindMalformed, Message: detail}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a generation or chat call: exactly one of a
// successful response text or a classified failure. The zero value is not
// meaningful; construct results with success or failure.
type Result struct {
	// Text holds the trimmed response on success.
	Text string
	// EvalDuration holds server-reported evaluation time on success, when
	// the server provided one. Zero means not reported.
	EvalDuration time.Duration
	// Err is non-nil exactly when the call failed.
	Err *ClientError
}

func success(text string, evalNs int64) Result {
	return Result{Text: text, EvalDuration: time.Duration(evalNs)}
}

func failure(err *ClientError) Result {
	return Result{Err: err}
}

// Succeeded reports whether the call produced a response.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Message returns text suitable for rendering directly in a transcript: the
// response itself on success, or a prefixed description of the failure. The
// prefix is presentation only and is never stored in the error.
func (r Result) Message() string {
	if r.Err == nil {
		return r.Text
	}
	switch r.Err.Kind {
	case KindTimeout:
		return "Timeout: the server took too long to respond"
	case KindConnection:
		return "Connection error: cannot reach the server"
	default:
		return "Error: " + r.Err.Message
	}
}
