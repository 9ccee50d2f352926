// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// HTTP SESSION
// =============================================================================

// Session is a reusable HTTP session against a single base URL. The underlying
// transport pools connections with keep-alives, so repeated calls reuse TCP
// connections instead of paying the dial cost every time.
//
// PERFORMANCE: Connection reuse matters here because the driver issues many
// short requests (health checks, tag listings) against the same host.
type Session struct {
	baseURL string
	client  *http.Client
}

// NewSession creates a session for the given base URL. A trailing slash on the
// URL is stripped so path joining stays predictable.
func NewSession(baseURL string) *Session {
	return &Session{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			// No client-level timeout: each call carries its own budget
			// through the request context, because a health check (5s) and
			// a model pull (600s) cannot share one number.
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// BaseURL returns the endpoint this session talks to.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Execute issues one HTTP exchange with a per-call timeout. If body is
// non-nil it is JSON-encoded and sent with a JSON content type. The returned
// cancel function must be called once the response body has been consumed;
// canceling earlier aborts any in-flight body read, which is what lets long
// streaming reads (model pulls) honor their budget too.
//
// Execute returns transport errors raw. Classification into the error
// taxonomy is the caller's job, so the same transport can serve operations
// with different failure semantics.
func (s *Session) Execute(ctx context.Context, method, path string, body any, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(callCtx, method, s.baseURL+path, reqBody)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}
