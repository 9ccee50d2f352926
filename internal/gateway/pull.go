// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
)

// =============================================================================
// MODEL PULL STREAM
// =============================================================================

// Scanner buffer sizing for the pull status stream. Status lines are small,
// but a generous maximum avoids bufio.ErrTooLong on unusual server output.
const (
	pullScanBufSize = 64 * 1024
	pullScanBufMax  = 1024 * 1024
)

// PullModel downloads a model through POST /api/pull, reading the NDJSON
// status stream as it arrives. Each well-formed status object is passed to
// onProgress (when non-nil) in stream order; malformed lines are skipped
// without aborting the download. An empty name pulls the configured default
// model.
//
// The return value is true only when the server accepted the request with
// HTTP 200 and the stream was read to completion without a transport fault
// or a server-reported error. Progress events already delivered stay
// delivered regardless of the final outcome.
func (c *Client) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) bool {
	if name == "" {
		name = c.config.Model
	}
	c.log.Info("pulling model", "model", name)

	resp, cancel, err := c.session.Execute(ctx, http.MethodPost, "/api/pull", pullRequest{Name: name, Stream: true}, c.config.PullTimeout)
	if err != nil {
		c.log.Warn("pull request failed", "model", name, "error", err)
		return false
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("pull rejected", "model", name, "status", resp.StatusCode)
		return false
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, pullScanBufSize), pullScanBufMax)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var progress PullProgress
		if err := json.Unmarshal(line, &progress); err != nil {
			// Skip malformed lines; the stream itself is still good.
			c.log.Debug("skipping malformed pull status", "error", err)
			continue
		}
		if progress.Err != "" {
			c.log.Warn("pull failed on server", "model", name, "error", progress.Err)
			return false
		}

		c.log.Info("pull status", "model", name, "status", progress.Status)
		if onProgress != nil {
			onProgress(progress)
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Warn("pull stream interrupted", "model", name, "error", err)
		return false
	}

	c.log.Info("pull complete", "model", name)
	return true
}
