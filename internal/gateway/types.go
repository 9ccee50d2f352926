// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================
// Request and response shapes for the inference server API. Field names match
// the server's JSON exactly; omitempty keeps optional knobs off the wire when
// unset so the server applies its own defaults.

// Message is a single chat turn in the structured chat format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user-role chat message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant-role chat message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// Options are the sampling parameters sent with generation requests.
type Options struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// GenerateRequest is the body for POST /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// generateResponse is the decoded body of a /api/generate reply. Response is
// a pointer so a 200 with the field absent is distinguishable from an empty
// string; absence is a malformed reply.
type generateResponse struct {
	Model        string  `json:"model"`
	Response     *string `json:"response"`
	Done         bool    `json:"done"`
	EvalDuration int64   `json:"eval_duration"`
}

// ChatRequest is the body for POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// chatResponse is the decoded body of a /api/chat reply.
type chatResponse struct {
	Message      *Message `json:"message"`
	Done         bool     `json:"done"`
	EvalDuration int64    `json:"eval_duration"`
}

// ModelEntry describes one installed model as reported by GET /api/tags.
type ModelEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ModelList is the reply to GET /api/tags.
type ModelList struct {
	Models []ModelEntry `json:"models"`
}

// showRequest is the body for POST /api/show.
type showRequest struct {
	Name string `json:"name"`
}

// ModelInfo is the reply to POST /api/show: the model card for one model.
type ModelInfo struct {
	License    string         `json:"license,omitempty"`
	Modelfile  string         `json:"modelfile,omitempty"`
	Parameters string         `json:"parameters,omitempty"`
	Template   string         `json:"template,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// pullRequest is the body for POST /api/pull.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// PullProgress is one status event from the model download stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Err       string `json:"error,omitempty"`
}
