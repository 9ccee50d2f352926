// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/deepchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	if r == RoleUser {
		return "You"
	}
	return "Assistant"
}

// IsValid returns true if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation. Messages are immutable once
// created; the driver appends a complete message per turn and never edits
// one in place.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// Role identifies the message author.
	Role Role `json:"role"`

	// Content is the full message text.
	Content string `json:"content"`

	// Timestamp records when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// Preview returns a short, single-line preview of the message content.
// UNICODE: truncation is rune-aware so multi-byte characters never split.
func (m *Message) Preview(maxRunes int) string {
	return util.TruncateRunes(firstLine(m.Content), maxRunes)
}

// Clock returns the message time in HH:MM form for transcript display.
func (m *Message) Clock() string {
	return m.Timestamp.Format("15:04")
}

// IsUser returns true if this message came from the user.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
