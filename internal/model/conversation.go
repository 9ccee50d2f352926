// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/deepchat/internal/gateway"
	"github.com/jeranaias/deepchat/internal/prompt"
	"github.com/jeranaias/deepchat/internal/util"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// MaxMessages caps the in-memory history. When the cap is exceeded the oldest
// messages are dropped; the prompt window only ever needs a recent suffix, so
// nothing the model can see is lost.
const MaxMessages = 1000

// Conversation holds the message history of one chat session. It is NOT safe
// for concurrent use: the driver loop is the single writer, and background
// workers receive copies taken on that loop (Turns, GatewayMessages) rather
// than a reference to the live slice.
type Conversation struct {
	// ID uniquely identifies the conversation.
	ID string `json:"id"`

	// CreatedAt records when the conversation started.
	CreatedAt time.Time `json:"created_at"`

	messages []*Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}

// AddMessage appends a message and returns it. History beyond MaxMessages is
// pruned from the front.
func (c *Conversation) AddMessage(m *Message) *Message {
	c.messages = append(c.messages, m)
	if len(c.messages) > MaxMessages {
		c.messages = c.messages[len(c.messages)-MaxMessages:]
	}
	return m
}

// AddUserMessage appends a new user message with the given content.
func (c *Conversation) AddUserMessage(content string) *Message {
	return c.AddMessage(NewUserMessage(content))
}

// AddAssistantMessage appends a new assistant message with the given content.
func (c *Conversation) AddAssistantMessage(content string) *Message {
	return c.AddMessage(NewAssistantMessage(content))
}

// Clear removes all messages. The conversation identity is retained.
func (c *Conversation) Clear() {
	c.messages = nil
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Messages returns a copy of the message slice. Mutating the returned slice
// does not affect the conversation.
func (c *Conversation) Messages() []*Message {
	out := make([]*Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// LastN returns a copy of the most recent n messages in original order.
func (c *Conversation) LastN(n int) []*Message {
	if n <= 0 || len(c.messages) == 0 {
		return nil
	}
	if n > len(c.messages) {
		n = len(c.messages)
	}
	out := make([]*Message, n)
	copy(out, c.messages[len(c.messages)-n:])
	return out
}

// Title derives a short title from the first user message, or a placeholder
// for an empty conversation.
func (c *Conversation) Title() string {
	for _, m := range c.messages {
		if m.Role == RoleUser {
			return util.TruncateRunes(firstLine(m.Content), 50)
		}
	}
	return "New conversation"
}

// =============================================================================
// GATEWAY CONVERSION
// =============================================================================

// Turns converts the full history into prompt-builder turns. The builder
// applies its own window, so the caller does not pre-slice.
func (c *Conversation) Turns() []prompt.Turn {
	turns := make([]prompt.Turn, 0, len(c.messages))
	for _, m := range c.messages {
		turns = append(turns, prompt.Turn{Role: m.Role.String(), Content: m.Content})
	}
	return turns
}

// GatewayMessages converts the full history into the structured chat wire
// format.
func (c *Conversation) GatewayMessages() []gateway.Message {
	msgs := make([]gateway.Message, 0, len(c.messages))
	for _, m := range c.messages {
		msgs = append(msgs, gateway.Message{Role: m.Role.String(), Content: m.Content})
	}
	return msgs
}
