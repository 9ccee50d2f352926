// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: Container for a chat session's message history
//   - Message: Single immutable message with role, content, and timestamp
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Create a conversation and append turns:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Hello!")
//	conv.AddAssistantMessage("Hi, how can I help?")
//
// The conversation is owned by a single writer (the driver loop); background
// workers only ever receive copies of its contents.
package model
