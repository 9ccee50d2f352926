// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import "strings"

// =============================================================================
// TRANSCRIPT BUILDER
// =============================================================================

// DefaultWindow is the number of most recent turns included in a transcript.
const DefaultWindow = 10

// Turn roles. Anything other than RoleUser is rendered with the assistant
// label, matching the server-side convention of two-party transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role    string
	Content string
}

// Build flattens history into a role-labeled transcript followed by the new
// prompt, using the default window. With no history the prompt is returned
// unchanged, so a fresh conversation carries no transcript scaffolding.
func Build(history []Turn, next string) string {
	return BuildN(history, next, DefaultWindow)
}

// BuildN is Build with an explicit window size n. Only the last n turns of
// history are included, oldest first; order within the window is preserved.
// n <= 0 drops the history entirely.
func BuildN(history []Turn, next string, n int) string {
	if len(history) == 0 || n <= 0 {
		return next
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}

	var b strings.Builder
	for _, turn := range history {
		b.WriteString(label(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("Human: ")
	b.WriteString(next)
	b.WriteString("\nAssistant:")
	return b.String()
}

func label(role string) string {
	if role == RoleUser {
		return "Human"
	}
	return "Assistant"
}
