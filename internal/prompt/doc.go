// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt flattens conversation history into the plain-text transcript
// format the generate endpoint expects.
//
// The builder is a pure function: the same history and prompt always produce
// the same string. History is bounded to a fixed window of the most recent
// turns so the payload stays small no matter how long the conversation runs.
package prompt
