// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for deepchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DEEPCHAT_*)
//   - ~/.deepchat/config.toml
//   - ~/.deepchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.Server.URL
//	window := cfg.Chat.ContextWindow
//
// Saves are atomic with 0600 permissions. A fsnotify-based watcher reports
// external edits so the application can re-check connectivity when the
// endpoint changes underneath it.
package config
