// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS AND FILL
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Server.URL != "http://localhost:11434" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Model != "deepseek-r1" {
		t.Errorf("Server.Model = %q", cfg.Server.Model)
	}
	if cfg.Sampling.Temperature != 0.7 || cfg.Sampling.TopP != 0.9 || cfg.Sampling.MaxTokens != 2000 {
		t.Errorf("Sampling = %+v", cfg.Sampling)
	}
	if cfg.Timeouts.HealthSeconds != 5 || cfg.Timeouts.GenerateSeconds != 120 || cfg.Timeouts.PullSeconds != 600 {
		t.Errorf("Timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Chat.ContextWindow != 10 {
		t.Errorf("ContextWindow = %d", cfg.Chat.ContextWindow)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestFillDefaultsOnPartialConfig(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Model: "llama3.2"}}
	cfg.fillDefaults()

	if cfg.Server.Model != "llama3.2" {
		t.Errorf("Model = %q, explicit value overwritten", cfg.Server.Model)
	}
	if cfg.Server.URL == "" || cfg.Sampling.MaxTokens == 0 || cfg.Timeouts.PullSeconds == 0 {
		t.Errorf("defaults not filled: %+v", cfg)
	}
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0"

[server]
url = "http://10.0.0.5:11434"
model = "mistral"

[sampling]
temperature = 0.2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.URL != "http://10.0.0.5:11434" {
		t.Errorf("URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Model != "mistral" {
		t.Errorf("Model = %q", cfg.Server.Model)
	}
	if cfg.Sampling.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.Sampling.Temperature)
	}
	// Unset fields fall back to defaults.
	if cfg.Sampling.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want default", cfg.Sampling.MaxTokens)
	}
}

func TestLoadFromJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"server": {"url": "http://localhost:9999", "model": "phi3"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.URL != "http://localhost:9999" || cfg.Server.Model != "phi3" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[sampling]
temperature = 9.5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected validation error for temperature 9.5")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.Model = "codellama"
	cfg.Chat.ContextWindow = 20
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	// Owner-only permissions on the saved file.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.Model != "codellama" || loaded.Chat.ContextWindow != 20 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEEPCHAT_URL", "http://envhost:11434")
	t.Setenv("DEEPCHAT_MODEL", "env-model")
	t.Setenv("DEEPCHAT_TEMPERATURE", "0.3")
	t.Setenv("DEEPCHAT_MAX_TOKENS", "512")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "http://envhost:11434" {
		t.Errorf("URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Model != "env-model" {
		t.Errorf("Model = %q", cfg.Server.Model)
	}
	if cfg.Sampling.Temperature != 0.3 {
		t.Errorf("Temperature = %v", cfg.Sampling.Temperature)
	}
	if cfg.Sampling.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d", cfg.Sampling.MaxTokens)
	}
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("DEEPCHAT_TEMPERATURE", "hot")
	t.Setenv("DEEPCHAT_MAX_TOKENS", "-5")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Sampling.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want default kept", cfg.Sampling.Temperature)
	}
	if cfg.Sampling.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want default kept", cfg.Sampling.MaxTokens)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.Server.URL = "localhost:11434" }, "server.url"},
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://host" }, "server.url"},
		{"empty model", func(c *Config) { c.Server.Model = "  " }, "server.model"},
		{"temperature high", func(c *Config) { c.Sampling.Temperature = 2.5 }, "sampling.temperature"},
		{"top_p high", func(c *Config) { c.Sampling.TopP = 1.5 }, "sampling.top_p"},
		{"max_tokens negative", func(c *Config) { c.Sampling.MaxTokens = -1 }, "sampling.max_tokens"},
		{"zero timeout", func(c *Config) { c.Timeouts.HealthSeconds = 0 }, "timeouts"},
		{"zero window", func(c *Config) { c.Chat.ContextWindow = -2 }, "chat.context_window"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error type %T, want *ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("Field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcherReportsConfigEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := Default().SaveToPath(path); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := Default()
	cfg.Server.Model = "edited"
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change event after config edit")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := Default().SaveToPath(path); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
		t.Fatal("change event for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
