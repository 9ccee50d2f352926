// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/deepchat/internal/util"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the root configuration structure.
type Config struct {
	// Version tracks the config schema for future migrations.
	Version string `toml:"version" json:"version"`

	// Server holds the inference server connection settings.
	Server ServerConfig `toml:"server" json:"server"`

	// Sampling holds the default generation parameters.
	Sampling SamplingConfig `toml:"sampling" json:"sampling"`

	// Timeouts holds the per-operation-class time budgets in seconds.
	Timeouts TimeoutConfig `toml:"timeouts" json:"timeouts"`

	// Chat holds driver behavior settings.
	Chat ChatConfig `toml:"chat" json:"chat"`
}

// ServerConfig identifies the inference server and model.
type ServerConfig struct {
	// URL is the server endpoint, e.g. "http://localhost:11434".
	URL string `toml:"url" json:"url"`

	// Model is the default model name.
	Model string `toml:"model" json:"model"`
}

// SamplingConfig holds default generation parameters.
type SamplingConfig struct {
	Temperature float64 `toml:"temperature" json:"temperature"`
	TopP        float64 `toml:"top_p" json:"top_p"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens"`
}

// TimeoutConfig holds time budgets per operation class, in seconds.
type TimeoutConfig struct {
	// HealthSeconds bounds connection checks and tag listings.
	HealthSeconds int `toml:"health_seconds" json:"health_seconds"`

	// GenerateSeconds bounds generate and chat calls.
	GenerateSeconds int `toml:"generate_seconds" json:"generate_seconds"`

	// PullSeconds bounds a whole model download.
	PullSeconds int `toml:"pull_seconds" json:"pull_seconds"`
}

// ChatConfig holds driver behavior settings.
type ChatConfig struct {
	// ContextWindow is how many recent turns feed the prompt builder.
	ContextWindow int `toml:"context_window" json:"context_window"`

	// MaxConcurrent bounds background worker slots.
	MaxConcurrent int `toml:"max_concurrent" json:"max_concurrent"`
}

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = "1.0"

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a fully populated default configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			URL:   "http://localhost:11434",
			Model: "deepseek-r1",
		},
		Sampling: SamplingConfig{
			Temperature: 0.7,
			TopP:        0.9,
			MaxTokens:   2000,
		},
		Timeouts: TimeoutConfig{
			HealthSeconds:   5,
			GenerateSeconds: 120,
			PullSeconds:     600,
		},
		Chat: ChatConfig{
			ContextWindow: 10,
			MaxConcurrent: 4,
		},
	}
}

// fillDefaults replaces zero values with defaults so a partial config file is
// always usable.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Server.URL == "" {
		c.Server.URL = def.Server.URL
	}
	if c.Server.Model == "" {
		c.Server.Model = def.Server.Model
	}
	if c.Sampling.Temperature == 0 {
		c.Sampling.Temperature = def.Sampling.Temperature
	}
	if c.Sampling.TopP == 0 {
		c.Sampling.TopP = def.Sampling.TopP
	}
	if c.Sampling.MaxTokens == 0 {
		c.Sampling.MaxTokens = def.Sampling.MaxTokens
	}
	if c.Timeouts.HealthSeconds == 0 {
		c.Timeouts.HealthSeconds = def.Timeouts.HealthSeconds
	}
	if c.Timeouts.GenerateSeconds == 0 {
		c.Timeouts.GenerateSeconds = def.Timeouts.GenerateSeconds
	}
	if c.Timeouts.PullSeconds == 0 {
		c.Timeouts.PullSeconds = def.Timeouts.PullSeconds
	}
	if c.Chat.ContextWindow == 0 {
		c.Chat.ContextWindow = def.Chat.ContextWindow
	}
	if c.Chat.MaxConcurrent == 0 {
		c.Chat.MaxConcurrent = def.Chat.MaxConcurrent
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values. It returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "server.url", Message: "must be an absolute http(s) URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "server.url", Message: "scheme must be http or https"}
	}
	if strings.TrimSpace(c.Server.Model) == "" {
		return &ValidationError{Field: "server.model", Message: "must not be empty"}
	}
	if c.Sampling.Temperature < 0 || c.Sampling.Temperature > 2 {
		return &ValidationError{Field: "sampling.temperature", Message: "must be between 0 and 2"}
	}
	if c.Sampling.TopP < 0 || c.Sampling.TopP > 1 {
		return &ValidationError{Field: "sampling.top_p", Message: "must be between 0 and 1"}
	}
	if c.Sampling.MaxTokens < 1 {
		return &ValidationError{Field: "sampling.max_tokens", Message: "must be positive"}
	}
	if c.Timeouts.HealthSeconds < 1 || c.Timeouts.GenerateSeconds < 1 || c.Timeouts.PullSeconds < 1 {
		return &ValidationError{Field: "timeouts", Message: "all budgets must be at least one second"}
	}
	if c.Chat.ContextWindow < 1 {
		return &ValidationError{Field: "chat.context_window", Message: "must be positive"}
	}
	if c.Chat.MaxConcurrent < 1 {
		return &ValidationError{Field: "chat.max_concurrent", Message: "must be positive"}
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DEEPCHAT_* environment variables on top of the
// loaded configuration. Invalid numeric values are ignored rather than
// failing startup.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DEEPCHAT_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("DEEPCHAT_MODEL"); v != "" {
		c.Server.Model = v
	}
	if v := os.Getenv("DEEPCHAT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Sampling.Temperature = f
		}
	}
	if v := os.Getenv("DEEPCHAT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sampling.MaxTokens = n
		}
	}
	if v := os.Getenv("DEEPCHAT_CONTEXT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chat.ContextWindow = n
		}
	}
}

// =============================================================================
// LOADING AND SAVING
// =============================================================================

// ConfigDir returns the deepchat configuration directory (~/.deepchat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".deepchat"), nil
}

// DefaultPath returns the preferred config file path (TOML).
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads configuration from the standard locations, preferring TOML over
// JSON, falling back to defaults when no file exists. Environment overrides
// apply last. The result is always validated.
func Load() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}

	for _, name := range []string{"config.toml", "config.json"} {
		path := filepath.Join(dir, name)
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		return LoadFromPath(path)
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	return cfg, cfg.Validate()
}

// LoadFromPath reads configuration from an explicit file, detecting the
// format from the extension.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the default TOML path atomically with
// owner-only permissions.
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath writes the configuration to an explicit path, choosing the
// format from the extension. The write is atomic: a crash mid-save leaves
// either the old file or the new one, never a torn file.
func (c *Config) SaveToPath(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		var buf strings.Builder
		err = toml.NewEncoder(&buf).Encode(c)
		data = []byte(buf.String())
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0600)
}
