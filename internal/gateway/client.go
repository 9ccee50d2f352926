// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/deepchat/internal/prompt"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Default connection settings for a local inference server.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "deepseek-r1"
)

// Default time budgets per operation class. Health checks fail fast so the
// monitor stays responsive; pulls run long because model downloads are
// measured in gigabytes.
const (
	DefaultHealthTimeout   = 5 * time.Second
	DefaultGenerateTimeout = 120 * time.Second
	DefaultPullTimeout     = 600 * time.Second
)

// Default sampling parameters applied when a call supplies no options.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 2000
)

// ClientConfig holds the settings for a gateway client. Zero values are
// replaced with defaults at construction, so a partially filled config is
// always safe to use.
type ClientConfig struct {
	// BaseURL is the server endpoint, e.g. "http://localhost:11434".
	BaseURL string
	// Model is the default model name for generation and pulls.
	Model string
	// HealthTimeout bounds connection checks and tag listings.
	HealthTimeout time.Duration
	// GenerateTimeout bounds generate and chat calls.
	GenerateTimeout time.Duration
	// PullTimeout bounds a whole model download.
	PullTimeout time.Duration
	// Temperature, TopP and MaxTokens are the default sampling parameters.
	Temperature float64
	TopP        float64
	MaxTokens   int
	// ContextWindow is how many recent history turns feed the generate
	// prompt. Defaults to prompt.DefaultWindow.
	ContextWindow int
	// Logger receives structured operation logs. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultClientConfig returns a fully populated default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:         DefaultBaseURL,
		Model:           DefaultModel,
		HealthTimeout:   DefaultHealthTimeout,
		GenerateTimeout: DefaultGenerateTimeout,
		PullTimeout:     DefaultPullTimeout,
		Temperature:     DefaultTemperature,
		TopP:            DefaultTopP,
		MaxTokens:       DefaultMaxTokens,
		ContextWindow:   prompt.DefaultWindow,
	}
}

func (c *ClientConfig) fillDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.GenerateTimeout == 0 {
		c.GenerateTimeout = DefaultGenerateTimeout
	}
	if c.PullTimeout == 0 {
		c.PullTimeout = DefaultPullTimeout
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.TopP == 0 {
		c.TopP = DefaultTopP
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = prompt.DefaultWindow
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an Ollama-compatible inference server. It is safe for
// concurrent use; the session pools connections underneath.
type Client struct {
	config  ClientConfig
	session *Session
	log     *slog.Logger
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultClientConfig())
}

// NewClientWithConfig creates a client, filling any zero config values with
// defaults.
func NewClientWithConfig(config ClientConfig) *Client {
	config.fillDefaults()
	return &Client{
		config:  config,
		session: NewSession(config.BaseURL),
		log:     config.Logger.With("component", "gateway"),
	}
}

// BaseURL returns the configured server endpoint.
func (c *Client) BaseURL() string {
	return c.session.BaseURL()
}

// Model returns the configured default model name.
func (c *Client) Model() string {
	return c.config.Model
}

// defaultOptions builds the sampling options from the client config.
func (c *Client) defaultOptions() *Options {
	return &Options{
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
		MaxTokens:   c.config.MaxTokens,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// CheckConnection probes the server with a short time budget. It returns true
// only when the server answers the tag listing with HTTP 200. Any transport
// fault, timeout, or non-200 status is false; this method never returns an
// error because reachability is a yes/no question.
func (c *Client) CheckConnection(ctx context.Context) bool {
	resp, cancel, err := c.session.Execute(ctx, http.MethodGet, "/api/tags", nil, c.config.HealthTimeout)
	if err != nil {
		c.log.Debug("connection check failed", "error", err)
		return false
	}
	defer cancel()
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("connection check rejected", "status", resp.StatusCode)
		return false
	}
	return true
}

// ListModels fetches the installed models from the server. Unlike
// CheckConnection this surfaces the classified error, so callers can report
// why the listing is unavailable.
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	resp, cancel, err := c.session.Execute(ctx, http.MethodGet, "/api/tags", nil, c.config.HealthTimeout)
	if err != nil {
		cerr := classifyTransport(err)
		c.log.Warn("list models failed", "kind", cerr.Kind.String(), "error", err)
		return nil, cerr
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, serverError(resp.StatusCode)
	}

	var list ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, malformedError("invalid model list: " + err.Error())
	}
	return &list, nil
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateResponse sends a prompt through POST /api/generate and returns the
// outcome as a Result. When history is non-empty it is flattened into a
// role-labeled transcript ahead of the prompt, bounded to the configured
// context window, so the model sees recent context without the payload
// growing without limit. A nil opts uses the configured sampling defaults.
func (c *Client) GenerateResponse(ctx context.Context, promptText string, history []prompt.Turn, opts *Options) Result {
	if opts == nil {
		opts = c.defaultOptions()
	}
	req := GenerateRequest{
		Model:   c.config.Model,
		Prompt:  prompt.BuildN(history, promptText, c.config.ContextWindow),
		Stream:  false,
		Options: opts,
	}

	start := time.Now()
	resp, cancel, err := c.session.Execute(ctx, http.MethodPost, "/api/generate", req, c.config.GenerateTimeout)
	if err != nil {
		cerr := classifyTransport(err)
		c.log.Warn("generate failed", "kind", cerr.Kind.String(), "error", err)
		return failure(cerr)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.log.Warn("generate rejected", "status", resp.StatusCode)
		return failure(serverError(resp.StatusCode))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return failure(malformedError("invalid generate response: " + err.Error()))
	}
	if gen.Response == nil {
		return failure(malformedError("generate response missing response field"))
	}

	c.log.Debug("generate complete",
		"model", req.Model,
		"elapsed", time.Since(start),
		"eval_duration", time.Duration(gen.EvalDuration))
	return success(strings.TrimSpace(*gen.Response), gen.EvalDuration)
}

// Chat sends structured messages through POST /api/chat and returns the
// assistant reply as a Result. The caller supplies the full message history;
// no flattening happens here because the chat endpoint takes turns natively.
func (c *Client) Chat(ctx context.Context, messages []Message, opts *Options) Result {
	if opts == nil {
		opts = c.defaultOptions()
	}
	req := ChatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   false,
		Options:  opts,
	}

	resp, cancel, err := c.session.Execute(ctx, http.MethodPost, "/api/chat", req, c.config.GenerateTimeout)
	if err != nil {
		cerr := classifyTransport(err)
		c.log.Warn("chat failed", "kind", cerr.Kind.String(), "error", err)
		return failure(cerr)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.log.Warn("chat rejected", "status", resp.StatusCode)
		return failure(serverError(resp.StatusCode))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return failure(malformedError("invalid chat response: " + err.Error()))
	}
	if chat.Message == nil {
		return failure(malformedError("chat response missing message field"))
	}
	return success(strings.TrimSpace(chat.Message.Content), chat.EvalDuration)
}

// =============================================================================
// MODEL MANAGEMENT
// =============================================================================

// GetModelInfo fetches the model card for the named model via POST /api/show.
// An empty name queries the configured default model.
func (c *Client) GetModelInfo(ctx context.Context, name string) (*ModelInfo, error) {
	if name == "" {
		name = c.config.Model
	}
	resp, cancel, err := c.session.Execute(ctx, http.MethodPost, "/api/show", showRequest{Name: name}, c.config.HealthTimeout)
	if err != nil {
		cerr := classifyTransport(err)
		c.log.Warn("model info failed", "model", name, "error", err)
		return nil, cerr
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, serverError(resp.StatusCode)
	}

	var info ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, malformedError("invalid model info: " + err.Error())
	}
	return &info, nil
}
