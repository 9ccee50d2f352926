// deepchat - An interactive terminal client for local LLM chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/deepchat/internal/config"
	"github.com/jeranaias/deepchat/internal/dispatch"
	"github.com/jeranaias/deepchat/internal/gateway"
	"github.com/jeranaias/deepchat/internal/model"
	"github.com/jeranaias/deepchat/internal/monitor"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// commands available at the prompt, used for the completer and /help.
var commandList = []string{
	"/help", "/status", "/connect", "/models", "/pull",
	"/info", "/model", "/url", "/mode", "/clear", "/quit",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger()

	a := &app{
		cfg:  cfg,
		log:  logger,
		conv: model.NewConversation(),
		mode: modeGenerate,
	}
	a.client = clientFromConfig(cfg, logger)

	if err := a.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes structured logs to ~/.deepchat/deepchat.log so log lines
// never interleave with the prompt. Falls back to stderr.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEEPCHAT_DEBUG") != "" {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if dir, err := config.ConfigDir(); err == nil {
		if err := os.MkdirAll(dir, 0755); err == nil {
			if f, err := os.OpenFile(filepath.Join(dir, "deepchat.log"),
				os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
				w = f
			}
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// clientFromConfig maps the file configuration onto a gateway client.
func clientFromConfig(cfg *config.Config, logger *slog.Logger) *gateway.Client {
	return gateway.NewClientWithConfig(gateway.ClientConfig{
		BaseURL:         cfg.Server.URL,
		Model:           cfg.Server.Model,
		HealthTimeout:   time.Duration(cfg.Timeouts.HealthSeconds) * time.Second,
		GenerateTimeout: time.Duration(cfg.Timeouts.GenerateSeconds) * time.Second,
		PullTimeout:     time.Duration(cfg.Timeouts.PullSeconds) * time.Second,
		Temperature:     cfg.Sampling.Temperature,
		TopP:            cfg.Sampling.TopP,
		MaxTokens:       cfg.Sampling.MaxTokens,
		ContextWindow:   cfg.Chat.ContextWindow,
		Logger:          logger,
	})
}

// =============================================================================
// APPLICATION
// =============================================================================

// chat modes: generate flattens history into a plain prompt, chat sends
// structured turns to the chat endpoint.
const (
	modeGenerate = "generate"
	modeChat     = "chat"
)

// app owns all mutable state. The REPL loop is the single writer for the
// conversation; the config and client pair is shared with the watcher and
// monitor goroutines and guarded by clientMu.
type app struct {
	log  *slog.Logger
	conv *model.Conversation
	mode string

	clientMu sync.RWMutex
	cfg      *config.Config
	client   *gateway.Client

	mon  *monitor.Monitor
	disp *dispatch.Dispatcher
	line *liner.State
}

// gateway returns the current client. The monitor's probe goroutine calls
// this while the REPL or the config watcher may be swapping clients.
func (a *app) gateway() *gateway.Client {
	a.clientMu.RLock()
	defer a.clientMu.RUnlock()
	return a.client
}

// configSnapshot returns a copy of the current config for mutation off-lock.
func (a *app) configSnapshot() config.Config {
	a.clientMu.RLock()
	defer a.clientMu.RUnlock()
	return *a.cfg
}

// applyConfig installs a validated config and a client built from it.
func (a *app) applyConfig(cfg *config.Config) {
	client := clientFromConfig(cfg, a.log)
	a.clientMu.Lock()
	a.cfg = cfg
	a.client = client
	a.clientMu.Unlock()
}

// reloadFromDisk re-reads the config file after an external edit and swaps
// in a client for the new settings. Invalid edits are logged and ignored so
// a half-saved file cannot take the session down. Returns true when a new
// config was applied.
func (a *app) reloadFromDisk(path string) bool {
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		a.log.Warn("ignoring invalid config edit", "path", path, "error", err)
		return false
	}
	a.log.Info("config file changed on disk, reloading",
		"url", cfg.Server.URL, "model", cfg.Server.Model)
	a.applyConfig(cfg)
	return true
}

// CheckConnection lets the monitor probe whichever client is current.
func (a *app) CheckConnection(ctx context.Context) bool {
	return a.gateway().CheckConnection(ctx)
}

func (a *app) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.mon = monitor.New(a, monitor.Options{Logger: a.log})
	a.mon.Start(ctx)
	defer a.mon.Stop()

	a.disp = dispatch.New(a.configSnapshot().Chat.MaxConcurrent, a.log)
	defer a.disp.Wait()

	// External config edits reload the settings, swap the client, and
	// trigger a re-check of the (possibly new) endpoint.
	if path, err := config.DefaultPath(); err == nil {
		if w, werr := config.NewWatcher(path, 0); werr == nil {
			if werr = w.Watch(); werr != nil {
				w.Close()
			} else {
				defer w.Close()
				go func() {
					for range w.Changes() {
						if a.reloadFromDisk(path) {
							a.mon.ConfigChanged()
						}
					}
				}()
			}
		}
	}

	a.line = liner.NewLiner()
	defer a.line.Close()
	a.line.SetCtrlCAborts(true)
	a.line.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range commandList {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	})

	fmt.Printf("deepchat %s  (model %s at %s)\n", Version, a.gateway().Model(), a.gateway().BaseURL())
	fmt.Println("Type a message, or /help for commands.")

	for {
		a.drainStatus()

		input, err := a.line.Prompt("you> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			// EOF ends the session.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		a.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := a.handleCommand(ctx, input); quit {
				return nil
			}
			continue
		}

		a.send(ctx, input)
	}
}

// drainStatus prints any pending connection state transitions.
func (a *app) drainStatus() {
	for {
		select {
		case st := <-a.mon.Updates():
			printStatus(st)
		default:
			return
		}
	}
}

func printStatus(st monitor.State) {
	switch st {
	case monitor.StateConnected:
		fmt.Println("[server connected]")
	case monitor.StateDisconnected:
		fmt.Println("[server disconnected]")
	}
}

// =============================================================================
// CHAT TURNS
// =============================================================================

// send dispatches one user turn and blocks until the reply arrives, printing
// connection transitions while waiting. History snapshots are taken before
// the dispatch so the worker never touches the live conversation.
func (a *app) send(ctx context.Context, input string) {
	turns := a.conv.Turns()
	messages := a.conv.GatewayMessages()
	a.conv.AddUserMessage(input)

	client := a.gateway()
	mode := a.mode
	h := dispatch.Dispatch(a.disp, ctx, mode, func(ctx context.Context) gateway.Result {
		if mode == modeChat {
			msgs := append(messages, gateway.NewUserMessage(input))
			return client.Chat(ctx, msgs, nil)
		}
		return client.GenerateResponse(ctx, input, turns, nil)
	})

	fmt.Println("thinking...")
	for {
		select {
		case res := <-h.Out():
			msg := a.conv.AddAssistantMessage(res.Message())
			fmt.Printf("[%s] assistant> %s\n", msg.Clock(), msg.Content)
			if !res.Succeeded() {
				// A failed generation does not change connection state;
				// only a health check may do that.
				a.mon.CheckNow()
			}
			return
		case st := <-a.mon.Updates():
			printStatus(st)
		}
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (a *app) handleCommand(ctx context.Context, input string) (quit bool) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		a.printHelp()
	case "/status":
		a.printStatusLine()
	case "/connect":
		fmt.Println("checking connection...")
		a.mon.CheckNow()
		a.awaitStatus(2 * time.Second)
	case "/models":
		a.listModels(ctx)
	case "/pull":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		a.pullModel(ctx, name)
	case "/info":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		a.showModelInfo(ctx, name)
	case "/model":
		if len(args) == 0 {
			fmt.Printf("current model: %s\n", a.gateway().Model())
			break
		}
		a.updateSettings(args[0], "")
	case "/url":
		if len(args) == 0 {
			fmt.Printf("current server: %s\n", a.gateway().BaseURL())
			break
		}
		a.updateSettings("", args[0])
	case "/mode":
		if len(args) == 0 || (args[0] != modeGenerate && args[0] != modeChat) {
			fmt.Printf("mode is %q (use /mode generate or /mode chat)\n", a.mode)
			break
		}
		a.mode = args[0]
		fmt.Printf("mode set to %s\n", a.mode)
	case "/clear":
		a.conv.Clear()
		fmt.Println("history cleared")
	case "/quit", "/exit":
		return true
	default:
		fmt.Printf("unknown command %s (try /help)\n", cmd)
	}
	return false
}

func (a *app) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /status          show connection state, server and model")
	fmt.Println("  /connect         run a connection check now")
	fmt.Println("  /models          list installed models")
	fmt.Println("  /pull [model]    download a model (default: configured model)")
	fmt.Println("  /info [model]    show model details")
	fmt.Println("  /model [name]    show or change the active model")
	fmt.Println("  /url [addr]      show or change the server address")
	fmt.Println("  /mode [m]        switch between generate and chat endpoints")
	fmt.Println("  /clear           clear conversation history")
	fmt.Println("  /quit            exit")
}

func (a *app) printStatusLine() {
	fmt.Printf("state=%s server=%s model=%s mode=%s history=%d\n",
		a.mon.State(), a.gateway().BaseURL(), a.gateway().Model(), a.mode, a.conv.Len())
}

// awaitStatus waits briefly for a state transition; if the check confirms the
// current state no transition arrives, so fall back to printing it.
func (a *app) awaitStatus(wait time.Duration) {
	select {
	case st := <-a.mon.Updates():
		printStatus(st)
	case <-time.After(wait):
		fmt.Printf("state=%s\n", a.mon.State())
	}
}

func (a *app) listModels(ctx context.Context) {
	client := a.gateway()
	type outcome struct {
		list *gateway.ModelList
		err  error
	}
	h := dispatch.Dispatch(a.disp, ctx, "list models", func(ctx context.Context) outcome {
		list, err := client.ListModels(ctx)
		return outcome{list: list, err: err}
	})
	out := <-h.Out()
	if out.err != nil {
		fmt.Printf("cannot list models: %v\n", out.err)
		return
	}
	if len(out.list.Models) == 0 {
		fmt.Println("no models installed")
		return
	}
	for _, m := range out.list.Models {
		fmt.Printf("  %-40s %6.1f GB\n", m.Name, float64(m.Size)/(1<<30))
	}
}

func (a *app) pullModel(ctx context.Context, name string) {
	client := a.gateway()
	if name == "" {
		name = client.Model()
	}
	fmt.Printf("pulling %s...\n", name)

	h := a.disp.DispatchPull(ctx, client, name)
	for p := range h.Progress() {
		if p.Total > 0 {
			fmt.Printf("  %s (%.0f%%)\n", p.Status, 100*float64(p.Completed)/float64(p.Total))
		} else {
			fmt.Printf("  %s\n", p.Status)
		}
	}
	if ok := <-h.Out(); ok {
		fmt.Printf("%s installed\n", name)
		a.mon.CheckNow()
	} else {
		fmt.Printf("pull of %s failed (see log)\n", name)
	}
}

func (a *app) showModelInfo(ctx context.Context, name string) {
	client := a.gateway()
	type outcome struct {
		info *gateway.ModelInfo
		err  error
	}
	h := dispatch.Dispatch(a.disp, ctx, "model info", func(ctx context.Context) outcome {
		info, err := client.GetModelInfo(ctx, name)
		return outcome{info: info, err: err}
	})
	out := <-h.Out()
	if out.err != nil {
		fmt.Printf("cannot fetch model info: %v\n", out.err)
		return
	}
	if out.info.Parameters != "" {
		fmt.Printf("parameters:\n%s\n", out.info.Parameters)
	}
	if out.info.Template != "" {
		fmt.Printf("template:\n%s\n", out.info.Template)
	}
	if len(out.info.Details) > 0 {
		for k, v := range out.info.Details {
			fmt.Printf("  %s: %v\n", k, v)
		}
	}
}

// updateSettings changes the model and/or server URL, persists the config,
// swaps in a fresh client, and schedules a re-check because the old reading
// no longer describes the new endpoint.
func (a *app) updateSettings(newModel, newURL string) {
	cfg := a.configSnapshot()
	if newModel != "" {
		cfg.Server.Model = newModel
	}
	if newURL != "" {
		cfg.Server.URL = newURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid setting: %v\n", err)
		return
	}
	if err := cfg.Save(); err != nil {
		a.log.Warn("failed to save config", "error", err)
		fmt.Printf("warning: settings not saved: %v\n", err)
	}

	a.applyConfig(&cfg)
	fmt.Printf("now using model %s at %s\n", a.gateway().Model(), a.gateway().BaseURL())
	a.mon.ConfigChanged()
}
