// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the rigchat CLI.
//
// CLI: Comprehensive help and examples for all commands
// USABILITY: Markdown rendering and history for better CLI experience
//
// Handles the "rigchat chat" command which provides an interactive REPL
// for conversing with the LLM, with every exchange persisted to the
// conversation store.
//
// Command: chat
// Short:   Start an interactive chat session
// Aliases: (none)
//
// Examples:
//   rigchat                             Start a new conversation
//   rigchat chat conv_0195...           Resume a conversation
//   rigchat chat --model qwen2.5:14b    Use specific model
//   rigchat chat --local                Skip Postgres, use local files
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new [title]        Start a new conversation
//   /list               List recent conversations
//   /load <id>          Load a conversation
//   /search <query>     Search conversations
//   /rename <title>     Rename the current conversation
//   /save               Save the current conversation now
//   /history            Replay the current conversation
//   /stats              Show storage statistics
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/llm"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Prompt style
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	// Welcome banner style
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	// Info style
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// Command style
	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// Warning style
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Session summary header
	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// Get history file path in config directory
	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	// Load existing history
	cli.LoadHistory()

	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	// Add non-empty input to history
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	// Ensure config directory exists
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// Create file with secure permissions (0600 - owner read/write only)
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	// Conversation manager (persistence and context window)
	Manager *chat.Manager

	// Ollama client
	Client *llm.Client

	// Configuration
	Config *config.Config
	Quiet  bool

	// Model may be swapped mid-session by /model or a config reload.
	modelMu sync.Mutex
	model   string

	// Tracking
	StartTime time.Time
	Queries   int

	// Cancel function for current generation
	CancelFunc context.CancelFunc

	// Input history handler
	// USABILITY: Provides readline-like input with history
	InputCLI *ChatCLI
}

// NewChatSession creates a new chat session from the wired App.
func NewChatSession(app *App) *ChatSession {
	return &ChatSession{
		Manager:   app.Manager,
		Client:    app.Generator(),
		Config:    app.Cfg,
		model:     app.Cfg.LLM.Model,
		Quiet:     app.Args.Quiet,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// Model returns the model currently in effect.
func (s *ChatSession) Model() string {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	return s.model
}

// SetModel switches the model for subsequent generations.
func (s *ChatSession) SetModel(name string) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	s.model = name
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(ctx context.Context, app *App) error {
	session := NewChatSession(app)

	// Check if Ollama is running
	if err := session.Client.CheckRunning(ctx); err != nil {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	// Resume an existing conversation if an id was given
	if app.Args.ID != "" {
		conv, err := session.Manager.Load(ctx, app.Args.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("conversation not found: %s", app.Args.ID)
			}
			return fmt.Errorf("load conversation: %w", err)
		}
		if !session.Quiet {
			fmt.Printf("%s %s (%d messages)\n",
				commandStyle.Render("[Resumed]"),
				conv.Title,
				conv.MessageCount())
		}
	}

	// Live-reload model and chat settings when the config file is edited
	// mid-session. An explicit --model flag pins the model for the whole
	// session.
	if path, err := config.ConfigPathTOML(); err == nil && app.Args.Model == "" {
		watcher, werr := config.NewWatcher(path, func(cfg *config.Config) {
			session.SetModel(cfg.LLM.Model)
			app.Manager.UpdateConfig(chat.Config{
				MaxContextMessages: cfg.Chat.MaxContextMessages,
				AutoSave:           cfg.Chat.AutoSave,
				RetentionDays:      cfg.Retention.CleanupDays,
			})
		}, app.Log)
		if werr == nil && watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	// Show welcome message
	if !session.Quiet {
		printWelcome(session)
	}

	// Ensure input history is saved on exit
	// USABILITY: Save history for future sessions
	defer session.InputCLI.Close()

	// Set up signal handling for graceful Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle signals in a goroutine
	go func() {
		for sig := range sigChan {
			if sig == os.Interrupt || sig == syscall.SIGTERM {
				// First Ctrl+C cancels current generation
				if session.CancelFunc != nil {
					session.CancelFunc()
					session.CancelFunc = nil
					fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
				}
			}
		}
	}()

	// A bare prompt on the command line becomes the first message
	if app.Args.Query != "" {
		if err := processMessage(ctx, session, app.Args.Query); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}

	// Main REPL loop using liner for input history
	// USABILITY: Provides readline-like line editing and history navigation
	for {
		// Read input with history support
		input, err := session.InputCLI.ReadInput(promptStyle.Render("rigchat> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C pressed - exit gracefully
				fmt.Println()
				printExitSummary(session)
				return nil
			}
			// EOF (Ctrl+D) or other error - exit gracefully
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)

		// Skip empty input
		if input == "" {
			continue
		}

		// Handle slash commands
		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(ctx, input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n",
					errorStyle.Render("[Error]"),
					err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		// Handle exit/quit without slash
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		// Process the message
		if err := processMessage(ctx, session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n",
				errorStyle.Render("[Error]"),
				err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage appends the user message, generates a reply over the
// bounded context window, and persists both sides of the exchange.
func processMessage(parent context.Context, session *ChatSession, input string) error {
	// Create cancellable context for this generation
	ctx, cancel := context.WithCancel(parent)
	session.CancelFunc = cancel
	defer func() {
		session.CancelFunc = nil
		cancel()
	}()

	isNew := session.Manager.Current() == nil

	// Persist the user message first; a crash mid-generation must not
	// lose the question.
	conv, err := session.Manager.Append(ctx, model.RoleUser, input)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}

	if isNew && !session.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			infoStyle.Render("[Conversation]"),
			conv.ID)
	}

	startTime := time.Now()

	// Only the bounded window travels to the model
	window := session.Manager.ContextWindow()

	response, err := session.Client.Generate(ctx, window, chat.GenerateOptions{
		Model:        session.Model(),
		SystemPrompt: session.Config.LLM.SystemPrompt,
		Temperature:  session.Config.LLM.Temperature,
	})
	if err != nil {
		if llm.IsNotRunning(err) {
			return fmt.Errorf("Ollama stopped responding: %w", err)
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	// USABILITY: Render markdown on TTY for better formatting
	fmt.Println()
	if IsStdoutTTY() && session.Config.UI.Markdown {
		displayResponse(response)
	} else {
		fmt.Println(response)
	}
	fmt.Println()

	if _, err := session.Manager.Append(ctx, model.RoleAssistant, response); err != nil {
		return fmt.Errorf("record response: %w", err)
	}

	session.Queries++

	// Show brief stats (unless quiet)
	if !session.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s | %s\n",
			infoStyle.Render("[Stats]"),
			session.Model(),
			time.Since(startTime).Round(time.Millisecond))
	}

	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(ctx context.Context, cmd string, session *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printChatHelp()
		return true, nil

	case "/new", "/n":
		conv := session.Manager.StartNew()
		if len(args) > 0 {
			conv.Title = strings.Join(args, " ")
		}
		fmt.Println(commandStyle.Render("[New conversation]"))
		return true, nil

	case "/list", "/ls":
		return true, slashList(ctx, session)

	case "/load", "/l":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /load <id>")
		}
		return true, slashLoad(ctx, session, args[0])

	case "/search":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /search <query>")
		}
		return true, slashSearch(ctx, session, strings.Join(args, " "))

	case "/rename":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /rename <title>")
		}
		return true, slashRename(ctx, session, strings.Join(args, " "))

	case "/save":
		if session.Manager.Current() == nil {
			return true, fmt.Errorf("no active conversation")
		}
		if err := session.Manager.Save(ctx); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[Saved]"))
		return true, nil

	case "/model", "/m":
		if len(args) == 0 {
			fmt.Printf("%s Current model: %s\n",
				infoStyle.Render("[Model]"),
				commandStyle.Render(session.Model()))
			return true, nil
		}
		session.SetModel(args[0])
		fmt.Printf("%s Switched to model: %s\n",
			commandStyle.Render("[OK]"),
			args[0])
		return true, nil

	case "/history":
		printHistory(session)
		return true, nil

	case "/stats", "/s":
		return true, slashStats(ctx, session)

	case "/quit", "/q", "/exit":
		return false, nil

	case "/":
		// Just "/" shows help
		printChatHelp()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// slashList prints recent conversations inside the REPL.
func slashList(ctx context.Context, session *ChatSession) error {
	summaries, err := session.Manager.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println(infoStyle.Render("[No saved conversations]"))
		return nil
	}

	// Keep the in-REPL listing short
	const maxRows = 15
	if len(summaries) > maxRows {
		summaries = summaries[:maxRows]
	}

	fmt.Println()
	for _, s := range summaries {
		fmt.Printf("  %s  %s %s\n",
			commandStyle.Render(s.ID),
			util.TruncateWidth(s.Title, 40),
			infoStyle.Render(s.UpdatedAt.Format("2006-01-02 15:04")))
	}
	fmt.Println()
	return nil
}

// slashLoad switches the REPL to another conversation.
func slashLoad(ctx context.Context, session *ChatSession, id string) error {
	conv, err := session.Manager.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", id)
		}
		return err
	}
	fmt.Printf("%s %s (%d messages)\n",
		commandStyle.Render("[Loaded]"),
		conv.Title,
		conv.MessageCount())
	return nil
}

// slashSearch searches conversations from inside the REPL.
func slashSearch(ctx context.Context, session *ChatSession, query string) error {
	results, err := session.Manager.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("%s no matches for %q\n", infoStyle.Render("[Search]"), query)
		return nil
	}

	const maxRows = 10
	if len(results) > maxRows {
		results = results[:maxRows]
	}

	fmt.Println()
	for _, r := range results {
		fmt.Printf("  %s  %s %s\n",
			commandStyle.Render(r.ID),
			util.TruncateWidth(r.Title, 40),
			infoStyle.Render(fmt.Sprintf("score %.2f", r.Score)))
	}
	fmt.Println()
	return nil
}

// slashRename retitles the current conversation.
func slashRename(ctx context.Context, session *ChatSession, title string) error {
	current := session.Manager.Current()
	if current == nil {
		return fmt.Errorf("no active conversation to rename")
	}
	if err := session.Manager.Rename(ctx, current.ID, title); err != nil {
		return err
	}
	fmt.Printf("%s Renamed to %q\n", commandStyle.Render("[OK]"), title)
	return nil
}

// slashStats shows storage statistics inside the REPL.
func slashStats(ctx context.Context, session *ChatSession) error {
	stats, err := session.Manager.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("  %s %s\n", infoStyle.Render("Backend:"), commandStyle.Render(stats.Backend))
	fmt.Printf("  %s %d\n", infoStyle.Render("Conversations:"), stats.Conversations)
	fmt.Printf("  %s %s\n", infoStyle.Render("Storage:"), formatBytes(stats.SizeBytes))
	fmt.Println()
	return nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("rigchat interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(session.Model()))

	if session.Config.Storage.UsePrimary {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Storage:"),
			commandStyle.Render("Postgres (file fallback)"))
	} else {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Storage:"),
			commandStyle.Render("Local files"))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints available slash commands.
func printChatHelp() {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new [title]", "Start a new conversation"},
		{"/list, /ls", "List recent conversations"},
		{"/load <id>", "Load a conversation"},
		{"/search <query>", "Search conversations"},
		{"/rename <title>", "Rename the current conversation"},
		{"/save", "Save the current conversation now"},
		{"/model [name]", "Show or switch model"},
		{"/history", "Replay the current conversation"},
		{"/stats, /s", "Show storage statistics"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-16s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels current generation, Ctrl+D exits"))
	fmt.Println()
}

// printHistory prints the current conversation history.
func printHistory(session *ChatSession) {
	current := session.Manager.Current()
	if current == nil || current.IsEmpty() {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render(current.Title))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range current.Messages {
		role := RoleStyle(msg.Role.String()).Render(msg.Role.DisplayName())

		// Truncate long messages using rune-based truncation for Unicode safety
		content := util.TruncateRunes(msg.Content, 100)
		content = strings.ReplaceAll(content, "\n", " ")

		fmt.Printf("  %d. %s: %s\n", i+1, role, content)
	}

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(session *ChatSession) {
	// Skip if no queries
	if session.Queries == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Summary"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))

	fmt.Printf("  %s %d\n",
		infoStyle.Render("Exchanges:"),
		session.Queries)
	if current := session.Manager.Current(); current != nil {
		fmt.Printf("  %s %s\n",
			infoStyle.Render("Conversation:"),
			current.ID)
	}
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())

	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
