// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Non-interactive command handlers for rigchat.
//
// CLI: Comprehensive help and examples for all commands
//
// Commands: list, show, search, rename, delete, cleanup, stats,
// export, config. Each handler receives an App with the store already
// wired (Postgres with file fallback, or file-only).
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// LIST
// =============================================================================

// HandleList prints saved conversations, newest first.
func HandleList(ctx context.Context, app *App) error {
	summaries, err := app.Manager.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No saved conversations.")
		fmt.Println(RenderConditional(DimStyle, "Start one with: rigchat"))
		return nil
	}

	if app.Args.Limit > 0 && len(summaries) > app.Args.Limit {
		summaries = summaries[:app.Args.Limit]
	}

	fmt.Println(RenderConditional(TitleStyle, "Conversations"))
	fmt.Printf("%-32s %-40s %-6s %-17s\n", "ID", "Title", "Msgs", "Updated")
	fmt.Println(RenderSeparator(97))

	for _, s := range summaries {
		fmt.Printf("%-32s %-40s %-6d %-17s\n",
			util.TruncateWidth(s.ID, 32),
			util.TruncateWidth(s.Title, 40),
			s.MessageCount,
			s.UpdatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Println()
	fmt.Printf("Total: %d conversation(s)\n", len(summaries))
	return nil
}

// =============================================================================
// SHOW
// =============================================================================

// HandleShow prints a full conversation transcript.
func HandleShow(ctx context.Context, app *App) error {
	if app.Args.ID == "" {
		return fmt.Errorf("conversation ID required\nUsage: rigchat show <id>")
	}

	conv, err := app.Manager.Load(ctx, app.Args.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", app.Args.ID)
		}
		return fmt.Errorf("load conversation: %w", err)
	}

	fmt.Println(RenderConditional(TitleStyle, conv.Title))
	fmt.Printf("ID:        %s\n", conv.ID)
	fmt.Printf("Messages:  %d\n", conv.MessageCount())
	fmt.Printf("Created:   %s\n", conv.CreatedAt.Format(time.RFC1123))
	fmt.Printf("Updated:   %s\n", conv.UpdatedAt.Format(time.RFC1123))
	fmt.Println(RenderSeparator())
	fmt.Println()

	for _, msg := range conv.Messages {
		label := RenderConditional(RoleStyle(msg.Role.String()), msg.Role.DisplayName())
		fmt.Printf("%s  %s\n", label, RenderConditional(DimStyle, msg.Timestamp.Format("2006-01-02 15:04")))
		fmt.Println(WrapText(msg.Content, GetTerminalWidth()))
		fmt.Println()
	}

	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// HandleSearch ranks conversations against a query and prints matches.
func HandleSearch(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Args.Query) == "" {
		return fmt.Errorf("search query required\nUsage: rigchat search <query>")
	}

	results, err := app.Manager.Search(ctx, app.Args.Query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No conversations match %q.\n", app.Args.Query)
		return nil
	}

	if app.Args.Limit > 0 && len(results) > app.Args.Limit {
		results = results[:app.Args.Limit]
	}

	fmt.Println(RenderConditional(TitleStyle, fmt.Sprintf("Results for %q", app.Args.Query)))
	fmt.Printf("%-32s %-40s %-8s %-17s\n", "ID", "Title", "Score", "Updated")
	fmt.Println(RenderSeparator(99))

	for _, r := range results {
		fmt.Printf("%-32s %-40s %-8.2f %-17s\n",
			util.TruncateWidth(r.ID, 32),
			util.TruncateWidth(r.Title, 40),
			r.Score,
			r.UpdatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Println()
	fmt.Printf("Total: %d match(es)\n", len(results))
	return nil
}

// =============================================================================
// RENAME
// =============================================================================

// HandleRename retitles a conversation.
func HandleRename(ctx context.Context, app *App) error {
	if app.Args.ID == "" || app.Args.Title == "" {
		return fmt.Errorf("conversation ID and new title required\nUsage: rigchat rename <id> <title>")
	}

	if err := app.Manager.Rename(ctx, app.Args.ID, app.Args.Title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", app.Args.ID)
		}
		return fmt.Errorf("rename: %w", err)
	}

	fmt.Printf("%s Renamed %s to %q\n",
		RenderConditional(SuccessStyle, "[OK]"), app.Args.ID, app.Args.Title)
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// HandleDelete removes a conversation. Requires --confirm.
func HandleDelete(ctx context.Context, app *App) error {
	if app.Args.ID == "" {
		return fmt.Errorf("conversation ID required\nUsage: rigchat delete <id> --confirm")
	}

	if !app.Args.Confirm {
		return fmt.Errorf("deletion requires --confirm flag\nUsage: rigchat delete %s --confirm", app.Args.ID)
	}

	// Load first so we can report the title and catch bad IDs.
	conv, err := app.Manager.Load(ctx, app.Args.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", app.Args.ID)
		}
		return fmt.Errorf("load conversation: %w", err)
	}

	if err := app.Manager.Delete(ctx, conv.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	fmt.Printf("%s Deleted %q (%s)\n",
		RenderConditional(SuccessStyle, "[OK]"), conv.Title, conv.ID)
	return nil
}

// =============================================================================
// CLEANUP
// =============================================================================

// HandleCleanup deletes conversations past the retention window.
func HandleCleanup(ctx context.Context, app *App) error {
	days := app.Cfg.Retention.CleanupDays
	if app.Args.Days > 0 {
		days = app.Args.Days
	}

	if !app.Args.Confirm {
		return fmt.Errorf("cleanup deletes conversations older than %d day(s) and requires --confirm\nUsage: rigchat cleanup --confirm [--days N]", days)
	}

	var result store.CleanupResult
	var err error
	if app.Args.Days > 0 {
		result, err = app.Store.Cleanup(ctx, time.Duration(app.Args.Days)*24*time.Hour)
	} else {
		result, err = app.Manager.CleanupOld(ctx)
	}
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	fmt.Printf("%s Deleted %d conversation(s) older than %d day(s)\n",
		RenderConditional(SuccessStyle, "[OK]"), result.Deleted, days)
	if result.Skipped > 0 {
		fmt.Println(RenderConditional(WarningStyle,
			fmt.Sprintf("[WARN] Skipped %d unreadable record(s); see log for details", result.Skipped)))
	}
	return nil
}

// =============================================================================
// STATS
// =============================================================================

// HandleStats shows storage backend statistics.
func HandleStats(ctx context.Context, app *App) error {
	stats, err := app.Manager.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	fmt.Println(RenderConditional(TitleStyle, "Storage"))
	fmt.Printf("Backend:        %s\n", stats.Backend)
	fmt.Printf("Connected:      %s\n", RenderStatus(connectedStatus(stats.Connected)))
	fmt.Printf("Conversations:  %d\n", stats.Conversations)
	fmt.Printf("Storage Used:   %s\n", formatBytes(stats.SizeBytes))

	if f, ok := app.Store.(*store.Facade); ok {
		if f.Demoted() {
			fmt.Println(RenderConditional(WarningStyle,
				"[WARN] Postgres was unavailable; running on local files for this session"))
		}
	}
	return nil
}

func connectedStatus(connected bool) string {
	if connected {
		return "ok"
	}
	return "fail"
}

// =============================================================================
// EXPORT
// =============================================================================

// HandleExport writes a conversation transcript as json, md, or txt.
func HandleExport(ctx context.Context, app *App) error {
	if app.Args.ID == "" {
		return fmt.Errorf("conversation ID required\nUsage: rigchat export <id> [--format json|md|txt] [--output FILE]")
	}

	validFormats := map[string]bool{"json": true, "md": true, "txt": true}
	if !validFormats[app.Args.Format] {
		return fmt.Errorf("invalid format '%s', must be one of: json, md, txt", app.Args.Format)
	}

	conv, err := app.Manager.Load(ctx, app.Args.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", app.Args.ID)
		}
		return fmt.Errorf("load conversation: %w", err)
	}

	var out string
	switch app.Args.Format {
	case "json":
		out, err = exportJSON(conv)
	case "md":
		out = exportMarkdown(conv)
	default:
		out = exportText(conv)
	}
	if err != nil {
		return err
	}

	if app.Args.Output == "" {
		fmt.Print(out)
		return nil
	}

	if err := os.WriteFile(app.Args.Output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("%s Exported %s to %s\n",
		RenderConditional(SuccessStyle, "[OK]"), conv.ID, app.Args.Output)
	return nil
}

// exportJSON renders the conversation as indented JSON.
func exportJSON(conv *model.Conversation) (string, error) {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal conversation: %w", err)
	}
	return string(data) + "\n", nil
}

// exportMarkdown renders the conversation as a Markdown document.
func exportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", conv.Title))
	sb.WriteString(fmt.Sprintf("**Conversation ID:** %s  \n", conv.ID))
	sb.WriteString(fmt.Sprintf("**Messages:** %d  \n", conv.MessageCount()))
	sb.WriteString(fmt.Sprintf("**Created:** %s  \n", conv.CreatedAt.Format(time.RFC1123)))
	sb.WriteString(fmt.Sprintf("**Updated:** %s  \n", conv.UpdatedAt.Format(time.RFC1123)))
	sb.WriteString("\n---\n\n")
	sb.WriteString("## Transcript\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString(fmt.Sprintf("### %s\n\n", msg.Role.DisplayName()))
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// exportText renders the conversation as plain text.
func exportText(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Conversation: %s\n", conv.Title))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(fmt.Sprintf("ID:       %s\n", conv.ID))
	sb.WriteString(fmt.Sprintf("Messages: %d\n", conv.MessageCount()))
	sb.WriteString(fmt.Sprintf("Created:  %s\n", conv.CreatedAt.Format(time.RFC1123)))
	sb.WriteString(fmt.Sprintf("Updated:  %s\n", conv.UpdatedAt.Format(time.RFC1123)))
	sb.WriteString("\n" + strings.Repeat("-", 60) + "\n\n")

	for i, msg := range conv.Messages {
		sb.WriteString(fmt.Sprintf("[%d] %s:\n", i+1, msg.Role.DisplayName()))
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig shows the effective configuration or its file path.
// Does not need an App; called before store wiring.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow()
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		fmt.Println(path)
		return nil
	case "init":
		return handleConfigInit()
	default:
		return fmt.Errorf("unknown config subcommand: %s\nUsage: rigchat config [show|path|init]", args.Subcommand)
	}
}

func handleConfigShow() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println(RenderConditional(TitleStyle, "Configuration"))

	fmt.Println(RenderConditional(SectionStyle, "Storage"))
	fmt.Printf("  use_primary:    %v\n", cfg.Storage.UsePrimary)
	if dir, err := cfg.FallbackDir(); err == nil {
		fmt.Printf("  fallback dir:   %s\n", dir)
	}

	fmt.Println(RenderConditional(SectionStyle, "Postgres"))
	fmt.Printf("  host:           %s:%d\n", cfg.Postgres.Host, cfg.Postgres.Port)
	fmt.Printf("  database:       %s\n", cfg.Postgres.Database)
	fmt.Printf("  sslmode:        %s\n", cfg.Postgres.SSLMode)

	fmt.Println(RenderConditional(SectionStyle, "Chat"))
	fmt.Printf("  context window: %d messages\n", cfg.Chat.MaxContextMessages)
	fmt.Printf("  auto save:      %v\n", cfg.Chat.AutoSave)
	fmt.Printf("  retention:      %d day(s)\n", cfg.Retention.CleanupDays)

	fmt.Println(RenderConditional(SectionStyle, "LLM"))
	fmt.Printf("  ollama url:     %s\n", cfg.LLM.OllamaURL)
	fmt.Printf("  model:          %s\n", cfg.LLM.Model)

	return nil
}

// handleConfigInit writes the default configuration file if absent.
func handleConfigInit() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("%s Wrote default config to %s\n",
		RenderConditional(SuccessStyle, "[OK]"), path)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// formatBytes renders a byte count as a human-readable size.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
