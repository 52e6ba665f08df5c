// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for rigchat.
//
// This package implements all rigchat commands, from the interactive
// chat REPL to the non-interactive conversation management commands
// (list, show, search, rename, delete, cleanup, stats, export).
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - App: Shared wiring (config, logger, conversation store, chat manager)
//   - ChatSession: State for an interactive REPL session
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	app, err := cli.NewApp(ctx, args)
//	if err != nil {
//	    // handle
//	}
//	defer app.Close()
//	switch cmd {
//	case cli.CmdChat:
//	    return cli.HandleChatCommand(ctx, app)
//	case cli.CmdList:
//	    return cli.HandleList(ctx, app)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Core Commands:
//   - chat: Interactive chat session (default)
//   - list: List saved conversations
//   - show: Print a conversation transcript
//   - search: Rank conversations against a query
//
// Housekeeping Commands:
//   - rename: Retitle a conversation
//   - delete: Remove a conversation (requires --confirm)
//   - cleanup: Delete conversations past retention (requires --confirm)
//   - stats: Show storage backend statistics
//   - export: Write a transcript as json, md, or txt
//
// Output respects NO_COLOR and disables styling on non-TTY stdout.
package cli
