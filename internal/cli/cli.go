// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for rigchat.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdList
	CmdShow
	CmdSearch
	CmdDelete
	CmdRename
	CmdCleanup
	CmdStats
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	Model    string
	NoColor  bool
	Postgres bool // Force the Postgres backend on
	Local    bool // Force the local file backend (skip Postgres entirely)

	// Command-specific
	ID         string
	Query      string
	Title      string
	Format     string // Export format (json, md, txt)
	Output     string // Export destination file
	Days       int    // Cleanup retention override
	Limit      int    // List/search result cap
	Confirm    bool   // Required for destructive operations
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `rigchat - conversation-centric chat for local LLMs

Rigchat is a terminal chat client for Ollama with durable
conversation storage.

It provides:
  - Interactive chat with any local Ollama model
  - Conversation persistence in Postgres with full-text search
  - Automatic fallback to local file storage when Postgres is down
  - History browsing, search, export, and retention cleanup

Usage:
  rigchat                    Start interactive chat (default)
  rigchat chat [id]          Start or resume a conversation
  rigchat list, ls           List saved conversations
  rigchat show <id>          Print a conversation transcript
  rigchat search <query>     Search conversations
  rigchat rename <id> <title> Rename a conversation
  rigchat delete <id>        Delete a conversation
  rigchat cleanup            Delete conversations past retention
  rigchat stats              Show storage statistics
  rigchat export <id>        Export a conversation
  rigchat config [show|path] Configuration
  rigchat version            Show version information
  rigchat help               Show this help

List Commands:
  rigchat list                      List all conversations, newest first
    --limit N                       Show at most N conversations

Search Commands:
  rigchat search "error handling"   Rank conversations by relevance
    --limit N                       Show at most N results

Export Commands:
  rigchat export <id>               Export transcript to stdout
    --format json|md|txt            Export format (default: txt)
    --output FILE                   Export to file (default: stdout)

Cleanup Commands:
  rigchat cleanup                   Delete conversations past retention
    --days N                        Override configured retention window
    --confirm                       Required confirmation flag

Delete Commands:
  rigchat delete <id>               Delete a conversation
    --confirm                       Required confirmation flag

Chat Slash Commands (inside the REPL):
  /new [title]    Start a new conversation
  /list           List recent conversations
  /load <id>      Load a conversation
  /search <query> Search conversations
  /rename <title> Rename the current conversation
  /save           Save the current conversation now
  /history        Replay the current conversation
  /stats          Show storage statistics
  /help           Show slash command help
  /quit           Exit chat

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --model NAME    Override default model
  --local         Use local file storage only (skip Postgres)
  --postgres      Require the Postgres backend
  --no-color      Disable colored output

Examples:
  # Basic usage
  rigchat                             Start interactive chat
  rigchat chat conv_0195...           Resume a conversation
  rigchat chat --model qwen2.5:14b    Chat with a specific model

  # Browsing history
  rigchat list --limit 20             Show 20 most recent conversations
  rigchat show conv_0195...           Print a full transcript
  rigchat search "kubernetes ingress" Find conversations by content

  # Housekeeping
  rigchat rename conv_0195... "Ingress debugging"
  rigchat delete conv_0195... --confirm
  rigchat cleanup --days 14 --confirm Delete conversations older than 14 days
  rigchat stats                       Show backend and storage usage

  # Export
  rigchat export conv_0195... --format md --output notes.md

  # Storage selection
  rigchat --local                     Work entirely from local files
  rigchat --postgres list             Fail instead of falling back

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("rigchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given argument list. Split out of Parse for testing.
func ParseArgs(args []string) (Command, Args) {
	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(args)

	// If no remaining args, default to interactive chat
	if len(remaining) == 0 {
		return CmdChat, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "chat":
		// Optional conversation id to resume
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			parsedArgs.ID = remaining[0]
		}
		return CmdChat, parsedArgs

	case "list", "ls", "l":
		parseListArgs(&parsedArgs, remaining)
		return CmdList, parsedArgs

	case "show", "view", "cat":
		if len(remaining) > 0 {
			parsedArgs.ID = remaining[0]
		}
		return CmdShow, parsedArgs

	case "search", "find":
		parseSearchArgs(&parsedArgs, remaining)
		return CmdSearch, parsedArgs

	case "rename", "mv":
		parseRenameArgs(&parsedArgs, remaining)
		return CmdRename, parsedArgs

	case "delete", "rm", "remove":
		parseDeleteArgs(&parsedArgs, remaining)
		return CmdDelete, parsedArgs

	case "cleanup", "prune":
		parseCleanupArgs(&parsedArgs, remaining)
		return CmdCleanup, parsedArgs

	case "stats", "status":
		return CmdStats, parsedArgs

	case "export":
		parseExportArgs(&parsedArgs, remaining)
		return CmdExport, parsedArgs

	case "config":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command: treat it as the opening prompt of a new chat
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parsedArgs.Query = strings.Join(parsedArgs.Raw, " ")
		return CmdChat, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--no-color":
			parsedArgs.NoColor = true
		case "--local", "--file":
			parsedArgs.Local = true
		case "--postgres", "--pg":
			parsedArgs.Postgres = true
		case "--model", "-m":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			// Check for --model=value format
			if strings.HasPrefix(arg, "--model=") {
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseListArgs parses list command specific arguments.
func parseListArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch {
		case arg == "--limit" || arg == "-n":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Limit = n
				}
			}
		case strings.HasPrefix(arg, "--limit="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil && n > 0 {
				args.Limit = n
			}
		}
	}
}

// parseSearchArgs parses search command specific arguments.
func parseSearchArgs(args *Args, remaining []string) {
	var query []string

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch {
		case arg == "--limit" || arg == "-n":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Limit = n
				}
			}
		case strings.HasPrefix(arg, "--limit="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil && n > 0 {
				args.Limit = n
			}
		case !strings.HasPrefix(arg, "-"):
			query = append(query, arg)
		}
	}

	args.Query = strings.Join(query, " ")
}

// parseRenameArgs parses rename command specific arguments.
// First positional arg is the id, the rest join into the new title.
func parseRenameArgs(args *Args, remaining []string) {
	var title []string

	for _, arg := range remaining {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if args.ID == "" {
			args.ID = arg
			continue
		}
		title = append(title, arg)
	}

	args.Title = strings.Join(title, " ")
}

// parseDeleteArgs parses delete command specific arguments.
func parseDeleteArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		switch {
		case arg == "--confirm" || arg == "--yes" || arg == "-y":
			args.Confirm = true
		case !strings.HasPrefix(arg, "-") && args.ID == "":
			args.ID = arg
		}
	}
}

// parseCleanupArgs parses cleanup command specific arguments.
func parseCleanupArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch {
		case arg == "--confirm" || arg == "--yes" || arg == "-y":
			args.Confirm = true
		case arg == "--days":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Days = n
				}
			}
		case strings.HasPrefix(arg, "--days="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--days=")); err == nil && n > 0 {
				args.Days = n
			}
		}
	}
}

// parseExportArgs parses export command specific arguments.
func parseExportArgs(args *Args, remaining []string) {
	args.Format = "txt"

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch {
		case arg == "--format" || arg == "-f":
			if i+1 < len(remaining) {
				i++
				args.Format = strings.ToLower(remaining[i])
			}
		case strings.HasPrefix(arg, "--format="):
			args.Format = strings.ToLower(strings.TrimPrefix(arg, "--format="))
		case arg == "--output" || arg == "-o":
			if i+1 < len(remaining) {
				i++
				args.Output = remaining[i]
			}
		case strings.HasPrefix(arg, "--output="):
			args.Output = strings.TrimPrefix(arg, "--output=")
		case !strings.HasPrefix(arg, "-") && args.ID == "":
			args.ID = arg
		}
	}
}
