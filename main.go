// rigchat - conversation-centric chat for local LLMs.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/rigchat/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Parse CLI arguments
	cmd, args := cli.Parse()

	// Commands that need no storage wiring
	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	case cli.CmdConfig:
		if err := cli.HandleConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()

	app, err := cli.NewApp(ctx, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Route to appropriate handler
	switch cmd {
	case cli.CmdChat:
		err = cli.HandleChatCommand(ctx, app)
	case cli.CmdList:
		err = cli.HandleList(ctx, app)
	case cli.CmdShow:
		err = cli.HandleShow(ctx, app)
	case cli.CmdSearch:
		err = cli.HandleSearch(ctx, app)
	case cli.CmdRename:
		err = cli.HandleRename(ctx, app)
	case cli.CmdDelete:
		err = cli.HandleDelete(ctx, app)
	case cli.CmdCleanup:
		err = cli.HandleCleanup(ctx, app)
	case cli.CmdStats:
		err = cli.HandleStats(ctx, app)
	case cli.CmdExport:
		err = cli.HandleExport(ctx, app)
	default:
		cli.PrintUsage()
	}

	app.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
