// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

func TestParseDefaultsToChat(t *testing.T) {
	cmd, args := ParseArgs(nil)
	if cmd != CmdChat {
		t.Errorf("expected CmdChat, got %v", cmd)
	}
	if args.Query != "" {
		t.Errorf("expected empty query, got %q", args.Query)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"--verbose", "--model", "qwen2.5:14b", "--local", "list"})
	if cmd != CmdList {
		t.Errorf("expected CmdList, got %v", cmd)
	}
	if !args.Verbose {
		t.Error("expected Verbose to be set")
	}
	if args.Model != "qwen2.5:14b" {
		t.Errorf("expected model qwen2.5:14b, got %q", args.Model)
	}
	if !args.Local {
		t.Error("expected Local to be set")
	}
}

func TestParseModelEqualsSyntax(t *testing.T) {
	_, args := ParseArgs([]string{"--model=llama3:8b"})
	if args.Model != "llama3:8b" {
		t.Errorf("expected model llama3:8b, got %q", args.Model)
	}
}

func TestParseChatWithID(t *testing.T) {
	cmd, args := ParseArgs([]string{"chat", "conv_abc123"})
	if cmd != CmdChat {
		t.Errorf("expected CmdChat, got %v", cmd)
	}
	if args.ID != "conv_abc123" {
		t.Errorf("expected ID conv_abc123, got %q", args.ID)
	}
}

func TestParseListAliases(t *testing.T) {
	for _, alias := range []string{"list", "ls", "l"} {
		cmd, _ := ParseArgs([]string{alias})
		if cmd != CmdList {
			t.Errorf("alias %q: expected CmdList, got %v", alias, cmd)
		}
	}
}

func TestParseListLimit(t *testing.T) {
	_, args := ParseArgs([]string{"list", "--limit", "20"})
	if args.Limit != 20 {
		t.Errorf("expected limit 20, got %d", args.Limit)
	}

	_, args = ParseArgs([]string{"list", "--limit=5"})
	if args.Limit != 5 {
		t.Errorf("expected limit 5, got %d", args.Limit)
	}

	// Invalid limit is ignored
	_, args = ParseArgs([]string{"list", "--limit", "zero"})
	if args.Limit != 0 {
		t.Errorf("expected limit 0 for invalid input, got %d", args.Limit)
	}
}

func TestParseSearchJoinsQuery(t *testing.T) {
	cmd, args := ParseArgs([]string{"search", "error", "handling", "--limit", "3"})
	if cmd != CmdSearch {
		t.Errorf("expected CmdSearch, got %v", cmd)
	}
	if args.Query != "error handling" {
		t.Errorf("expected query 'error handling', got %q", args.Query)
	}
	if args.Limit != 3 {
		t.Errorf("expected limit 3, got %d", args.Limit)
	}
}

func TestParseRename(t *testing.T) {
	cmd, args := ParseArgs([]string{"rename", "conv_abc", "Ingress", "debugging"})
	if cmd != CmdRename {
		t.Errorf("expected CmdRename, got %v", cmd)
	}
	if args.ID != "conv_abc" {
		t.Errorf("expected ID conv_abc, got %q", args.ID)
	}
	if args.Title != "Ingress debugging" {
		t.Errorf("expected title 'Ingress debugging', got %q", args.Title)
	}
}

func TestParseDeleteRequiresIDAndConfirm(t *testing.T) {
	cmd, args := ParseArgs([]string{"delete", "conv_abc", "--confirm"})
	if cmd != CmdDelete {
		t.Errorf("expected CmdDelete, got %v", cmd)
	}
	if args.ID != "conv_abc" {
		t.Errorf("expected ID conv_abc, got %q", args.ID)
	}
	if !args.Confirm {
		t.Error("expected Confirm to be set")
	}

	_, args = ParseArgs([]string{"delete", "conv_abc"})
	if args.Confirm {
		t.Error("expected Confirm to be unset without flag")
	}
}

func TestParseCleanupDays(t *testing.T) {
	cmd, args := ParseArgs([]string{"cleanup", "--days", "14", "--confirm"})
	if cmd != CmdCleanup {
		t.Errorf("expected CmdCleanup, got %v", cmd)
	}
	if args.Days != 14 {
		t.Errorf("expected days 14, got %d", args.Days)
	}
	if !args.Confirm {
		t.Error("expected Confirm to be set")
	}
}

func TestParseExportFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"export", "conv_abc", "--format", "md", "--output", "notes.md"})
	if cmd != CmdExport {
		t.Errorf("expected CmdExport, got %v", cmd)
	}
	if args.ID != "conv_abc" {
		t.Errorf("expected ID conv_abc, got %q", args.ID)
	}
	if args.Format != "md" {
		t.Errorf("expected format md, got %q", args.Format)
	}
	if args.Output != "notes.md" {
		t.Errorf("expected output notes.md, got %q", args.Output)
	}
}

func TestParseExportDefaultFormat(t *testing.T) {
	_, args := ParseArgs([]string{"export", "conv_abc"})
	if args.Format != "txt" {
		t.Errorf("expected default format txt, got %q", args.Format)
	}
}

func TestParseUnknownCommandBecomesPrompt(t *testing.T) {
	cmd, args := ParseArgs([]string{"what", "is", "a", "goroutine"})
	if cmd != CmdChat {
		t.Errorf("expected CmdChat, got %v", cmd)
	}
	if args.Query != "what is a goroutine" {
		t.Errorf("expected prompt preserved, got %q", args.Query)
	}
}

func TestParseVersionAndHelpAliases(t *testing.T) {
	for _, alias := range []string{"version", "-v", "--version"} {
		// -v alone is the verbose flag; only bare "version" words map here
		if alias == "-v" {
			continue
		}
		cmd, _ := ParseArgs([]string{alias})
		if cmd != CmdVersion {
			t.Errorf("alias %q: expected CmdVersion, got %v", alias, cmd)
		}
	}
	for _, alias := range []string{"help", "-h", "--help"} {
		cmd, _ := ParseArgs([]string{alias})
		if cmd != CmdHelp {
			t.Errorf("alias %q: expected CmdHelp, got %v", alias, cmd)
		}
	}
}

func TestParseConfigSubcommand(t *testing.T) {
	cmd, args := ParseArgs([]string{"config", "path"})
	if cmd != CmdConfig {
		t.Errorf("expected CmdConfig, got %v", cmd)
	}
	if args.Subcommand != "path" {
		t.Errorf("expected subcommand path, got %q", args.Subcommand)
	}
}

func TestWrapTextPreservesNewlines(t *testing.T) {
	out := WrapText("line one\nline two", 80)
	if out != "line one\nline two" {
		t.Errorf("unexpected wrap result: %q", out)
	}
}

func exportFixture() *model.Conversation {
	conv := model.NewConversation()
	conv.ID = "conv_test"
	conv.Title = "Ingress debugging"
	conv.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	conv.Append(model.NewMessage(model.RoleUser, "why does the ingress 502"))
	conv.Append(model.NewMessage(model.RoleAssistant, "check the upstream service"))
	return conv
}

func TestExportText(t *testing.T) {
	out := exportText(exportFixture())
	if !strings.Contains(out, "Conversation: Ingress debugging") {
		t.Errorf("missing title header: %q", out)
	}
	if !strings.Contains(out, "[1] You:") || !strings.Contains(out, "[2] Assistant:") {
		t.Errorf("missing numbered role lines: %q", out)
	}
	if !strings.Contains(out, "check the upstream service") {
		t.Error("missing message content")
	}
}

func TestExportMarkdown(t *testing.T) {
	out := exportMarkdown(exportFixture())
	if !strings.HasPrefix(out, "# Ingress debugging\n") {
		t.Errorf("missing markdown title: %q", out)
	}
	if !strings.Contains(out, "## Transcript") {
		t.Error("missing transcript section")
	}
	if !strings.Contains(out, "### You") || !strings.Contains(out, "### Assistant") {
		t.Error("missing role headings")
	}
}

func TestExportJSON(t *testing.T) {
	out, err := exportJSON(exportFixture())
	if err != nil {
		t.Fatalf("exportJSON failed: %v", err)
	}
	if !strings.Contains(out, `"id": "conv_test"`) {
		t.Errorf("missing conversation id: %q", out)
	}
	if !strings.Contains(out, `"role": "user"`) {
		t.Error("missing user message")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
