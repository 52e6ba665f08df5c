// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	conv := NewConversation()

	if conv.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if !strings.HasPrefix(conv.ID, "conv_") {
		t.Errorf("ID should start with 'conv_', got %q", conv.ID)
	}
	if conv.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}
}

func TestConversation_Append(t *testing.T) {
	conv := NewConversation()
	before := conv.UpdatedAt

	time.Sleep(time.Millisecond)
	conv.Append(NewUserMessage("how do I profile a goroutine leak?"))

	if conv.MessageCount() != 1 {
		t.Fatalf("MessageCount = %d, want 1", conv.MessageCount())
	}
	if !conv.UpdatedAt.After(before) {
		t.Error("Append should bump UpdatedAt")
	}
	if conv.Title != "how do I profile a goroutine leak?" {
		t.Errorf("Title = %q, want derived from first user message", conv.Title)
	}
}

func TestConversation_TitleDerivation(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewSystemMessage("you are a helpful assistant"))
	if conv.Title != "" {
		t.Errorf("system message should not set title, got %q", conv.Title)
	}

	long := strings.Repeat("x", 80)
	conv.Append(NewUserMessage(long))
	if got := len([]rune(conv.Title)); got != TitleMaxRunes {
		t.Errorf("title length = %d runes, want %d", got, TitleMaxRunes)
	}
	if !strings.HasSuffix(conv.Title, "...") {
		t.Errorf("long title should be truncated with ellipsis, got %q", conv.Title)
	}
}

func TestConversation_TitleStripsNewlines(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("line one\r\nline two"))

	if strings.ContainsAny(conv.Title, "\r\n") {
		t.Errorf("title should not contain newlines, got %q", conv.Title)
	}
}

func TestConversation_Window(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("first"))
	conv.Append(NewAssistantMessage("second"))
	conv.Append(NewUserMessage("third"))

	window := conv.Window(2)
	if len(window) != 2 {
		t.Fatalf("Window(2) returned %d messages, want 2", len(window))
	}
	if window[0].Content != "second" || window[1].Content != "third" {
		t.Errorf("Window(2) = [%q, %q], want chronological last two",
			window[0].Content, window[1].Content)
	}

	// Larger than history returns everything
	all := conv.Window(10)
	if len(all) != 3 {
		t.Errorf("Window(10) returned %d messages, want 3", len(all))
	}

	// Zero means unlimited
	if got := len(conv.Window(0)); got != 3 {
		t.Errorf("Window(0) returned %d messages, want 3", got)
	}
}

func TestConversation_WindowIsCopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("original"))

	window := conv.Window(1)
	window[0].Content = "mutated"

	if conv.Messages[0].Content != "original" {
		t.Error("mutating the window should not affect the conversation")
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("hello"))

	dup := conv.Clone()
	dup.Messages[0].Content = "changed"
	dup.Append(NewAssistantMessage("extra"))

	if conv.Messages[0].Content != "hello" {
		t.Error("Clone should deep-copy messages")
	}
	if conv.MessageCount() != 1 {
		t.Errorf("appending to clone changed original count: %d", conv.MessageCount())
	}
}

func TestConversation_SearchText(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("let's debug the crash"))
	conv.Append(NewAssistantMessage("start with the stack trace"))

	text := conv.SearchText()
	if !strings.Contains(text, "debug the crash") {
		t.Error("SearchText should include message content")
	}
	if !strings.Contains(text, conv.Title) {
		t.Error("SearchText should include the title")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestRole_Valid(t *testing.T) {
	valid := []Role{RoleUser, RoleAssistant, RoleSystem}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("Role %q should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("unknown role should not be valid")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("héllo wörld, this is a fairly long message")
	preview := msg.Preview(10)

	if got := len([]rune(preview)); got != 10 {
		t.Errorf("Preview(10) length = %d runes, want 10", got)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("truncated preview should end with ellipsis, got %q", preview)
	}

	short := NewUserMessage("hi")
	if short.Preview(10) != "hi" {
		t.Errorf("short content should be returned unchanged")
	}
}
