// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TitleMaxRunes is the maximum length of an auto-generated title.
const TitleMaxRunes = 50

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
//
// Messages is append-only in normal operation and strictly chronological.
// A Conversation returned by a store is a detached copy: mutating it does
// not change persisted state until it is saved again.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages, oldest first
	Messages []Message `json:"messages"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        "conv_" + uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the conversation and bumps UpdatedAt.
// The conversation title is derived from the first user message if unset.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	if c.Title == "" {
		c.deriveTitle()
	}
}

// LastMessage returns the most recent message, or a zero Message if empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Window returns the most recent max messages in chronological order.
// If max <= 0 or the conversation has fewer messages, all messages are
// returned. The returned slice is a copy.
func (c *Conversation) Window(max int) []Message {
	msgs := c.Messages
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// SearchText returns the conversation's searchable text: the title
// followed by every message's content. Both backends match queries
// against exactly this text so result ranking stays consistent.
func (c *Conversation) SearchText() string {
	var sb strings.Builder
	sb.WriteString(c.Title)
	for _, msg := range c.Messages {
		sb.WriteString("\n")
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	dup := *c
	dup.Messages = make([]Message, len(c.Messages))
	copy(dup.Messages, c.Messages)
	return &dup
}

// deriveTitle sets the title from the first user message.
// Uses rune-based truncation for Unicode safety and strips newlines.
func (c *Conversation) deriveTitle() {
	for _, msg := range c.Messages {
		if msg.Role != RoleUser || msg.Content == "" {
			continue
		}
		title := strings.ReplaceAll(msg.Content, "\n", " ")
		title = strings.ReplaceAll(title, "\r", "")
		runes := []rune(title)
		if len(runes) > TitleMaxRunes {
			title = string(runes[:TitleMaxRunes-3]) + "..."
		}
		c.Title = title
		return
	}
}
