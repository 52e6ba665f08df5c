// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConnectionFailed is returned when a backend cannot be reached
	// at construction time.
	ErrConnectionFailed = errors.New("backend connection failed")

	// ErrBackendUnavailable is returned when a backend that was reachable
	// stops responding mid-session. The facade recovers it by demotion.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNotFound is returned when no conversation exists for the id.
	ErrNotFound = errors.New("conversation not found")

	// ErrValidation is returned when the caller supplied invalid input,
	// such as an empty message body.
	ErrValidation = errors.New("invalid input")

	// ErrSearchUnsupported signals that native indexed search is not
	// available. The primary store handles it by switching to a
	// brute-force scan; it never escapes the Store interface.
	ErrSearchUnsupported = errors.New("indexed search unsupported")
)

// =============================================================================
// STORE CONTRACT
// =============================================================================

// ConversationSummary contains metadata for listing conversations.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// SearchResult pairs a conversation summary with its relevance score.
type SearchResult struct {
	ConversationSummary
	Score float64 `json:"score"`
}

// CleanupResult reports the outcome of a retention sweep.
// Skipped counts records that could not be read or deleted; a cleanup
// run completes over the rest of the corpus regardless.
type CleanupResult struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// StorageStats is the backend-reported aggregate state. It is recomputed
// on every call, never cached.
type StorageStats struct {
	Backend       string `json:"backend"`
	Conversations int    `json:"conversations"`
	SizeBytes     int64  `json:"size_bytes"`
	Connected     bool   `json:"connected"`
}

// Store is the contract both storage backends satisfy.
//
// Save upserts the full conversation record atomically with respect to
// that one conversation. List orders by UpdatedAt descending. Search
// orders by score descending, UpdatedAt descending on ties, the same
// ordering on every backend. Delete is idempotent. Cleanup deletes all
// conversations whose UpdatedAt precedes now minus olderThan, iterating
// record-by-record.
type Store interface {
	Save(ctx context.Context, conv *model.Conversation) error
	Load(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context) ([]ConversationSummary, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, olderThan time.Duration) (CleanupResult, error)
	Stats(ctx context.Context) (StorageStats, error)
	Close() error
}

// Reconnector is satisfied by backends that can attempt to re-establish
// a lost connection. The facade uses it for its single mid-session
// reconnection attempt before demoting.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// Summarize builds the listing summary for a conversation.
func Summarize(conv *model.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:           conv.ID,
		Title:        conv.Title,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: conv.MessageCount(),
	}
}
