// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the current conversation record schema version.
// Readers reject records with a different version rather than misparse them.
const SchemaVersion = 1

// ErrMalformedRecord is returned when stored bytes do not match the
// expected record schema. Use errors.Is(err, ErrMalformedRecord).
var ErrMalformedRecord = errors.New("malformed conversation record")

// envelope is the persisted record format shared by both storage backends.
// One record per conversation, human-inspectable JSON.
type envelope struct {
	SchemaVersion int           `json:"schema_version"`
	SavedAt       time.Time     `json:"saved_at"`
	Conversation  *Conversation `json:"conversation"`
}

// =============================================================================
// ENCODE / DECODE
// =============================================================================

// Encode serializes a conversation into its versioned record form.
// Timestamps keep full precision (RFC 3339 with nanoseconds).
func Encode(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("%w: nil conversation", ErrMalformedRecord)
	}
	env := envelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now(),
		Conversation:  conv,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}
	return data, nil
}

// Decode parses a versioned conversation record.
//
// Returns ErrMalformedRecord when the bytes are not valid JSON, the
// schema version is unknown, or required fields are missing. All field
// values round-trip exactly, including message order and timestamps.
func Decode(data []byte) (*Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrMalformedRecord, env.SchemaVersion)
	}
	conv := env.Conversation
	if conv == nil || conv.ID == "" {
		return nil, fmt.Errorf("%w: missing conversation body", ErrMalformedRecord)
	}
	for i, msg := range conv.Messages {
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("%w: message %d has unknown role %q", ErrMalformedRecord, i, msg.Role)
		}
	}
	return conv, nil
}
