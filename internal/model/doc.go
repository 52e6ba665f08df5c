// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations and their messages, plus the versioned
// record codec both storage backends persist.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and metadata
//   - Message: Single message with role, content, and timestamp
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new conversation and append messages:
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Hello!"))
//
// Serialize for storage:
//
//	data, err := model.Encode(conv)
//	conv, err = model.Decode(data)
//
// # Record Format
//
// Encode produces a versioned JSON envelope. Decode rejects envelopes
// whose schema version it does not understand with ErrMalformedRecord,
// so future readers never misparse incompatible records.
package model
