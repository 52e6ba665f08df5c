// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates conversation state between the user, the
// response generator, and the storage facade.
//
// The Manager owns exactly one current conversation. A new
// conversation exists only in memory until its first message is
// appended; every append after that persists the whole conversation
// through storage. The context window handed to the generator is the
// last N messages of the current conversation, bounded by
// configuration.
//
// # Key Types
//
//   - Manager: Current-conversation state and storage pass-throughs
//   - Generator: The response backend the REPL calls
//
// # Usage
//
//	mgr := chat.NewManager(st, chat.DefaultConfig(), log)
//	mgr.StartNew()
//	if _, err := mgr.Append(ctx, model.RoleUser, input); err != nil {
//	    return err
//	}
//	window := mgr.ContextWindow()
package chat
