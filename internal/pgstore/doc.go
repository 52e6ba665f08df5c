// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pgstore implements the primary conversation backend on
// PostgreSQL.
//
// Conversations are stored one row per conversation: the versioned
// JSON envelope in a JSONB column (the same bytes the file fallback
// writes) plus denormalized columns for listing and indexing. Search
// uses Postgres full-text search through a small index adapter; when
// the server cannot build tsvectors the adapter reports itself
// unsupported and Search falls back to a brute-force scan that shares
// its scorer with the file store.
//
// Every operation carries a bounded timeout. Connectivity failures are
// wrapped in store.ErrBackendUnavailable so the facade can demote;
// Reconnect is rate-limited so a flapping server is not hammered.
//
// # Key Types
//
//   - Config: Connection parameters and timeouts
//   - Store: The Postgres store.Store implementation
//
// # Usage
//
//	ps, err := pgstore.Connect(ctx, cfg, log)
//	if err != nil {
//	    return err // facade degrades to the file store
//	}
//	defer ps.Close()
package pgstore
