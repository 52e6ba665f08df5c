// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store defines the conversation storage contract and the facade
// that selects between the primary and fallback backends.
//
// Two backends implement the Store interface: the Postgres-backed primary
// (internal/pgstore) and the local JSON file fallback (internal/filestore).
// The Facade hides which one is active: it probes the primary at
// construction, falls back when the primary is unreachable, and performs
// a one-way demotion to the fallback if the primary fails mid-session.
//
// # Key Types
//
//   - Store: The contract both backends satisfy
//   - Facade: Backend selection, retry, and demotion
//   - ConversationSummary: Lightweight listing metadata
//   - SearchResult: Summary plus relevance score
//   - StorageStats: Backend-reported aggregate statistics
//
// # Error Taxonomy
//
//   - ErrConnectionFailed: backend unreachable at startup
//   - ErrBackendUnavailable: transient failure mid-session
//   - ErrNotFound: requested conversation id absent
//   - ErrValidation: caller supplied invalid input
//   - ErrSearchUnsupported: native indexed search unavailable
//     (internal to the primary store's degraded-search path)
//   - model.ErrMalformedRecord: a specific record failed to parse
//
// ErrConnectionFailed and ErrBackendUnavailable never escape the Facade;
// they are recovered by fallback/demotion and surface only as logged
// degradation. NotFound, Validation, and MalformedRecord propagate to
// the caller for explicit handling.
package store
