// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filestore implements the fallback conversation backend on
// local JSON files.
//
// Each conversation lives in its own file, <id>.json, containing the
// versioned envelope produced by internal/model. Writes are atomic
// (write to temp file, fsync, rename) so a crash mid-save never leaves
// a truncated record. A corrupted file never takes the store down:
// listing and search skip it, Cleanup counts it as skipped, and only a
// direct Load of that id surfaces the malformed-record error.
//
// Search is a brute-force scan sharing its scorer with the primary
// store's degraded path, so the same query ranks identically on either
// backend.
//
// # Key Types
//
//   - Store: The file-backed store.Store implementation
//
// # Usage
//
//	fs, err := filestore.New(dir)
//	if err != nil {
//	    return err
//	}
//	defer fs.Close()
//	err = fs.Save(ctx, conv)
package filestore
