// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/store"
)

// =============================================================================
// FULL-TEXT SEARCH ADAPTER
// =============================================================================

// Titles rank above message bodies.
const (
	weightTitle   = "A"
	weightContent = "B"
)

// searchIndex manages the tsvector column and GIN index behind Search.
// Support is probed once at connect time; an unsupported server
// degrades Query to store.ErrSearchUnsupported instead of failing the
// store.
type searchIndex struct {
	supported bool
	log       *zap.Logger
}

// newSearchIndex provisions the index column and probes tsvector
// support. Provisioning failure is a degradation, not an error.
func newSearchIndex(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) *searchIndex {
	idx := &searchIndex{log: log}

	stmts := []string{
		`ALTER TABLE conversations ADD COLUMN IF NOT EXISTS search_tsv tsvector`,
		`CREATE INDEX IF NOT EXISTS conversations_search_idx ON conversations USING GIN (search_tsv)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Warn("pgstore: full-text search unavailable, queries will scan",
				zap.Error(err))
			return idx
		}
	}

	var probe string
	if err := pool.QueryRow(ctx, `SELECT to_tsvector('english', 'probe')::text`).Scan(&probe); err != nil {
		log.Warn("pgstore: full-text search unavailable, queries will scan",
			zap.Error(err))
		return idx
	}

	idx.supported = true
	return idx
}

// Supported reports whether full-text queries are available.
func (idx *searchIndex) Supported() bool {
	return idx != nil && idx.supported
}

// Update rebuilds the search vector for one conversation from its
// denormalized title and content columns.
func (idx *searchIndex) Update(ctx context.Context, pool *pgxpool.Pool, id string) error {
	if !idx.Supported() {
		return nil
	}
	_, err := pool.Exec(ctx, fmt.Sprintf(`
		UPDATE conversations
		SET search_tsv =
			setweight(to_tsvector('english', title), '%s') ||
			setweight(to_tsvector('english', content), '%s')
		WHERE id = $1
	`, weightTitle, weightContent), id)
	return err
}

// Query runs a ranked full-text query. Returns
// store.ErrSearchUnsupported when the server cannot serve it, letting
// the caller degrade to a scan.
func (idx *searchIndex) Query(ctx context.Context, pool *pgxpool.Pool, query string) ([]store.SearchResult, error) {
	if !idx.Supported() {
		return nil, store.ErrSearchUnsupported
	}

	rows, err := pool.Query(ctx, `
		SELECT id, title, updated_at, message_count,
		       ts_rank(search_tsv, websearch_to_tsquery('english', $1)) AS rank
		FROM conversations
		WHERE search_tsv @@ websearch_to_tsquery('english', $1)
		ORDER BY rank DESC, updated_at DESC
	`, query)
	if err != nil {
		return nil, classify("search conversations", err)
	}
	defer rows.Close()

	var results []store.SearchResult
	for rows.Next() {
		var res store.SearchResult
		if err := rows.Scan(&res.ID, &res.Title, &res.UpdatedAt, &res.MessageCount, &res.Score); err != nil {
			return nil, classify("search conversations", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search conversations", err)
	}
	return results, nil
}
