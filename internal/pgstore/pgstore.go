// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
)

// BackendName identifies this backend in stats and logs.
const BackendName = "postgres"

// =============================================================================
// CONFIG
// =============================================================================

// Config holds connection parameters for the primary backend.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// ConnectTimeout bounds the initial connection and each Reconnect.
	ConnectTimeout time.Duration

	// QueryTimeout bounds every individual store operation.
	QueryTimeout time.Duration

	// ReconnectInterval is the minimum spacing between reconnection
	// attempts. Zero disables pacing.
	ReconnectInterval time.Duration
}

// DSN renders the config as a postgres connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ConnectTimeout
}

func (c Config) queryTimeout() time.Duration {
	if c.QueryTimeout <= 0 {
		return 10 * time.Second
	}
	return c.QueryTimeout
}

// =============================================================================
// SCHEMA
// =============================================================================

// The envelope bytes in data match the file fallback byte-for-byte.
// title, updated_at, message_count, and content are denormalized for
// listing and indexing without decoding JSONB.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    message_count INT NOT NULL DEFAULT 0,
    content       TEXT NOT NULL DEFAULT '',
    data          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS conversations_updated_idx ON conversations (updated_at DESC);
`

// =============================================================================
// STORE
// =============================================================================

// Store is the Postgres-backed store.Store implementation.
type Store struct {
	mu      sync.RWMutex
	pool    *pgxpool.Pool
	cfg     Config
	index   *searchIndex
	limiter *rate.Limiter
	log     *zap.Logger
}

// Connect establishes the pool, verifies the server within the connect
// timeout, ensures the schema, and probes full-text search support.
// Any failure is wrapped in store.ErrConnectionFailed.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		pool: pool,
		cfg:  cfg,
		log:  log,
	}
	if cfg.ReconnectInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.ReconnectInterval), 1)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create schema: %v", store.ErrConnectionFailed, err)
	}

	s.index = newSearchIndex(ctx, pool, log)
	return s, nil
}

// dial creates and pings a pool within the connect timeout.
func dial(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: parse connection string: %v", store.ErrConnectionFailed, err)
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.connectTimeout()

	ctx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrConnectionFailed, err)
	}
	return pool, nil
}

// db returns the current pool.
func (s *Store) db() *pgxpool.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool
}

// opCtx bounds an operation with the query timeout.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.queryTimeout())
}

// classify maps driver errors onto the store taxonomy. Server-side SQL
// errors pass through untranslated; anything else (dial failures, pool
// closed, timeouts) means the backend is unreachable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, store.ErrBackendUnavailable)
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save upserts the conversation row and refreshes its search vector.
func (s *Store) Save(ctx context.Context, conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation has no id", store.ErrValidation)
	}
	data, err := model.Encode(conv)
	if err != nil {
		return err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err = s.db().Exec(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at, message_count, content, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title         = EXCLUDED.title,
			updated_at    = EXCLUDED.updated_at,
			message_count = EXCLUDED.message_count,
			content       = EXCLUDED.content,
			data          = EXCLUDED.data
	`, conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt, len(conv.Messages), conv.SearchText(), data)
	if err != nil {
		return classify("save conversation", err)
	}

	if err := s.index.Update(ctx, s.db(), conv.ID); err != nil {
		// Indexing failure downgrades search, never the save.
		s.log.Warn("pgstore: search index update failed", zap.String("id", conv.ID), zap.Error(err))
	}
	return nil
}

// Load retrieves a conversation envelope by id.
func (s *Store) Load(ctx context.Context, id string) (*model.Conversation, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var data []byte
	err := s.db().QueryRow(ctx, `SELECT data FROM conversations WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
		}
		return nil, classify("load conversation", err)
	}
	return model.Decode(data)
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

// List returns all summaries from the denormalized columns, most
// recently updated first.
func (s *Store) List(ctx context.Context) ([]store.ConversationSummary, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db().Query(ctx, `
		SELECT id, title, updated_at, message_count
		FROM conversations
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, classify("list conversations", err)
	}
	defer rows.Close()

	var summaries []store.ConversationSummary
	for rows.Next() {
		var sum store.ConversationSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, classify("list conversations", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list conversations", err)
	}
	return summaries, nil
}

// Search uses the full-text index when the server supports it and
// otherwise degrades to the shared brute-force scan.
func (s *Store) Search(ctx context.Context, query string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", store.ErrValidation)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	results, err := s.index.Query(ctx, s.db(), query)
	if err == nil {
		return results, nil
	}
	if !errors.Is(err, store.ErrSearchUnsupported) {
		return nil, err
	}
	return s.bruteSearch(ctx, query)
}

// searchRow is one conversation row fed to the brute-force scorer.
type searchRow struct {
	summary store.ConversationSummary
	content string
}

// bruteSearch scans every row's text, scoring with the same scorer the
// file fallback uses so rankings agree across backends.
func (s *Store) bruteSearch(ctx context.Context, query string) ([]store.SearchResult, error) {
	rows, err := s.db().Query(ctx, `
		SELECT id, title, updated_at, message_count, content
		FROM conversations
	`)
	if err != nil {
		return nil, classify("search conversations", err)
	}
	defer rows.Close()

	var fetched []searchRow
	for rows.Next() {
		var row searchRow
		if err := rows.Scan(&row.summary.ID, &row.summary.Title, &row.summary.UpdatedAt,
			&row.summary.MessageCount, &row.content); err != nil {
			return nil, classify("search conversations", err)
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search conversations", err)
	}
	return scoreRows(fetched, query), nil
}

// scoreRows ranks fetched rows with the shared scorer and ordering.
func scoreRows(rows []searchRow, query string) []store.SearchResult {
	var results []store.SearchResult
	for _, row := range rows {
		score := store.ScoreText(row.content, query)
		if score == 0 {
			continue
		}
		results = append(results, store.SearchResult{
			ConversationSummary: row.summary,
			Score:               float64(score),
		})
	}
	store.SortResults(results)
	return results
}

// =============================================================================
// DELETE / CLEANUP
// =============================================================================

// Delete removes a conversation row. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db().Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return classify("delete conversation", err)
	}
	return nil
}

// Cleanup walks rows older than the cutoff one at a time, skipping any
// whose envelope no longer decodes rather than deleting data it cannot
// read.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (store.CleanupResult, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cutoff := time.Now().Add(-olderThan)
	rows, err := s.db().Query(ctx, `
		SELECT id, data FROM conversations WHERE updated_at < $1
	`, cutoff)
	if err != nil {
		return store.CleanupResult{}, classify("cleanup conversations", err)
	}

	type candidate struct {
		id   string
		data []byte
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.data); err != nil {
			rows.Close()
			return store.CleanupResult{}, classify("cleanup conversations", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return store.CleanupResult{}, classify("cleanup conversations", err)
	}
	rows.Close()

	var result store.CleanupResult
	for _, c := range candidates {
		if _, err := model.Decode(c.data); err != nil {
			s.log.Warn("pgstore: cleanup skipping unreadable record",
				zap.String("id", c.id), zap.Error(err))
			result.Skipped++
			continue
		}
		if _, err := s.db().Exec(ctx, `DELETE FROM conversations WHERE id = $1`, c.id); err != nil {
			return result, classify("cleanup conversations", err)
		}
		result.Deleted++
	}
	if result.Deleted > 0 || result.Skipped > 0 {
		s.log.Info("pgstore: cleanup complete",
			zap.Int("deleted", result.Deleted), zap.Int("skipped", result.Skipped))
	}
	return result, nil
}

// =============================================================================
// STATS / RECONNECT / CLOSE
// =============================================================================

// Stats reports the row count and on-disk relation size.
func (s *Store) Stats(ctx context.Context) (store.StorageStats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		count int
		size  int64
	)
	err := s.db().QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(pg_total_relation_size('conversations'), 0)
		FROM conversations
	`).Scan(&count, &size)
	if err != nil {
		return store.StorageStats{}, classify("storage stats", err)
	}
	return store.StorageStats{
		Backend:       BackendName,
		Conversations: count,
		SizeBytes:     size,
		Connected:     true,
	}, nil
}

// Reconnect replaces the pool with a fresh connection. Attempts are
// paced by the configured reconnect interval.
func (s *Store) Reconnect(ctx context.Context) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return fmt.Errorf("reconnect attempted too soon: %w", store.ErrBackendUnavailable)
	}

	pool, err := dial(ctx, s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.pool
	s.pool = pool
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.log.Info("pgstore: reconnected to primary backend")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
