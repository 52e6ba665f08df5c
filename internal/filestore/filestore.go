// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
	"github.com/jeranaias/rigchat/internal/util"
)

// BackendName identifies this backend in stats and logs.
const BackendName = "file"

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations as one JSON envelope file per
// conversation under a base directory. Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	dir string
	log *zap.Logger
}

// New creates a file store rooted at dir, creating it if needed.
func New(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create fallback directory: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// filePath returns the file path for a conversation ID.
func (s *Store) filePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save writes the conversation's envelope atomically. The whole record
// is rewritten on every save.
func (s *Store) Save(ctx context.Context, conv *model.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation has no id", store.ErrValidation)
	}

	data, err := model.Encode(conv)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Atomic write with fsync prevents truncated records on crash.
	if err := util.AtomicWriteFile(s.filePath(conv.ID), data, 0644); err != nil {
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Load reads and decodes a conversation. A missing file is
// store.ErrNotFound; an undecodable one is model.ErrMalformedRecord.
func (s *Store) Load(ctx context.Context, id string) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(s.filePath(id))
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("read conversation %s: %w", id, err)
	}

	return model.Decode(data)
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

// List returns summaries for every readable conversation, most
// recently updated first. Corrupted files are skipped.
func (s *Store) List(ctx context.Context) ([]store.ConversationSummary, error) {
	convs, _, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]store.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, store.Summarize(conv))
	}
	store.SortSummaries(summaries)
	return summaries, nil
}

// Search scans every conversation's title and message text, scoring by
// occurrence count. Conversations with no match are omitted.
func (s *Store) Search(ctx context.Context, query string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", store.ErrValidation)
	}

	convs, _, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var results []store.SearchResult
	for _, conv := range convs {
		score := store.ScoreText(conv.SearchText(), query)
		if score == 0 {
			continue
		}
		results = append(results, store.SearchResult{
			ConversationSummary: store.Summarize(conv),
			Score:               float64(score),
		})
	}
	store.SortResults(results)
	return results, nil
}

// loadAll decodes every .json file in the directory, returning the
// decodable conversations and the count of corrupted files.
func (s *Store) loadAll(ctx context.Context) ([]*model.Conversation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read fallback directory: %w", err)
	}

	var (
		convs   []*model.Conversation
		skipped int
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			skipped++
			continue
		}
		conv, err := model.Decode(data)
		if err != nil {
			s.log.Warn("filestore: skipping unreadable record",
				zap.String("file", entry.Name()), zap.Error(err))
			skipped++
			continue
		}
		convs = append(convs, conv)
	}
	return convs, skipped, nil
}

// =============================================================================
// DELETE / CLEANUP
// =============================================================================

// Delete removes a conversation file. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

// Cleanup removes conversations whose UpdatedAt is older than the
// cutoff. Corrupted files are left in place and reported as skipped.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (store.CleanupResult, error) {
	convs, skipped, err := s.loadAll(ctx)
	if err != nil {
		return store.CleanupResult{}, err
	}

	cutoff := time.Now().Add(-olderThan)
	result := store.CleanupResult{Skipped: skipped}
	for _, conv := range convs {
		if !conv.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, conv.ID); err != nil {
			return result, err
		}
		result.Deleted++
	}
	if result.Deleted > 0 || result.Skipped > 0 {
		s.log.Info("filestore: cleanup complete",
			zap.Int("deleted", result.Deleted), zap.Int("skipped", result.Skipped))
	}
	return result, nil
}

// =============================================================================
// STATS / CLOSE
// =============================================================================

// Stats reports the conversation count and total bytes on disk.
// Corrupted files still contribute to the size but not the count.
func (s *Store) Stats(ctx context.Context) (store.StorageStats, error) {
	convs, _, err := s.loadAll(ctx)
	if err != nil {
		return store.StorageStats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var size int64
	entries, err := os.ReadDir(s.dir)
	if err != nil && !os.IsNotExist(err) {
		return store.StorageStats{}, fmt.Errorf("read fallback directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
	}

	return store.StorageStats{
		Backend:       BackendName,
		Conversations: len(convs),
		SizeBytes:     size,
		Connected:     true,
	}, nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}
