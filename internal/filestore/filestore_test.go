// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func conv(t *testing.T, userText string) *model.Conversation {
	t.Helper()
	c := model.NewConversation()
	c.Append(model.NewMessage(model.RoleUser, userText))
	c.Append(model.NewMessage(model.RoleAssistant, "reply to "+userText))
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := conv(t, "how do I tune a carburetor")
	if err := s.Save(ctx, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(ctx, original.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != original.ID {
		t.Errorf("ID = %s, want %s", loaded.ID, original.ID)
	}
	if loaded.Title != original.Title {
		t.Errorf("Title = %q, want %q", loaded.Title, original.Title)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(loaded.Messages))
	}
}

func TestSaveRewritesWholeRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := conv(t, "first")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c.Append(model.NewMessage(model.RoleUser, "second"))
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	loaded, err := s.Load(ctx, c.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Messages) != 3 {
		t.Errorf("len(Messages) = %d, want 3", len(loaded.Messages))
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "conv_nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRejectsEmptyID(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), &model.Conversation{})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestListSkipsCorruptedFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := conv(t, "intact")
	if err := s.Save(ctx, good); err != nil {
		t.Fatalf("Save: %v", err)
	}
	badPath := filepath.Join(s.Dir(), "conv_corrupt.json")
	if err := os.WriteFile(badPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	if summaries[0].ID != good.ID {
		t.Errorf("summaries[0].ID = %s, want %s", summaries[0].ID, good.ID)
	}

	// The corrupted record still fails loudly when addressed directly.
	if _, err := s.Load(ctx, "conv_corrupt"); !errors.Is(err, model.ErrMalformedRecord) {
		t.Errorf("Load corrupt err = %v, want ErrMalformedRecord", err)
	}
}

func TestListOrdersByUpdatedAtDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := conv(t, "older")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := conv(t, "newer")
	for _, c := range []*model.Conversation{older, newer} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != newer.ID {
		t.Errorf("expected most recently updated first, got %+v", summaries)
	}
}

func TestSearchRanksAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	heavy := model.NewConversation()
	heavy.Append(model.NewMessage(model.RoleUser, "docker docker docker"))
	light := model.NewConversation()
	light.Append(model.NewMessage(model.RoleUser, "one docker mention"))
	miss := model.NewConversation()
	miss.Append(model.NewMessage(model.RoleUser, "nothing relevant"))
	for _, c := range []*model.Conversation{heavy, light, miss} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	results, err := s.Search(ctx, "Docker")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != heavy.ID {
		t.Errorf("results[0].ID = %s, want %s", results[0].ID, heavy.ID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestSearchMatchesWordStems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hit := model.NewConversation()
	hit.Append(model.NewMessage(model.RoleUser, "let's debug the crash"))
	miss := model.NewConversation()
	miss.Append(model.NewMessage(model.RoleUser, "nothing relevant"))
	for _, c := range []*model.Conversation{hit, miss} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	results, err := s.Search(ctx, "debugging")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ID != hit.ID {
		t.Errorf("results[0].ID = %s, want %s", results[0].ID, hit.ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("Score = %v, want positive", results[0].Score)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), "   ")
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := conv(t, "doomed")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, c.ID); err != nil {
		t.Errorf("second Delete: %v, want nil", err)
	}
	if _, err := s.Load(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load after delete err = %v, want ErrNotFound", err)
	}
}

func TestCleanupDeletesOldAndCountsCorrupt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := conv(t, "stale")
	old.UpdatedAt = time.Now().Add(-90 * 24 * time.Hour)
	fresh := conv(t, "recent")
	for _, c := range []*model.Conversation{old, fresh} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	badPath := filepath.Join(s.Dir(), "conv_corrupt.json")
	if err := os.WriteFile(badPath, []byte("garbage"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	res, err := s.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if res.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", res.Deleted)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if _, err := s.Load(ctx, fresh.ID); err != nil {
		t.Errorf("fresh conversation should survive cleanup: %v", err)
	}
	if _, err := os.Stat(badPath); err != nil {
		t.Errorf("corrupted file should be left in place: %v", err)
	}

	// A second run finds nothing further to remove.
	again, err := s.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if again.Deleted != 0 {
		t.Errorf("second run Deleted = %d, want 0", again.Deleted)
	}
}

func TestStatsReportsCountAndSize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"a", "b"} {
		if err := s.Save(ctx, conv(t, text)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Backend != BackendName {
		t.Errorf("Backend = %s, want %s", stats.Backend, BackendName)
	}
	if stats.Conversations != 2 {
		t.Errorf("Conversations = %d, want 2", stats.Conversations)
	}
	if stats.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", stats.SizeBytes)
	}
	if !stats.Connected {
		t.Error("file store should always report connected")
	}
}
