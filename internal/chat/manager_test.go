// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
)

// recordingStore is an in-memory store.Store that counts saves.
type recordingStore struct {
	convs       map[string]*model.Conversation
	saveCalls   int
	lastCleanup time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{convs: make(map[string]*model.Conversation)}
}

func (r *recordingStore) Save(ctx context.Context, conv *model.Conversation) error {
	r.saveCalls++
	r.convs[conv.ID] = conv.Clone()
	return nil
}

func (r *recordingStore) Load(ctx context.Context, id string) (*model.Conversation, error) {
	conv, ok := r.convs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return conv.Clone(), nil
}

func (r *recordingStore) List(ctx context.Context) ([]store.ConversationSummary, error) {
	var out []store.ConversationSummary
	for _, conv := range r.convs {
		out = append(out, store.Summarize(conv))
	}
	return out, nil
}

func (r *recordingStore) Search(ctx context.Context, query string) ([]store.SearchResult, error) {
	return nil, nil
}

func (r *recordingStore) Delete(ctx context.Context, id string) error {
	delete(r.convs, id)
	return nil
}

func (r *recordingStore) Cleanup(ctx context.Context, olderThan time.Duration) (store.CleanupResult, error) {
	r.lastCleanup = olderThan
	return store.CleanupResult{}, nil
}

func (r *recordingStore) Stats(ctx context.Context) (store.StorageStats, error) {
	return store.StorageStats{Backend: "fake", Conversations: len(r.convs)}, nil
}

func (r *recordingStore) Close() error { return nil }

func TestStartNewDoesNotPersist(t *testing.T) {
	rs := newRecordingStore()
	mgr := NewManager(rs, DefaultConfig(), nil)

	conv := mgr.StartNew()
	if conv == nil || conv.ID == "" {
		t.Fatal("StartNew should return a conversation with an id")
	}
	if rs.saveCalls != 0 {
		t.Errorf("saveCalls = %d, want 0 before first append", rs.saveCalls)
	}
}

func TestAppendPersistsWholeConversation(t *testing.T) {
	rs := newRecordingStore()
	mgr := NewManager(rs, DefaultConfig(), nil)
	ctx := context.Background()

	mgr.StartNew()
	if _, err := mgr.Append(ctx, model.RoleUser, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := mgr.Append(ctx, model.RoleAssistant, "hi there"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if rs.saveCalls != 2 {
		t.Errorf("saveCalls = %d, want 2", rs.saveCalls)
	}
	saved := rs.convs[mgr.Current().ID]
	if saved == nil || len(saved.Messages) != 2 {
		t.Fatalf("stored conversation should hold both messages, got %+v", saved)
	}
}

func TestAppendRejectsBlankContent(t *testing.T) {
	mgr := NewManager(newRecordingStore(), DefaultConfig(), nil)
	ctx := context.Background()
	mgr.StartNew()

	for _, role := range []model.Role{model.RoleUser, model.RoleAssistant} {
		if _, err := mgr.Append(ctx, role, "   \n"); !errors.Is(err, store.ErrValidation) {
			t.Errorf("Append(%s, blank) err = %v, want ErrValidation", role, err)
		}
	}
	// System turns may be empty.
	if _, err := mgr.Append(ctx, model.RoleSystem, ""); err != nil {
		t.Errorf("Append(system, empty) = %v, want nil", err)
	}
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	mgr := NewManager(newRecordingStore(), DefaultConfig(), nil)
	mgr.StartNew()
	if _, err := mgr.Append(context.Background(), model.Role("robot"), "beep"); !errors.Is(err, store.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestAppendWithoutStartCreatesConversation(t *testing.T) {
	mgr := NewManager(newRecordingStore(), DefaultConfig(), nil)
	if _, err := mgr.Append(context.Background(), model.RoleUser, "implicit start"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if mgr.Current() == nil {
		t.Error("append should establish a current conversation")
	}
}

func TestContextWindowBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextMessages = 3
	mgr := NewManager(newRecordingStore(), cfg, nil)
	ctx := context.Background()
	mgr.StartNew()

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		if _, err := mgr.Append(ctx, model.RoleUser, text); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	window := mgr.ContextWindow()
	if len(window) != 3 {
		t.Fatalf("len(window) = %d, want 3", len(window))
	}
	if window[0].Content != "three" || window[2].Content != "five" {
		t.Errorf("window should hold the most recent messages in order, got %v", window)
	}
}

func TestContextWindowNoConversation(t *testing.T) {
	mgr := NewManager(newRecordingStore(), DefaultConfig(), nil)
	if window := mgr.ContextWindow(); window != nil {
		t.Errorf("window = %v, want nil without a conversation", window)
	}
}

func TestDeleteClearsCurrent(t *testing.T) {
	rs := newRecordingStore()
	mgr := NewManager(rs, DefaultConfig(), nil)
	ctx := context.Background()

	mgr.StartNew()
	if _, err := mgr.Append(ctx, model.RoleUser, "doomed"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	id := mgr.Current().ID
	if err := mgr.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mgr.Current() != nil {
		t.Error("deleting the current conversation should clear it")
	}
	if _, ok := rs.convs[id]; ok {
		t.Error("conversation should be removed from storage")
	}
}

func TestRenameUpdatesStorageAndCurrent(t *testing.T) {
	rs := newRecordingStore()
	mgr := NewManager(rs, DefaultConfig(), nil)
	ctx := context.Background()

	mgr.StartNew()
	if _, err := mgr.Append(ctx, model.RoleUser, "original topic"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	id := mgr.Current().ID

	if err := mgr.Rename(ctx, id, "Carburetor notes"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if rs.convs[id].Title != "Carburetor notes" {
		t.Errorf("stored title = %q", rs.convs[id].Title)
	}
	if mgr.Current().Title != "Carburetor notes" {
		t.Errorf("current title = %q", mgr.Current().Title)
	}
	// Rename stamps UpdatedAt the same way Append does, so listings
	// render every timestamp in one zone.
	if got, want := rs.convs[id].UpdatedAt.Location(), time.Now().Location(); got != want {
		t.Errorf("UpdatedAt location = %v, want %v", got, want)
	}

	if err := mgr.Rename(ctx, id, "  "); !errors.Is(err, store.ErrValidation) {
		t.Errorf("blank rename err = %v, want ErrValidation", err)
	}
	if err := mgr.Rename(ctx, "conv_ghost", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing rename err = %v, want ErrNotFound", err)
	}
}

func TestCleanupOldUsesRetention(t *testing.T) {
	rs := newRecordingStore()
	cfg := DefaultConfig()
	cfg.RetentionDays = 7
	mgr := NewManager(rs, cfg, nil)

	if _, err := mgr.CleanupOld(context.Background()); err != nil {
		t.Fatalf("CleanupOld: %v", err)
	}
	if want := 7 * 24 * time.Hour; rs.lastCleanup != want {
		t.Errorf("cleanup age = %v, want %v", rs.lastCleanup, want)
	}
}

func TestLoadSetsCurrent(t *testing.T) {
	rs := newRecordingStore()
	mgr := NewManager(rs, DefaultConfig(), nil)
	ctx := context.Background()

	mgr.StartNew()
	if _, err := mgr.Append(ctx, model.RoleUser, "saved earlier"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	id := mgr.Current().ID

	mgr.StartNew() // switch away
	loaded, err := mgr.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != id || mgr.Current().ID != id {
		t.Error("Load should make the stored conversation current")
	}
}

func TestUpdateConfigAppliesNewSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextMessages = 5
	mgr := NewManager(newRecordingStore(), cfg, nil)
	ctx := context.Background()
	mgr.StartNew()

	for _, text := range []string{"one", "two", "three", "four"} {
		if _, err := mgr.Append(ctx, model.RoleUser, text); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	mgr.UpdateConfig(Config{MaxContextMessages: 2, AutoSave: true})
	if window := mgr.ContextWindow(); len(window) != 2 {
		t.Errorf("len(window) = %d, want 2 after UpdateConfig", len(window))
	}

	// Zero values keep the previous settings.
	mgr.UpdateConfig(Config{AutoSave: true})
	if window := mgr.ContextWindow(); len(window) != 2 {
		t.Errorf("len(window) = %d, want 2 after zero-value UpdateConfig", len(window))
	}
}
