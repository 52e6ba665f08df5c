// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/store"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config holds configuration for the chat manager.
type Config struct {
	// MaxContextMessages bounds the window handed to the generator
	// (default: 10).
	MaxContextMessages int

	// AutoSave persists the conversation after every append.
	AutoSave bool

	// RetentionDays is the default age for CleanupOld (default: 30).
	RetentionDays int
}

// DefaultConfig returns the default chat configuration.
func DefaultConfig() Config {
	return Config{
		MaxContextMessages: 10,
		AutoSave:           true,
		RetentionDays:      30,
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the current conversation and fronts the storage facade.
type Manager struct {
	mu      sync.Mutex
	store   store.Store
	cfg     Config
	current *model.Conversation
	log     *zap.Logger
}

// NewManager creates a chat manager over the given store.
func NewManager(st store.Store, cfg Config, log *zap.Logger) *Manager {
	if cfg.MaxContextMessages <= 0 {
		cfg.MaxContextMessages = DefaultConfig().MaxContextMessages
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultConfig().RetentionDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: st, cfg: cfg, log: log}
}

// UpdateConfig applies new chat settings mid-session. Zero or negative
// values keep their previous settings.
func (m *Manager) UpdateConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.MaxContextMessages > 0 {
		m.cfg.MaxContextMessages = cfg.MaxContextMessages
	}
	if cfg.RetentionDays > 0 {
		m.cfg.RetentionDays = cfg.RetentionDays
	}
	m.cfg.AutoSave = cfg.AutoSave
}

// =============================================================================
// CURRENT CONVERSATION
// =============================================================================

// StartNew makes a fresh conversation current. Nothing touches storage
// until the first append, so abandoned empty conversations leave no
// record behind.
func (m *Manager) StartNew() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = model.NewConversation()
	m.log.Debug("chat: started conversation", zap.String("id", m.current.ID))
	return m.current
}

// Current returns the current conversation, or nil when none is
// active.
func (m *Manager) Current() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Load makes a stored conversation current.
func (m *Manager) Load(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = conv
	m.mu.Unlock()
	return conv, nil
}

// Append adds a message to the current conversation and persists it.
// User and assistant turns must carry non-blank content; system turns
// may be empty.
func (m *Manager) Append(ctx context.Context, role model.Role, content string) (*model.Conversation, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrValidation, role)
	}
	if (role == model.RoleUser || role == model.RoleAssistant) && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s message has no content", store.ErrValidation, role)
	}

	m.mu.Lock()
	if m.current == nil {
		m.current = model.NewConversation()
	}
	m.current.Append(model.NewMessage(role, content))
	conv := m.current
	autoSave := m.cfg.AutoSave
	m.mu.Unlock()

	if autoSave {
		if err := m.store.Save(ctx, conv); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// Save persists the current conversation explicitly. A nil current
// conversation is a no-op.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	conv := m.current
	m.mu.Unlock()
	if conv == nil || len(conv.Messages) == 0 {
		return nil
	}
	return m.store.Save(ctx, conv)
}

// ContextWindow returns a copy of the last MaxContextMessages messages
// of the current conversation, oldest first.
func (m *Manager) ContextWindow() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Window(m.cfg.MaxContextMessages)
}

// =============================================================================
// STORAGE PASS-THROUGHS
// =============================================================================

// ListAll returns summaries of every stored conversation.
func (m *Manager) ListAll(ctx context.Context) ([]store.ConversationSummary, error) {
	return m.store.List(ctx)
}

// Search returns stored conversations matching the query.
func (m *Manager) Search(ctx context.Context, query string) ([]store.SearchResult, error) {
	return m.store.Search(ctx, query)
}

// Delete removes a stored conversation. Deleting the current one also
// clears it from memory.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	m.mu.Unlock()
	return nil
}

// Rename retitles a stored conversation.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: empty title", store.ErrValidation)
	}

	conv, err := m.store.Load(ctx, id)
	if err != nil {
		return err
	}
	conv.Title = title
	conv.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, conv); err != nil {
		return err
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current.Title = title
		m.current.UpdatedAt = conv.UpdatedAt
	}
	m.mu.Unlock()
	return nil
}

// CleanupOld removes conversations idle longer than the retention
// period.
func (m *Manager) CleanupOld(ctx context.Context) (store.CleanupResult, error) {
	m.mu.Lock()
	age := time.Duration(m.cfg.RetentionDays) * 24 * time.Hour
	m.mu.Unlock()
	return m.store.Cleanup(ctx, age)
}

// Stats returns the active backend's statistics.
func (m *Manager) Stats(ctx context.Context) (store.StorageStats, error) {
	return m.store.Stats(ctx)
}
