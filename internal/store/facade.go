// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/model"
)

// ConnectFunc establishes a connection to the primary backend.
// It must respect the configured connect timeout and never block
// indefinitely.
type ConnectFunc func(ctx context.Context) (Store, error)

// =============================================================================
// FACADE
// =============================================================================

// Facade is the single entry point to conversation storage. It selects
// the primary or fallback backend at construction and performs a
// one-way, permanent demotion to the fallback if the primary becomes
// unavailable mid-session. It holds no conversation data itself.
//
// Demotion state is per-instance: independent facades (for example
// under test) never share it. Once demoted, a facade never attempts
// the primary again; a fresh process is required to retry it.
type Facade struct {
	mu       sync.Mutex
	active   Store
	fallback Store
	primary  bool // active is the primary backend
	demoted  bool

	log *zap.Logger
}

// NewFacade selects a backend and returns the facade committed to it.
//
// When usePrimary is set, connect is attempted once. Connection failure
// is a non-fatal degradation: it is logged and the facade commits to
// the fallback for the process lifetime.
func NewFacade(ctx context.Context, usePrimary bool, connect ConnectFunc, fallback Store, log *zap.Logger) *Facade {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Facade{
		active:   fallback,
		fallback: fallback,
		log:      log,
	}
	if !usePrimary || connect == nil {
		f.log.Info("storage: using fallback backend by configuration")
		return f
	}

	primary, err := connect(ctx)
	if err != nil {
		f.demoted = true
		f.log.Warn("storage: primary backend unreachable, degrading to fallback",
			zap.Error(err))
		return f
	}
	f.active = primary
	f.primary = true
	f.log.Info("storage: using primary backend")
	return f
}

// UsingPrimary reports whether operations are currently routed to the
// primary backend.
func (f *Facade) UsingPrimary() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.primary
}

// Demoted reports whether the facade degraded to the fallback after
// the primary was requested.
func (f *Facade) Demoted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.demoted
}

// current returns the active backend and whether it is the primary.
func (f *Facade) current() (Store, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.primary
}

// demote switches permanently to the fallback backend.
func (f *Facade) demote(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.primary {
		return
	}
	if err := f.active.Close(); err != nil {
		f.log.Debug("storage: closing demoted primary", zap.Error(err))
	}
	f.active = f.fallback
	f.primary = false
	f.demoted = true
	f.log.Warn("storage: primary backend failed mid-session, demoted to fallback for the remainder of this process",
		zap.Error(cause))
}

// do runs op against the active backend. When the primary reports
// ErrBackendUnavailable, it attempts exactly one reconnection; if that
// fails (or the retried operation fails the same way), the facade
// demotes and replays the operation on the fallback.
func (f *Facade) do(ctx context.Context, op func(Store) error) error {
	s, isPrimary := f.current()
	err := op(s)
	if err == nil || !isPrimary || !errors.Is(err, ErrBackendUnavailable) {
		return err
	}

	if rc, ok := s.(Reconnector); ok {
		if rcErr := rc.Reconnect(ctx); rcErr == nil {
			f.log.Info("storage: primary backend reconnected")
			if err = op(s); err == nil || !errors.Is(err, ErrBackendUnavailable) {
				return err
			}
		} else {
			f.log.Debug("storage: primary reconnection failed", zap.Error(rcErr))
		}
	}

	f.demote(err)
	return op(f.fallback)
}

// =============================================================================
// STORE DELEGATION
// =============================================================================

// Save persists the conversation through the active backend.
func (f *Facade) Save(ctx context.Context, conv *model.Conversation) error {
	return f.do(ctx, func(s Store) error { return s.Save(ctx, conv) })
}

// Load retrieves a conversation by id.
func (f *Facade) Load(ctx context.Context, id string) (*model.Conversation, error) {
	var conv *model.Conversation
	err := f.do(ctx, func(s Store) error {
		var opErr error
		conv, opErr = s.Load(ctx, id)
		return opErr
	})
	return conv, err
}

// List returns all conversation summaries, most recently updated first.
func (f *Facade) List(ctx context.Context) ([]ConversationSummary, error) {
	var summaries []ConversationSummary
	err := f.do(ctx, func(s Store) error {
		var opErr error
		summaries, opErr = s.List(ctx)
		return opErr
	})
	return summaries, err
}

// Search returns conversations matching the query, ranked by relevance.
func (f *Facade) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var results []SearchResult
	err := f.do(ctx, func(s Store) error {
		var opErr error
		results, opErr = s.Search(ctx, query)
		return opErr
	})
	return results, err
}

// Delete removes a conversation. Deleting a missing id is not an error.
func (f *Facade) Delete(ctx context.Context, id string) error {
	return f.do(ctx, func(s Store) error { return s.Delete(ctx, id) })
}

// Cleanup removes conversations not updated within olderThan.
func (f *Facade) Cleanup(ctx context.Context, olderThan time.Duration) (CleanupResult, error) {
	var res CleanupResult
	err := f.do(ctx, func(s Store) error {
		var opErr error
		res, opErr = s.Cleanup(ctx, olderThan)
		return opErr
	})
	return res, err
}

// Stats returns the active backend's statistics.
func (f *Facade) Stats(ctx context.Context) (StorageStats, error) {
	var stats StorageStats
	err := f.do(ctx, func(s Store) error {
		var opErr error
		stats, opErr = s.Stats(ctx)
		return opErr
	})
	return stats, err
}

// Close releases both backends.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.primary {
		err = f.active.Close()
	}
	if cerr := f.fallback.Close(); err == nil {
		err = cerr
	}
	return err
}
