// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared wiring for all rigchat commands.
//
// Every command needs the same foundation: configuration, a logger,
// and an open conversation store. App builds that once so the command
// handlers stay small.
package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/filestore"
	"github.com/jeranaias/rigchat/internal/llm"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/pgstore"
	"github.com/jeranaias/rigchat/internal/store"
)

// App holds everything a command handler needs to run.
type App struct {
	Cfg     *config.Config
	Args    Args
	Log     *zap.Logger
	Store   store.Store
	Manager *chat.Manager
}

// NewApp loads configuration, opens the conversation store, and builds
// the chat manager. Callers must Close() when done.
func NewApp(ctx context.Context, args Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyArgOverrides(cfg, args)

	log, err := buildLogger(args)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	st, err := openStore(ctx, cfg, args, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	mgr := chat.NewManager(st, chat.Config{
		MaxContextMessages: cfg.Chat.MaxContextMessages,
		AutoSave:           cfg.Chat.AutoSave,
		RetentionDays:      cfg.Retention.CleanupDays,
	}, log)

	return &App{
		Cfg:     cfg,
		Args:    args,
		Log:     log,
		Store:   st,
		Manager: mgr,
	}, nil
}

// Close releases the store and flushes buffered log output.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("store close failed", zap.Error(err))
		}
	}
	_ = a.Log.Sync()
}

// Generator builds the Ollama client from the effective configuration.
func (a *App) Generator() *llm.Client {
	return llm.NewClient(llm.ClientConfig{
		BaseURL:      a.Cfg.LLM.OllamaURL,
		Timeout:      a.Cfg.LLM.GenerateTimeout(),
		DefaultModel: a.Cfg.LLM.Model,
	})
}

// applyArgOverrides maps command-line flags onto the loaded config.
func applyArgOverrides(cfg *config.Config, args Args) {
	if args.Model != "" {
		cfg.LLM.Model = args.Model
	}
	if args.Local {
		cfg.Storage.UsePrimary = false
	}
	if args.Postgres {
		cfg.Storage.UsePrimary = true
	}
	if args.NoColor {
		ForceColorsEnabled(false)
	}
}

// buildLogger writes structured logs to the data directory so the
// terminal stays free for chat output. Falls back to stderr when the
// log path cannot be resolved.
func buildLogger(args Args) (*zap.Logger, error) {
	opts := logging.Options{Verbose: args.Verbose}
	if path, err := config.LogPath(); err == nil {
		opts.File = path
	}
	return logging.New(opts)
}

// openStore builds the conversation store per the configuration:
// a local file store always, fronted by Postgres when enabled.
//
// RELIABILITY: a failed Postgres connection degrades to file storage
// instead of aborting the command.
func openStore(ctx context.Context, cfg *config.Config, args Args, log *zap.Logger) (store.Store, error) {
	dir, err := cfg.FallbackDir()
	if err != nil {
		return nil, fmt.Errorf("resolve fallback directory: %w", err)
	}

	fallback, err := filestore.New(dir, log)
	if err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}

	var connect store.ConnectFunc
	if cfg.Storage.UsePrimary {
		// Ask for a missing password rather than failing the connection
		// outright. Non-interactive runs just proceed without one.
		if cfg.Postgres.Password == "" && CanPrompt() {
			if pw, perr := PromptPassword("Postgres password: "); perr == nil {
				cfg.Postgres.Password = pw
			}
		}
		pgCfg := pgstore.Config{
			Host:              cfg.Postgres.Host,
			Port:              cfg.Postgres.Port,
			Database:          cfg.Postgres.Database,
			User:              cfg.Postgres.User,
			Password:          cfg.Postgres.Password,
			SSLMode:           cfg.Postgres.SSLMode,
			ConnectTimeout:    cfg.Postgres.ConnectTimeout(),
			QueryTimeout:      cfg.Postgres.QueryTimeout(),
			ReconnectInterval: cfg.Postgres.ReconnectInterval(),
		}
		connect = func(ctx context.Context) (store.Store, error) {
			return pgstore.Connect(ctx, pgCfg, log)
		}
	}

	facade := store.NewFacade(ctx, cfg.Storage.UsePrimary, connect, fallback, log)

	// --postgres means the caller wants the real backend or nothing.
	if args.Postgres && !facade.UsingPrimary() {
		_ = facade.Close()
		return nil, fmt.Errorf("postgres backend required but unavailable")
	}

	if cfg.Storage.UsePrimary && !facade.UsingPrimary() && !args.Quiet {
		fmt.Fprintln(os.Stderr, RenderConditional(WarningStyle,
			"warning: Postgres unavailable, using local file storage"))
	}

	return facade, nil
}
