// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for rigchat.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.rigchat/config.toml
//   - ~/.rigchat/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Storage backend selection
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Postgres (primary backend) configuration
	Postgres PostgresConfig `toml:"postgres" json:"postgres"`

	// Fallback (local file backend) configuration
	Fallback FallbackConfig `toml:"fallback" json:"fallback"`

	// Retention configuration
	Retention RetentionConfig `toml:"retention" json:"retention"`

	// Chat behavior
	Chat ChatConfig `toml:"chat" json:"chat"`

	// LLM (Ollama) configuration
	LLM LLMConfig `toml:"llm" json:"llm"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	// UsePrimary enables the Postgres backend. When false, or when the
	// server is unreachable, rigchat runs on the local file store.
	UsePrimary bool `toml:"use_primary" json:"use_primary"`
}

// PostgresConfig contains primary backend connection settings.
type PostgresConfig struct {
	Host     string `toml:"host" json:"host"`
	Port     int    `toml:"port" json:"port"`
	Database string `toml:"database" json:"database"`
	User     string `toml:"user" json:"user"`
	Password string `toml:"password" json:"password"`
	// SSLMode is passed through to the driver: "disable", "prefer",
	// "require", "verify-ca", "verify-full"
	SSLMode string `toml:"sslmode" json:"sslmode"`

	// ConnectTimeoutSecs bounds connection attempts (default: 5).
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
	// QueryTimeoutSecs bounds each storage operation (default: 10).
	QueryTimeoutSecs int `toml:"query_timeout_secs" json:"query_timeout_secs"`
	// ReconnectIntervalSecs is the minimum spacing between mid-session
	// reconnection attempts (default: 5).
	ReconnectIntervalSecs int `toml:"reconnect_interval_secs" json:"reconnect_interval_secs"`
}

// FallbackConfig contains local file backend settings.
type FallbackConfig struct {
	// Directory for conversation files (empty = ~/.rigchat/conversations)
	Directory string `toml:"directory" json:"directory"`
}

// RetentionConfig controls conversation cleanup.
type RetentionConfig struct {
	// CleanupDays is the age past which cleanup removes conversations
	// (default: 30).
	CleanupDays int `toml:"cleanup_days" json:"cleanup_days"`
}

// ChatConfig controls conversation behavior.
type ChatConfig struct {
	// MaxContextMessages bounds the window sent to the model (default: 10).
	MaxContextMessages int `toml:"max_context_messages" json:"max_context_messages"`
	// AutoSave persists the conversation after every message.
	AutoSave bool `toml:"auto_save" json:"auto_save"`
}

// LLMConfig contains local Ollama configuration.
type LLMConfig struct {
	// OllamaURL is the URL of the Ollama server
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// Model is the default model to use with Ollama
	Model string `toml:"model" json:"model"`
	// SystemPrompt is prepended to every generation request
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Temperature controls sampling randomness (0 = backend default)
	Temperature float64 `toml:"temperature" json:"temperature"`
	// TimeoutSecs bounds each generation request (default: 120)
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies as formatted markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// CompactMode uses a more compact layout in listings
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Storage: StorageConfig{
			UsePrimary: false,
		},

		Postgres: PostgresConfig{
			Host:                  "127.0.0.1",
			Port:                  5432,
			Database:              "rigchat",
			User:                  "rigchat",
			SSLMode:               "disable",
			ConnectTimeoutSecs:    5,
			QueryTimeoutSecs:      10,
			ReconnectIntervalSecs: 5,
		},

		Fallback: FallbackConfig{
			Directory: "",
		},

		Retention: RetentionConfig{
			CleanupDays: 30,
		},

		Chat: ChatConfig{
			MaxContextMessages: 10,
			AutoSave:           true,
		},

		LLM: LLMConfig{
			OllamaURL:   "http://127.0.0.1:11434",
			Model:       "qwen2.5:7b",
			Temperature: 0,
			TimeoutSecs: 120,
		},

		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// FallbackDir resolves the file store directory, defaulting under the
// config directory.
func (c *Config) FallbackDir() (string, error) {
	if c.Fallback.Directory != "" {
		return c.Fallback.Directory, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations"), nil
}

// LogPath returns the default log file path.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rigchat.log"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect credentials.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	// Try JSON as fallback
	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	cfg, err := finalize(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finalize(cfg)
}

// finalize applies env overrides, defaults, and validation.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# rigchat configuration file")
	fmt.Fprintln(file, "# Generated by rigchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "postgres.port",
			Message: fmt.Sprintf("must be 1-65535, got %d", c.Postgres.Port),
		})
	}
	if c.Storage.UsePrimary {
		if c.Postgres.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "postgres.host",
				Message: "required when storage.use_primary is true",
			})
		}
		if c.Postgres.Database == "" {
			errs = append(errs, ValidationError{
				Field:   "postgres.database",
				Message: "required when storage.use_primary is true",
			})
		}
	}
	validSSLModes := map[string]bool{
		"": true, "disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[strings.ToLower(c.Postgres.SSLMode)] {
		errs = append(errs, ValidationError{
			Field:   "postgres.sslmode",
			Message: fmt.Sprintf("invalid mode '%s'", c.Postgres.SSLMode),
		})
	}

	if c.Retention.CleanupDays < 1 {
		errs = append(errs, ValidationError{
			Field:   "retention.cleanup_days",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Retention.CleanupDays),
		})
	}

	if c.Chat.MaxContextMessages < 1 || c.Chat.MaxContextMessages > 1000 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_context_messages",
			Message: fmt.Sprintf("must be 1-1000, got %d", c.Chat.MaxContextMessages),
		})
	}

	if c.LLM.OllamaURL != "" {
		if _, err := url.Parse(c.LLM.OllamaURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "llm.ollama_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("must be 0.0-2.0, got %v", c.LLM.Temperature),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Postgres.Host == "" {
		c.Postgres.Host = defaults.Postgres.Host
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = defaults.Postgres.Port
	}
	if c.Postgres.Database == "" {
		c.Postgres.Database = defaults.Postgres.Database
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = defaults.Postgres.SSLMode
	}
	if c.Postgres.ConnectTimeoutSecs == 0 {
		c.Postgres.ConnectTimeoutSecs = defaults.Postgres.ConnectTimeoutSecs
	}
	if c.Postgres.QueryTimeoutSecs == 0 {
		c.Postgres.QueryTimeoutSecs = defaults.Postgres.QueryTimeoutSecs
	}
	if c.Postgres.ReconnectIntervalSecs == 0 {
		c.Postgres.ReconnectIntervalSecs = defaults.Postgres.ReconnectIntervalSecs
	}

	if c.Retention.CleanupDays == 0 {
		c.Retention.CleanupDays = defaults.Retention.CleanupDays
	}

	if c.Chat.MaxContextMessages == 0 {
		c.Chat.MaxContextMessages = defaults.Chat.MaxContextMessages
	}

	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = defaults.LLM.OllamaURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.TimeoutSecs == 0 {
		c.LLM.TimeoutSecs = defaults.LLM.TimeoutSecs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - RIGCHAT_USE_PRIMARY: "1"/"true" enables the Postgres backend
//   - RIGCHAT_PG_HOST: overrides postgres.host
//   - RIGCHAT_PG_PORT: overrides postgres.port
//   - RIGCHAT_PG_DATABASE: overrides postgres.database
//   - RIGCHAT_PG_USER: overrides postgres.user
//   - RIGCHAT_PG_PASSWORD: overrides postgres.password
//   - RIGCHAT_FALLBACK_DIR: overrides fallback.directory
//   - RIGCHAT_MODEL: overrides llm.model
//   - RIGCHAT_OLLAMA_URL: overrides llm.ollama_url
//   - RIGCHAT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGCHAT_USE_PRIMARY"); v != "" {
		c.Storage.UsePrimary = isTruthy(v)
	}
	if v := os.Getenv("RIGCHAT_PG_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("RIGCHAT_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Postgres.Port = port
		}
	}
	if v := os.Getenv("RIGCHAT_PG_DATABASE"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("RIGCHAT_PG_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("RIGCHAT_PG_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("RIGCHAT_FALLBACK_DIR"); v != "" {
		c.Fallback.Directory = v
	}
	if v := os.Getenv("RIGCHAT_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("RIGCHAT_OLLAMA_URL"); v != "" {
		c.LLM.OllamaURL = v
	}
	if v := os.Getenv("RIGCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// DERIVED DURATIONS
// =============================================================================

// ConnectTimeout returns postgres.connect_timeout_secs as a Duration.
func (c *PostgresConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecs) * time.Second
}

// QueryTimeout returns postgres.query_timeout_secs as a Duration.
func (c *PostgresConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// ReconnectInterval returns postgres.reconnect_interval_secs as a Duration.
func (c *PostgresConfig) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalSecs) * time.Second
}

// GenerateTimeout returns llm.timeout_secs as a Duration.
func (c *LLMConfig) GenerateTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetentionAge returns retention.cleanup_days as a Duration.
func (c *RetentionConfig) RetentionAge() time.Duration {
	return time.Duration(c.CleanupDays) * 24 * time.Hour
}
