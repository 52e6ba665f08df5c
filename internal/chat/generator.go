// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Generator produces an assistant response from a context window.
// Implementations live outside this package; internal/llm provides the
// Ollama-backed one.
type Generator interface {
	// Generate returns the assistant reply for the given messages.
	// The final message is the user turn being answered.
	Generate(ctx context.Context, messages []model.Message, opts GenerateOptions) (string, error)
}

// GenerateOptions carries per-request generation parameters.
type GenerateOptions struct {
	// Model names the backend model to use.
	Model string

	// SystemPrompt is prepended as a system message when non-empty.
	SystemPrompt string

	// Temperature controls sampling randomness. Zero means backend
	// default.
	Temperature float64

	// MaxTokens caps the response length (0 = backend default).
	MaxTokens int
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, messages []model.Message, opts GenerateOptions) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, messages []model.Message, opts GenerateOptions) (string, error) {
	return f(ctx, messages, opts)
}
