// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the HTTP client for communicating with the
// Ollama API and adapts it to the chat.Generator interface.
//
// # Key Types
//
//   - Client: Ollama HTTP client with health check and chat
//   - ClientError: Categorized client errors
//
// # Usage
//
//	client := llm.NewClient(llm.ClientConfig{BaseURL: cfg.LLM.OllamaURL})
//	reply, err := client.Generate(ctx, window, chat.GenerateOptions{Model: cfg.LLM.Model})
package llm
