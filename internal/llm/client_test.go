// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
)

func TestGenerateSendsWindowAndSystemPrompt(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "sure thing"},
			"done":    true,
		})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, DefaultModel: "qwen2.5:7b"})
	window := []model.Message{
		model.NewMessage(model.RoleUser, "first question"),
		model.NewMessage(model.RoleAssistant, "first answer"),
		model.NewMessage(model.RoleUser, "second question"),
	}

	reply, err := client.Generate(context.Background(), window, chat.GenerateOptions{
		SystemPrompt: "be terse",
		Temperature:  0.4,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "sure thing" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "qwen2.5:7b" {
		t.Errorf("model = %q, want default", got.Model)
	}
	if got.Stream {
		t.Error("stream should be false")
	}
	if len(got.Messages) != 4 {
		t.Fatalf("len(messages) = %d, want system + 3", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "be terse" {
		t.Errorf("messages[0] = %+v", got.Messages[0])
	}
	if got.Messages[3].Content != "second question" {
		t.Errorf("messages[3] = %+v", got.Messages[3])
	}
	if got.Options == nil || got.Options.Temperature != 0.4 {
		t.Errorf("options = %+v", got.Options)
	}
}

func TestGenerateModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), nil, chat.GenerateOptions{Model: "ghost"})
	if !IsModelNotFound(err) {
		t.Errorf("err = %v, want model-not-found", err)
	}
}

func TestGenerateServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "out of memory"})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), nil, chat.GenerateOptions{})
	if err == nil || err.Error() != "out of memory" {
		t.Errorf("err = %v, want server message", err)
	}
}

func TestGenerateServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Generate(context.Background(), nil, chat.GenerateOptions{})
	if !IsNotRunning(err) {
		t.Errorf("err = %v, want not-running", err)
	}
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"version": "0.5.0"})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning: %v", err)
	}
}
