// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"testing"
	"time"
)

func TestScoreTextCountsOccurrences(t *testing.T) {
	tests := []struct {
		text  string
		query string
		want  int
	}{
		{"the quick brown fox", "quick", 1},
		{"go go go", "go", 3},
		{"Mixed CASE match", "case", 1},
		{"no hit here", "zebra", 0},
		{"", "anything", 0},
		{"text", "", 0},
		{"overlap aaa", "aa", 1},
	}
	for _, tt := range tests {
		if got := ScoreText(tt.text, tt.query); got != tt.want {
			t.Errorf("ScoreText(%q, %q) = %d, want %d", tt.text, tt.query, got, tt.want)
		}
	}
}

func TestScoreTextMatchesWordStems(t *testing.T) {
	tests := []struct {
		text  string
		query string
		want  int
	}{
		// The longer query form still finds the shorter text word.
		{"let's debug the crash", "debugging", 1},
		{"debug here, debug there", "debugging", 2},
		// Reverse direction stays plain substring counting.
		{"debugging the parser", "debug", 1},
		// Short shared prefixes never count as stems.
		{"got gone going", "goes", 0},
		{"cat", "catastrophe", 0},
	}
	for _, tt := range tests {
		if got := ScoreText(tt.text, tt.query); got != tt.want {
			t.Errorf("ScoreText(%q, %q) = %d, want %d", tt.text, tt.query, got, tt.want)
		}
	}
}

func TestNormalizeQueryFoldsCaseAndForm(t *testing.T) {
	// "é" as a precomposed rune vs. e + combining accent.
	composed := "café"
	decomposed := "café"
	if NormalizeQuery(composed) != NormalizeQuery(decomposed) {
		t.Error("NFC-equivalent strings should normalize identically")
	}
	if NormalizeQuery("HELLO") != "hello" {
		t.Error("normalization should lowercase")
	}
}

func TestSortResultsOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	results := []SearchResult{
		{ConversationSummary: ConversationSummary{ID: "conv_old", UpdatedAt: base}, Score: 2},
		{ConversationSummary: ConversationSummary{ID: "conv_top", UpdatedAt: base}, Score: 5},
		{ConversationSummary: ConversationSummary{ID: "conv_new", UpdatedAt: base.Add(time.Hour)}, Score: 2},
	}
	SortResults(results)

	wantOrder := []string{"conv_top", "conv_new", "conv_old"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ID, want)
		}
	}
}
