// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// BRUTE-FORCE SCORING
// =============================================================================

// The fallback store and the primary store's degraded path share this
// scorer so a query ranks identically no matter which backend is active.

// NormalizeQuery canonicalizes text for matching: Unicode NFC
// normalization followed by lower-casing. "Café" and "café" (composed
// vs. decomposed) match each other after normalization.
func NormalizeQuery(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// stemPrefixLen is the minimum shared-prefix length for two words to
// count as forms of the same stem.
const stemPrefixLen = 4

// ScoreText counts case-insensitive, non-overlapping occurrences of the
// query within text, plus stem matches: a text word that is a prefix of
// a query word (or the reverse) of at least four runes also counts, so
// "debugging" finds a conversation that only says "debug". Returns 0
// for an empty query.
func ScoreText(text, query string) int {
	query = NormalizeQuery(strings.TrimSpace(query))
	if query == "" {
		return 0
	}
	text = NormalizeQuery(text)

	score := strings.Count(text, query)
	words := tokenize(text)
	for _, qw := range tokenize(query) {
		for _, tw := range words {
			// Text words containing the query word outright were
			// already credited by the substring count above.
			if strings.Contains(tw, qw) {
				continue
			}
			if sharesStem(qw, tw) {
				score++
			}
		}
	}
	return score
}

// tokenize splits normalized text into letter/digit runs.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// sharesStem reports whether one word is a prefix of the other and the
// shorter one is at least stemPrefixLen runes long.
func sharesStem(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	return utf8.RuneCountInString(short) >= stemPrefixLen &&
		strings.HasPrefix(long, short)
}

// SortSummaries orders summaries most recently updated first.
func SortSummaries(summaries []ConversationSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
}

// SortResults orders search results by score descending, ties broken by
// most-recent UpdatedAt first. Sorting is stable beyond that.
func SortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
}
