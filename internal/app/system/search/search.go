// Package search prepares user-typed queries for the MongoDB text index.
package search

import (
	"strings"
	"unicode/utf8"
)

// MaxQueryLen bounds the query handed to $text; longer input is cut at a
// rune boundary.
const MaxQueryLen = 200

// Normalize trims q, collapses runs of whitespace and caps its length.
// ok is false when nothing searchable remains.
func Normalize(q string) (string, bool) {
	q = strings.Join(strings.Fields(q), " ")
	if q == "" {
		return "", false
	}
	if len(q) > MaxQueryLen {
		cut := MaxQueryLen
		for cut > 0 && !utf8.RuneStart(q[cut]) {
			cut--
		}
		q = strings.TrimSpace(q[:cut])
	}
	return q, q != ""
}

// Phrase quotes q so $text matches it as one phrase instead of any word.
func Phrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, "") + `"`
}
