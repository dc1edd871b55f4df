// Package chunking splits document text into sentence-aligned, overlapping chunks.
package chunking

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var terminatorRe = regexp.MustCompile(`[.!?]+`)

// SplitSentences splits text on runs of '.', '!' and '?'.
// Terminators are dropped, fragments are trimmed and empty fragments discarded.
func SplitSentences(text string) []string {
	parts := terminatorRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Len is the character length used for every size decision in this package.
func Len(s string) int { return utf8.RuneCountInString(s) }

// joinedLen is the length of strings.Join(sentences, " ").
func joinedLen(sentences []string) int {
	if len(sentences) == 0 {
		return 0
	}
	n := len(sentences) - 1
	for _, s := range sentences {
		n += Len(s)
	}
	return n
}
