// Package textutil provides the text cleanup and window chunking used to feed
// transcripts to the sentiment scorer.
package textutil

import (
	"strings"
	"unicode"
)

// Normalize collapses whitespace runs to single spaces and strips characters
// outside a safe alphanumeric-plus-punctuation set.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || allowedPunct(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func allowedPunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '-', '\'', '"':
		return true
	}
	return false
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
