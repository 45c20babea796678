// Package words holds the single word-counting definition shared by input
// validation, UI display, and budget enforcement. Every call site must use
// this package so client-displayed counts never drift from server limits.
package words

import "strings"

// Count splits on runs of whitespace and counts non-empty tokens.
func Count(text string) int {
	return len(strings.Fields(text))
}

// Truncate returns the first max words of text joined by single spaces.
// If text has max words or fewer it is returned unchanged.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) <= max {
		return text
	}
	return strings.Join(fields[:max], " ")
}
