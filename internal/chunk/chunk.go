// Package chunk splits long replies into messages that fit the chat
// platform's size limit.
package chunk

import "unicode"

// DefaultMaxLen is Telegram's message size limit in characters.
const DefaultMaxLen = 4096

// Split breaks text into fragments of at most maxLen characters. It cuts
// after the last whitespace that fits in the window and hard-splits a token
// longer than maxLen. The boundary whitespace stays at the end of the
// fragment before it, so concatenating the fragments yields text exactly.
// Empty text yields no fragments.
func Split(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	rest := []rune(text)
	if len(rest) <= maxLen {
		return []string{text}
	}

	var fragments []string
	for len(rest) > maxLen {
		cut := boundary(rest, maxLen)
		fragments = append(fragments, string(rest[:cut]))
		rest = rest[cut:]
	}
	if len(rest) > 0 {
		fragments = append(fragments, string(rest))
	}
	return fragments
}

// boundary returns the cut position for the window rest[:maxLen].
// len(rest) > maxLen.
func boundary(rest []rune, maxLen int) int {
	// Whitespace right after the window: the window is a whole run of words.
	if unicode.IsSpace(rest[maxLen]) {
		return maxLen
	}
	// i > 0 so a leading separator is never cut off on its own.
	for i := maxLen - 1; i > 0; i-- {
		if unicode.IsSpace(rest[i]) {
			return i + 1
		}
	}
	return maxLen
}
