// Package compose computes the minimal text that must be newly typed to bring
// delivered output in sync with the latest transcript snapshot.
//
// Partial transcripts usually grow monotonically, so the common case is a pure
// suffix. Occasionally the recognizer revises earlier words, in which case the
// composer falls back to a common-prefix delta, then to a word-boundary
// alignment, and finally to a full re-emit.
package compose

import "strings"

// Delta compares the text already emitted for the current turn against a new
// transcript snapshot and returns the text to emit next plus the updated
// emitted value. It is a pure function of its inputs.
func Delta(previous, next string) (delta, emitted string) {
	// Fast path: the snapshot grew (or stayed identical).
	if strings.HasPrefix(next, previous) {
		return next[len(previous):], next
	}

	// A mid-string revision on a longer snapshot: emit everything past the
	// longest common prefix rather than retyping the whole string.
	if len(next) > len(previous) {
		return next[commonPrefixLen(previous, next):], next
	}

	// The snapshot diverged or shrank. Align on the last word boundary of the
	// emitted text that still agrees with the snapshot.
	for i := len(previous) - 1; i >= 0; i-- {
		if previous[i] != ' ' {
			continue
		}
		if strings.HasPrefix(next, previous[:i+1]) {
			return next[i+1:], next
		}
	}

	// Nothing agrees: full reset.
	return next, next
}

// commonPrefixLen returns the length of the longest common prefix of a and b.
func commonPrefixLen(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Cursor tracks what has already been delivered for one dictation turn.
// A fresh Cursor is created per turn and never shared across turns.
type Cursor struct {
	emitted string
}

// Advance computes the delta for a new snapshot and records it as emitted.
func (c *Cursor) Advance(text string) string {
	delta, emitted := Delta(c.emitted, text)
	c.emitted = emitted
	return delta
}

// Emitted returns the text already delivered for this turn.
func (c *Cursor) Emitted() string {
	return c.emitted
}
