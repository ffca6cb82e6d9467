package chat

import (
	"strings"
	"unicode/utf8"
)

// DefaultFlushThreshold is the buffered-character count that forces a flush
// when no sentence boundary has been seen. The value is a latency/efficiency
// heuristic, not a protocol constant, so it is configurable.
const DefaultFlushThreshold = 4

// Buffer coalesces normalized text deltas into outbound frames. One Buffer
// serves exactly one request; it is not safe for concurrent use and does not
// need to be.
type Buffer struct {
	pending   strings.Builder
	total     strings.Builder
	threshold int
}

// NewBuffer creates a Buffer with the given flush threshold. Non-positive
// values fall back to DefaultFlushThreshold.
func NewBuffer(threshold int) *Buffer {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &Buffer{threshold: threshold}
}

// Feed appends one delta and reports whether the buffer flushed: the flushed
// text and true, or "" and false. A flush happens when the buffer holds at
// least threshold characters, or when it ends with sentence-terminal
// punctuation optionally followed by trailing whitespace.
func (b *Buffer) Feed(delta string) (string, bool) {
	b.pending.WriteString(delta)
	b.total.WriteString(delta)

	s := b.pending.String()
	if utf8.RuneCountInString(s) >= b.threshold || endsSentence(s) {
		b.pending.Reset()
		return s, true
	}
	return "", false
}

// FlushRemainder drains whatever is left after the upstream sequence is
// exhausted. Called once per request, before the terminal frame.
func (b *Buffer) FlushRemainder() (string, bool) {
	if b.pending.Len() == 0 {
		return "", false
	}
	s := b.pending.String()
	b.pending.Reset()
	return s, true
}

// Total returns the accumulated response text across all flushes. The caller
// appends it to its own externally-held history; the relay keeps nothing.
func (b *Buffer) Total() string {
	return b.total.String()
}

func endsSentence(s string) bool {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
