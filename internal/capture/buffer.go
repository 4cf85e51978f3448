// Package capture holds session-side speech capture plumbing: the chunk
// buffer that accumulates finalised transcript text between flush ticks.
package capture

import (
	"strings"
	"sync"
	"time"
)

// DefaultChunkInterval is how often the accumulated transcript is flushed
// into a chunk for classification.
const DefaultChunkInterval = 15 * time.Second

// Buffer accumulates finalised transcript fragments until flushed.
//
// Flush swaps the accumulated fragments out and clears the buffer under one
// lock acquisition, so a fragment appended concurrently with a flush lands
// either in the flushed chunk or in the next one, never in both and never
// lost.
type Buffer struct {
	mu    sync.Mutex
	parts []string
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a finalised transcript fragment. Fragments that are empty
// after trimming are dropped.
func (b *Buffer) Append(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	b.mu.Lock()
	b.parts = append(b.parts, trimmed)
	b.mu.Unlock()
}

// Flush atomically takes the accumulated fragments and clears the buffer.
// The chunk is the fragments joined with single spaces. ok is false when the
// buffer held nothing, in which case the flush is a no-op.
func (b *Buffer) Flush() (chunk string, ok bool) {
	b.mu.Lock()
	parts := b.parts
	b.parts = nil
	b.mu.Unlock()

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// Len returns the number of buffered fragments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.parts)
}
