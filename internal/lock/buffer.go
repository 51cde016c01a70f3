package lock

import "github.com/sweeney/keypad-lock/internal/keypad"

// DefaultCapacity is the largest candidate the buffer holds.
const DefaultCapacity = 32

// Buffer accumulates entered keys up to a fixed capacity.
// Appends past capacity are dropped. Control keys are never stored.
type Buffer struct {
	keys []rune
}

// NewBuffer creates an empty buffer. A capacity below 1 uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{keys: make([]rune, 0, capacity)}
}

// Append stores r if there is room and r is an ordinary key.
// It reports whether r was stored.
func (b *Buffer) Append(r rune) bool {
	k := keypad.Key(r)
	if !k.Valid() || k.IsControl() {
		return false
	}
	if len(b.keys) == cap(b.keys) {
		return false
	}
	b.keys = append(b.keys, r)
	return true
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.keys = b.keys[:0]
}

// Contents returns a copy of the buffered keys.
func (b *Buffer) Contents() string {
	return string(b.keys)
}

// Len returns the number of buffered keys.
func (b *Buffer) Len() int { return len(b.keys) }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return cap(b.keys) }
