// Package ring provides a fixed-capacity FIFO used for rolling sample history.
package ring

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned when removing from an empty buffer.
	ErrEmpty = errors.New("ring: buffer is empty")

	// ErrOutOfRange is returned for a logical position outside [0, Len()).
	ErrOutOfRange = errors.New("ring: position out of range")
)

// Buffer is a bounded ring buffer. Storage is allocated once in New and never
// grows. Logical position 0 is the oldest element.
type Buffer[T any] struct {
	data     []T
	readPos  int
	writePos int
	count    int
}

// New creates an empty buffer holding at most n elements.
// n must be positive.
func New[T any](n int) *Buffer[T] {
	if n <= 0 {
		panic(fmt.Sprintf("ring: invalid capacity %d", n))
	}
	return &Buffer[T]{data: make([]T, n)}
}

// Fill resets the buffer to exactly Cap() elements, all set to value.
func (b *Buffer[T]) Fill(value T) {
	for i := range b.data {
		b.data[i] = value
	}
	b.readPos = 0
	b.writePos = 0
	b.count = len(b.data)
}

// PushBack appends value. Returns false and leaves the buffer unchanged if it is full.
func (b *Buffer[T]) PushBack(value T) bool {
	if b.count == len(b.data) {
		return false
	}
	b.data[b.writePos] = value
	b.writePos = b.next(b.writePos)
	b.count++
	return true
}

// PushBackEvictOldest appends value, discarding the oldest element first if
// the buffer is full.
func (b *Buffer[T]) PushBackEvictOldest(value T) {
	if b.count == len(b.data) {
		// a full buffer is never empty, so this cannot fail
		_ = b.PopFront()
	}
	b.PushBack(value)
}

// PopFront removes the oldest element.
func (b *Buffer[T]) PopFront() error {
	if b.count == 0 {
		return ErrEmpty
	}
	var zero T
	b.data[b.readPos] = zero
	b.readPos = b.next(b.readPos)
	b.count--
	return nil
}

// At returns the element at logical position pos (0 = oldest).
func (b *Buffer[T]) At(pos int) (T, error) {
	if pos < 0 || pos >= b.count {
		var zero T
		return zero, fmt.Errorf("%w: %d (size %d)", ErrOutOfRange, pos, b.count)
	}
	offset := b.readPos + pos
	if offset >= len(b.data) {
		offset -= len(b.data)
	}
	return b.data[offset], nil
}

// Front returns the oldest element.
func (b *Buffer[T]) Front() (T, error) {
	return b.At(0)
}

// Back returns the newest element.
func (b *Buffer[T]) Back() (T, error) {
	return b.At(b.count - 1)
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.data) }

// Full reports whether Len() == Cap().
func (b *Buffer[T]) Full() bool { return b.count == len(b.data) }

// Snapshot copies the elements oldest to newest into dst and returns it.
// dst is reused if it has enough capacity, otherwise a new slice is allocated.
func (b *Buffer[T]) Snapshot(dst []T) []T {
	if cap(dst) >= b.count {
		dst = dst[:b.count]
	} else {
		dst = make([]T, b.count)
	}
	// at most two contiguous runs
	first := min(b.count, len(b.data)-b.readPos)
	copy(dst, b.data[b.readPos:b.readPos+first])
	copy(dst[first:], b.data[:b.count-first])
	return dst
}

func (b *Buffer[T]) next(pos int) int {
	if pos+1 < len(b.data) {
		return pos + 1
	}
	return 0
}
