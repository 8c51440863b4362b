package protocol

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBufferCapacity is returned when data does not fit a Buffer.
var ErrBufferCapacity = errors.New("protocol: data exceeds buffer capacity")

// DefaultBufferCapacity is the capacity used when none is configured.
const DefaultBufferCapacity = MaxPayloadSize + FrameHeaderSize

// Buffer is a capacity-bounded byte buffer.
//
// Data is copied in by Store and copied out by Bytes. View lends the
// contents for the duration of a callback only, and Take hands the
// contents off to the caller, leaving the buffer empty. A Buffer is safe
// for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	capacity int
}

// NewBuffer creates an empty buffer that holds at most capacity bytes.
// A non-positive capacity selects DefaultBufferCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Len returns the number of bytes stored.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Store replaces the contents with a copy of data. On error the previous
// contents are kept.
func (b *Buffer) Store(data []byte) error {
	if len(data) > b.capacity {
		return fmt.Errorf("%w: %d > %d bytes", ErrBufferCapacity, len(data), b.capacity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make([]byte, 0, b.capacity)
	}
	b.data = append(b.data[:0], data...)
	return nil
}

// Transform mutates the contents in place. fn must not retain the slice.
func (b *Buffer) Transform(fn func([]byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.data)
}

// Process stores data and increments every byte, wrapping at 0xFF.
func (b *Buffer) Process(data []byte) error {
	if err := b.Store(data); err != nil {
		return err
	}
	b.Transform(Increment)
	return nil
}

// Bytes returns a copy of the contents that the caller owns.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// View lends the contents to fn. The slice is only valid during the call
// and must not be modified.
func (b *Buffer) View(fn func([]byte)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.data)
}

// Take returns the contents and leaves the buffer empty. The caller owns
// the returned slice.
func (b *Buffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.data
	b.data = nil
	return out
}

// Reset empties the buffer and keeps its storage.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = b.data[:0]
}

// Increment adds one to every byte, wrapping 0xFF to 0x00.
func Increment(data []byte) {
	for i := range data {
		data[i]++
	}
}
