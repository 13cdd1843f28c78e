package utils

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer.
// True ring buffer - no resizing allowed! Pushing into a full buffer
// overwrites the oldest element.
// -----------------------------------------------------------------------------

type RingBuffer[T any] struct {
	data     []T
	capacity int
	head     int // Oldest element
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Push appends v. When full, the oldest element is evicted and returned.
func (rb *RingBuffer[T]) Push(v T) (evicted T, ok bool) {
	tail := (rb.head + rb.size) % rb.capacity

	if rb.size == rb.capacity {
		evicted, ok = rb.data[rb.head], true
		rb.data[tail] = v
		rb.head = (rb.head + 1) % rb.capacity
		return evicted, ok
	}

	rb.data[tail] = v
	rb.size++
	return evicted, false
}

// -----------------------------------------------------------------------------

// At returns the i-th element, oldest first
func (rb *RingBuffer[T]) At(i int) T {
	return rb.data[(rb.head+i)%rb.capacity]
}

// -----------------------------------------------------------------------------

// Items returns a copy of all elements in insertion order (oldest to newest)
func (rb *RingBuffer[T]) Items() []T {
	result := make([]T, rb.size)
	for i := 0; i < rb.size; i++ {
		result[i] = rb.At(i)
	}
	return result
}

// -----------------------------------------------------------------------------

// Latest returns up to n newest elements, oldest first
func (rb *RingBuffer[T]) Latest(n int) []T {
	if n <= 0 || rb.size == 0 {
		return []T{}
	}
	if n > rb.size {
		n = rb.size
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = rb.At(rb.size - n + i)
	}
	return result
}

// -----------------------------------------------------------------------------

// DropWhile removes elements from the oldest end while pred holds and
// returns how many were removed
func (rb *RingBuffer[T]) DropWhile(pred func(T) bool) int {
	var zero T
	dropped := 0
	for rb.size > 0 && pred(rb.data[rb.head]) {
		rb.data[rb.head] = zero
		rb.head = (rb.head + 1) % rb.capacity
		rb.size--
		dropped++
	}
	return dropped
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer[T]) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer[T]) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer[T]) Clear() {
	var zero T
	for i := range rb.data {
		rb.data[i] = zero
	}
	rb.head = 0
	rb.size = 0
}
