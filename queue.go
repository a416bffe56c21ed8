package irbridge

import "sync"

// DefaultQueueCapacity is the number of bytes a channel buffers between its
// reader goroutine and the caller.
const DefaultQueueCapacity = 1024

// ByteQueue is a bounded FIFO of bytes shared between a channel's reader
// goroutine (producer) and the synchronous bridge caller (consumer).
//
// Neither end ever blocks: Push drops the incoming byte when the queue is
// full, Pop reports an empty queue instead of waiting.
type ByteQueue struct {
	mu      sync.Mutex
	buf     []byte
	head    int // index of the oldest byte
	size    int
	dropped uint64
}

// NewByteQueue creates a queue holding at most capacity bytes. A
// non-positive capacity falls back to DefaultQueueCapacity.
func NewByteQueue(capacity int) *ByteQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &ByteQueue{buf: make([]byte, capacity)}
}

// Push appends b. It returns false, leaving the queue unchanged, when the
// queue is at capacity.
func (q *ByteQueue) Push(b byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.buf) {
		q.dropped++
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = b
	q.size++
	return true
}

// PushAll pushes every byte of data in order and returns how many were
// accepted. Bytes past the first rejected one are dropped as well.
func (q *ByteQueue) PushAll(data []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	free := len(q.buf) - q.size
	n := len(data)
	if n > free {
		q.dropped += uint64(n - free)
		n = free
	}
	for i := 0; i < n; i++ {
		q.buf[(q.head+q.size)%len(q.buf)] = data[i]
		q.size++
	}
	return n
}

// Pop removes and returns the oldest byte. ok is false when the queue is
// empty.
func (q *ByteQueue) Pop() (b byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return 0, false
	}
	b = q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return b, true
}

// Drain pops up to len(dst) bytes into dst and returns the count.
func (q *ByteQueue) Drain(dst []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(dst) && q.size > 0 {
		dst[n] = q.buf[q.head]
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		n++
	}
	return n
}

// Clear discards every queued byte.
func (q *ByteQueue) Clear() {
	q.mu.Lock()
	q.head = 0
	q.size = 0
	q.mu.Unlock()
}

// IsEmpty reports whether no bytes are queued.
func (q *ByteQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of queued bytes.
func (q *ByteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the fixed capacity.
func (q *ByteQueue) Cap() int {
	return len(q.buf)
}

// Dropped returns how many bytes were rejected because the queue was full.
func (q *ByteQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
