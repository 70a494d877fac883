package ringbuffer

// DefaultCapacity is the ring size in samples used when none is configured.
// Eight 800-sample frames of 48kHz mono NTSC audio fit with room to spare.
const DefaultCapacity = 8192

// Buffer is a fixed-capacity FIFO of signed 16-bit PCM samples.
// One slot is always left empty so a full buffer holds Cap()-1 samples.
//
// Buffer is not safe for concurrent use; the audio engine serializes
// pushes and pops under its device lock.
type Buffer struct {
	buf      []int16
	start    int
	end      int
	count    int
	capacity int
}

// New creates a ring buffer holding up to capacity-1 samples.
func New(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{
		buf:      make([]int16, capacity),
		capacity: capacity,
	}
}

// Push appends one sample at the write position. It returns false and leaves
// the buffer untouched when no slot is free.
func (rb *Buffer) Push(s int16) bool {
	if rb.count >= rb.capacity-1 {
		return false
	}
	rb.buf[rb.end] = s
	rb.end = (rb.end + 1) % rb.capacity
	rb.count++
	return true
}

// Pop removes and returns the oldest sample. An empty buffer yields silence
// (zero) and is not modified.
func (rb *Buffer) Pop() int16 {
	if rb.count == 0 {
		return 0
	}
	s := rb.buf[rb.start]
	rb.start = (rb.start + 1) % rb.capacity
	rb.count--
	return s
}

// Len returns the number of buffered samples.
func (rb *Buffer) Len() int {
	return rb.count
}

// Cap returns the fixed capacity, including the reserved slot.
func (rb *Buffer) Cap() int {
	return rb.capacity
}

// Free returns how many samples can still be pushed.
func (rb *Buffer) Free() int {
	return rb.capacity - 1 - rb.count
}

// Reset discards all buffered samples.
func (rb *Buffer) Reset() {
	rb.start = 0
	rb.end = 0
	rb.count = 0
}
