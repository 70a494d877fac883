package audio

import "sync"

// MaxBlockSize bounds a single capture block in samples (100ms of 48kHz stereo).
const MaxBlockSize = 9600

// BlockBuffers holds pre-allocated buffers for the capture read→decode→forward path.
// Used via sync.Pool to avoid per-block allocations in the hot path.
type BlockBuffers struct {
	BytesBuf   []byte  // cap: MaxBlockSize*2
	SamplesBuf []int16 // cap: MaxBlockSize
}

var blockPool = sync.Pool{
	New: func() interface{} {
		return &BlockBuffers{
			BytesBuf:   make([]byte, MaxBlockSize*2),
			SamplesBuf: make([]int16, MaxBlockSize),
		}
	},
}

// AcquireBlockBuffers gets a set of buffers from the pool.
func AcquireBlockBuffers() *BlockBuffers {
	return blockPool.Get().(*BlockBuffers)
}

// ReleaseBlockBuffers returns buffers to the pool.
func ReleaseBlockBuffers(b *BlockBuffers) {
	blockPool.Put(b)
}
