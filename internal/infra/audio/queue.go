package audio

import (
	"sync/atomic"

	"standby/internal/domain"
)

// DefaultQueueCapacity bounds how many blocks may wait between the capture
// callback and the monitor loop.
const DefaultQueueCapacity = 8

// BlockQueue is a fixed-capacity FIFO between a single producer (the
// hardware callback) and a single consumer (the monitor loop). Push never
// blocks: on overflow the oldest block is dropped and counted, so capture
// timing stays decoupled from consumer timing.
type BlockQueue struct {
	ch      chan domain.SampleBlock
	dropped atomic.Uint64
}

func NewBlockQueue(capacity int) *BlockQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &BlockQueue{ch: make(chan domain.SampleBlock, capacity)}
}

// Push enqueues a block without blocking. It reports whether the block was
// retained.
func (q *BlockQueue) Push(block domain.SampleBlock) bool {
	select {
	case q.ch <- block:
		return true
	default:
	}

	// Full: drop the oldest retained block to make room.
	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}

	select {
	case q.ch <- block:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Blocks exposes the consumer side of the queue.
func (q *BlockQueue) Blocks() <-chan domain.SampleBlock {
	return q.ch
}

// Dropped returns how many blocks were lost to overflow.
func (q *BlockQueue) Dropped() uint64 {
	return q.dropped.Load()
}
