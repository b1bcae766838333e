package audio

import (
	"sync"
	"time"
)

// FrameQueue is an unbounded FIFO buffering raw frames between the capture
// callback and the transcription loop. It decouples realtime audio timing
// from transcription latency: Push never blocks, so the audio thread is never
// suspended waiting for a slow consumer.
//
// The queue is safe for single-producer/single-consumer use. There is no
// backpressure: if transcription falls behind real time the queue grows
// without bound. Callers can watch Len via the queue-depth metric to detect
// that condition.
type FrameQueue struct {
	mu    sync.Mutex
	items []Frame

	// ready carries a wake-up signal to a consumer blocked in Pop. Capacity 1
	// so Push never blocks on it; a pending signal already covers any number
	// of queued frames because Pop re-checks the slice in a loop.
	ready chan struct{}
}

// NewFrameQueue creates an empty FrameQueue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{ready: make(chan struct{}, 1)}
}

// Push appends f to the tail of the queue. It never blocks and is safe to
// call from the realtime capture callback.
func (q *FrameQueue) Push(f Frame) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes and returns the frame at the head of the queue, blocking up to
// timeout for one to arrive. The second return value is false when the
// timeout elapsed with the queue still empty. Ordering is exact FIFO; no
// frame is ever dropped or reordered.
func (q *FrameQueue) Pop(timeout time.Duration) (Frame, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if f, ok := q.tryPop(); ok {
			return f, true
		}
		select {
		case <-q.ready:
		case <-deadline.C:
			return Frame{}, false
		}
	}
}

// tryPop removes the head frame if one is present.
func (q *FrameQueue) tryPop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Frame{}, false
	}
	f := q.items[0]
	// Clear the slot so the frame's samples can be collected once consumed.
	q.items[0] = Frame{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Reset the backing array so the slice does not pin old frames.
		q.items = nil
	}
	return f, true
}

// Len returns the number of frames currently buffered.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
