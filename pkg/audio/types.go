package audio

import (
	"context"
	"time"
)

// Frame is a single fixed-size block of mono float32 samples as delivered by
// one capture callback invocation. Frames are immutable after creation: the
// capture layer allocates them, the queue transports them, and the assembler
// consumes and discards them.
type Frame struct {
	// Samples holds mono PCM samples in the range [-1, 1].
	Samples []float32

	// SampleRate in Hz (16000 for the STT pipeline).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the wall-clock span covered by the frame's samples.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Source delivers captured frames into a FrameQueue until stopped. It is an
// interface so that tests can drive the pipeline with scripted frames instead
// of a live input device.
type Source interface {
	// Start opens the input device and begins pushing frames onto q. The
	// capture callback runs on a realtime audio thread and must never block;
	// q.Push satisfies that requirement.
	Start(q *FrameQueue) error

	// Stop halts capture and releases the device. Safe to call more than once.
	Stop() error
}

// Player plays back a buffer of mono float32 samples, blocking until playback
// completes or ctx is cancelled. Implementations are not required to be safe
// for concurrent use; the response controller guarantees a single utterance
// is active at a time.
type Player interface {
	Play(ctx context.Context, samples []float32, sampleRate int) error
}
