package audio

import (
	"context"
	"time"
)

// popTimeout is the granularity at which the assembler waits for frames. A
// window that times out with at least one frame collected closes the current
// chunk early (the partial-chunk policy); a window that times out with no
// frames collected leaves the assembler idling until audio resumes.
const popTimeout = 1 * time.Second

// Assembler accumulates frames from a FrameQueue until a target duration's
// worth of samples is collected, then concatenates and peak-normalizes them
// into one transcription-ready chunk.
//
// Assembler runs inside the transcription loop and is not safe for concurrent
// use; the loop is the queue's single consumer.
type Assembler struct {
	queue         *FrameQueue
	sampleRate    int
	targetSamples int
}

// NewAssembler creates an Assembler reading from q. chunkDuration determines
// the target sample count per chunk (sampleRate × chunkDuration); collection
// stops as soon as the running total meets or exceeds it, so chunks never
// exceed the target by more than one frame.
func NewAssembler(q *FrameQueue, sampleRate int, chunkDuration time.Duration) *Assembler {
	target := int(int64(sampleRate) * int64(chunkDuration) / int64(time.Second))
	if target < 1 {
		target = 1
	}
	return &Assembler{
		queue:         q,
		sampleRate:    sampleRate,
		targetSamples: target,
	}
}

// TargetSamples returns the per-chunk sample target.
func (a *Assembler) TargetSamples() int { return a.targetSamples }

// Next collects the next chunk. It pops frames with a 1-second timeout until
// the sample target is reached, or until a pop times out with at least one
// frame already collected — in which case the shorter partial set is still
// returned as the chunk. When a pop window passes with nothing collected,
// Next returns (nil, nil) and the caller simply retries.
//
// The returned chunk is normalized to full dynamic range: every sample is
// divided by the peak absolute amplitude unless the peak is exactly zero, in
// which case the all-zero chunk passes through unchanged.
//
// ctx is checked between pops; Next returns ctx.Err() once it is cancelled.
// A frame popped just before cancellation is still folded into a final
// partial chunk so no captured audio is silently lost.
func (a *Assembler) Next(ctx context.Context) ([]float32, error) {
	var (
		frames    []Frame
		collected int
	)

	for collected < a.targetSamples {
		if err := ctx.Err(); err != nil {
			if collected > 0 {
				break
			}
			return nil, err
		}
		f, ok := a.queue.Pop(popTimeout)
		if !ok {
			break
		}
		frames = append(frames, f)
		collected += len(f.Samples)
	}

	if collected == 0 {
		return nil, nil
	}

	chunk := make([]float32, 0, collected)
	for _, f := range frames {
		chunk = append(chunk, f.Samples...)
	}
	Normalize(chunk)
	return chunk, nil
}

// Normalize scales samples in place so the peak absolute amplitude is exactly
// 1.0. An all-zero buffer is left untouched (silence — no division by zero).
func Normalize(samples []float32) {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}
