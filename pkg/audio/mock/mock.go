// Package mock provides in-memory mock implementations of the [audio.Source]
// and [audio.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{Frames: []audio.Frame{{Samples: samples, SampleRate: 16000}}}
//	q := audio.NewFrameQueue()
//	_ = src.Start(q) // pushes every scripted frame synchronously
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/hearken/pkg/audio"
)

// ─── Source ──────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source]. Start pushes every frame
// in Frames onto the queue synchronously, mimicking a burst of capture
// callbacks.
type Source struct {
	mu sync.Mutex

	// Frames is the scripted sequence pushed by Start.
	Frames []audio.Frame

	// StartError, if non-nil, is returned by Start without pushing frames.
	StartError error

	// StopError is returned by Stop.
	StopError error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int
}

// Start implements [audio.Source].
func (s *Source) Start(q *audio.FrameQueue) error {
	s.mu.Lock()
	s.CallCountStart++
	frames := s.Frames
	err := s.StartError
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, f := range frames {
		q.Push(f)
	}
	return nil
}

// Stop implements [audio.Source].
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	return s.StopError
}

// ─── Player ──────────────────────────────────────────────────────────────────

// PlayCall records a single invocation of Play.
type PlayCall struct {
	// Samples is a copy of the buffer passed to Play.
	Samples []float32

	// SampleRate is the sample rate passed to Play.
	SampleRate int
}

// Player is a mock implementation of [audio.Player].
type Player struct {
	mu sync.Mutex

	// PlayError, if non-nil, is returned by Play.
	PlayError error

	// BlockUntil, when non-nil, makes Play block until the channel is closed
	// or ctx is cancelled. Used to simulate long utterances.
	BlockUntil <-chan struct{}

	// PlayCalls records every Play invocation in order.
	PlayCalls []PlayCall
}

// Play implements [audio.Player].
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	cp := make([]float32, len(samples))
	copy(cp, samples)

	p.mu.Lock()
	p.PlayCalls = append(p.PlayCalls, PlayCall{Samples: cp, SampleRate: sampleRate})
	block := p.BlockUntil
	err := p.PlayError
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// CallCountPlay returns how many times Play was called.
func (p *Player) CallCountPlay() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.PlayCalls)
}
