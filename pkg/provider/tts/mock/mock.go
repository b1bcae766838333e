// Package mock provides a test double for the tts.Speaker interface.
//
// Use Speaker to verify the utterances the response controller dispatches and
// to simulate slow playback:
//
//	done := make(chan struct{})
//	sp := &mock.Speaker{BlockUntil: done}
//	// … trigger a response …
//	close(done) // playback "finishes"
package mock

import (
	"context"
	"sync"
)

// Speaker is a mock implementation of tts.Speaker.
type Speaker struct {
	mu sync.Mutex

	// SpeakError, if non-nil, is returned by Speak.
	SpeakError error

	// BlockUntil, when non-nil, makes Speak block until the channel is
	// closed or ctx is cancelled. Used to simulate utterances still playing.
	BlockUntil <-chan struct{}

	// SpeakCalls records the text of every Speak invocation in order.
	SpeakCalls []string
}

// Speak implements tts.Speaker.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.SpeakCalls = append(s.SpeakCalls, text)
	block := s.BlockUntil
	err := s.SpeakError
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// CallCount returns how many times Speak was called.
func (s *Speaker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SpeakCalls)
}
