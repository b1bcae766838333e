// Package tts defines the Speaker interface for Text-to-Speech backends.
//
// A Speaker wraps a speech synthesis engine plus an output device: given an
// utterance, it synthesizes audio and blocks the calling goroutine until
// playback completes. The response controller guarantees that only one
// utterance is ever active, so implementations need no internal lock against
// overlapping playback.
package tts

import "context"

// Default voice parameters, matching the assistant's shipped configuration.
const (
	DefaultRate   = 150 // words per minute
	DefaultVolume = 0.9
)

// VoiceConfig selects the synthesis voice and delivery parameters.
type VoiceConfig struct {
	// VoiceID is the engine-specific voice identifier. Empty selects the
	// engine's first/default voice.
	VoiceID string

	// Rate is the speaking rate in words per minute (e.g., 150).
	Rate int

	// Volume is the playback gain in [0.0, 1.0] (e.g., 0.9).
	Volume float64
}

// Speaker is the abstraction over any TTS backend.
type Speaker interface {
	// Speak synthesizes text and plays it, returning once playback has
	// finished or ctx is cancelled. Must not be invoked concurrently with
	// itself for overlapping utterances — the caller's guard enforces this.
	Speak(ctx context.Context, text string) error
}
