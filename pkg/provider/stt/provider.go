// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// A Transcriber wraps a batch transcription engine (a local whisper.cpp
// model, a whisper-server instance, or similar) behind a single synchronous
// call: normalized mono float samples in, recognized text out. The engine's
// internal modeling is a black box to the pipeline; the call is expected to
// be the dominant latency source in the transcription loop and blocks only
// the calling goroutine.
//
// Implementations must be safe for concurrent use, although the pipeline
// issues at most one Transcribe call at a time.
package stt

import (
	"context"
	"time"
)

// Request carries one normalized audio chunk and its recognition hints.
type Request struct {
	// Samples is mono float32 PCM, peak-normalized unless silent.
	Samples []float32

	// SampleRate is the audio sample rate in Hz (16000 for whisper models).
	SampleRate int

	// Language is the language hint for recognition (e.g., "zh", "en").
	// An empty string falls back to the transcriber's configured default.
	Language string
}

// Duration returns the audio span covered by the request's samples.
func (r Request) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// Transcript is the result of one Transcribe call. Text may be empty or
// whitespace-only when the engine recognized nothing meaningful; callers
// treat that as "nothing said".
type Transcript struct {
	// Text is the transcribed speech content, verbatim from the engine.
	Text string
}

// Transcriber is the abstraction over any batch STT backend.
type Transcriber interface {
	// Transcribe runs the engine synchronously on one chunk and returns the
	// recognized text. A cancelled ctx aborts the call where the backend
	// supports it; an in-flight local inference may run to completion.
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}
