// Package mock provides a test double for the stt.Transcriber interface.
//
// Use Transcriber to script recognition results and to verify the chunks the
// pipeline submits:
//
//	tr := &mock.Transcriber{Results: []string{"", "hello 導診助手"}}
//	got, _ := tr.Transcribe(ctx, req) // first call → "", second → "hello 導診助手"
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/hearken/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// SampleCount is the length of the submitted chunk.
	SampleCount int

	// SampleRate is the submitted sample rate.
	SampleRate int

	// Language is the submitted language hint.
	Language string
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Results is the sequence of texts returned by successive Transcribe
	// calls. Once exhausted, further calls return an empty transcript.
	Results []string

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Calls records every Transcribe invocation in order.
	Calls []TranscribeCall

	next int
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, req stt.Request) (stt.Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Calls = append(t.Calls, TranscribeCall{
		SampleCount: len(req.Samples),
		SampleRate:  req.SampleRate,
		Language:    req.Language,
	})

	if t.Err != nil {
		return stt.Transcript{}, t.Err
	}

	var text string
	if t.next < len(t.Results) {
		text = t.Results[t.next]
		t.next++
	}
	return stt.Transcript{Text: text}, nil
}

// CallCount returns how many times Transcribe was called.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
