// This file contains the NativeTranscriber implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/hearken/pkg/provider/stt"
)

// Compile-time assertion that NativeTranscriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*NativeTranscriber)(nil)

// NativeOption is a functional option for configuring a NativeTranscriber.
type NativeOption func(*NativeTranscriber)

// WithNativeLanguage sets the language code used when a request carries no
// hint of its own (e.g., "zh", "en"). Defaults to "zh".
func WithNativeLanguage(lang string) NativeOption {
	return func(t *NativeTranscriber) { t.language = lang }
}

// NativeTranscriber implements stt.Transcriber using the whisper.cpp Go
// bindings (CGO). The model is loaded once at startup and shared across all
// calls; each call creates its own whisper context, which keeps concurrent
// Transcribe calls independent even though the pipeline issues one at a time.
type NativeTranscriber struct {
	model    whisperlib.Model
	language string
}

// NewNative creates a NativeTranscriber that loads the whisper.cpp model from
// the given file path. The caller must call Close when the transcriber is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeTranscriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &NativeTranscriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *NativeTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp inference on the chunk using a fresh context
// and returns the concatenated segment text. A whisper.cpp inference cannot
// be aborted mid-flight: ctx is only checked before the call starts, so
// shutdown latency is bounded by one chunk's inference time.
func (t *NativeTranscriber) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}
	if len(req.Samples) == 0 {
		return stt.Transcript{}, nil
	}

	lang := req.Language
	if lang == "" {
		lang = t.language
	}

	// Each whisper context is NOT thread-safe, but the model can be shared.
	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", lang,
			"error", err,
		)
	}

	if err := wctx.Process(req.Samples, nil, nil, nil); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		parts = append(parts, segment.Text)
	}

	return stt.Transcript{Text: strings.Join(parts, " ")}, nil
}
