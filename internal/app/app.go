// Package app wires all hearken subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the capture and transcription loops, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithTranscriber, WithSpeaker). New requires all three; main.go
// constructs the real ones from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/hearken/internal/config"
	"github.com/MrWong99/hearken/internal/health"
	"github.com/MrWong99/hearken/internal/observe"
	"github.com/MrWong99/hearken/internal/trigger"
	"github.com/MrWong99/hearken/pkg/audio"
	"github.com/MrWong99/hearken/pkg/provider/stt"
	"github.com/MrWong99/hearken/pkg/provider/tts"
)

// App owns all subsystem lifetimes and orchestrates the listen → transcribe →
// detect → respond pipeline.
type App struct {
	cfg *config.Config

	source      audio.Source
	transcriber stt.Transcriber
	speaker     tts.Speaker

	queue      *audio.FrameQueue
	assembler  *audio.Assembler
	controller *trigger.Controller
	metrics    *observe.Metrics
	checkers   []health.Checker

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject dependencies and
// test doubles.
type Option func(*App)

// WithSource injects the audio capture source.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithTranscriber injects the speech-to-text engine.
func WithTranscriber(t stt.Transcriber) Option {
	return func(a *App) { a.transcriber = t }
}

// WithSpeaker injects the text-to-speech engine.
func WithSpeaker(s tts.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// WithMetrics injects a Metrics instance instead of the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithReadinessChecks registers readiness checkers served on /readyz.
func WithReadinessChecks(checkers ...health.Checker) Option {
	return func(a *App) { a.checkers = append(a.checkers, checkers...) }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring the capture queue, chunk assembler, and
// trigger controller together around the injected source, transcriber, and
// speaker.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.source == nil {
		return nil, errors.New("app: an audio source is required (WithSource)")
	}
	if a.transcriber == nil {
		return nil, errors.New("app: a transcriber is required (WithTranscriber)")
	}
	if a.speaker == nil {
		return nil, errors.New("app: a speaker is required (WithSpeaker)")
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.queue = audio.NewFrameQueue()
	a.assembler = audio.NewAssembler(a.queue, cfg.Audio.SampleRate, cfg.Audio.GetChunkDuration())

	ctx := context.Background()
	a.controller = trigger.New(trigger.Config{
		Phrase:   cfg.Trigger.Phrase,
		Response: cfg.Trigger.Response,
		Cooldown: cfg.Trigger.GetCooldown(),
	}, a.timedSpeaker(),
		trigger.WithTriggerHook(func() { a.metrics.Triggers.Add(ctx, 1) }),
		trigger.WithSuppressedHook(func() { a.metrics.TriggersSuppressed.Add(ctx, 1) }),
	)

	reg, err := a.metrics.RegisterQueueDepth(a.queue.Len)
	if err != nil {
		return nil, fmt.Errorf("app: register queue depth gauge: %w", err)
	}
	a.closers = append(a.closers, reg.Unregister)

	return a, nil
}

// timedSpeaker wraps the injected speaker so every utterance feeds the TTS
// latency histogram and the engine error counter.
func (a *App) timedSpeaker() trigger.Speaker {
	return speakerFunc(func(ctx context.Context, text string) error {
		start := time.Now()
		err := a.speaker.Speak(ctx, text)
		a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			a.metrics.RecordEngineError(ctx, "tts")
		}
		return err
	})
}

// speakerFunc adapts a function to the trigger.Speaker interface.
type speakerFunc func(ctx context.Context, text string) error

func (f speakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts capture, the transcription loop, and the observability HTTP
// server, then blocks until ctx is cancelled or a component fails. When ctx
// is done, Run stops capture and returns the context's error.
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Start(a.queue); err != nil {
		return fmt.Errorf("app: start capture: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.transcriptionLoop(gctx)
	})

	if addr := a.cfg.Server.ObserveAddr; addr != "" {
		g.Go(func() error {
			return a.serveObserve(gctx, addr)
		})
	}

	slog.Info("pipeline running",
		"phrase", a.cfg.Trigger.Phrase,
		"chunk_duration", a.cfg.Audio.GetChunkDuration(),
		"cooldown", a.cfg.Trigger.GetCooldown(),
	)
	return g.Wait()
}

// transcriptionLoop is the single consumer of the capture queue: it assembles
// chunks, transcribes them, and feeds the text to the trigger controller. An
// engine failure skips the chunk and keeps the loop alive.
func (a *App) transcriptionLoop(ctx context.Context) error {
	for {
		chunk, err := a.assembler.Next(ctx)
		if err != nil {
			return err
		}
		if chunk == nil {
			// Nothing arrived within the wait window; keep listening.
			continue
		}

		a.metrics.RecordChunk(ctx, len(chunk) < a.assembler.TargetSamples())

		start := time.Now()
		tr, err := a.transcriber.Transcribe(ctx, stt.Request{
			Samples:    chunk,
			SampleRate: a.cfg.Audio.SampleRate,
			Language:   a.cfg.STT.Language,
		})
		a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.metrics.RecordEngineError(ctx, "stt")
			slog.Error("transcription failed, skipping chunk",
				"samples", len(chunk),
				"error", err,
			)
			continue
		}

		text := strings.TrimSpace(tr.Text)
		if text == "" {
			a.metrics.EmptyTranscripts.Add(ctx, 1)
			continue
		}

		slog.Debug("transcript", "text", text)
		a.controller.Observe(ctx, text)
	}
}

// serveObserve runs the HTTP server exposing /metrics, /healthz, /readyz, and
// /statusz until ctx is cancelled.
func (a *App) serveObserve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(a.checkers, health.WithStatus(a.Status)).Register(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("observability endpoint listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: observe server: %w", err)
	}
}

// Status returns the live pipeline snapshot served on /statusz.
func (a *App) Status() health.PipelineStatus {
	return health.PipelineStatus{
		QueueDepth: a.queue.Len(),
		Responded:  a.controller.Responded(),
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops capture, closes the trigger controller, and runs the
// remaining closers. It respects the context deadline: if ctx expires before
// all closers finish, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if err := a.source.Stop(); err != nil {
			slog.Warn("capture stop error", "error", err)
		}
		a.controller.Close()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
