// Package trigger implements keyword detection on recognized transcripts and
// the debounced response that follows.
//
// The Controller scans each transcript for the configured trigger phrase as a
// literal substring — matching is case- and whitespace-exact, with no fuzzy
// matching and no confidence threshold. A phrase spoken across a chunk
// boundary can be silently missed; that is a documented limitation of the
// chunked design, not a detection bug.
//
// On a match the Controller fires the spoken response exactly once, then
// suppresses further triggers until a cool-down interval has elapsed. The
// cool-down is measured from trigger time, independent of whether the spoken
// response has finished playing.
package trigger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is the interval after a trigger during which repeat
// triggers are suppressed.
const DefaultCooldown = 30 * time.Second

// Speaker is the minimal surface the Controller needs from the TTS layer.
// It matches tts.Speaker.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Config holds the static trigger parameters, read-only for the process
// lifetime.
type Config struct {
	// Phrase is the literal trigger substring (e.g., "導診助手").
	Phrase string

	// Response is the fixed utterance spoken on activation.
	Response string

	// Cooldown overrides DefaultCooldown when positive.
	Cooldown time.Duration
}

// Controller owns the `responded` flag, its lock, and the cool-down timer —
// the only critical section in the pipeline. It is passed into the detection
// loop by reference rather than accessed as ambient state.
//
// Invariant: at most one response-speaking task is in flight at a time, and
// no second response starts while responded is true. The flag flips to true
// synchronously inside Observe, before the response task runs, so a
// subsequent detection call within the cool-down always sees it set.
type Controller struct {
	phrase   string
	response string
	cooldown time.Duration
	speaker  Speaker

	// onTrigger and onSuppressed feed metrics; either may be nil.
	onTrigger    func()
	onSuppressed func()

	mu        sync.Mutex
	responded bool
	timer     *time.Timer
	closed    bool

	// wg tracks in-flight response tasks so tests can synchronise with
	// playback; shutdown does not wait on it beyond cancelling their ctx.
	wg sync.WaitGroup
}

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithTriggerHook registers a function called once per accepted trigger.
func WithTriggerHook(fn func()) Option {
	return func(c *Controller) { c.onTrigger = fn }
}

// WithSuppressedHook registers a function called once per trigger suppressed
// by the cool-down guard.
func WithSuppressedHook(fn func()) Option {
	return func(c *Controller) { c.onSuppressed = fn }
}

// New creates a Controller that speaks cfg.Response through speaker whenever
// cfg.Phrase is detected and the cool-down guard is clear.
func New(cfg Config, speaker Speaker, opts ...Option) *Controller {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	c := &Controller{
		phrase:   cfg.Phrase,
		response: cfg.Response,
		cooldown: cooldown,
		speaker:  speaker,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Responded reports whether the controller is currently armed against repeat
// triggers (a response fired within the last cool-down interval).
func (c *Controller) Responded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded
}

// Observe scans text for the trigger phrase and, when found with the guard
// clear, starts the response task asynchronously and arms the cool-down
// timer. It returns true only when a new response task was started.
//
// Observe never blocks on speech synthesis — the detection loop must keep
// consuming chunks immediately — and is safe for concurrent use, although the
// pipeline calls it from the single transcription loop.
func (c *Controller) Observe(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if c.phrase == "" || !strings.Contains(text, c.phrase) {
		return false
	}

	c.mu.Lock()
	if c.closed || c.responded {
		c.mu.Unlock()
		if c.onSuppressed != nil {
			c.onSuppressed()
		}
		slog.Debug("trigger suppressed during cool-down", "phrase", c.phrase)
		return false
	}

	// Arm before the response task runs: the flag must be observable as true
	// by the very next detection call.
	c.responded = true
	c.timer = time.AfterFunc(c.cooldown, c.rearm)
	c.wg.Add(1)
	c.mu.Unlock()

	if c.onTrigger != nil {
		c.onTrigger()
	}
	slog.Info("trigger phrase detected, speaking response",
		"phrase", c.phrase,
		"cooldown", c.cooldown,
	)

	go func() {
		defer c.wg.Done()
		if err := c.speaker.Speak(ctx, c.response); err != nil {
			slog.Error("response playback failed", "error", err)
		}
	}()
	return true
}

// rearm runs on the timer goroutine when the cool-down elapses.
func (c *Controller) rearm() {
	c.mu.Lock()
	c.responded = false
	c.timer = nil
	c.mu.Unlock()
	slog.Info("cool-down elapsed, trigger re-armed", "phrase", c.phrase)
}

// Close cancels any pending cool-down timer and rejects further triggers.
// It does not wait for an in-flight response task to finish playing; callers
// cancel the task's context for that.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Wait blocks until all response tasks spawned so far have returned.
// Intended for tests.
func (c *Controller) Wait() {
	c.wg.Wait()
}
