// Package portaudio implements audio capture and playback on top of the
// PortAudio C library (via the gordonklaus/portaudio binding).
//
// Capture opens the default input device and delivers fixed-size mono float32
// frames through a callback that PortAudio invokes on a realtime audio
// thread. The callback only copies the hardware buffer and performs a
// non-blocking queue push, so it completes in well under one block period.
// Driver-reported overrun/underrun conditions are logged and counted but are
// never fatal; capture continues.
//
// Player writes synthesized PCM to the default output device using the
// blocking stream API, returning once playback completes.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/hearken/pkg/audio"
)

const (
	defaultBlockSize = 1024
	defaultVolume    = 0.9
)

// Compile-time assertions against the pipeline interfaces.
var (
	_ audio.Source = (*Capture)(nil)
	_ audio.Player = (*Player)(nil)
)

// ─── Capture ─────────────────────────────────────────────────────────────────

// CaptureOption is a functional option for configuring a Capture.
type CaptureOption func(*Capture)

// WithBlockSize sets the number of samples delivered per capture callback.
// Defaults to 1024, which suits common hardware block sizes.
func WithBlockSize(n int) CaptureOption {
	return func(c *Capture) { c.blockSize = n }
}

// WithStatusHook registers a function invoked once per capture callback that
// reported an overrun/underrun condition. Used to feed the device-anomaly
// metric. The hook runs on the realtime audio thread and must not block.
func WithStatusHook(fn func()) CaptureOption {
	return func(c *Capture) { c.statusHook = fn }
}

// WithFrameHook registers a function invoked once per delivered frame. Used
// to feed the frame counter metric. The hook runs on the realtime audio
// thread and must not block.
func WithFrameHook(fn func()) CaptureOption {
	return func(c *Capture) { c.frameHook = fn }
}

// Capture is an audio.Source backed by the default PortAudio input device,
// opened mono at a fixed sample rate.
type Capture struct {
	sampleRate int
	blockSize  int
	statusHook func()
	frameHook  func()

	mu       sync.Mutex
	stream   *portaudio.Stream
	started  bool
	captured int64 // total samples delivered, drives frame timestamps

	// warnedStatus rate-limits the status log to the first occurrence; every
	// occurrence still reaches the statusHook counter.
	warnedStatus sync.Once
}

// NewCapture creates a Capture for the given sample rate (16000 Hz for the
// transcription pipeline).
func NewCapture(sampleRate int, opts ...CaptureOption) (*Capture, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("portaudio: invalid sample rate %d", sampleRate)
	}
	c := &Capture{
		sampleRate: sampleRate,
		blockSize:  defaultBlockSize,
	}
	for _, o := range opts {
		o(c)
	}
	if c.blockSize <= 0 {
		return nil, fmt.Errorf("portaudio: invalid block size %d", c.blockSize)
	}
	return c, nil
}

// Start initialises PortAudio, opens the default input stream, and begins
// pushing frames onto q. The capture callback copies each hardware block into
// a fresh Frame — the PortAudio buffer is reused between invocations — and
// never blocks: FrameQueue.Push is wait-free for the producer.
func (c *Capture) Start(q *audio.FrameQueue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("portaudio: capture already started")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), c.blockSize,
		func(in []float32, timeInfo portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			c.onBlock(q, in, flags)
		})
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio: open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio: start input stream: %w", err)
	}

	c.stream = stream
	c.started = true
	slog.Info("audio capture started",
		"sample_rate", c.sampleRate,
		"block_size", c.blockSize,
	)
	return nil
}

// onBlock runs on the realtime audio thread. It must return quickly and must
// not acquire long-held locks or perform I/O beyond the non-blocking push.
func (c *Capture) onBlock(q *audio.FrameQueue, in []float32, flags portaudio.StreamCallbackFlags) {
	if flags&(portaudio.InputOverflow|portaudio.InputUnderflow) != 0 {
		if c.statusHook != nil {
			c.statusHook()
		}
		c.warnedStatus.Do(func() {
			slog.Warn("audio capture reported device status anomaly; capture continues",
				"flags", uint(flags),
			)
		})
	}

	if c.frameHook != nil {
		c.frameHook()
	}

	samples := make([]float32, len(in))
	copy(samples, in)

	ts := time.Duration(c.captured) * time.Second / time.Duration(c.sampleRate)
	c.captured += int64(len(in))

	q.Push(audio.Frame{
		Samples:    samples,
		SampleRate: c.sampleRate,
		Timestamp:  ts,
	})
}

// Stop halts capture and releases the device. Safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false

	var errs []error
	if err := c.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: stop input stream: %w", err))
	}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: close input stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: terminate: %w", err))
	}
	c.stream = nil
	return errors.Join(errs...)
}

// ─── Player ──────────────────────────────────────────────────────────────────

// PlayerOption is a functional option for configuring a Player.
type PlayerOption func(*Player)

// WithVolume sets the playback gain in [0, 1]. Defaults to 0.9.
func WithVolume(v float64) PlayerOption {
	return func(p *Player) { p.volume = v }
}

// WithPlayerBlockSize sets the number of samples written per output block.
// Defaults to 1024.
func WithPlayerBlockSize(n int) PlayerOption {
	return func(p *Player) { p.blockSize = n }
}

// Player plays mono float32 buffers through the default PortAudio output
// device using the blocking write API. One utterance plays at a time; the
// response controller's guard excludes concurrent calls.
type Player struct {
	volume    float64
	blockSize int
}

// NewPlayer creates a Player with the given options.
func NewPlayer(opts ...PlayerOption) (*Player, error) {
	p := &Player{
		volume:    defaultVolume,
		blockSize: defaultBlockSize,
	}
	for _, o := range opts {
		o(p)
	}
	if p.volume < 0 || p.volume > 1 {
		return nil, fmt.Errorf("portaudio: volume %.2f out of range [0, 1]", p.volume)
	}
	if p.blockSize <= 0 {
		return nil, fmt.Errorf("portaudio: invalid block size %d", p.blockSize)
	}
	return p, nil
}

// Play writes samples to the default output device, blocking until the whole
// buffer has been played or ctx is cancelled. The configured volume is
// applied as a gain; samples are clamped to [-1, 1].
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("portaudio: invalid sample rate %d", sampleRate)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	out := make([]float32, p.blockSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(out), &out)
	if err != nil {
		return fmt.Errorf("portaudio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output stream: %w", err)
	}
	defer stream.Stop()

	gain := float32(p.volume)
	for offset := 0; offset < len(samples); offset += p.blockSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(out, samples[offset:])
		for i := range out[:n] {
			s := out[i] * gain
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			out[i] = s
		}
		// Zero-pad the final partial block.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}

		if err := stream.Write(); err != nil {
			// Output underflow is recoverable; anything else aborts playback.
			if errors.Is(err, portaudio.OutputUnderflowed) {
				slog.Warn("audio playback underflow", "offset", offset)
				continue
			}
			return fmt.Errorf("portaudio: write output stream: %w", err)
		}
	}
	return nil
}
