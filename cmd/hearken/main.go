// Command hearken is the main entry point for the hearken voice assistant:
// it listens on the default microphone, transcribes speech in fixed chunks,
// and speaks a fixed response whenever the configured trigger phrase is heard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/hearken/internal/app"
	"github.com/MrWong99/hearken/internal/config"
	"github.com/MrWong99/hearken/internal/health"
	"github.com/MrWong99/hearken/internal/observe"
	paudio "github.com/MrWong99/hearken/pkg/audio/portaudio"
	"github.com/MrWong99/hearken/pkg/provider/stt"
	"github.com/MrWong99/hearken/pkg/provider/stt/whisper"
	"github.com/MrWong99/hearken/pkg/provider/tts"
	"github.com/MrWong99/hearken/pkg/provider/tts/coqui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hearken: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hearken: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("hearken starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Capture device ────────────────────────────────────────────────────────
	metricsCtx := context.Background()
	capture, err := paudio.NewCapture(cfg.Audio.SampleRate,
		paudio.WithBlockSize(cfg.Audio.BlockSize),
		paudio.WithFrameHook(func() { metrics.FramesCaptured.Add(metricsCtx, 1) }),
		paudio.WithStatusHook(func() { metrics.DeviceAnomalies.Add(metricsCtx, 1) }),
	)
	if err != nil {
		slog.Error("failed to open capture device", "err", err)
		return 1
	}

	// ── Speech-to-text engine ─────────────────────────────────────────────────
	transcriber, checkers, sttClose, err := buildTranscriber(cfg)
	if err != nil {
		slog.Error("failed to create stt engine", "err", err)
		return 1
	}
	if sttClose != nil {
		defer sttClose()
	}

	// ── Text-to-speech engine ─────────────────────────────────────────────────
	player, err := paudio.NewPlayer(paudio.WithVolume(cfg.TTS.Volume))
	if err != nil {
		slog.Error("failed to open playback device", "err", err)
		return 1
	}
	speaker, err := buildSpeaker(cfg, player)
	if err != nil {
		slog.Error("failed to create tts engine", "err", err)
		return 1
	}
	if pinger, ok := speaker.(interface {
		Ping(context.Context) error
	}); ok {
		checkers = append(checkers, health.Checker{Name: cfg.TTS.Provider, Check: pinger.Ping})
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(cfg,
		app.WithSource(capture),
		app.WithTranscriber(transcriber),
		app.WithSpeaker(speaker),
		app.WithMetrics(metrics),
		app.WithReadinessChecks(checkers...),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("listening — press Ctrl+C to shut down", "phrase", cfg.Trigger.Phrase)

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Engine wiring ─────────────────────────────────────────────────────────────

// buildTranscriber constructs the configured STT engine, its readiness
// checkers, and an optional close function.
func buildTranscriber(cfg *config.Config) (stt.Transcriber, []health.Checker, func() error, error) {
	switch cfg.STT.Provider {
	case config.STTWhisper:
		var opts []whisper.Option
		if cfg.STT.Model != "" {
			opts = append(opts, whisper.WithModel(cfg.STT.Model))
		}
		if cfg.STT.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.STT.Language))
		}
		p, err := whisper.New(cfg.STT.BaseURL, opts...)
		if err != nil {
			return nil, nil, nil, err
		}
		checker := health.Checker{Name: "whisper", Check: p.Ping}
		return p, []health.Checker{checker}, nil, nil

	case config.STTWhisperNative:
		var opts []whisper.NativeOption
		if cfg.STT.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(cfg.STT.Language))
		}
		p, err := whisper.NewNative(cfg.STT.ModelPath, opts...)
		if err != nil {
			return nil, nil, nil, err
		}
		return p, nil, p.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
}

// buildSpeaker constructs the configured TTS engine around the playback
// device.
func buildSpeaker(cfg *config.Config, player *paudio.Player) (tts.Speaker, error) {
	switch cfg.TTS.Provider {
	case config.TTSCoqui:
		var opts []coqui.Option
		if cfg.TTS.Language != "" {
			opts = append(opts, coqui.WithLanguage(cfg.TTS.Language))
		}
		opts = append(opts, coqui.WithVoice(tts.VoiceConfig{
			VoiceID: cfg.TTS.VoiceID,
			Rate:    cfg.TTS.Rate,
			Volume:  cfg.TTS.Volume,
		}))
		return coqui.New(cfg.TTS.BaseURL, player, opts...)

	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.TTS.Provider)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         hearken — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("STT", cfg.STT.Provider)
	printField("TTS", cfg.TTS.Provider)
	printField("Sample rate", fmt.Sprintf("%d Hz", cfg.Audio.SampleRate))
	printField("Chunk", cfg.Audio.GetChunkDuration().String())
	printField("Phrase", cfg.Trigger.Phrase)
	printField("Cool-down", cfg.Trigger.GetCooldown().String())
	if cfg.Server.ObserveAddr != "" {
		printField("Observe addr", cfg.Server.ObserveAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", name, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
