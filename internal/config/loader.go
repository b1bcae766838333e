package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {STTWhisper, STTWhisperNative},
	"tts": {TTSCoqui},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result, so a file only needs to list the fields it changes.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	} else if cfg.Audio.SampleRate != 16000 {
		slog.Warn("audio.sample_rate differs from the 16000 Hz whisper models expect",
			"sample_rate", cfg.Audio.SampleRate,
		)
	}
	if cfg.Audio.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must be positive", cfg.Audio.BlockSize))
	}
	if cfg.Audio.ChunkDuration <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_duration %.2f must be positive", cfg.Audio.ChunkDuration))
	}

	// Trigger
	if cfg.Trigger.Phrase == "" {
		errs = append(errs, errors.New("trigger.phrase is required"))
	}
	if cfg.Trigger.Response == "" {
		errs = append(errs, errors.New("trigger.response is required"))
	}
	if cfg.Trigger.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("trigger.cooldown %.2f must not be negative", cfg.Trigger.Cooldown))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.STT.Provider)
	validateProviderName("tts", cfg.TTS.Provider)

	// STT provider requirements
	switch cfg.STT.Provider {
	case STTWhisper:
		if cfg.STT.BaseURL == "" {
			errs = append(errs, errors.New("stt.base_url is required for the whisper provider"))
		}
	case STTWhisperNative:
		if cfg.STT.ModelPath == "" {
			errs = append(errs, errors.New("stt.model_path is required for the whisper-native provider"))
		}
	}

	// TTS provider requirements
	if cfg.TTS.Provider == TTSCoqui && cfg.TTS.BaseURL == "" {
		errs = append(errs, errors.New("tts.base_url is required for the coqui provider"))
	}
	if cfg.TTS.Rate < 0 {
		errs = append(errs, fmt.Errorf("tts.rate %d must not be negative", cfg.TTS.Rate))
	}
	if cfg.TTS.Volume < 0 || cfg.TTS.Volume > 1 {
		errs = append(errs, fmt.Errorf("tts.volume %.2f is out of range [0.0, 1.0]", cfg.TTS.Volume))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
