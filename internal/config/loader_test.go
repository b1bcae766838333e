package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/hearken/internal/config"
)

func TestLoadFromReader_EmptyInputYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("default sample rate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.BlockSize != 1024 {
		t.Errorf("default block size = %d, want 1024", cfg.Audio.BlockSize)
	}
	if got := cfg.Audio.GetChunkDuration(); got != 2*time.Second {
		t.Errorf("default chunk duration = %v, want 2s", got)
	}
	if got := cfg.Trigger.GetCooldown(); got != 30*time.Second {
		t.Errorf("default cooldown = %v, want 30s", got)
	}
	if cfg.Trigger.Phrase != "導診助手" {
		t.Errorf("default phrase = %q", cfg.Trigger.Phrase)
	}
	if cfg.TTS.Rate != 150 || cfg.TTS.Volume != 0.9 {
		t.Errorf("default voice = %d wpm / %.2f volume, want 150 / 0.90", cfg.TTS.Rate, cfg.TTS.Volume)
	}
}

func TestLoadFromReader_OverridesMergeOntoDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
audio:
  chunk_duration: 1.5
trigger:
  phrase: "救命"
  cooldown: 10
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.Audio.GetChunkDuration(); got != 1500*time.Millisecond {
		t.Errorf("chunk duration = %v, want 1.5s", got)
	}
	if cfg.Trigger.Phrase != "救命" {
		t.Errorf("phrase = %q, want 救命", cfg.Trigger.Phrase)
	}
	if got := cfg.Trigger.GetCooldown(); got != 10*time.Second {
		t.Errorf("cooldown = %v, want 10s", got)
	}
	// Untouched sections keep their defaults.
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want default 16000", cfg.Audio.SampleRate)
	}
	if cfg.Trigger.Response == "" {
		t.Error("response must keep its default when not overridden")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
audio:
  sample_rte: 16000
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
audio:
  sample_rate: -1
  block_size: 0
trigger:
  phrase: ""
  response: ""
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, want := range []string{
		"server.log_level",
		"audio.sample_rate",
		"audio.block_size",
		"trigger.phrase",
		"trigger.response",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_WhisperNativeRequiresModelPath(t *testing.T) {
	t.Parallel()
	yaml := `
stt:
  provider: whisper-native
  model_path: ""
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for whisper-native without model_path, got nil")
	}
	if !strings.Contains(err.Error(), "model_path") {
		t.Errorf("error should mention model_path, got: %v", err)
	}
}

func TestValidate_WhisperRequiresBaseURL(t *testing.T) {
	t.Parallel()
	yaml := `
stt:
  base_url: ""
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for whisper provider without base_url, got nil")
	}
}

func TestValidate_VolumeOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
tts:
  volume: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for volume > 1.0, got nil")
	}
	if !strings.Contains(err.Error(), "tts.volume") {
		t.Errorf("error should mention tts.volume, got: %v", err)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error("verbose should not be a valid log level")
	}
}
