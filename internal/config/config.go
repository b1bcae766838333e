// Package config provides the configuration schema, loader, and validation
// for the hearken voice assistant.
package config

import "time"

// LogLevel controls log verbosity for the assistant.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Known provider names per provider kind.
const (
	STTWhisper       = "whisper"        // whisper-server over HTTP
	STTWhisperNative = "whisper-native" // in-process whisper.cpp bindings
	TTSCoqui         = "coqui"          // Coqui TTS server over HTTP
)

// Config is the root configuration structure for hearken.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Trigger TriggerConfig `yaml:"trigger"`
	STT     STTConfig     `yaml:"stt"`
	TTS     TTSConfig     `yaml:"tts"`
}

// ServerConfig holds logging and observability settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// ObserveAddr is the TCP address serving /metrics, /healthz, and
	// /readyz (e.g., ":9090"). Empty disables the listener.
	ObserveAddr string `yaml:"observe_addr"`
}

// AudioConfig holds capture and chunking parameters.
type AudioConfig struct {
	// SampleRate is the capture sample rate in Hz. Whisper models require
	// 16000.
	SampleRate int `yaml:"sample_rate"`

	// BlockSize is the number of samples per capture callback.
	BlockSize int `yaml:"block_size"`

	// ChunkDuration is the target transcription window in seconds. Smaller
	// values are more responsive at the cost of more engine calls.
	ChunkDuration float64 `yaml:"chunk_duration"` // seconds
}

// GetChunkDuration returns the chunk duration as a time.Duration.
func (a AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDuration * float64(time.Second))
}

// TriggerConfig holds the trigger phrase, the spoken response, and the
// cool-down governing repeat activations.
type TriggerConfig struct {
	// Phrase is the literal trigger substring (case- and whitespace-exact).
	Phrase string `yaml:"phrase"`

	// Response is the fixed utterance spoken on activation.
	Response string `yaml:"response"`

	// Cooldown is the repeat-suppression interval in seconds, measured from
	// trigger time.
	Cooldown float64 `yaml:"cooldown"` // seconds
}

// GetCooldown returns the cool-down as a time.Duration.
func (t TriggerConfig) GetCooldown() time.Duration {
	return time.Duration(t.Cooldown * float64(time.Second))
}

// STTConfig selects and configures the speech-to-text engine.
type STTConfig struct {
	// Provider selects the engine: "whisper" (server) or "whisper-native"
	// (in-process CGO bindings).
	Provider string `yaml:"provider"`

	// BaseURL is the whisper-server endpoint (e.g., "http://localhost:8080").
	// Required for the "whisper" provider.
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier forwarded to the server (e.g., "small").
	// Empty lets the server use its startup model.
	Model string `yaml:"model"`

	// ModelPath is the ggml model file loaded by the "whisper-native"
	// provider.
	ModelPath string `yaml:"model_path"`

	// Language is the recognition language hint (e.g., "zh").
	Language string `yaml:"language"`
}

// TTSConfig selects and configures the text-to-speech engine.
type TTSConfig struct {
	// Provider selects the engine; "coqui" is the only built-in.
	Provider string `yaml:"provider"`

	// BaseURL is the Coqui server endpoint (e.g., "http://localhost:5002").
	BaseURL string `yaml:"base_url"`

	// Language is the synthesis language code (e.g., "zh").
	Language string `yaml:"language"`

	// VoiceID selects the synthesis voice. Empty picks the server default.
	VoiceID string `yaml:"voice_id"`

	// Rate is the speaking rate in words per minute.
	Rate int `yaml:"rate"`

	// Volume is the playback gain in [0.0, 1.0].
	Volume float64 `yaml:"volume"`
}

// Default returns a Config reproducing the assistant's shipped constants:
// 16 kHz mono capture in 1024-sample blocks, 2-second chunks, the Mandarin
// guidance trigger with a 30-second cool-down, and local whisper/Coqui
// servers on their standard ports.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			BlockSize:     1024,
			ChunkDuration: 2,
		},
		Trigger: TriggerConfig{
			Phrase:   "導診助手",
			Response: "您好，请问需要导诊服务还是安全监护？",
			Cooldown: 30,
		},
		STT: STTConfig{
			Provider: STTWhisper,
			BaseURL:  "http://localhost:8080",
			Language: "zh",
		},
		TTS: TTSConfig{
			Provider: TTSCoqui,
			BaseURL:  "http://localhost:5002",
			Language: "zh",
			Rate:     150,
			Volume:   0.9,
		},
	}
}
