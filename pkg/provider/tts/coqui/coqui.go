// Package coqui provides a Coqui TTS-backed Speaker that connects to a
// standard Coqui TTS server via its REST API.
//
// Synthesis is performed via GET /api/tts with URL query parameters; the
// server responds with a WAV file, which is decoded to mono float samples and
// played through the injected audio.Player. Because the server operates in
// batch mode (one HTTP call per utterance rather than a streaming socket),
// Speak blocks for synthesis plus playback — acceptable here since the
// response controller dispatches at most one utterance at a time.
//
// Typical usage:
//
//	player, _ := portaudio.NewPlayer(portaudio.WithVolume(0.9))
//	sp, _ := coqui.New("http://localhost:5002", player,
//	    coqui.WithVoice(tts.VoiceConfig{VoiceID: "p225", Rate: 150, Volume: 0.9}),
//	    coqui.WithLanguage("zh"),
//	)
//	err := sp.Speak(ctx, "您好，请问需要导诊服务还是安全监护？")
package coqui

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MrWong99/hearken/pkg/audio"
	"github.com/MrWong99/hearken/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Speaker = (*Speaker)(nil)

const (
	defaultLanguage = "zh"
	defaultTimeout  = 30 * time.Second
	apiTTSEndpoint  = "/api/tts"
)

// Option is a functional option for configuring a Speaker.
type Option func(*Speaker)

// WithLanguage sets the language code sent to the TTS server (e.g., "zh",
// "en"). Defaults to "zh".
func WithLanguage(lang string) Option {
	return func(s *Speaker) { s.language = lang }
}

// WithVoice sets the voice configuration. Zero-valued fields fall back to the
// package defaults (first server voice, 150 wpm, 0.9 volume — the volume is
// applied by the Player, not the server).
func WithVoice(v tts.VoiceConfig) Option {
	return func(s *Speaker) { s.voice = v }
}

// WithTimeout sets the per-request HTTP timeout for synthesis calls.
// Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Speaker) { s.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client, primarily for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Speaker) { s.httpClient = c }
}

// Speaker implements tts.Speaker backed by a Coqui TTS server and an
// audio.Player for the output device.
type Speaker struct {
	serverURL  string
	language   string
	voice      tts.VoiceConfig
	player     audio.Player
	httpClient *http.Client
}

// New creates a Speaker that synthesizes via the Coqui server at serverURL
// (e.g., "http://localhost:5002") and plays through player. Both must be
// non-nil/non-empty.
func New(serverURL string, player audio.Player, opts ...Option) (*Speaker, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	if player == nil {
		return nil, errors.New("coqui: player must not be nil")
	}
	s := &Speaker{
		serverURL:  serverURL,
		language:   defaultLanguage,
		voice:      tts.VoiceConfig{Rate: tts.DefaultRate, Volume: tts.DefaultVolume},
		player:     player,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak synthesizes text on the server, decodes the returned WAV, and plays
// it, blocking until playback completes.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	samples, sampleRate, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}
	if err := s.player.Play(ctx, samples, sampleRate); err != nil {
		return fmt.Errorf("coqui: playback: %w", err)
	}
	return nil
}

// Ping probes the server's root endpoint. Used by the readiness check.
func (s *Speaker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+"/", nil)
	if err != nil {
		return fmt.Errorf("coqui: create ping request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coqui: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("coqui: server returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// synthesize performs the GET /api/tts call and decodes the WAV response.
func (s *Speaker) synthesize(ctx context.Context, text string) ([]float32, int, error) {
	q := url.Values{}
	q.Set("text", text)
	if s.voice.VoiceID != "" {
		q.Set("speaker_id", s.voice.VoiceID)
	}
	if s.language != "" {
		q.Set("language_id", s.language)
	}
	if s.voice.Rate > 0 && s.voice.Rate != tts.DefaultRate {
		// The server takes a relative speed factor; Rate is words/minute
		// against the 150 wpm baseline.
		speed := float64(s.voice.Rate) / float64(tts.DefaultRate)
		q.Set("speed", strconv.FormatFloat(speed, 'f', 2, 64))
	}

	endpoint := s.serverURL + apiTTSEndpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("coqui: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("coqui: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("coqui: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("coqui: read response body: %w", err)
	}

	samples, sampleRate, err := decodeWAV(data)
	if err != nil {
		return nil, 0, fmt.Errorf("coqui: decode wav: %w", err)
	}
	return samples, sampleRate, nil
}

// ---- WAV decoding -----------------------------------------------------------

// decodeWAV parses a 16-bit PCM RIFF/WAV file into mono float32 samples.
// Stereo input is downmixed by averaging the channel pair. Only the fmt and
// data chunks are consulted; other chunks are skipped.
func decodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a RIFF/WAVE file")
	}

	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
	)

	// Walk the chunk list.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, errors.New("fmt chunk too short")
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported audio format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if sampleRate <= 0 || channels <= 0 {
		return nil, 0, errors.New("missing fmt chunk")
	}
	if bits != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d (want 16)", bits)
	}
	if pcm == nil {
		return nil, 0, errors.New("missing data chunk")
	}
	if channels > 2 {
		return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
	}

	frames := len(pcm) / (2 * channels)
	samples := make([]float32, frames)
	for i := range frames {
		if channels == 1 {
			v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			samples[i] = float32(v) / 32768
		} else {
			l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
			r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
			samples[i] = (float32(l) + float32(r)) / 2 / 32768
		}
	}
	return samples, sampleRate, nil
}
