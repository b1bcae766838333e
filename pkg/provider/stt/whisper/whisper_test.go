package whisper

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/hearken/pkg/provider/stt"
)

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestTranscribe_SubmitsWAVAndReturnsText(t *testing.T) {
	t.Parallel()

	var (
		gotLanguage string
		gotModel    string
		gotWAV      []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		gotWAV, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" 你好，導診助手 "}`)
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithLanguage("zh"), WithModel("small"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	samples := []float32{0, 0.5, -0.5, 1.0}
	tr, err := p.Transcribe(context.Background(), stt.Request{
		Samples:    samples,
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != " 你好，導診助手 " {
		t.Errorf("text = %q, want the server's verbatim result", tr.Text)
	}
	if gotLanguage != "zh" {
		t.Errorf("language field = %q, want zh", gotLanguage)
	}
	if gotModel != "small" {
		t.Errorf("model field = %q, want small", gotModel)
	}

	// The upload must be a valid RIFF/WAV container around the PCM data.
	if len(gotWAV) != 44+len(samples)*2 {
		t.Fatalf("wav size = %d, want %d", len(gotWAV), 44+len(samples)*2)
	}
	if string(gotWAV[0:4]) != "RIFF" || string(gotWAV[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(gotWAV[24:28]); rate != 16000 {
		t.Errorf("wav sample rate = %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(gotWAV[22:24]); ch != 1 {
		t.Errorf("wav channels = %d, want 1 (mono)", ch)
	}
}

func TestTranscribe_RequestLanguageOverridesDefault(t *testing.T) {
	t.Parallel()

	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		gotLanguage = r.FormValue("language")
		io.WriteString(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	p, _ := New(srv.URL, WithLanguage("zh"))
	_, err := p.Transcribe(context.Background(), stt.Request{
		Samples:    []float32{0.1},
		SampleRate: 16000,
		Language:   "en",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotLanguage != "en" {
		t.Errorf("language field = %q, want the per-request hint en", gotLanguage)
	}
}

func TestTranscribe_EmptyChunkShortCircuits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("server must not be called for an empty chunk")
	}))
	defer srv.Close()

	p, _ := New(srv.URL)
	tr, err := p.Transcribe(context.Background(), stt.Request{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "" {
		t.Errorf("text = %q, want empty", tr.Text)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New(srv.URL)
	_, err := p.Transcribe(context.Background(), stt.Request{
		Samples:    []float32{0.1},
		SampleRate: 16000,
	})
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestFloat32ToPCM16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"full scale", 1.0, 32767},
		{"negative full scale", -1.0, -32767},
		{"half", 0.5, 16383},
		{"clamped above", 1.5, 32767},
		{"clamped below", -2.0, -32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := float32ToPCM16([]float32{tt.in})
			got := int16(binary.LittleEndian.Uint16(out))
			if got != tt.want {
				t.Errorf("float32ToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
