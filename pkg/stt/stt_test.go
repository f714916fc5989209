package stt_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tivivu/tivivu/pkg/stt"
)

// capturedUpload holds the multipart fields received by the fake server.
type capturedUpload struct {
	filename string
	audio    []byte
	model    string
	language string
	hasLang  bool
}

func transcriptionServer(t *testing.T, text string, captured *capturedUpload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, err.Error(), 400)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, err.Error(), 400)
			return
		}
		defer file.Close()
		captured.filename = header.Filename
		captured.audio, _ = io.ReadAll(file)
		captured.model = r.FormValue("model")
		_, captured.hasLang = r.MultipartForm.Value["language"]
		captured.language = r.FormValue("language")
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
}

func TestOpenAITranscribe(t *testing.T) {
	var captured capturedUpload
	srv := transcriptionServer(t, "hello world", &captured)
	defer srv.Close()

	tr, err := stt.NewOpenAI(stt.WithAPIKey("k"), stt.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tr.Close()

	result, err := tr.Transcribe(context.Background(), &stt.Request{
		Audio:    []byte{1, 2, 3, 4},
		Filename: "turn.webm",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Text != "hello world" {
		t.Errorf("expected transcript, got %q", result.Text)
	}
	if captured.filename != "turn.webm" {
		t.Errorf("expected filename turn.webm, got %q", captured.filename)
	}
	if len(captured.audio) != 4 {
		t.Errorf("expected 4 audio bytes, got %d", len(captured.audio))
	}
	if captured.model != stt.DefaultModel {
		t.Errorf("expected default model, got %q", captured.model)
	}
	if captured.language != "en" {
		t.Errorf("expected language en, got %q", captured.language)
	}
}

func TestOpenAITranscribeAutoOmitsLanguage(t *testing.T) {
	for _, hint := range []string{"auto", ""} {
		t.Run("hint="+hint, func(t *testing.T) {
			var captured capturedUpload
			srv := transcriptionServer(t, "ok", &captured)
			defer srv.Close()

			tr, err := stt.NewOpenAI(stt.WithAPIKey("k"), stt.WithBaseURL(srv.URL))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer tr.Close()

			if _, err := tr.Transcribe(context.Background(), &stt.Request{
				Audio:    []byte{1},
				Language: hint,
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if captured.hasLang {
				t.Errorf("expected language field omitted for hint %q", hint)
			}
		})
	}
}

func TestOpenAITranscribeMissingAudio(t *testing.T) {
	tr, err := stt.NewOpenAI(stt.WithAPIKey("k"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tr.Close()

	_, err = tr.Transcribe(context.Background(), &stt.Request{})
	if !errors.Is(err, stt.ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}

func TestOpenAITranscribeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "upstream unavailable"},
		})
	}))
	defer srv.Close()

	tr, err := stt.NewOpenAI(stt.WithAPIKey("k"), stt.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tr.Close()

	_, err = tr.Transcribe(context.Background(), &stt.Request{Audio: []byte{1}})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *stt.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := stt.NewOpenAI(); !errors.Is(err, stt.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}
