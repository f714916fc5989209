package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tivivu/tivivu/pkg/tts"
)

func TestOpenAISynthesize(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer srv.Close()

	syn, err := tts.NewOpenAI(
		tts.WithAPIKey("k"),
		tts.WithBaseURL(srv.URL),
		tts.WithVoices(tts.VoiceMap{English: "nova", Vietnamese: "coral", Default: "alloy"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer syn.Close()

	t.Run("english text picks english voice", func(t *testing.T) {
		result, err := syn.Synthesize(context.Background(), &tts.Request{
			Text:  "Hello there",
			Voice: tts.VoiceAuto,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsAudio() {
			t.Error("expected audio result")
		}
		if result.ContentType != "audio/mp3" {
			t.Errorf("expected audio/mp3, got %q", result.ContentType)
		}
		if string(result.Data) != "fake-mp3-bytes" {
			t.Errorf("unexpected audio payload: %q", result.Data)
		}
		if captured["voice"] != "nova" {
			t.Errorf("expected voice nova, got %v", captured["voice"])
		}
		if captured["model"] != tts.DefaultModel {
			t.Errorf("expected default model, got %v", captured["model"])
		}
	})

	t.Run("vietnamese text picks vietnamese voice", func(t *testing.T) {
		if _, err := syn.Synthesize(context.Background(), &tts.Request{
			Text:  "Chào bạn, hôm nay học gì?",
			Voice: tts.VoiceAuto,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if captured["voice"] != "coral" {
			t.Errorf("expected voice coral, got %v", captured["voice"])
		}
	})

	t.Run("wav format sets wav content type", func(t *testing.T) {
		result, err := syn.Synthesize(context.Background(), &tts.Request{
			Text:   "Hello",
			Format: tts.FormatWAV,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ContentType != "audio/wav" {
			t.Errorf("expected audio/wav, got %q", result.ContentType)
		}
		if captured["format"] != "wav" {
			t.Errorf("expected wav format in payload, got %v", captured["format"])
		}
	})
}

func TestOpenAISynthesizeDegraded(t *testing.T) {
	assertTextResult := func(t *testing.T, result *tts.Result, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsAudio() {
			t.Error("expected degraded result")
		}
		if result.Kind != tts.KindText {
			t.Errorf("expected KindText, got %q", result.Kind)
		}
		if result.ContentType != "text/plain" {
			t.Errorf("expected text/plain, got %q", result.ContentType)
		}
		if string(result.Data) != "spoken reply" {
			t.Errorf("expected text passthrough, got %q", result.Data)
		}
	}

	t.Run("audio disabled", func(t *testing.T) {
		syn, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithAudioDisabled())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer syn.Close()

		result, err := syn.Synthesize(context.Background(), &tts.Request{Text: "spoken reply"})
		assertTextResult(t, result, err)
	})

	t.Run("speech endpoint missing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		syn, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer syn.Close()

		result, err := syn.Synthesize(context.Background(), &tts.Request{Text: "spoken reply"})
		assertTextResult(t, result, err)

		// Degrading twice should not fail either.
		result, err = syn.Synthesize(context.Background(), &tts.Request{Text: "spoken reply"})
		assertTextResult(t, result, err)
	})
}

func TestOpenAISynthesizeErrors(t *testing.T) {
	t.Run("missing text", func(t *testing.T) {
		syn, err := tts.NewOpenAI(tts.WithAPIKey("k"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer syn.Close()

		if _, err := syn.Synthesize(context.Background(), &tts.Request{}); !errors.Is(err, tts.ErrNoText) {
			t.Errorf("expected ErrNoText, got %v", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "speech backend down"},
			})
		}))
		defer srv.Close()

		syn, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer syn.Close()

		_, err = syn.Synthesize(context.Background(), &tts.Request{Text: "hi"})
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Message != "speech backend down" {
			t.Errorf("unexpected message: %q", apiErr.Message)
		}
	})

	t.Run("missing API key", func(t *testing.T) {
		if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}
