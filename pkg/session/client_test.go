package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tivivu/tivivu/pkg/voice"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
			return
		}
		switch r.URL.Path {
		case "/voice-chat":
			var req voice.TurnRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.AudioBase64 == "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "Missing audio. Provide `audioBase64`."})
				return
			}
			json.NewEncoder(w).Encode(voice.TurnResult{
				ConversationID: "c1",
				Transcript:     "hello",
				ReplyText:      "Hi!",
			})
		case "/stt":
			json.NewEncoder(w).Encode(map[string]string{"text": "hello"})
		case "/tts":
			w.Header().Set("Content-Type", "audio/mp3")
			w.Write([]byte("mp3-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClientVoiceTurn(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	ctx := context.Background()

	t.Run("successful turn", func(t *testing.T) {
		c := NewClient(srv.URL, "tok")
		result, err := c.VoiceTurn(ctx, &voice.TurnRequest{
			AudioBase64: base64.StdEncoding.EncodeToString([]byte("wav")),
		})
		if err != nil {
			t.Fatalf("voice turn: %v", err)
		}
		if result.ConversationID != "c1" || result.ReplyText != "Hi!" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("server error body is surfaced", func(t *testing.T) {
		c := NewClient(srv.URL, "tok")
		_, err := c.VoiceTurn(ctx, &voice.TurnRequest{})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "Missing audio") {
			t.Errorf("expected server error code in message, got %v", err)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		c := NewClient(srv.URL, "wrong")
		if _, err := c.VoiceTurn(ctx, &voice.TurnRequest{AudioBase64: "eA=="}); err == nil {
			t.Fatal("expected auth failure")
		}
	})
}

func TestClientSpeechHelpers(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()
	ctx := context.Background()
	c := NewClient(srv.URL, "tok")

	t.Run("transcribe", func(t *testing.T) {
		text, err := c.Transcribe(ctx, []byte("wav"), "a.wav", "en")
		if err != nil {
			t.Fatalf("transcribe: %v", err)
		}
		if text != "hello" {
			t.Errorf("expected transcript, got %q", text)
		}
	})

	t.Run("synthesize", func(t *testing.T) {
		audio, contentType, err := c.Synthesize(ctx, "Hi!", "auto", "mp3")
		if err != nil {
			t.Fatalf("synthesize: %v", err)
		}
		if contentType != "audio/mp3" || string(audio) != "mp3-bytes" {
			t.Errorf("unexpected synthesis: %q %q", contentType, audio)
		}
	})
}
