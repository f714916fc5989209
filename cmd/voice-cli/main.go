// voice-cli: command-line voice chat client for the TiViVu server.
//
// Records from a synthetic audio source, uploads voice turns and saves
// the spoken replies, printing live events from the server websocket.
// It doubles as an end-to-end smoke test for the voice pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tivivu/tivivu/internal/log"
	"github.com/tivivu/tivivu/pkg/audioio"
	"github.com/tivivu/tivivu/pkg/session"
)

var (
	server       = flag.String("server", "http://localhost:3000", "TiViVu server base URL")
	token        = flag.String("token", "", "API bearer token (or TIVIVU_TOKEN)")
	conversation = flag.String("conversation", "", "continue an existing conversation")
	language     = flag.String("lang", "auto", "transcription language hint")
	handsFree    = flag.Bool("hands-free", false, "auto-stop on silence and restart after playback")
	recordFor    = flag.Duration("record", 3*time.Second, "recording length per manual turn")
	outDir       = flag.String("out", "replies", "directory for saved reply audio")
	debug        = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if *debug {
		log.Init("debug")
	} else {
		log.Init("info")
	}
	logger := log.L()

	if *token == "" {
		*token = os.Getenv("TIVIVU_TOKEN")
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "missing -token (or TIVIVU_TOKEN)")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("🎙️  TiViVu voice client")
	fmt.Println("   Server: " + *server)
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watchEvents(ctx, *server, logger)

	// The synthetic source speaks for a few seconds and falls silent,
	// which exercises the same path a microphone would drive.
	src := audioio.NewMockSource(audioio.DefaultConfig(), logger, audioio.WithEnvelope(
		audioio.EnvelopeStep{Amplitude: 0.6, Duration: 2 * time.Second},
		audioio.EnvelopeStep{Amplitude: 0},
	))
	player := &filePlayer{dir: *outDir}

	opts := []session.SessionOption{
		session.WithConversation(*conversation),
		session.WithLanguage(*language),
		session.WithSessionLogger(logger),
	}
	if *handsFree {
		opts = append(opts, session.WithHandsFree())
	}
	s := session.New(
		session.NewClient(*server, *token),
		session.NewRecorder(src),
		player,
		opts...,
	)
	defer s.Close()

	s.OnStateChange(func(state session.State, status string) {
		fmt.Printf("[%s] %s\n", state, status)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if *handsFree {
		if err := s.StartRecording(ctx); err != nil {
			logger.Error("start recording", "error", err)
			os.Exit(1)
		}
		<-quit
		cancel()
		fmt.Println("\n👋 bye")
		return
	}

	// Manual mode: one fixed-length turn.
	if err := s.StartRecording(ctx); err != nil {
		logger.Error("start recording", "error", err)
		os.Exit(1)
	}
	select {
	case <-time.After(*recordFor):
	case <-quit:
		cancel()
		return
	}
	if err := s.StopAndSend(ctx); err != nil {
		logger.Error("voice turn", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("You said:  " + s.LastTranscript())
	fmt.Println("AI replied: " + s.LastReply())
	fmt.Println("Conversation: " + s.ConversationID())
}

// filePlayer saves reply audio instead of rendering it.
type filePlayer struct {
	dir string

	mu sync.Mutex
	n  int
}

func (p *filePlayer) Play(_ context.Context, data []byte, contentType string) error {
	p.mu.Lock()
	p.n++
	n := p.n
	p.mu.Unlock()

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	ext := "mp3"
	if strings.Contains(contentType, "wav") {
		ext = "wav"
	}
	path := filepath.Join(p.dir, fmt.Sprintf("reply_%03d.%s", n, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Println("🔊 saved " + path)
	return nil
}

func (p *filePlayer) Stop() {}

// watchEvents subscribes to the server's live event stream and prints
// transcripts, replies and title changes as they happen.
func watchEvents(ctx context.Context, baseURL string, logger *slog.Logger) {
	wsURL, err := eventsURL(baseURL)
	if err != nil {
		logger.Warn("bad server URL", "error", err)
		return
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		logger.Debug("event stream unavailable", "error", err)
		return
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var ev struct {
			Type           string      `json:"type"`
			ConversationID string      `json:"conversation_id"`
			Payload        interface{} `json:"payload"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		fmt.Printf("📡 %s: %v\n", ev.Type, ev.Payload)
	}
}

// eventsURL converts an http(s) base URL into the ws(s) event endpoint.
func eventsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/events"
	return u.String(), nil
}
