package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tivivu/tivivu/pkg/voice"
)

// DefaultRestartDelay is the pause before hands-free mode starts the
// next recording after playback finishes.
const DefaultRestartDelay = 500 * time.Millisecond

// Player renders reply audio on the client. Degraded text replies are
// never sent to the player.
type Player interface {
	// Play renders the audio and blocks until playback finishes or ctx
	// is cancelled.
	Play(ctx context.Context, data []byte, contentType string) error

	// Stop halts playback and drops any buffered audio.
	Stop()
}

// Config holds session configuration.
type Config struct {
	ConversationID string
	Language       string
	Voice          string
	Format         string
	HandsFree      bool
	RestartDelay   time.Duration
	Logger         *slog.Logger

	// Silence detector policy, used only in hands-free mode.
	SilenceOptions []SilenceOption
}

// SessionOption is a functional option for configuring the session.
type SessionOption func(*Config)

// WithConversation continues an existing conversation.
func WithConversation(id string) SessionOption {
	return func(c *Config) { c.ConversationID = id }
}

// WithLanguage constrains transcription language.
func WithLanguage(lang string) SessionOption {
	return func(c *Config) { c.Language = lang }
}

// WithHandsFree enables the auto-restart loop with silence detection.
func WithHandsFree() SessionOption {
	return func(c *Config) { c.HandsFree = true }
}

// WithRestartDelay overrides the hands-free restart pause.
func WithRestartDelay(d time.Duration) SessionOption {
	return func(c *Config) { c.RestartDelay = d }
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(c *Config) { c.Logger = logger }
}

// WithSilenceOptions tunes the hands-free silence detector.
func WithSilenceOptions(opts ...SilenceOption) SessionOption {
	return func(c *Config) { c.SilenceOptions = opts }
}

// Session drives the record → upload → playback loop for one user.
type Session struct {
	api      API
	recorder *Recorder
	player   Player
	silence  *SilenceDetector
	config   *Config
	logger   *slog.Logger

	mu             sync.Mutex
	state          State
	status         string
	conversationID string
	lastTranscript string
	lastReply      string

	onState func(State, string)
}

// New creates a session over an API client, a recorder and a player.
func New(api API, recorder *Recorder, player Player, opts ...SessionOption) *Session {
	cfg := &Config{
		Format:       "mp3",
		Voice:        "auto",
		Language:     "auto",
		RestartDelay: DefaultRestartDelay,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Session{
		api:            api,
		recorder:       recorder,
		player:         player,
		silence:        NewSilenceDetector(cfg.SilenceOptions...),
		config:         cfg,
		logger:         cfg.Logger.With("component", "session"),
		state:          StateIdle,
		status:         "Tap to record",
		conversationID: cfg.ConversationID,
	}
	recorder.OnChunk(s.silence.Observe)
	return s
}

// OnStateChange registers a callback fired on every transition with the
// new state and a human-readable status line.
func (s *Session) OnStateChange(fn func(State, string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = fn
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the current status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ConversationID returns the conversation the session is bound to. It
// is set by the server on the first completed turn.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// LastTranscript returns the transcript of the most recent turn.
func (s *Session) LastTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTranscript
}

// LastReply returns the reply text of the most recent turn.
func (s *Session) LastReply() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReply
}

func (s *Session) setState(state State, status string) {
	s.mu.Lock()
	s.state = state
	s.status = status
	fn := s.onState
	s.mu.Unlock()
	if fn != nil {
		fn(state, status)
	}
}

// ErrTurnInProgress is returned by StartRecording while a previous
// turn is still uploading.
var ErrTurnInProgress = errors.New("session: turn in progress")

// StartRecording acquires the microphone and begins a new utterance.
// Any reply still playing is stopped and its buffers dropped first.
// While a turn is uploading it returns ErrTurnInProgress.
func (s *Session) StartRecording(ctx context.Context) error {
	if s.State() == StateUploading {
		return ErrTurnInProgress
	}
	s.player.Stop()

	if err := s.recorder.Start(ctx); err != nil {
		s.setState(StateIdle, "Microphone error")
		return err
	}
	if s.config.HandsFree {
		s.silence.Start(func() {
			s.logger.Debug("silence detected, stopping recording")
			go s.StopAndSend(ctx)
		})
	}
	s.setState(StateRecording, "Recording... tap to stop")
	return nil
}

// StopAndSend finishes the recording and runs the upload/playback half
// of the turn. In hands-free mode the next recording starts after the
// configured delay.
func (s *Session) StopAndSend(ctx context.Context) error {
	s.silence.Stop()

	rec, err := s.recorder.Stop()
	if err != nil {
		return err
	}
	s.setState(StateUploading, "Processing...")

	result, err := s.api.VoiceTurn(ctx, &voice.TurnRequest{
		AudioBase64:    base64.StdEncoding.EncodeToString(rec.Data),
		Filename:       fmt.Sprintf("audio_%d.wav", time.Now().UnixMilli()),
		Language:       s.config.Language,
		Voice:          s.config.Voice,
		Format:         s.config.Format,
		ConversationID: s.ConversationID(),
	})
	if err != nil {
		s.setState(StateError, "Failed. Try again")
		return fmt.Errorf("session: turn failed: %w", err)
	}

	s.mu.Lock()
	s.conversationID = result.ConversationID
	s.lastTranscript = result.Transcript
	s.lastReply = result.ReplyText
	s.mu.Unlock()

	if err := s.playReply(ctx, result); err != nil {
		s.setState(StateError, "Playback failed")
		return err
	}

	if s.config.HandsFree && ctx.Err() == nil {
		s.setState(StateIdle, "Auto recording...")
		time.Sleep(s.config.RestartDelay)
		if ctx.Err() == nil {
			return s.StartRecording(ctx)
		}
		return nil
	}
	s.setState(StateIdle, "Tap to record")
	return nil
}

// playReply plays synthesized audio, or shows degraded text replies in
// the status line instead of playing them.
func (s *Session) playReply(ctx context.Context, result *voice.TurnResult) error {
	if result.AudioBase64 == "" {
		if strings.HasPrefix(result.ContentType, "text/") && result.ReplyText != "" {
			s.setState(StatePlaying, result.ReplyText)
		}
		return nil
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	if err != nil {
		return fmt.Errorf("session: decode reply audio: %w", err)
	}
	s.setState(StatePlaying, "Playing AI reply...")
	if err := s.player.Play(ctx, audio, result.ContentType); err != nil {
		return fmt.Errorf("session: playback: %w", err)
	}
	return nil
}

// Close aborts any in-flight recording and stops playback.
func (s *Session) Close() error {
	s.silence.Stop()
	s.recorder.Abort()
	s.player.Stop()
	s.setState(StateIdle, "Closed")
	return nil
}
