// Package voice runs one server-side voice turn: transcribe the user's
// audio, persist the exchange, generate the reply and synthesize it.
//
// The pipeline is strictly sequential. Transcription failure aborts the
// turn before anything is persisted; reply failure degrades to a fixed
// fallback text; title and synthesis failures never lose the persisted
// messages.
package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tivivu/tivivu/pkg/assistant"
	"github.com/tivivu/tivivu/pkg/store"
	"github.com/tivivu/tivivu/pkg/stt"
	"github.com/tivivu/tivivu/pkg/tts"
)

// DefaultFallbackReply is spoken when reply generation fails.
const DefaultFallbackReply = "Sorry, I could not generate a reply right now."

// Sentinel errors for turn stages.
var (
	ErrNoAudio             = errors.New("voice: no audio supplied")
	ErrTranscriptionFailed = errors.New("voice: transcription failed")
	ErrSynthesisFailed     = errors.New("voice: synthesis failed")
)

// Event is a notification emitted while a turn progresses, suitable for
// broadcasting to live listeners.
type Event struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Payload        interface{} `json:"payload"`
}

// Event types.
const (
	EventTranscript = "transcript"
	EventReply      = "reply"
	EventTitle      = "title"
)

// TurnRequest carries one recorded utterance through the pipeline.
type TurnRequest struct {
	AudioBase64    string `json:"audioBase64"`
	Filename       string `json:"filename"`
	Language       string `json:"language"`
	Voice          string `json:"voice"`
	Format         string `json:"format"`
	ConversationID string `json:"conversationId"`

	// SkipTTS returns the reply as text only.
	SkipTTS bool `json:"skipTts"`

	// UserID is resolved by the transport layer, never by the client.
	UserID string `json:"-"`
}

// TurnResult is the outcome of a completed voice turn.
type TurnResult struct {
	ConversationID string `json:"conversationId"`
	Transcript     string `json:"transcript"`
	ReplyText      string `json:"replyText"`
	Title          string `json:"title,omitempty"`

	// AudioBase64 is empty when SkipTTS was set or synthesis degraded
	// to text. ContentType tells the client what Data held: an audio
	// type, or text/plain for the degraded path.
	AudioBase64 string `json:"audioBase64,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Voice       string `json:"voice,omitempty"`
}

// Config holds orchestrator configuration.
type Config struct {
	FallbackReply string
	Logger        *slog.Logger
}

// Option is a functional option for configuring the orchestrator.
type Option func(*Config)

// WithFallbackReply overrides the reply used when generation fails.
func WithFallbackReply(text string) Option {
	return func(c *Config) { c.FallbackReply = text }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// Orchestrator sequences one voice turn across the providers.
type Orchestrator struct {
	transcriber stt.Transcriber
	assistant   *assistant.Assistant
	synthesizer tts.Synthesizer
	store       store.Store
	config      *Config
	logger      *slog.Logger
	metrics     *MetricsCollector

	onEvent func(Event)
}

// New creates an orchestrator over the given stages.
func New(transcriber stt.Transcriber, asst *assistant.Assistant, synthesizer tts.Synthesizer, st store.Store, opts ...Option) *Orchestrator {
	cfg := &Config{
		FallbackReply: DefaultFallbackReply,
		Logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Orchestrator{
		transcriber: transcriber,
		assistant:   asst,
		synthesizer: synthesizer,
		store:       st,
		config:      cfg,
		logger:      cfg.Logger.With("component", "voice"),
		metrics:     NewMetricsCollector(),
	}
}

// OnEvent registers a callback for turn progress events. Events fire
// synchronously on the turn goroutine.
func (o *Orchestrator) OnEvent(fn func(Event)) {
	o.onEvent = fn
}

// Metrics returns the latency collector for this orchestrator.
func (o *Orchestrator) Metrics() *MetricsCollector {
	return o.metrics
}

// RunTurn executes one voice turn. Cancelling ctx stops the remaining
// stages; rows already persisted stay persisted.
func (o *Orchestrator) RunTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	audio, err := decodeAudio(req.AudioBase64)
	if err != nil {
		return nil, err
	}

	o.metrics.MarkTurnStart()

	transcription, err := o.transcriber.Transcribe(ctx, &stt.Request{
		Audio:    audio,
		Filename: req.Filename,
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	o.metrics.MarkTranscript()

	convo, err := o.store.GetOrCreateConversation(ctx, req.ConversationID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("voice: resolve conversation: %w", err)
	}
	result := &TurnResult{
		ConversationID: convo.ID,
		Transcript:     transcription.Text,
	}
	o.emit(Event{Type: EventTranscript, ConversationID: convo.ID, Payload: transcription.Text})

	// The user message is persisted before reply generation so the pair
	// keeps its order even when later stages fail.
	if _, err := o.store.CreateMessage(ctx, convo.ID, req.UserID, store.RoleUser, transcription.Text); err != nil {
		return nil, fmt.Errorf("voice: persist user message: %w", err)
	}

	reply, err := o.assistant.Reply(ctx, convo.ID, req.UserID, transcription.Text, &assistant.ReplyOptions{
		ExtraSystemPrompt: assistant.VoiceBrevityPrompt,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("reply generation failed, using fallback", "error", err, "conversation_id", convo.ID)
		reply = o.config.FallbackReply
	}
	result.ReplyText = reply
	o.metrics.MarkReply()

	if _, err := o.store.CreateMessage(ctx, convo.ID, req.UserID, store.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("voice: persist assistant message: %w", err)
	}
	o.emit(Event{Type: EventReply, ConversationID: convo.ID, Payload: reply})

	if title, ok := o.assistant.RetitleIfGeneric(ctx, convo.ID, req.UserID); ok {
		result.Title = title
		o.emit(Event{Type: EventTitle, ConversationID: convo.ID, Payload: title})
	}

	if req.SkipTTS {
		o.metrics.MarkTurnDone()
		return result, nil
	}

	speech, err := o.synthesizer.Synthesize(ctx, &tts.Request{
		Text:   reply,
		Voice:  req.Voice,
		Format: req.Format,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	result.ContentType = speech.ContentType
	result.Voice = speech.Voice
	if speech.IsAudio() {
		result.AudioBase64 = base64.StdEncoding.EncodeToString(speech.Data)
	}
	o.metrics.MarkSynthesis()
	o.metrics.MarkTurnDone()

	o.logger.Info("voice turn complete",
		"conversation_id", convo.ID,
		"transcript_chars", len(result.Transcript),
		"reply_chars", len(result.ReplyText),
		"degraded", !speech.IsAudio(),
	)
	return result, nil
}

func (o *Orchestrator) emit(ev Event) {
	if o.onEvent != nil {
		o.onEvent(ev)
	}
}

func decodeAudio(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrNoAudio
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrNoAudio)
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	return audio, nil
}
