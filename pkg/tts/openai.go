package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"

	// DefaultModel is the low-latency OpenAI speech model.
	DefaultModel = "gpt-4o-mini-tts"

	// DefaultVoice is the provider fallback voice.
	DefaultVoice = "alloy"
)

// Config holds synthesizer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voices  VoiceMap
	Timeout time.Duration
	Logger  *slog.Logger

	// AudioEnabled gates the provider's audio capability. When false the
	// synthesizer always takes the degraded text path.
	AudioEnabled bool
}

// Option is a functional option for configuring synthesizers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the speech model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithVoices sets the language-to-voice map.
func WithVoices(voices VoiceMap) Option {
	return func(c *Config) { c.Voices = voices }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithAudioDisabled forces the degraded text path, for deployments
// without access to the audio API.
func WithAudioDisabled() Option {
	return func(c *Config) { c.AudioEnabled = false }
}

// OpenAI implements Synthesizer against the OpenAI speech API.
type OpenAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates a new OpenAI synthesizer.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := &Config{
		Model:        DefaultModel,
		Voices:       VoiceMap{Default: DefaultVoice},
		Timeout:      60 * time.Second,
		Logger:       slog.Default(),
		AudioEnabled: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Voices.Default == "" {
		cfg.Voices.Default = DefaultVoice
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "tts.openai"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Synthesize renders reply text to audio, or degrades to text bytes when
// the audio capability is disabled or the provider has no speech endpoint.
func (o *OpenAI) Synthesize(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Text == "" {
		return nil, ErrNoText
	}

	lang := req.Language
	if lang == "" || lang == "auto" {
		lang = DetectLanguage(req.Text)
	}
	voice := o.config.Voices.Pick(lang, req.Voice)

	format := req.Format
	if format == "" {
		format = FormatMP3
	}

	if !o.config.AudioEnabled {
		o.logger.Warn("audio capability disabled, degrading to text")
		return &Result{
			Kind:        KindText,
			Data:        []byte(req.Text),
			ContentType: "text/plain",
		}, nil
	}

	start := time.Now()

	payload := map[string]interface{}{
		"model":  o.config.Model,
		"voice":  voice,
		"input":  req.Text,
		"format": format,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, wrap(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	// A 404 means the deployment has no speech endpoint at all. Degrade
	// to text instead of failing the turn.
	if resp.StatusCode == http.StatusNotFound {
		o.logger.Warn("speech endpoint unavailable, degrading to text", "status", resp.StatusCode)
		return &Result{
			Kind:        KindText,
			Data:        []byte(req.Text),
			ContentType: "text/plain",
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(fmt.Errorf("read response: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"voice", voice,
		"lang", lang,
		"latency_ms", latency,
	)

	return &Result{
		Kind:        KindAudio,
		Data:        audio,
		ContentType: ContentTypeFor(format),
		Voice:       voice,
		LatencyMs:   latency,
	}, nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// APIError represents an error response from the speech API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("tts [%s]: API error %d: %s", providerOpenAI, e.StatusCode, e.Message)
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("tts [%s]: %w", providerOpenAI, err)
}

// Verify OpenAI implements Synthesizer at compile time.
var _ Synthesizer = (*OpenAI)(nil)
