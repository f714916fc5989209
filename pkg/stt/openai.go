package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"

	// DefaultModel favors latency over the larger whisper models.
	DefaultModel = "gpt-4o-mini-transcribe"
)

// Config holds transcriber configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Option is a functional option for configuring the transcriber.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// OpenAI implements Transcriber against the OpenAI audio API.
type OpenAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates a new OpenAI transcriber.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := &Config{
		Model:   DefaultModel,
		Timeout: 60 * time.Second,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "stt.openai"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Transcribe uploads the audio buffer and returns the recognized text.
func (o *OpenAI) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Audio) == 0 {
		return nil, ErrNoAudio
	}
	start := time.Now()

	filename := req.Filename
	if filename == "" {
		filename = "audio.webm"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, wrap(fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, wrap(fmt.Errorf("write audio: %w", err))
	}
	if err := mw.WriteField("model", o.config.Model); err != nil {
		return nil, wrap(err)
	}
	// "auto" means unconstrained; the field is omitted entirely.
	if req.Language != "" && req.Language != LanguageAuto {
		if err := mw.WriteField("language", req.Language); err != nil {
			return nil, wrap(err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, wrap(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, wrap(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, wrap(fmt.Errorf("decode response: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("transcribed audio",
		"bytes", len(req.Audio),
		"chars", len(out.Text),
		"latency_ms", latency,
	)

	return &Result{Text: out.Text, LatencyMs: latency}, nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// APIError represents an error response from the transcription API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt [%s]: API error %d: %s", providerOpenAI, e.StatusCode, e.Message)
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
	return fmt.Errorf("stt [%s]: %w", providerOpenAI, err)
}

// Verify OpenAI implements Transcriber at compile time.
var _ Transcriber = (*OpenAI)(nil)
