package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tivivu/tivivu/internal/httpc"
	"github.com/tivivu/tivivu/pkg/voice"
)

// API is the server surface the session needs for one voice turn.
type API interface {
	VoiceTurn(ctx context.Context, req *voice.TurnRequest) (*voice.TurnResult, error)
}

// Client talks to the tivivu server over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClientTimeout sets the per-request timeout.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http = httpc.NewClient(d) }
}

// NewClient creates an API client. Voice turns wait on several provider
// calls server-side, so the default timeout is generous.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    httpc.NewClient(2 * time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VoiceTurn uploads one recorded utterance and returns the turn result.
func (c *Client) VoiceTurn(ctx context.Context, req *voice.TurnRequest) (*voice.TurnResult, error) {
	var result voice.TurnResult
	if err := c.postJSON(ctx, "/voice-chat", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transcribe uploads raw audio to the /stt endpoint and returns the
// recognized text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	payload := map[string]string{
		"audioBase64": base64.StdEncoding.EncodeToString(audio),
		"filename":    filename,
		"language":    language,
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/stt", payload, &result); err != nil {
		return "", err
	}
	return result.Text, nil
}

// Synthesize renders text through the /tts endpoint. It returns the
// audio bytes and their content type; a degraded server yields the
// text back as text/plain.
func (c *Client) Synthesize(ctx context.Context, text, voice, format string) ([]byte, string, error) {
	body, err := json.Marshal(map[string]string{
		"text":   text,
		"voice":  voice,
		"format": format,
	})
	if err != nil {
		return nil, "", fmt.Errorf("session: marshal tts request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/tts", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("session: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("session: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("session: server %d: %s", resp.StatusCode, payload)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("session: read audio: %w", err)
	}
	return audio, resp.Header.Get("Content-Type"), nil
}

// postJSON posts a JSON payload and decodes a JSON response, applying
// the shared auth and error handling.
func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("session: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("session: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("session: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload, &errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("session: server %d: %s: %s", resp.StatusCode, errBody.Error, errBody.Message)
		}
		return fmt.Errorf("session: server %d: %s", resp.StatusCode, payload)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Verify Client implements API at compile time.
var _ API = (*Client)(nil)
