package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	openRouterBaseURL  = "https://openrouter.ai/api/v1"
	providerOpenRouter = "openrouter"
)

// OpenRouter implements Provider against the OpenRouter routing API.
// OpenRouter speaks the OpenAI chat-completions wire format and adds
// optional attribution headers.
type OpenRouter struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOpenRouter creates a new OpenRouter completion provider.
func NewOpenRouter(opts ...Option) (*OpenRouter, error) {
	cfg := DefaultConfig()
	cfg.Model = "openai/gpt-4o-mini"
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	return &OpenRouter{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "llm.openrouter"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// headers returns auth plus the optional attribution headers.
func (o *OpenRouter) headers() map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + o.config.APIKey,
	}
	if o.config.Referer != "" {
		h["HTTP-Referer"] = o.config.Referer
	}
	if o.config.Title != "" {
		h["X-Title"] = o.config.Title
	}
	return h
}

// Complete generates a chat completion through OpenRouter.
func (o *OpenRouter) Complete(ctx context.Context, req *Request) (*Response, error) {
	return complete(ctx, o.client, o.logger, completeParams{
		provider: providerOpenRouter,
		url:      o.baseURL + "/chat/completions",
		headers:  o.headers(),
		config:   o.config,
		request:  req,
	})
}

// Health checks API connectivity and key validity.
func (o *OpenRouter) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerOpenRouter, err)
	}
	for k, v := range o.headers() {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return WrapError(providerOpenRouter, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(providerOpenRouter, resp)
	}
	return nil
}

// Close releases resources.
func (o *OpenRouter) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// Verify OpenRouter implements Provider at compile time.
var _ Provider = (*OpenRouter)(nil)
