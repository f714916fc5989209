// Package config loads process configuration for tivivu commands.
// Environment is read exactly once at startup; components receive
// explicit values and never consult os.Getenv themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names for the dialogue backend.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// Config holds all tunable parameters for the tivivu server.
type Config struct {
	// Server
	Port     string
	LogLevel string

	// Storage. Empty DatabaseURL selects the in-memory store (dev mode).
	DatabaseURL string

	// Dialogue provider selection: "openai" or "openrouter".
	AIProvider string

	// OpenAI
	OpenAIKey     string
	OpenAIBaseURL string
	ChatModel     string

	// OpenRouter
	OpenRouterKey     string
	OpenRouterModel   string
	OpenRouterReferer string
	OpenRouterTitle   string

	// Generation
	Temperature    float64
	MaxTokens      int
	MaxTokensTitle int

	// Dialogue shaping. Zero values keep the assistant defaults.
	HistoryLimit      int
	TitleHistoryLimit int
	FallbackReply     string

	// Speech
	STTModel        string
	TTSModel        string
	TTSAudioEnabled bool
	VoiceEN         string
	VoiceVI         string
	VoiceDefault    string

	// Request handling
	BodyLimit      int
	RequestTimeout time.Duration

	// Dev auth tokens, "token:userID" pairs separated by commas.
	AuthTokens map[string]string
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Port:     envOr("PORT", "3000"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		AIProvider: strings.ToLower(envOr("AI_PROVIDER", ProviderOpenAI)),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),

		OpenRouterKey:     os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   envOr("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterReferer: os.Getenv("OPENROUTER_REFERER"),
		OpenRouterTitle:   os.Getenv("OPENROUTER_TITLE"),

		Temperature:    envFloat("OPENAI_TEMPERATURE", 0.7),
		MaxTokens:      envInt("OPENAI_MAX_TOKENS", 0),
		MaxTokensTitle: envInt("OPENAI_MAX_TOKENS_TITLE", 64),

		HistoryLimit:      envInt("HISTORY_LIMIT", 0),
		TitleHistoryLimit: envInt("TITLE_HISTORY_LIMIT", 0),
		FallbackReply:     os.Getenv("FALLBACK_REPLY"),

		STTModel:        envOr("OPENAI_STT_MODEL", "gpt-4o-mini-transcribe"),
		TTSModel:        envOr("OPENAI_TTS_MODEL", "gpt-4o-mini-tts"),
		TTSAudioEnabled: envBool("TTS_AUDIO_ENABLED", true),
		VoiceEN:         os.Getenv("OPENAI_VOICE_EN"),
		VoiceVI:         os.Getenv("OPENAI_VOICE_VI"),
		VoiceDefault:    envOr("OPENAI_VOICE_DEFAULT", "alloy"),

		BodyLimit:      envInt("JSON_BODY_LIMIT", 10*1024*1024),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SEC", 120)) * time.Second,

		AuthTokens: parseTokens(os.Getenv("AUTH_TOKENS")),
	}
}

// envOr returns the env value or the fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// parseTokens parses "token:userID,token:userID" into a lookup map.
func parseTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		tok, user, ok := strings.Cut(pair, ":")
		if !ok || tok == "" || user == "" {
			continue
		}
		tokens[tok] = user
	}
	return tokens
}
