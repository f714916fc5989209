// tivivu-server: the TiViVu language-learning API.
// Serves conversation CRUD, speech endpoints and the voice-chat turn
// pipeline, and pushes live turn events over a websocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tivivu/tivivu/internal/config"
	"github.com/tivivu/tivivu/internal/log"
	"github.com/tivivu/tivivu/pkg/assistant"
	"github.com/tivivu/tivivu/pkg/llm"
	"github.com/tivivu/tivivu/pkg/store"
	"github.com/tivivu/tivivu/pkg/stt"
	"github.com/tivivu/tivivu/pkg/tts"
	"github.com/tivivu/tivivu/pkg/voice"
	"github.com/tivivu/tivivu/pkg/web"
)

var version = "1.0.0"

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel)
	logger := log.L()

	fmt.Println()
	fmt.Println("🎙️  TiViVu API v" + version)
	fmt.Println("   Voice chat for language learners")
	fmt.Println()

	ctx := context.Background()

	var st store.Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		st = pg
	}

	provider, err := newProvider(cfg)
	if err != nil {
		logger.Error("create dialogue provider", "error", err)
		os.Exit(1)
	}

	transcriber, err := stt.NewOpenAI(
		stt.WithAPIKey(cfg.OpenAIKey),
		stt.WithModel(cfg.STTModel),
		stt.WithTimeout(cfg.RequestTimeout),
		stt.WithLogger(logger),
	)
	if err != nil {
		logger.Error("create transcriber", "error", err)
		os.Exit(1)
	}

	ttsOpts := []tts.Option{
		tts.WithAPIKey(cfg.OpenAIKey),
		tts.WithModel(cfg.TTSModel),
		tts.WithVoices(tts.VoiceMap{
			English:    cfg.VoiceEN,
			Vietnamese: cfg.VoiceVI,
			Default:    cfg.VoiceDefault,
		}),
		tts.WithTimeout(cfg.RequestTimeout),
		tts.WithLogger(logger),
	}
	if !cfg.TTSAudioEnabled {
		logger.Warn("TTS audio disabled, replies degrade to text")
		ttsOpts = append(ttsOpts, tts.WithAudioDisabled())
	}
	synthesizer, err := tts.NewOpenAI(ttsOpts...)
	if err != nil {
		logger.Error("create synthesizer", "error", err)
		os.Exit(1)
	}

	asstOpts := []assistant.Option{
		assistant.WithTemperature(cfg.Temperature),
		assistant.WithMaxTokens(cfg.MaxTokens),
		assistant.WithTitleMaxTokens(cfg.MaxTokensTitle),
		assistant.WithLogger(logger),
	}
	if cfg.HistoryLimit > 0 {
		asstOpts = append(asstOpts, assistant.WithHistoryLimit(cfg.HistoryLimit))
	}
	if cfg.TitleHistoryLimit > 0 {
		asstOpts = append(asstOpts, assistant.WithTitleHistoryLimit(cfg.TitleHistoryLimit))
	}
	asst := assistant.New(provider, st, asstOpts...)

	voiceOpts := []voice.Option{voice.WithLogger(logger)}
	if cfg.FallbackReply != "" {
		voiceOpts = append(voiceOpts, voice.WithFallbackReply(cfg.FallbackReply))
	}
	orchestrator := voice.New(transcriber, asst, synthesizer, st, voiceOpts...)

	if len(cfg.AuthTokens) == 0 {
		logger.Warn("AUTH_TOKENS not set, every request will be rejected")
	}

	server := web.NewServer(web.Deps{
		Store:        st,
		Assistant:    asst,
		Orchestrator: orchestrator,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		Auth:         web.StaticTokens(cfg.AuthTokens),
		Logger:       logger,
		BodyLimit:    cfg.BodyLimit,
	})

	go func() {
		logger.Info("🚀 starting server",
			"port", cfg.Port,
			"provider", cfg.AIProvider,
			"stt_model", cfg.STTModel,
			"tts_model", cfg.TTSModel,
		)
		if err := server.Listen(cfg.Port); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("👋 shutting down")

	if err := server.Shutdown(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	transcriber.Close()
	synthesizer.Close()
	provider.Close()
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}
}

// newProvider builds the dialogue backend selected by AI_PROVIDER.
func newProvider(cfg config.Config) (llm.Provider, error) {
	switch cfg.AIProvider {
	case config.ProviderOpenRouter:
		return llm.NewOpenRouter(
			llm.WithAPIKey(cfg.OpenRouterKey),
			llm.WithModel(cfg.OpenRouterModel),
			llm.WithAttribution(cfg.OpenRouterReferer, cfg.OpenRouterTitle),
			llm.WithTemperature(cfg.Temperature),
			llm.WithMaxTokens(cfg.MaxTokens),
			llm.WithTimeout(cfg.RequestTimeout),
		)
	default:
		return llm.NewOpenAI(
			llm.WithAPIKey(cfg.OpenAIKey),
			llm.WithBaseURL(cfg.OpenAIBaseURL),
			llm.WithModel(cfg.ChatModel),
			llm.WithTemperature(cfg.Temperature),
			llm.WithMaxTokens(cfg.MaxTokens),
			llm.WithTimeout(cfg.RequestTimeout),
		)
	}
}
