// Package web exposes the tivivu HTTP API: conversation CRUD, the voice
// turn endpoint, speech utilities and the live event websocket.
package web

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/tivivu/tivivu/internal/httpc"
	"github.com/tivivu/tivivu/pkg/assistant"
	"github.com/tivivu/tivivu/pkg/hub"
	"github.com/tivivu/tivivu/pkg/store"
	"github.com/tivivu/tivivu/pkg/stt"
	"github.com/tivivu/tivivu/pkg/tts"
	"github.com/tivivu/tivivu/pkg/voice"
)

// DefaultBodyLimit accommodates base64 audio uploads.
const DefaultBodyLimit = 10 * 1024 * 1024

// DefaultDictionaryBaseURL is the free dictionary the define endpoint
// proxies to.
const DefaultDictionaryBaseURL = "https://api.dictionaryapi.dev/api/v2/entries"

// Deps are the components the server routes requests to.
type Deps struct {
	Store        store.Store
	Assistant    *assistant.Assistant
	Orchestrator *voice.Orchestrator
	Transcriber  stt.Transcriber
	Synthesizer  tts.Synthesizer
	Auth         Authenticator
	Logger       *slog.Logger

	// BodyLimit caps request bodies; zero selects DefaultBodyLimit.
	BodyLimit int

	// DictionaryBaseURL overrides the define proxy target.
	DictionaryBaseURL string

	// HTTPClient is used for outbound proxy calls.
	HTTPClient *http.Client
}

// Server is the tivivu HTTP API server.
type Server struct {
	app          *fiber.App
	store        store.Store
	assistant    *assistant.Assistant
	orchestrator *voice.Orchestrator
	transcriber  stt.Transcriber
	synthesizer  tts.Synthesizer
	auth         Authenticator
	events       *hub.Hub
	logger       *slog.Logger
	dictBase     string
	http         *http.Client
}

// NewServer creates the server and registers all routes.
func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	bodyLimit := deps.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	dictBase := deps.DictionaryBaseURL
	if dictBase == "" {
		dictBase = DefaultDictionaryBaseURL
	}
	client := deps.HTTPClient
	if client == nil {
		client = httpc.Client
	}

	s := &Server{
		store:        deps.Store,
		assistant:    deps.Assistant,
		orchestrator: deps.Orchestrator,
		transcriber:  deps.Transcriber,
		synthesizer:  deps.Synthesizer,
		auth:         deps.Auth,
		events:       hub.New("events", log),
		logger:       log.With("component", "web"),
		dictBase:     dictBase,
		http:         client,
	}

	if s.orchestrator != nil {
		s.orchestrator.OnEvent(func(ev voice.Event) {
			s.events.BroadcastEvent(hub.Event{
				Type:           ev.Type,
				ConversationID: ev.ConversationID,
				Payload:        ev.Payload,
			})
		})
	}

	app := fiber.New(fiber.Config{
		AppName:               "tivivu",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	app.Get("/status", func(c *fiber.Ctx) error {
		return c.SendString("API is running")
	})

	// Websocket routes are registered before the auth middleware: the
	// hub is broadcast-only and browser clients cannot set headers.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	api := app.Group("/", s.requireAuth)

	api.Get("/conversations", s.handleListConversations)
	api.Post("/conversations", s.handleCreateConversation)
	api.Delete("/conversations/cleanup-empty", s.handleCleanupEmpty)
	api.Get("/conversations/:id", s.handleGetConversation)
	api.Delete("/conversations/:id", s.handleDeleteConversation)
	api.Get("/conversations/:id/messages", s.handleListMessages)
	api.Post("/conversations/:id/messages", s.handlePostMessage)

	api.Post("/stt", s.handleSpeechToText)
	api.Post("/tts", s.handleTextToSpeech)
	api.Post("/voice-chat", s.handleVoiceChat)

	api.Post("/translate", s.handleTranslate)
	api.Get("/ai/test", s.handleAITest)

	api.Get("/vocab/define", s.handleDefineWord)
	api.Get("/vocab", s.handleListVocabulary)
	api.Post("/vocab", s.handleAddVocabulary)
	api.Delete("/vocab/:id", s.handleDeleteVocabulary)

	s.app = app
	return s
}

// Listen starts the server on the given port.
func (s *Server) Listen(port string) error {
	go s.events.Run()
	s.logger.Info("listening", "port", port)
	return s.app.Listen(":" + port)
}

// App exposes the fiber app, used by tests via app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Events returns the broadcast hub for live conversation events.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleEventsWS attaches a websocket listener to the event hub.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.events, c).Run()
}
