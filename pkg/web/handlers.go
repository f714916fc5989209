package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tivivu/tivivu/pkg/hub"
	"github.com/tivivu/tivivu/pkg/store"
	"github.com/tivivu/tivivu/pkg/stt"
	"github.com/tivivu/tivivu/pkg/tts"
	"github.com/tivivu/tivivu/pkg/voice"
)

// conversationNotFound is the body for lookups that miss or cross an
// ownership boundary. The two cases are indistinguishable on purpose.
var conversationNotFound = fiber.Map{"message": "Conversation not found"}

func errorBody(code string, err error) fiber.Map {
	return fiber.Map{"error": code, "message": err.Error()}
}

func decodeBase64(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio")
	}
	return data, nil
}

// GET /conversations -> { conversations }
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	conversations, err := s.store.ListConversations(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

// POST /conversations { title? } -> 201 { conversation }
func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var body struct {
		Title string `json:"title"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid body"})
		}
	}
	convo, err := s.store.CreateConversation(c.Context(), userID(c), body.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": convo})
}

// DELETE /conversations/cleanup-empty -> { removed }
func (s *Server) handleCleanupEmpty(c *fiber.Ctx) error {
	removed, err := s.store.CleanupEmptyConversations(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// GET /conversations/:id -> { conversation }
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	convo, err := s.store.GetConversation(c.Context(), c.Params("id"), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(conversationNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"conversation": convo})
}

// DELETE /conversations/:id -> 204
func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	err := s.store.DeleteConversation(c.Context(), c.Params("id"), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(conversationNotFound)
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /conversations/:id/messages -> { messages }
func (s *Server) handleListMessages(c *fiber.Ctx) error {
	messages, err := s.store.ListMessages(c.Context(), c.Params("id"), userID(c), 0)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(conversationNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// POST /conversations/:id/messages { content } -> 201 { userMessage, assistantMessage }
//
// The text-chat twin of the voice turn: same persistence order, same
// fallback when the reply fails, same opportunistic retitle.
func (s *Server) handlePostMessage(c *fiber.Ctx) error {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "content is required"})
	}

	conversationID := c.Params("id")
	user := userID(c)

	userMsg, err := s.store.CreateMessage(c.Context(), conversationID, user, store.RoleUser, body.Content)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(conversationNotFound)
	}
	if err != nil {
		return err
	}

	reply, err := s.assistant.Reply(c.Context(), conversationID, user, body.Content, nil)
	if err != nil {
		s.logger.Warn("reply generation failed, using fallback", "error", err, "conversation_id", conversationID)
		reply = voice.DefaultFallbackReply
	}
	assistantMsg, err := s.store.CreateMessage(c.Context(), conversationID, user, store.RoleAssistant, reply)
	if err != nil {
		return err
	}

	if title, ok := s.assistant.RetitleIfGeneric(c.Context(), conversationID, user); ok {
		s.events.BroadcastEvent(hub.Event{Type: voice.EventTitle, ConversationID: conversationID, Payload: title})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"userMessage":      userMsg,
		"assistantMessage": assistantMsg,
	})
}

// POST /stt { audioBase64, filename?, language? } -> { text }
func (s *Server) handleSpeechToText(c *fiber.Ctx) error {
	var body struct {
		AudioBase64 string `json:"audioBase64"`
		Filename    string `json:"filename"`
		Language    string `json:"language"`
	}
	if err := c.BodyParser(&body); err != nil || body.AudioBase64 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing audio. Provide `audioBase64`."})
	}
	audio, err := decodeBase64(body.AudioBase64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing audio. Provide `audioBase64`."})
	}

	result, err := s.transcriber.Transcribe(c.Context(), &stt.Request{
		Audio:    audio,
		Filename: body.Filename,
		Language: body.Language,
	})
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("stt_failed", err))
	}
	return c.JSON(fiber.Map{"text": result.Text})
}

// POST /tts { text, voice?, format? } -> audio binary
func (s *Server) handleTextToSpeech(c *fiber.Ctx) error {
	var body struct {
		Text   string `json:"text"`
		Voice  string `json:"voice"`
		Format string `json:"format"`
	}
	if err := c.BodyParser(&body); err != nil || body.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing text"})
	}

	result, err := s.synthesizer.Synthesize(c.Context(), &tts.Request{
		Text:   body.Text,
		Voice:  body.Voice,
		Format: body.Format,
	})
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("tts_failed", err))
	}
	c.Set(fiber.HeaderContentType, result.ContentType)
	return c.Send(result.Data)
}

// POST /voice-chat -> the full turn as JSON, audio base64-encoded.
func (s *Server) handleVoiceChat(c *fiber.Ctx) error {
	var req voice.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing audio. Provide `audioBase64`."})
	}
	req.UserID = userID(c)

	result, err := s.orchestrator.RunTurn(c.Context(), &req)
	switch {
	case errors.Is(err, voice.ErrNoAudio):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing audio. Provide `audioBase64`."})
	case errors.Is(err, voice.ErrTranscriptionFailed):
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("stt_failed", err))
	case errors.Is(err, voice.ErrSynthesisFailed):
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("tts_failed", err))
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(conversationNotFound)
	case err != nil:
		return err
	}
	return c.JSON(result)
}

const translatePromptFormat = "You are a translation engine. Translate the input into %s and return only the translation without extra commentary.\nInput: %s"

// POST /translate { text, targetLang? } -> { translated }
func (s *Server) handleTranslate(c *fiber.Ctx) error {
	var body struct {
		Text       string `json:"text"`
		TargetLang string `json:"targetLang"`
	}
	if err := c.BodyParser(&body); err != nil || body.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing text"})
	}
	if body.TargetLang == "" {
		body.TargetLang = "en"
	}

	translated, err := s.assistant.SimplePrompt(c.Context(), fmt.Sprintf(translatePromptFormat, body.TargetLang, body.Text))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("translate_failed", err))
	}
	return c.JSON(fiber.Map{"translated": translated})
}

// GET /ai/test -> { ok, reply }
func (s *Server) handleAITest(c *fiber.Ctx) error {
	reply, err := s.assistant.SimplePrompt(c.Context(), "Say 'pong' in one short sentence.")
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "reply": reply})
}

// Dictionary proxy payload, trimmed to what the client renders.
type dictPhonetic struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

type dictDefinition struct {
	Definition string `json:"definition"`
	Example    string `json:"example,omitempty"`
}

type dictMeaning struct {
	PartOfSpeech string           `json:"partOfSpeech"`
	Definitions  []dictDefinition `json:"definitions"`
}

type dictEntry struct {
	Word      string         `json:"word"`
	Phonetic  string         `json:"phonetic,omitempty"`
	Phonetics []dictPhonetic `json:"phonetics"`
	Meanings  []dictMeaning  `json:"meanings"`
}

// GET /vocab/define?word=hello&lang=en -> { entries }
func (s *Server) handleDefineWord(c *fiber.Ctx) error {
	word := c.Query("word")
	if word == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing word"})
	}
	lang := c.Query("lang", "en")

	target := s.dictBase + "/" + url.PathEscape(lang) + "/" + url.PathEscape(word)
	httpReq, err := http.NewRequestWithContext(c.Context(), http.MethodGet, target, nil)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("define_failed", err))
	}
	resp, err := s.http.Do(httpReq)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("define_failed", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return c.Status(resp.StatusCode).JSON(fiber.Map{"error": "define_failed", "message": string(msg)})
	}

	var entries []dictEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorBody("define_failed", err))
	}
	for i := range entries {
		kept := entries[i].Phonetics[:0]
		for _, p := range entries[i].Phonetics {
			if p.Text != "" || p.Audio != "" {
				kept = append(kept, p)
			}
		}
		entries[i].Phonetics = kept
		for j, m := range entries[i].Meanings {
			if len(m.Definitions) > 3 {
				entries[i].Meanings[j].Definitions = m.Definitions[:3]
			}
		}
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// headwordPattern accepts single English words including apostrophes
// and hyphens ("don't", "mother-in-law").
var headwordPattern = regexp.MustCompile(`^[a-zA-Z'-]+$`)

const meaningPromptFormat = "You are a bilingual glossary helper. Provide a concise Vietnamese meaning for the English headword below. Return only the short Vietnamese meaning (a few comma-separated synonyms if applicable), no extra text.\nHeadword: %s"

// GET /vocab -> { items }
func (s *Server) handleListVocabulary(c *fiber.Ctx) error {
	items, err := s.store.ListVocabulary(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// POST /vocab { word, lang?, meaningVi?, notes?, source? } -> 201 { item }
func (s *Server) handleAddVocabulary(c *fiber.Ctx) error {
	var body struct {
		Word      string `json:"word"`
		Lang      string `json:"lang"`
		MeaningVI string `json:"meaningVi"`
		Notes     string `json:"notes"`
		Source    string `json:"source"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Word) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing word"})
	}
	if body.Lang == "" {
		body.Lang = "en"
	}
	word := strings.TrimSpace(body.Word)
	if body.Lang != "en" || !headwordPattern.MatchString(word) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only single English words can be saved"})
	}

	// Fill the Vietnamese meaning opportunistically; a provider failure
	// just leaves it empty.
	if body.MeaningVI == "" {
		if meaning, err := s.assistant.SimplePrompt(c.Context(), fmt.Sprintf(meaningPromptFormat, word)); err == nil {
			body.MeaningVI = meaning
		}
	}

	item, err := s.store.AddVocabulary(c.Context(), &store.Vocabulary{
		Word:      word,
		Lang:      body.Lang,
		MeaningVI: body.MeaningVI,
		Notes:     body.Notes,
		Source:    body.Source,
		UserID:    userID(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"item": item})
}

// DELETE /vocab/:id -> { removed }
func (s *Server) handleDeleteVocabulary(c *fiber.Ctx) error {
	err := s.store.DeleteVocabulary(c.Context(), c.Params("id"), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(fiber.Map{"removed": 0})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": 1})
}
