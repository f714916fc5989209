// Package tts provides text-to-speech synthesis for assistant replies.
//
// Replies are synthesized by the OpenAI audio API. When the requested voice
// is "auto", the voice is picked from the detected reply language (English
// or Vietnamese, resolved by a diacritic heuristic). When the provider's
// audio capability is unavailable the synthesizer degrades to returning the
// reply text as plain-text bytes; callers must check Result.Kind instead of
// assuming binary audio.
package tts

import (
	"context"
	"errors"
)

// VoiceAuto is the sentinel voice meaning "resolve from language".
const VoiceAuto = "auto"

// Supported output formats.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// Kind tags a synthesis result.
type Kind string

const (
	// KindAudio is a binary audio buffer in the requested format.
	KindAudio Kind = "audio"

	// KindText is the degraded fallback: the reply text as UTF-8 bytes.
	KindText Kind = "text"
)

// Request is one synthesis request.
type Request struct {
	// Text is the reply to render.
	Text string

	// Voice is a provider voice name, or "auto"/empty to resolve from
	// the detected language.
	Voice string

	// Format is the output container: "mp3" (default) or "wav".
	Format string

	// Language is an explicit language code overriding detection.
	Language string
}

// Result is a tagged synthesis result: audio, or degraded text.
type Result struct {
	// Kind discriminates audio from the degraded text fallback.
	Kind Kind

	// Data is the audio buffer, or UTF-8 text bytes when degraded.
	Data []byte

	// ContentType matches Data: "audio/mp3", "audio/wav" or "text/plain".
	ContentType string

	// Voice is the voice the provider was asked to use (empty when degraded).
	Voice string

	// LatencyMs is the provider round-trip time in milliseconds.
	LatencyMs int64
}

// IsAudio reports whether the result carries playable audio.
func (r *Result) IsAudio() bool {
	return r.Kind == KindAudio
}

// Synthesizer converts reply text to audio.
type Synthesizer interface {
	// Synthesize renders the request's text. It returns a degraded
	// text result rather than an error when the audio capability is
	// unavailable; an error means even the degraded path failed.
	Synthesize(ctx context.Context, req *Request) (*Result, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Sentinel errors.
var (
	// ErrNoText is returned when the request has no text.
	ErrNoText = errors.New("tts: missing text")

	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("tts: API key required")
)

// ContentTypeFor returns the response content type for an output format.
func ContentTypeFor(format string) string {
	if format == FormatWAV {
		return "audio/wav"
	}
	return "audio/" + format
}
