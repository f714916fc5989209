// Package stt provides speech-to-text transcription for voice turns.
//
// Audio arrives as an opaque buffer (the recorder's container format is
// passed through untouched) and comes back as recognized text. A language
// hint of "auto" or empty leaves detection to the provider.
package stt

import (
	"context"
	"errors"
)

// LanguageAuto is the sentinel hint meaning "let the provider detect".
const LanguageAuto = "auto"

// Request is one transcription request.
type Request struct {
	// Audio is the raw audio buffer in its container format.
	Audio []byte

	// Filename carries the container extension (e.g. "turn.webm");
	// providers use it to identify the format.
	Filename string

	// Language is an ISO language hint, or "auto"/empty for detection.
	Language string
}

// Result is the recognized text for one audio buffer.
type Result struct {
	// Text is the transcript. May be empty for silent audio.
	Text string

	// LatencyMs is the provider round-trip time in milliseconds.
	LatencyMs int64
}

// Transcriber converts an audio buffer to text.
type Transcriber interface {
	// Transcribe recognizes speech in the request's audio buffer.
	// A provider failure is returned as-is; callers must not substitute
	// a fabricated transcript.
	Transcribe(ctx context.Context, req *Request) (*Result, error)

	// Close releases any resources held by the transcriber.
	Close() error
}

// Sentinel errors.
var (
	// ErrNoAudio is returned when the request has an empty audio buffer.
	ErrNoAudio = errors.New("stt: missing audio")

	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")
)
