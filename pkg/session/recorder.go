package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tivivu/tivivu/pkg/audioio"
)

// ErrMicrophoneUnavailable is returned when the audio stream cannot be
// acquired. The session stays idle in that case.
var ErrMicrophoneUnavailable = errors.New("session: microphone unavailable")

// ErrNotRecording is returned by Stop when no capture is in progress.
var ErrNotRecording = errors.New("session: not recording")

// Recording is one captured utterance ready for upload.
type Recording struct {
	Data     []byte
	MIMEType string
	Seconds  float64
}

// Recorder captures one utterance at a time from an audio source and
// packages it as a WAV blob. The source stream is released on every
// exit path, including failures.
type Recorder struct {
	source audioio.Source

	mu        sync.Mutex
	recording bool
	samples   []int16
	done      chan struct{}

	// onChunk taps the live stream, for the silence detector.
	onChunk func(audioio.AudioChunk)
}

// NewRecorder creates a recorder over the given source.
func NewRecorder(source audioio.Source) *Recorder {
	return &Recorder{source: source}
}

// OnChunk registers a tap on the live capture stream. Must be set
// before Start.
func (r *Recorder) OnChunk(fn func(audioio.AudioChunk)) {
	r.onChunk = fn
}

// Start acquires the stream and begins collecting samples.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return nil
	}
	if err := r.source.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}
	r.recording = true
	r.samples = r.samples[:0]
	r.done = make(chan struct{})

	go r.collect()
	return nil
}

func (r *Recorder) collect() {
	defer close(r.done)
	for chunk := range r.source.Stream() {
		r.mu.Lock()
		r.samples = append(r.samples, chunk.Samples...)
		r.mu.Unlock()
		if r.onChunk != nil {
			r.onChunk(chunk)
		}
	}
}

// Stop releases the stream and returns the captured utterance.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.recording = false
	done := r.done
	r.mu.Unlock()

	// Stream release happens before the blob is assembled so the mic is
	// free even if encoding fails.
	r.source.Stop()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.source.Config()
	rec := &Recording{
		Data:     audioio.EncodeWAV(r.samples, cfg.SampleRate, cfg.Channels),
		MIMEType: "audio/wav",
		Seconds:  float64(len(r.samples)) / float64(cfg.SampleRate*cfg.Channels),
	}
	r.samples = nil
	return rec, nil
}

// Abort releases the stream and discards any captured samples.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	done := r.done
	r.mu.Unlock()

	r.source.Stop()
	<-done

	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
