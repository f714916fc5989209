package session

import (
	"sync"
	"time"

	"github.com/tivivu/tivivu/pkg/audioio"
)

// Silence detection defaults.
const (
	// DefaultSilenceWindow is the short-time analysis window.
	DefaultSilenceWindow = 200 * time.Millisecond

	// DefaultSilenceAfter is how long amplitude must stay below the
	// threshold before silence is signalled.
	DefaultSilenceAfter = 2000 * time.Millisecond

	// DefaultSilenceThreshold is the normalized mean amplitude below
	// which a window counts as quiet.
	DefaultSilenceThreshold = 0.02
)

// SilenceDetector watches a live audio stream and fires once when the
// mean amplitude stays below a fixed threshold for a configured span.
// It is clocked by the audio itself, not by wall time: each observed
// chunk advances the window by its duration.
type SilenceDetector struct {
	window    time.Duration
	after     time.Duration
	threshold float64

	mu        sync.Mutex
	active    bool
	fired     bool
	onSilence func()

	windowSum     float64
	windowChunks  int
	windowElapsed time.Duration
	quietFor      time.Duration
}

// SilenceOption configures a SilenceDetector.
type SilenceOption func(*SilenceDetector)

// WithSilenceWindow sets the analysis window size.
func WithSilenceWindow(d time.Duration) SilenceOption {
	return func(s *SilenceDetector) { s.window = d }
}

// WithSilenceAfter sets how long quiet must last before firing.
func WithSilenceAfter(d time.Duration) SilenceOption {
	return func(s *SilenceDetector) { s.after = d }
}

// WithSilenceThreshold sets the quiet amplitude threshold.
func WithSilenceThreshold(v float64) SilenceOption {
	return func(s *SilenceDetector) { s.threshold = v }
}

// NewSilenceDetector creates a detector with the default policy.
func NewSilenceDetector(opts ...SilenceOption) *SilenceDetector {
	s := &SilenceDetector{
		window:    DefaultSilenceWindow,
		after:     DefaultSilenceAfter,
		threshold: DefaultSilenceThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms the detector. The callback fires at most once per Start.
func (s *SilenceDetector) Start(onSilence func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.fired = false
	s.onSilence = onSilence
	s.reset()
}

// Stop disarms the detector and discards accumulated state.
func (s *SilenceDetector) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.onSilence = nil
	s.reset()
}

// Observe feeds one captured chunk into the detector.
func (s *SilenceDetector) Observe(chunk audioio.AudioChunk) {
	s.mu.Lock()

	if !s.active || s.fired {
		s.mu.Unlock()
		return
	}

	dur := time.Duration(chunk.Duration() * float64(time.Second))
	s.windowSum += chunk.MeanAmplitude()
	s.windowChunks++
	s.windowElapsed += dur

	if s.windowElapsed < s.window {
		s.mu.Unlock()
		return
	}

	mean := s.windowSum / float64(s.windowChunks)
	elapsed := s.windowElapsed
	s.windowSum = 0
	s.windowChunks = 0
	s.windowElapsed = 0

	if mean < s.threshold {
		s.quietFor += elapsed
	} else {
		s.quietFor = 0
	}

	if s.quietFor >= s.after {
		s.fired = true
		fn := s.onSilence
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
		return
	}
	s.mu.Unlock()
}

// reset clears window accumulation. Must be called with the lock held.
func (s *SilenceDetector) reset() {
	s.windowSum = 0
	s.windowChunks = 0
	s.windowElapsed = 0
	s.quietFor = 0
}
