package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// EnvelopeStep scripts one span of the mock's amplitude envelope.
type EnvelopeStep struct {
	// Amplitude in [0, 1]. Zero generates silence.
	Amplitude float64

	// Duration the step lasts. The final step repeats forever.
	Duration time.Duration
}

// MockSource is a synthetic audio source for testing. It generates a
// sine wave shaped by an optional amplitude envelope, so tests can model
// speech followed by silence.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}

	phase     float64
	frequency float64
	amplitude float64
	envelope  []EnvelopeStep
	elapsed   time.Duration
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithEnvelope scripts the amplitude over time. Each generated chunk
// advances the envelope clock by the chunk duration.
func WithEnvelope(steps ...EnvelopeStep) MockSourceOption {
	return func(m *MockSource) {
		m.envelope = steps
		if m.frequency == 0 {
			m.frequency = 440
		}
	}
}

// NewMockSource creates a new mock audio source. By default it emits
// silence.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		streamCh:  make(chan AudioChunk, 16),
		stopCh:    make(chan struct{}),
		amplitude: 0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins generating audio.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.elapsed = 0
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 16)

	go m.generateLoop(ctx)

	m.logger.Debug("mock audio source started", "sample_rate", m.cfg.SampleRate)
	return nil
}

func (m *MockSource) generateLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.BufferDuration)
	defer ticker.Stop()
	defer close(m.streamCh)

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			chunk := m.generateChunk()
			select {
			case m.streamCh <- chunk:
			default:
				m.logger.Debug("mock source: buffer full, dropping chunk")
			}
		}
	}
}

func (m *MockSource) generateChunk() AudioChunk {
	m.mu.Lock()
	amplitude := m.currentAmplitude()
	m.elapsed += m.cfg.BufferDuration
	m.mu.Unlock()

	bufferSize := m.cfg.BufferSize()
	samples := make([]int16, bufferSize*m.cfg.Channels)

	if m.frequency > 0 && amplitude > 0 {
		for i := 0; i < bufferSize; i++ {
			sample := amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate))
			sampleInt := int16(sample * 32767)
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = sampleInt
			}
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}

	return AudioChunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
}

// currentAmplitude resolves the envelope at the current clock.
// Must be called with the mutex held.
func (m *MockSource) currentAmplitude() float64 {
	if len(m.envelope) == 0 {
		return m.amplitude
	}
	at := m.elapsed
	for i, step := range m.envelope {
		if i == len(m.envelope)-1 || at < step.Duration {
			return step.Amplitude
		}
		at -= step.Duration
	}
	return 0
}

// Stop halts audio generation.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	// The generate goroutine closes the stream channel on exit.
	close(m.stopCh)

	m.logger.Debug("mock audio source stopped")
	return nil
}

// Read reads the next audio chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-m.streamCh:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the audio chunk channel.
func (m *MockSource) Stream() <-chan AudioChunk {
	return m.streamCh
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.Stop()
	return nil
}

// Running reports whether the source is currently capturing.
func (m *MockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Verify MockSource implements Source at compile time.
var _ Source = (*MockSource)(nil)
