package tts

import (
	"context"
	"sync"
)

// Mock implements Synthesizer for testing.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a small fake audio buffer.
	SynthesizeFunc func(ctx context.Context, req *Request) (*Result, error)

	mu    sync.Mutex
	calls []*Request
}

// NewMock creates a mock that returns fake MP3 audio sized to the text.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return &Result{
				Kind:        KindAudio,
				Data:        make([]byte, len(req.Text)*4),
				ContentType: "audio/mp3",
				Voice:       DefaultVoice,
				LatencyMs:   1,
			}, nil
		},
	}
}

// Degraded returns a mock that always takes the degraded text path.
func Degraded() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return &Result{
				Kind:        KindText,
				Data:        []byte(req.Text),
				ContentType: "text/plain",
			}, nil
		},
	}
}

// WithError returns a mock that always fails.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return nil, err
		},
	}
}

// Synthesize calls SynthesizeFunc and records the request.
func (m *Mock) Synthesize(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Text == "" {
		return nil, ErrNoText
	}
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, ErrNoText
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Calls returns all recorded requests.
func (m *Mock) Calls() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Verify Mock implements Synthesizer at compile time.
var _ Synthesizer = (*Mock)(nil)
