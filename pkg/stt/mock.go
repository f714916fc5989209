package stt

import (
	"context"
	"sync"
)

// Mock implements Transcriber for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns a fixed transcript.
	TranscribeFunc func(ctx context.Context, req *Request) (*Result, error)

	mu    sync.Mutex
	calls []*Request
}

// NewMock creates a mock that returns the given transcript.
func NewMock(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return &Result{Text: text, LatencyMs: 1}, nil
		},
	}
}

// WithError returns a mock that always fails.
func WithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return nil, err
		},
	}
}

// Transcribe calls TranscribeFunc and records the request.
func (m *Mock) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Audio) == 0 {
		return nil, ErrNoAudio
	}
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, req)
	}
	return &Result{}, nil
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

// Verify Mock implements Transcriber at compile time.
var _ Transcriber = (*Mock)(nil)
