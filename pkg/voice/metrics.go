package voice

import (
	"sync"
	"time"
)

// Metrics tracks latency at each stage of one voice turn.
// All durations are measured from the moment the turn started.
type Metrics struct {
	TurnStartTime  time.Time // When the request entered the pipeline
	TranscriptTime time.Time // When transcription completed
	ReplyTime      time.Time // When the reply text was ready
	SynthesisTime  time.Time // When synthesis completed
	TurnDoneTime   time.Time // When the turn fully finished

	STTLatency   time.Duration // Time to complete transcription
	LLMLatency   time.Duration // Time to reply text (includes STT)
	TTSLatency   time.Duration // Time to synthesized audio (includes LLM)
	TotalLatency time.Duration // Total end-to-end latency
}

// MetricsCollector collects latency metrics across turns.
// It is goroutine-safe.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
	history []Metrics

	onUpdate func(Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]Metrics, 0, 100),
	}
}

// OnUpdate sets a callback that fires whenever a turn completes.
func (m *MetricsCollector) OnUpdate(fn func(Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// MarkTurnStart resets the current turn. This is the reference point for
// all latency measurements.
func (m *MetricsCollector) MarkTurnStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Metrics{}
	m.current.TurnStartTime = time.Now()
}

// MarkTranscript records when transcription completed.
func (m *MetricsCollector) MarkTranscript() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.TranscriptTime = time.Now()
	if !m.current.TurnStartTime.IsZero() {
		m.current.STTLatency = m.current.TranscriptTime.Sub(m.current.TurnStartTime)
	}
}

// MarkReply records when the reply text was ready.
func (m *MetricsCollector) MarkReply() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.ReplyTime = time.Now()
	if !m.current.TurnStartTime.IsZero() {
		m.current.LLMLatency = m.current.ReplyTime.Sub(m.current.TurnStartTime)
	}
}

// MarkSynthesis records when synthesis completed.
func (m *MetricsCollector) MarkSynthesis() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.SynthesisTime = time.Now()
	if !m.current.TurnStartTime.IsZero() {
		m.current.TTSLatency = m.current.SynthesisTime.Sub(m.current.TurnStartTime)
	}
}

// MarkTurnDone archives the completed turn.
func (m *MetricsCollector) MarkTurnDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.TurnDoneTime = time.Now()
	if !m.current.TurnStartTime.IsZero() {
		m.current.TotalLatency = m.current.TurnDoneTime.Sub(m.current.TurnStartTime)
	}
	m.history = append(m.history, m.current)
	if len(m.history) > 100 {
		m.history = m.history[1:]
	}
	if m.onUpdate != nil {
		metrics := m.current
		go m.onUpdate(metrics)
	}
}

// Current returns the current metrics snapshot.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Average returns average latencies over recent turns.
func (m *MetricsCollector) Average() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return Metrics{}
	}

	var avg Metrics
	for _, h := range m.history {
		avg.STTLatency += h.STTLatency
		avg.LLMLatency += h.LLMLatency
		avg.TTSLatency += h.TTSLatency
		avg.TotalLatency += h.TotalLatency
	}

	n := time.Duration(len(m.history))
	avg.STTLatency /= n
	avg.LLMLatency /= n
	avg.TTSLatency /= n
	avg.TotalLatency /= n

	return avg
}

// FormatLatency returns a formatted string of current latencies.
func (m *Metrics) FormatLatency() string {
	return formatDuration(m.STTLatency) + " STT | " +
		formatDuration(m.LLMLatency) + " LLM | " +
		formatDuration(m.TTSLatency) + " TTS | " +
		formatDuration(m.TotalLatency) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
