package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// OperationStats aggregates the outcomes of one service operation.
type OperationStats struct {
	Success         int64   `json:"success"`
	Error           int64   `json:"error"`
	TotalDurationMS float64 `json:"total_duration_ms"`
	MaxDurationMS   float64 `json:"max_duration_ms"`
}

// ExpvarMetricsSnapshot is a point-in-time copy of recorded operation stats.
type ExpvarMetricsSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// ExpvarMetricsRecorder publishes per-operation counters under an expvar
// name, served by the default /debug/vars handler.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name. An empty name is
// replaced by a generated unique one; expvar names cannot be reused.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("communityconnect_service_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns a copy of the aggregated stats.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]OperationStats, len(r.ops))
	for op, stats := range r.ops {
		ops[op] = stats
	}
	return ExpvarMetricsSnapshot{Operations: ops, RecordedAt: time.Now().UTC()}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.ops[operation]
	if success {
		stats.Success++
	} else {
		stats.Error++
	}
	stats.TotalDurationMS += ms
	if ms > stats.MaxDurationMS {
		stats.MaxDurationMS = ms
	}
	r.ops[operation] = stats
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps the most
// recent ones in memory.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	limit   int
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w (which may be nil) and keeping
// up to limit spans; a non-positive limit keeps every span.
func NewJSONTracer(w io.Writer, limit int) *JSONTraceTracer {
	t := &JSONTraceTracer{limit: limit}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the retained spans, oldest first.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
	once      sync.Once
}

func (s *jsonTraceSpan) End(err error) {
	s.once.Do(func() {
		ended := time.Now().UTC()
		entry := JSONTraceEntry{
			Operation:  s.operation,
			Status:     string(AuditStatusSuccess),
			DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
			StartedAt:  s.started,
			EndedAt:    ended,
		}
		if err != nil {
			entry.Status = string(AuditStatusError)
			entry.Error = err.Error()
		}
		s.tracer.record(entry)
	})
}

func (t *JSONTraceTracer) record(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.limit > 0 && len(t.entries) > t.limit {
		t.entries = t.entries[len(t.entries)-t.limit:]
	}
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}
