package core

import (
	"communityconnect/pkg/domain"
	"context"
	"time"
)

// Clock supplies timestamps for records and audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock. A nil ClockFunc reports time.Now.
type ClockFunc func() time.Time

// Now returns the current time in UTC.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// Logger is the structured logger used by the service. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus is the outcome recorded for an operation.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one completed service operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Outcome   domain.Outcome
	Status    AuditStatus
	Duration  time.Duration
	Timestamp time.Time
	Error     string
}

// AuditRecorder receives an entry for every mutating operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation latency and outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}
