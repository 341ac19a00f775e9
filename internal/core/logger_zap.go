package core

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil logger yields a no-op zap logger.
func NewZapLogger(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{sugar: l.Sugar()}
}

func (z ZapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z ZapLogger) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z ZapLogger) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z ZapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// ZapAuditRecorder writes audit entries to a zap logger at info level, or
// warn for failed operations.
type ZapAuditRecorder struct {
	log *zap.Logger
}

// NewZapAuditRecorder returns an audit recorder logging to l.
func NewZapAuditRecorder(l *zap.Logger) ZapAuditRecorder {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapAuditRecorder{log: l.Named("audit")}
}

// Record implements AuditRecorder.
func (z ZapAuditRecorder) Record(_ context.Context, e AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", e.Operation),
		zap.String("entity", string(e.Entity)),
		zap.String("action", string(e.Action)),
		zap.String("entity_id", e.EntityID),
		zap.String("status", string(e.Status)),
		zap.Duration("duration", e.Duration),
		zap.Time("timestamp", e.Timestamp),
	}
	if e.Outcome != "" {
		fields = append(fields, zap.String("outcome", string(e.Outcome)))
	}
	if e.Status == AuditStatusError {
		z.log.Warn("operation", append(fields, zap.String("error", e.Error))...)
		return
	}
	z.log.Info("operation", fields...)
}
