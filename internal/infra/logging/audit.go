package logging

import (
	"context"

	"go.uber.org/zap"

	"momentum/internal/core"
)

// AuditRecorder writes service audit entries to a named zap logger.
type AuditRecorder struct {
	logger *zap.Logger
}

var _ core.AuditRecorder = (*AuditRecorder)(nil)

// NewAuditRecorder logs entries under the "audit" name of l. A nil logger
// discards them.
func NewAuditRecorder(l *zap.Logger) *AuditRecorder {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditRecorder{logger: l.Named("audit")}
}

// Record implements core.AuditRecorder. Failed operations log at warn.
func (r *AuditRecorder) Record(_ context.Context, entry core.AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("entity", string(entry.Entity)),
		zap.String("action", string(entry.Action)),
		zap.String("entityId", entry.EntityID),
		zap.Duration("duration", entry.Duration),
		zap.Time("at", entry.Timestamp),
	}
	if entry.Status == core.AuditStatusError {
		r.logger.Warn("mutation failed", append(fields, zap.String("error", entry.Error))...)
		return
	}
	r.logger.Info("mutation applied", fields...)
}
