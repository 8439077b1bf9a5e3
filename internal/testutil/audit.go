package testutil

import (
	"github.com/dalemusser/questionbank/internal/app/system/auditlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewAuditRecorder returns an audit logger that writes every category to
// an in-memory zap core, and the observed entries.
func NewAuditRecorder() (*auditlog.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.Log, Library: auditlog.Log}), logs
}

// AuditEvents returns the recorded audit entries of eventType.
func AuditEvents(logs *observer.ObservedLogs, eventType string) []observer.LoggedEntry {
	var out []observer.LoggedEntry
	for _, e := range logs.FilterField(zap.Bool("audit", true)).All() {
		if e.ContextMap()["event_type"] == eventType {
			out = append(out, e)
		}
	}
	return out
}
