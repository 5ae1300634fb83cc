package services

import (
	"context"

	"github.com/google/uuid"

	"adcp-sales-agent/internal/metrics"
	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auditor appends operation records to the audit trail. Appends are
// best-effort: a failure is logged and counted but never propagated, so the
// primary operation is not rolled back by a broken audit path.
type Auditor struct {
	store  repository.Store
	logger Logger
}

// NewAuditor creates an Auditor.
func NewAuditor(store repository.Store, logger Logger) *Auditor {
	return &Auditor{store: store, logger: logger}
}

// LogOperation appends one audit record.
func (a *Auditor) LogOperation(ctx context.Context, tenantID, operation, principalID, principalName string, success bool, details map[string]any) {
	entry := &models.AuditLog{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Operation:     operation,
		PrincipalID:   principalID,
		PrincipalName: principalName,
		Success:       success,
		Details:       details,
	}
	if err := a.store.AppendAuditLog(ctx, entry); err != nil {
		metrics.AuditFailures.Inc()
		a.logger.Error("audit append failed", "operation", operation, "tenant_id", tenantID, "error", err)
	}
}
