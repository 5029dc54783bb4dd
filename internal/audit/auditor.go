package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type AuditLogEventType string

const (
	AuditLogEventTypeEmployeeLogin         AuditLogEventType = "employee.login"
	AuditLogEventTypeEmployeeLogout        AuditLogEventType = "employee.logout"
	AuditLogEventTypeEmployeeCreate        AuditLogEventType = "employee.create"
	AuditLogEventTypeEmployeeUpdate        AuditLogEventType = "employee.update"
	AuditLogEventTypeEmployeeSecurityLevel AuditLogEventType = "employee.security_level_change"
	AuditLogEventTypeEmployeeStatus        AuditLogEventType = "employee.status_change"
	AuditLogEventTypeEmployeePassword      AuditLogEventType = "employee.password_change"
	AuditLogEventTypeEmployeeDelete        AuditLogEventType = "employee.delete"
	AuditLogEventTypeEventCreate           AuditLogEventType = "event.create"
	AuditLogEventTypeEventUpdate           AuditLogEventType = "event.update"
	AuditLogEventTypeEventDelete           AuditLogEventType = "event.delete"
	AuditLogEventTypeEventViewGrant        AuditLogEventType = "event.view_grant"
	AuditLogEventTypeEventViewRevoke       AuditLogEventType = "event.view_revoke"
)

type AuditLogEvent struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Type      AuditLogEventType
	Data      json.RawMessage
	CreatedAt time.Time
}

type Store interface {
	CreateAuditLogEvent(ctx context.Context, event AuditLogEvent) error
}

type Auditor struct {
	logger *slog.Logger
	store  Store
}

func NewAuditor(logger *slog.Logger, store Store) Auditor {
	return Auditor{logger: logger, store: store}
}

type LogEventParam struct {
	OwnerID uuid.UUID
	Type    AuditLogEventType
	Data    map[string]any
}

func (a *Auditor) LogEvent(ctx context.Context, params LogEventParam) error {
	data, err := json.Marshal(params.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit log event data: %w", err)
	}

	if err = a.store.CreateAuditLogEvent(ctx, AuditLogEvent{
		ID:        uuid.New(),
		OwnerID:   params.OwnerID,
		Type:      params.Type,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to create audit log event: %w", err)
	}
	return nil
}

// Record logs the event and only reports a failure to the log.
func (a *Auditor) Record(ctx context.Context, params LogEventParam) {
	if err := a.LogEvent(ctx, params); err != nil {
		a.logger.Error("audit: failed to record event", "type", params.Type, "owner_id", params.OwnerID, "error", err)
	}
}
