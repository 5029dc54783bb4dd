package database

import (
	"context"
	"fmt"

	"github.com/freekieb7/calendar/internal/audit"
)

func (db *Database) CreateAuditLogEvent(ctx context.Context, event audit.AuditLogEvent) error {
	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_audit_log_event (id, owner_id, type, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.OwnerID, string(event.Type), event.Data, event.CreatedAt); err != nil {
		return fmt.Errorf("database: failed to insert audit log event (type=%s): %w", event.Type, err)
	}
	return nil
}
