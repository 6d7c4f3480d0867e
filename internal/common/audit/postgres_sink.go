package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSink inserts events into audit_log.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			id, event_id, event_name, event_type, module_id, module_name,
			description, reg_id, workflow_instance_id, cr_dtimes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID,
		e.EventID,
		e.EventName,
		e.EventType,
		e.ModuleID,
		e.ModuleName,
		e.Description,
		e.RegistrationID,
		e.WorkflowInstanceID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit_log: %w", err)
	}
	return nil
}
