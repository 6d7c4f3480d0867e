package store

import (
	"context"
	"database/sql"
	"fmt"

	"workflow-intake/internal/common/database"
	"workflow-intake/internal/models"
)

// SyncRegistrationRepository persists registration_list rows.
type SyncRegistrationRepository struct {
	db *sql.DB
}

func NewSyncRegistrationRepository(db *sql.DB) *SyncRegistrationRepository {
	return &SyncRegistrationRepository{db: db}
}

// Save inserts the sync row. It joins the transaction carried by ctx, if any.
func (r *SyncRegistrationRepository) Save(ctx context.Context, rec *models.SyncRegistration) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO registration_list (
			id, workflow_instance_id, reg_id, reg_type, supervisor_status,
			lang_code, packet_hash_value, packet_size, optional_values,
			additional_info_req_id, cr_by, cr_dtimes, is_deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID,
		rec.WorkflowInstanceID,
		rec.RegistrationID,
		rec.RegistrationType,
		rec.SupervisorStatus,
		rec.LangCode,
		rec.PacketHashValue,
		rec.PacketSize,
		nullableBytes(rec.OptionalValues),
		emptyToNull(rec.AdditionalInfoReqID),
		rec.CreatedBy,
		rec.CreateDateTime,
		rec.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("insert registration_list %s: %w", rec.WorkflowInstanceID, classify(err))
	}
	return nil
}
