package store

import (
	"context"
	"database/sql"
	"fmt"

	"workflow-intake/internal/common/database"
	"workflow-intake/internal/models"

	"github.com/google/uuid"
)

// RegistrationStatusService persists registration rows and, on request,
// the matching registration_transaction row.
type RegistrationStatusService struct {
	db *sql.DB
	tx database.TxRunner
}

func NewRegistrationStatusService(db *sql.DB) *RegistrationStatusService {
	return &RegistrationStatusService{db: db, tx: database.NewTxRunner(db)}
}

// AddRegistrationStatus inserts status. With latestTransaction set, a
// registration_transaction row is written first in the same transaction and
// its id is stamped on status as the latest transaction.
func (s *RegistrationStatusService) AddRegistrationStatus(ctx context.Context, status *models.RegistrationStatus, moduleID, moduleName string, latestTransaction bool) error {
	if !latestTransaction {
		return s.insertStatus(ctx, status)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		trn := &models.RegistrationTransaction{
			ID:                 uuid.New().String(),
			RegistrationID:     status.RegistrationID,
			WorkflowInstanceID: status.WorkflowInstanceID,
			TrnTypeCode:        status.LatestTransactionTypeCode,
			StatusCode:         status.LatestTransactionStatusCode,
			SubStatusCode:      status.SubStatusCode,
			StatusComment:      status.StatusComment,
			StageName:          status.RegistrationStageName,
			ModuleID:           moduleID,
			ModuleName:         moduleName,
			LangCode:           status.LangCode,
			CreatedBy:          status.CreatedBy,
			CreateDateTime:     status.CreateDateTime,
		}
		if err := s.insertTransaction(ctx, trn); err != nil {
			return err
		}
		status.LatestTransactionID = trn.ID
		return s.insertStatus(ctx, status)
	})
}

func (s *RegistrationStatusService) insertTransaction(ctx context.Context, trn *models.RegistrationTransaction) error {
	_, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registration_transaction (
			id, reg_id, workflow_instance_id, trn_type_code, status_code,
			sub_status_code, status_comment, reg_stage_name, module_id,
			module_name, lang_code, cr_by, cr_dtimes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		trn.ID,
		trn.RegistrationID,
		trn.WorkflowInstanceID,
		trn.TrnTypeCode,
		trn.StatusCode,
		trn.SubStatusCode,
		trn.StatusComment,
		trn.StageName,
		trn.ModuleID,
		trn.ModuleName,
		trn.LangCode,
		trn.CreatedBy,
		trn.CreateDateTime,
	)
	if err != nil {
		return fmt.Errorf("insert registration_transaction %s: %w", trn.WorkflowInstanceID, classify(err))
	}
	return nil
}

func (s *RegistrationStatusService) insertStatus(ctx context.Context, status *models.RegistrationStatus) error {
	_, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registration (
			reg_id, workflow_instance_id, reg_type, source, reg_stage_name,
			lang_code, status_code, status_comment, sub_status_code,
			latest_trn_id, latest_trn_type_code, latest_trn_status_code,
			reprocess_retry_count, iteration, is_active, is_deleted,
			ref_reg_id, cr_by, cr_dtimes, upd_dtimes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		status.RegistrationID,
		status.WorkflowInstanceID,
		status.RegistrationType,
		status.Source,
		status.RegistrationStageName,
		status.LangCode,
		status.StatusCode,
		status.StatusComment,
		status.SubStatusCode,
		emptyToNull(status.LatestTransactionID),
		status.LatestTransactionTypeCode,
		status.LatestTransactionStatusCode,
		status.ReprocessRetryCount,
		status.Iteration,
		status.IsActive,
		status.IsDeleted,
		nullableString(status.ReferenceRegistrationID),
		status.CreatedBy,
		status.CreateDateTime,
		status.UpdateDateTime,
	)
	if err != nil {
		return fmt.Errorf("insert registration %s: %w", status.WorkflowInstanceID, classify(err))
	}
	return nil
}
