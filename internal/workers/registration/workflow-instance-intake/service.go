package workflowinstanceintake

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"workflow-intake/internal/common/audit"
	"workflow-intake/internal/common/crypto"
	"workflow-intake/internal/common/database"
	"workflow-intake/internal/common/errors"
	"workflow-intake/internal/common/logger"
	"workflow-intake/internal/common/metrics"
	"workflow-intake/internal/common/observability"
	"workflow-intake/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ModuleName identifies this service on status and audit records.
const ModuleName = "WorkflowInstanceService"

const auditTimeout = 5 * time.Second

// SyncRegistrationSaver persists registration_list rows.
type SyncRegistrationSaver interface {
	Save(ctx context.Context, rec *models.SyncRegistration) error
}

// RegistrationStatusAdder persists registration rows.
type RegistrationStatusAdder interface {
	AddRegistrationStatus(ctx context.Context, status *models.RegistrationStatus, moduleID, moduleName string, latestTransaction bool) error
}

type ServiceDependencies struct {
	SyncRepo      SyncRegistrationSaver
	StatusService RegistrationStatusAdder
	Encryptor     crypto.Encryptor
	Audit         audit.Sink
	Tx            database.TxRunner // used when Config.Atomic is set
	Logger        logger.Logger
	Observability *observability.Observability

	Clock func() time.Time
	NewID func() string
}

type Service struct {
	config    *Config
	logger    logger.Logger
	syncRepo  SyncRegistrationSaver
	status    RegistrationStatusAdder
	encryptor crypto.Encryptor
	audit     audit.Sink
	tx        database.TxRunner
	obs       *observability.Observability
	now       func() time.Time
	newID     func() string
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	s := &Service{
		config:    config,
		logger:    deps.Logger,
		syncRepo:  deps.SyncRepo,
		status:    deps.StatusService,
		encryptor: deps.Encryptor,
		audit:     deps.Audit,
		tx:        deps.Tx,
		obs:       deps.Observability,
		now:       deps.Clock,
		newID:     deps.NewID,
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.audit == nil {
		s.audit = audit.NewLogSink(s.logger)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if config != nil && config.Atomic && s.tx == nil {
		s.logger.Warn("Atomic intake requested without a transaction runner, writes are not atomic", map[string]interface{}{
			"module": ModuleName,
		})
	}
	return s
}

// AddRegistrationProcess records a new workflow instance for req: a sync row
// followed by a RESUMABLE status row at the beginning stage. Exactly one
// audit event is emitted per call. Failures are returned as
// *errors.WorkflowInstanceError.
func (s *Service) AddRegistrationProcess(ctx context.Context, req *models.IntakeRequest) (*models.RegistrationStatus, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "workflowinstance.add_registration_process",
		attribute.String("registration.id", req.RegistrationID),
		attribute.String("registration.process", req.Process),
	)

	s.logger.Debug("Adding registration process", map[string]interface{}{
		"registrationId": req.RegistrationID,
		"process":        req.Process,
		"source":         req.Source,
	})

	status, workflowInstanceID, err := s.addRegistrationProcess(ctx, req)

	outcome := metrics.OutcomeSuccess
	var result error
	if err != nil {
		outcome = metrics.OutcomeFailure
		result = s.handleFailure(ctx, req, workflowInstanceID, err)
	} else {
		s.recordAudit(ctx, audit.Event{
			Description:        errors.SuccessCodeWorkflowInstance.Message(),
			EventID:            audit.EventIDUpdate,
			EventName:          audit.EventNameUpdate,
			EventType:          audit.EventTypeBusiness,
			ModuleID:           string(errors.SuccessCodeWorkflowInstance),
			ModuleName:         ModuleName,
			RegistrationID:     req.RegistrationID,
			WorkflowInstanceID: workflowInstanceID,
		})
		span.SetAttributes(attribute.String("workflow_instance.id", workflowInstanceID))
	}

	elapsed := time.Since(start)
	metrics.IntakeRequests.WithLabelValues(outcome).Inc()
	metrics.IntakeDuration.Observe(elapsed.Seconds())
	s.obs.RecordIntake(ctx, outcome, elapsed)
	observability.EndSpan(span, result)

	if result != nil {
		return nil, result
	}

	s.logger.Debug("Registration process added", map[string]interface{}{
		"registrationId":     req.RegistrationID,
		"workflowInstanceId": workflowInstanceID,
		"stage":              status.RegistrationStageName,
	})
	return status, nil
}

// addRegistrationProcess returns the minted workflow instance id even on
// failure, once it exists.
func (s *Service) addRegistrationProcess(ctx context.Context, req *models.IntakeRequest) (*models.RegistrationStatus, string, error) {
	plaintext, err := json.Marshal(req.AdditionalInfo)
	if err != nil {
		return nil, "", fmt.Errorf("serialize additional info: %w", err)
	}

	referenceID, err := crypto.RefID(req.RegistrationID, "")
	if err != nil {
		return nil, "", err
	}

	// both rows carry the same millisecond timestamp the payload is bound to
	now := s.now().UTC().Truncate(time.Millisecond)
	optionalValues, err := s.encryptor.Encrypt(ctx, string(plaintext), referenceID, crypto.FormatTimestamp(now))
	if err != nil {
		return nil, "", fmt.Errorf("encrypt additional info: %w", err)
	}

	workflowInstanceID := s.newID()
	if workflowInstanceID == "" {
		return nil, "", fmt.Errorf("mint workflow instance id: empty id")
	}

	syncRecord := &models.SyncRegistration{
		ID:                  s.newID(),
		WorkflowInstanceID:  workflowInstanceID,
		RegistrationID:      req.RegistrationID,
		RegistrationType:    req.Process,
		SupervisorStatus:    models.SupervisorStatusApproved,
		LangCode:            models.LanguageCodeEnglish,
		PacketHashValue:     "",
		PacketSize:          models.PlaceholderPacketSize,
		OptionalValues:      optionalValues,
		AdditionalInfoReqID: req.AdditionalInfoReqID,
		CreatedBy:           models.CreatedBySystem,
		CreateDateTime:      now,
		IsDeleted:           false,
	}
	status := s.buildStatus(req, workflowInstanceID, now)

	persist := func(ctx context.Context) error {
		if err := s.syncRepo.Save(ctx, syncRecord); err != nil {
			return fmt.Errorf("save sync registration: %w", err)
		}
		if err := s.status.AddRegistrationStatus(ctx, status, string(errors.SuccessCodeWorkflowInstance), ModuleName, false); err != nil {
			return fmt.Errorf("add registration status: %w", err)
		}
		return nil
	}

	if s.config.Atomic && s.tx != nil {
		err = s.tx.RunInTx(ctx, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return nil, workflowInstanceID, err
	}
	return status, workflowInstanceID, nil
}

func (s *Service) buildStatus(req *models.IntakeRequest, workflowInstanceID string, now time.Time) *models.RegistrationStatus {
	return &models.RegistrationStatus{
		RegistrationID:              req.RegistrationID,
		WorkflowInstanceID:          workflowInstanceID,
		RegistrationType:            req.Process,
		Source:                      req.Source,
		RegistrationStageName:       s.config.BeginningStage,
		LangCode:                    models.LanguageCodeEnglish,
		StatusCode:                  models.StatusCodeResumable,
		StatusComment:               errors.SuccessCodeWorkflowInstance.Message(),
		SubStatusCode:               string(errors.SubStatusCodeWorkflowInstanceOK),
		LatestTransactionTypeCode:   models.TransactionTypeWorkflowResume,
		LatestTransactionStatusCode: models.TransactionStatusReprocess,
		ReprocessRetryCount:         0,
		Iteration:                   1,
		IsActive:                    true,
		IsDeleted:                   false,
		ReferenceRegistrationID:     nil,
		CreatedBy:                   models.CreatedBySystem,
		CreateDateTime:              now,
		UpdateDateTime:              now,
	}
}

func (s *Service) handleFailure(ctx context.Context, req *models.IntakeRequest, workflowInstanceID string, cause error) *errors.WorkflowInstanceError {
	wie := classifyFailure(cause)

	s.logger.WithError(cause).WithStack().Error("Workflow instance intake failed", map[string]interface{}{
		"registrationId":     req.RegistrationID,
		"workflowInstanceId": workflowInstanceID,
		"errorCode":          string(wie.Code),
		"errorMessage":       wie.Message,
	})
	metrics.IntakeFailures.WithLabelValues(string(wie.Code)).Inc()

	s.recordAudit(ctx, audit.Event{
		Description:        wie.Message,
		EventID:            audit.EventIDException,
		EventName:          audit.EventNameException,
		EventType:          audit.EventTypeSystem,
		ModuleID:           string(wie.Code),
		ModuleName:         ModuleName,
		RegistrationID:     req.RegistrationID,
		WorkflowInstanceID: workflowInstanceID,
	})
	return wie
}

func classifyFailure(err error) *errors.WorkflowInstanceError {
	var tna *errors.TableNotAccessibleError
	if stderrors.As(err, &tna) {
		return errors.NewWorkflowInstanceError(tna.Code, tna.Message)
	}
	return errors.NewWorkflowInstanceError(
		errors.ErrCodeWorkflowInstanceUnknown,
		errors.ErrCodeWorkflowInstanceUnknown.Message(),
	)
}

// RecordRejection audits a request that failed validation before reaching
// AddRegistrationProcess. Only requests carrying a registration id are
// audited; the caller decides that.
func (s *Service) RecordRejection(ctx context.Context, registrationID string, cause error) {
	code := errors.ErrCodeWorkflowInstanceInput

	s.logger.Warn("Workflow instance request rejected", map[string]interface{}{
		"registrationId": registrationID,
		"errorCode":      string(code),
		"error":          cause,
	})
	metrics.IntakeFailures.WithLabelValues(string(code)).Inc()

	s.recordAudit(ctx, audit.Event{
		Description:    code.Message(),
		EventID:        audit.EventIDException,
		EventName:      audit.EventNameException,
		EventType:      audit.EventTypeSystem,
		ModuleID:       string(code),
		ModuleName:     ModuleName,
		RegistrationID: registrationID,
	})
}

// recordAudit outlives the caller's context so a cancelled or timed-out
// request still leaves its audit event.
func (s *Service) recordAudit(ctx context.Context, event audit.Event) {
	event.ID = uuid.NewString()
	event.CreatedAt = s.now().UTC()

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := s.audit.Record(auditCtx, event); err != nil {
		s.logger.Warn("Failed to record audit event", map[string]interface{}{
			"registrationId": event.RegistrationID,
			"eventId":        event.EventID,
			"error":          err,
		})
	}
}
