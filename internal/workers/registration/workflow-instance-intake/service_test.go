package workflowinstanceintake

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"workflow-intake/internal/common/audit"
	"workflow-intake/internal/common/database"
	"workflow-intake/internal/common/errors"
	"workflow-intake/internal/common/logger"
	"workflow-intake/internal/models"
	"workflow-intake/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// ==========================
// Mock Collaborators
// ==========================

type MockSyncRepo struct {
	mock.Mock
}

func (m *MockSyncRepo) Save(ctx context.Context, rec *models.SyncRegistration) error {
	return m.Called(ctx, rec).Error(0)
}

type MockStatusService struct {
	mock.Mock
}

func (m *MockStatusService) AddRegistrationStatus(ctx context.Context, status *models.RegistrationStatus, moduleID, moduleName string, latestTransaction bool) error {
	return m.Called(ctx, status, moduleID, moduleName, latestTransaction).Error(0)
}

type MockEncryptor struct {
	mock.Mock
}

func (m *MockEncryptor) Encrypt(ctx context.Context, plaintext, referenceID, timestamp string) ([]byte, error) {
	args := m.Called(ctx, plaintext, referenceID, timestamp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

const (
	testRegistrationID = "10003100030001520190422074511"
	testReferenceID    = "10003_10003"
	testTimestamp      = "2019-04-22T07:45:11.123Z"
	testStage          = "PacketValidatorStage"
)

var testNow = time.Date(2019, 4, 22, 7, 45, 11, 123000000, time.UTC)

func strPtr(s string) *string { return &s }

func createTestRequest() *models.IntakeRequest {
	return &models.IntakeRequest{
		RegistrationID: testRegistrationID,
		Process:        "NEW",
		Source:         "REGISTRATION_CLIENT",
		AdditionalInfo: models.AdditionalInfo{
			Name:  strPtr(""),
			Email: strPtr(""),
			Phone: strPtr(""),
		},
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
}

type fixture struct {
	service   *Service
	syncRepo  *MockSyncRepo
	status    *MockStatusService
	encryptor *MockEncryptor
	audit     *audit.MemorySink
}

func newFixture(t *testing.T, cfg *Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
		cfg.BeginningStage = testStage
	}

	f := &fixture{
		syncRepo:  &MockSyncRepo{},
		status:    &MockStatusService{},
		encryptor: &MockEncryptor{},
		audit:     audit.NewMemorySink(),
	}
	f.service = NewService(ServiceDependencies{
		SyncRepo:      f.syncRepo,
		StatusService: f.status,
		Encryptor:     f.encryptor,
		Audit:         f.audit,
		Logger:        logger.NewTestLogger(t),
		Clock:         func() time.Time { return testNow },
		NewID:         sequentialIDs(),
	}, cfg)
	return f
}

// ==========================
// Happy Path
// ==========================

func TestAddRegistrationProcess_HappyPath(t *testing.T) {
	f := newFixture(t, nil)

	f.encryptor.On("Encrypt", mock.Anything, `{"name":"","email":"","phone":""}`, testReferenceID, testTimestamp).
		Return([]byte{0x01, 0x02, 0x03}, nil)

	var savedSync *models.SyncRegistration
	f.syncRepo.On("Save", mock.Anything, mock.AnythingOfType("*models.SyncRegistration")).
		Run(func(args mock.Arguments) { savedSync = args.Get(1).(*models.SyncRegistration) }).
		Return(nil)

	var savedStatus *models.RegistrationStatus
	f.status.On("AddRegistrationStatus", mock.Anything, mock.AnythingOfType("*models.RegistrationStatus"),
		"RPR_WORKFLOW_INSTANCE_SERVICE_SUCCESS", "WorkflowInstanceService", false).
		Run(func(args mock.Arguments) { savedStatus = args.Get(1).(*models.RegistrationStatus) }).
		Return(nil)

	status, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())

	require.NoError(t, err)
	require.NotNil(t, savedSync)
	require.NotNil(t, savedStatus)

	assert.Same(t, savedStatus, status)
	assert.Equal(t, savedSync.WorkflowInstanceID, status.WorkflowInstanceID)
	assert.NotEqual(t, savedSync.ID, savedSync.WorkflowInstanceID)

	assert.Equal(t, "NEW", savedSync.RegistrationType)
	assert.Equal(t, "APPROVED", savedSync.SupervisorStatus)
	assert.Equal(t, "MOSIP_SYSTEM", savedSync.CreatedBy)
	assert.Equal(t, "eng", savedSync.LangCode)
	assert.Equal(t, int64(1295230), savedSync.PacketSize)
	assert.Equal(t, "", savedSync.PacketHashValue)
	assert.False(t, savedSync.IsDeleted)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, savedSync.OptionalValues)
	assert.Equal(t, testNow, savedSync.CreateDateTime)

	assert.Equal(t, testRegistrationID, status.RegistrationID)
	assert.Equal(t, "NEW", status.RegistrationType)
	assert.Equal(t, "REGISTRATION_CLIENT", status.Source)
	assert.Equal(t, "RESUMABLE", status.StatusCode)
	assert.Equal(t, testStage, status.RegistrationStageName)
	assert.Equal(t, "WORKFLOW_RESUME", status.LatestTransactionTypeCode)
	assert.Equal(t, "REPROCESS", status.LatestTransactionStatusCode)
	assert.Equal(t, "Workflow instance created successfully", status.StatusComment)
	assert.Equal(t, "RPR_WIS_SUCCESS", status.SubStatusCode)
	assert.Equal(t, 0, status.ReprocessRetryCount)
	assert.Equal(t, 1, status.Iteration)
	assert.True(t, status.IsActive)
	assert.False(t, status.IsDeleted)
	assert.Nil(t, status.ReferenceRegistrationID)
	assert.Equal(t, "MOSIP_SYSTEM", status.CreatedBy)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "RPR_402", events[0].EventID)
	assert.Equal(t, "UPDATE", events[0].EventName)
	assert.Equal(t, "BUSINESS", events[0].EventType)
	assert.Equal(t, "RPR_WORKFLOW_INSTANCE_SERVICE_SUCCESS", events[0].ModuleID)
	assert.Equal(t, "WorkflowInstanceService", events[0].ModuleName)
	assert.Equal(t, testRegistrationID, events[0].RegistrationID)
	assert.Equal(t, status.WorkflowInstanceID, events[0].WorkflowInstanceID)

	f.encryptor.AssertExpectations(t)
	f.syncRepo.AssertExpectations(t)
	f.status.AssertExpectations(t)
}

func TestAddRegistrationProcess_AdditionalInfoReqIDCarried(t *testing.T) {
	f := newFixture(t, nil)
	req := createTestRequest()
	req.AdditionalInfoReqID = "10003100030001520190422074511-BIOMETRIC_CORRECTION-1"

	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	f.syncRepo.On("Save", mock.Anything, mock.MatchedBy(func(rec *models.SyncRegistration) bool {
		return rec.AdditionalInfoReqID == req.AdditionalInfoReqID
	})).Return(nil)
	f.status.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	_, err := f.service.AddRegistrationProcess(context.Background(), req)

	require.NoError(t, err)
	f.syncRepo.AssertExpectations(t)
}

func TestAddRegistrationProcess_AllNullAdditionalInfo(t *testing.T) {
	f := newFixture(t, nil)
	req := createTestRequest()
	req.AdditionalInfo = models.AdditionalInfo{}

	f.encryptor.On("Encrypt", mock.Anything, `{"name":null,"email":null,"phone":null}`, testReferenceID, testTimestamp).
		Return([]byte{0x09}, nil)
	f.syncRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.status.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	_, err := f.service.AddRegistrationProcess(context.Background(), req)

	require.NoError(t, err)
	f.encryptor.AssertExpectations(t)
}

func TestAddRegistrationProcess_ConfiguredStagePropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BeginningStage = "SecurezoneNotificationStage"
	f := newFixture(t, cfg)

	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	f.syncRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.status.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	status, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, "SecurezoneNotificationStage", status.RegistrationStageName)
}

func TestAddRegistrationProcess_NotIdempotent(t *testing.T) {
	syncRepo := &MockSyncRepo{}
	statusService := &MockStatusService{}
	encryptor := &MockEncryptor{}
	sink := audit.NewMemorySink()

	cfg := DefaultConfig()
	cfg.BeginningStage = testStage
	service := NewService(ServiceDependencies{
		SyncRepo:      syncRepo,
		StatusService: statusService,
		Encryptor:     encryptor,
		Audit:         sink,
	}, cfg)

	var saved []*models.SyncRegistration
	encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	syncRepo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(*models.SyncRegistration)) }).
		Return(nil)
	statusService.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	first, err := service.AddRegistrationProcess(context.Background(), createTestRequest())
	require.NoError(t, err)
	second, err := service.AddRegistrationProcess(context.Background(), createTestRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.WorkflowInstanceID, second.WorkflowInstanceID)
	require.Len(t, saved, 2)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)
	assert.Equal(t, first.WorkflowInstanceID, saved[0].WorkflowInstanceID)
	assert.Equal(t, second.WorkflowInstanceID, saved[1].WorkflowInstanceID)
	assert.Len(t, sink.Events(), 2)
}

// ==========================
// Failure Paths
// ==========================

func TestAddRegistrationProcess_StatusTableNotAccessible(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.ErrorLevel)
	f := newFixture(t, nil)
	f.service.logger = log

	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	f.syncRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.status.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).
		Return(fmt.Errorf("insert registration: %w", errors.NewTableNotAccessibleError(stderrors.New("connection refused"))))

	status, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())

	assert.Nil(t, status)
	var wie *errors.WorkflowInstanceError
	require.ErrorAs(t, err, &wie)
	assert.Equal(t, errors.ErrCodeRegistrationTableAccess, wie.Code)
	assert.Equal(t, "The Registration Table is not accessible", wie.Message)

	// the sync row is not compensated
	f.syncRepo.AssertNumberOfCalls(t, "Save", 1)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "RPR_405", events[0].EventID)
	assert.Equal(t, "EXCEPTION", events[0].EventName)
	assert.Equal(t, "SYSTEM", events[0].EventType)
	assert.Equal(t, "RPR_RGS_REGISTRATION_TABLE_NOT_ACCESSIBLE", events[0].ModuleID)
	assert.Equal(t, "The Registration Table is not accessible", events[0].Description)
	assert.NotEmpty(t, events[0].WorkflowInstanceID)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, testRegistrationID, fields["registrationId"])
	assert.Contains(t, fields, "stacktrace")
	assert.Contains(t, fields, "error")
}

func TestAddRegistrationProcess_EncryptionFails(t *testing.T) {
	f := newFixture(t, nil)

	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, stderrors.New("key manager unavailable"))

	_, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())

	var wie *errors.WorkflowInstanceError
	require.ErrorAs(t, err, &wie)
	assert.Equal(t, errors.ErrCodeWorkflowInstanceUnknown, wie.Code)
	assert.NotContains(t, wie.Error(), "key manager")

	f.syncRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.status.AssertNotCalled(t, "AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "RPR_405", events[0].EventID)
	assert.Equal(t, "RPR_WIS_UNKNOWN_EXCEPTION", events[0].ModuleID)
	assert.Empty(t, events[0].WorkflowInstanceID)
}

func TestAddRegistrationProcess_FailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		syncErr  error
		wantCode errors.ErrorCode
	}{
		{
			name:     "table not accessible on sync write",
			syncErr:  errors.NewTableNotAccessibleError(&pq.Error{Code: "42P01"}),
			wantCode: errors.ErrCodeRegistrationTableAccess,
		},
		{
			name:     "unexpected repository error",
			syncErr:  &pq.Error{Code: "23505", Message: "duplicate key"},
			wantCode: errors.ErrCodeWorkflowInstanceUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
			f.syncRepo.On("Save", mock.Anything, mock.Anything).Return(tt.syncErr)

			_, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())

			var wie *errors.WorkflowInstanceError
			require.ErrorAs(t, err, &wie)
			assert.Equal(t, tt.wantCode, wie.Code)
			f.status.AssertNotCalled(t, "AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Len(t, f.audit.Events(), 1)
		})
	}
}

func TestAddRegistrationProcess_ShortRegistrationID(t *testing.T) {
	f := newFixture(t, nil)
	req := createTestRequest()
	req.RegistrationID = "100031"

	_, err := f.service.AddRegistrationProcess(context.Background(), req)

	var wie *errors.WorkflowInstanceError
	require.ErrorAs(t, err, &wie)
	assert.Equal(t, errors.ErrCodeWorkflowInstanceUnknown, wie.Code)
	f.encryptor.AssertNotCalled(t, "Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, f.audit.Events(), 1)
}

func TestAddRegistrationProcess_AuditFailureIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.audit.FailWith(stderrors.New("audit store down"))

	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	f.syncRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.status.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	status, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.NotNil(t, status)
}

func TestAddRegistrationProcess_AuditFailureLoggedOnce(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.DebugLevel)
	f := newFixture(t, nil)

	es := audit.NewMemorySink()
	es.FailWith(stderrors.New("index unavailable"))
	kafka := audit.NewMemorySink()
	kafka.FailWith(stderrors.New("broker down"))
	f.service.audit = audit.NewMultiSink(
		audit.NamedSink{Name: "elasticsearch", Sink: es},
		audit.NamedSink{Name: "kafka", Sink: kafka},
	)
	f.service.logger = log

	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	f.syncRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.status.On("AddRegistrationStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	_, err := f.service.AddRegistrationProcess(context.Background(), createTestRequest())
	require.NoError(t, err)

	entries := logs.FilterMessage("Failed to record audit event").All()
	require.Len(t, entries, 1)
	auditErr := fmt.Sprint(entries[0].ContextMap()["error"])
	assert.Contains(t, auditErr, "elasticsearch: index unavailable")
	assert.Contains(t, auditErr, "kafka: broker down")
}

func TestAddRegistrationProcess_CancelledContextStillAudits(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	f := newFixture(t, nil)
	f.service.audit = audit.NewPostgresSink(db)
	f.encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.Canceled)

	sqlMock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(sqlmock.AnyArg(), "RPR_405", "EXCEPTION", "SYSTEM", "RPR_WIS_UNKNOWN_EXCEPTION",
			ModuleName, sqlmock.AnyArg(), testRegistrationID, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.service.AddRegistrationProcess(ctx, createTestRequest())

	var wie *errors.WorkflowInstanceError
	require.ErrorAs(t, err, &wie)
	assert.Equal(t, errors.ErrCodeWorkflowInstanceUnknown, wie.Code)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

// ==========================
// Rejected Requests
// ==========================

func TestRecordRejection(t *testing.T) {
	f := newFixture(t, nil)

	f.service.RecordRejection(context.Background(), testRegistrationID, errors.NewInvalidInputError("Validation errors: process: Invalid type"))

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "RPR_405", events[0].EventID)
	assert.Equal(t, "EXCEPTION", events[0].EventName)
	assert.Equal(t, "SYSTEM", events[0].EventType)
	assert.Equal(t, "RPR_WIS_INVALID_INPUT", events[0].ModuleID)
	assert.Equal(t, "Invalid workflow instance request", events[0].Description)
	assert.Equal(t, testRegistrationID, events[0].RegistrationID)
	assert.Empty(t, events[0].WorkflowInstanceID)
	f.encryptor.AssertNotCalled(t, "Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// Atomic Mode
// ==========================

func newAtomicService(t *testing.T) (*Service, sqlmock.Sqlmock, *audit.MemorySink) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	encryptor := &MockEncryptor{}
	encryptor.On("Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte{0x01}, nil)

	cfg := DefaultConfig()
	cfg.BeginningStage = testStage
	cfg.Atomic = true

	sink := audit.NewMemorySink()
	service := NewService(ServiceDependencies{
		SyncRepo:      store.NewSyncRegistrationRepository(db),
		StatusService: store.NewRegistrationStatusService(db),
		Encryptor:     encryptor,
		Audit:         sink,
		Tx:            database.NewTxRunner(db),
		Logger:        logger.NewTestLogger(t),
		Clock:         func() time.Time { return testNow },
	}, cfg)
	return service, sqlMock, sink
}

func TestNewService_AtomicWithoutTxRunnerWarns(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	cfg := DefaultConfig()
	cfg.BeginningStage = testStage
	cfg.Atomic = true

	NewService(ServiceDependencies{Logger: log}, cfg)

	assert.Equal(t, 1, logs.FilterMessage("Atomic intake requested without a transaction runner, writes are not atomic").Len())

	cfg.Atomic = false
	NewService(ServiceDependencies{Logger: log}, cfg)
	assert.Equal(t, 1, logs.Len())
}

func TestAddRegistrationProcess_AtomicCommits(t *testing.T) {
	service, sqlMock, _ := newAtomicService(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(`INSERT INTO registration_list`).WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectExec(`INSERT INTO registration \(`).WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit()

	_, err := service.AddRegistrationProcess(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestAddRegistrationProcess_AtomicRollsBackSyncRow(t *testing.T) {
	service, sqlMock, sink := newAtomicService(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(`INSERT INTO registration_list`).WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectExec(`INSERT INTO registration \(`).
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "registration" does not exist`})
	sqlMock.ExpectRollback()

	_, err := service.AddRegistrationProcess(context.Background(), createTestRequest())

	var wie *errors.WorkflowInstanceError
	require.ErrorAs(t, err, &wie)
	assert.Equal(t, errors.ErrCodeRegistrationTableAccess, wie.Code)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
	require.Len(t, sink.Events(), 1)
	assert.Equal(t, "RPR_405", sink.Events()[0].EventID)
}
