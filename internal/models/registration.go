// internal/models/registration.go
package models

import "time"

// Persisted constants shared by the registration tables.
const (
	CreatedBySystem          = "MOSIP_SYSTEM"
	SupervisorStatusApproved = "APPROVED"
	LanguageCodeEnglish      = "eng"
	// PlaceholderPacketSize is written to every intake sync row. It has no
	// derivation upstream and is kept as-is.
	PlaceholderPacketSize int64 = 1295230

	StatusCodeResumable           = "RESUMABLE"
	TransactionTypeWorkflowResume = "WORKFLOW_RESUME"
	TransactionStatusReprocess    = "REPROCESS"
)

// SyncRegistration is a row of registration_list.
type SyncRegistration struct {
	ID                  string    `json:"id"`
	WorkflowInstanceID  string    `json:"workflowInstanceId"`
	RegistrationID      string    `json:"registrationId"`
	RegistrationType    string    `json:"registrationType"`
	SupervisorStatus    string    `json:"supervisorStatus"`
	LangCode            string    `json:"langCode"`
	PacketHashValue     string    `json:"packetHashValue"`
	PacketSize          int64     `json:"packetSize"`
	OptionalValues      []byte    `json:"-"`
	AdditionalInfoReqID string    `json:"additionalInfoReqId,omitempty"`
	CreatedBy           string    `json:"createdBy"`
	CreateDateTime      time.Time `json:"createDateTime"`
	IsDeleted           bool      `json:"isDeleted"`
}

// RegistrationStatus is a row of registration.
type RegistrationStatus struct {
	RegistrationID              string    `json:"registrationId"`
	WorkflowInstanceID          string    `json:"workflowInstanceId"`
	RegistrationType            string    `json:"registrationType"`
	Source                      string    `json:"source"`
	RegistrationStageName       string    `json:"registrationStageName"`
	LangCode                    string    `json:"langCode"`
	StatusCode                  string    `json:"statusCode"`
	StatusComment               string    `json:"statusComment"`
	SubStatusCode               string    `json:"subStatusCode"`
	LatestTransactionID         string    `json:"latestTransactionId,omitempty"`
	LatestTransactionTypeCode   string    `json:"latestTransactionTypeCode"`
	LatestTransactionStatusCode string    `json:"latestTransactionStatusCode"`
	ReprocessRetryCount         int       `json:"reprocessRetryCount"`
	Iteration                   int       `json:"iteration"`
	IsActive                    bool      `json:"isActive"`
	IsDeleted                   bool      `json:"isDeleted"`
	ReferenceRegistrationID     *string   `json:"referenceRegistrationId"`
	CreatedBy                   string    `json:"createdBy"`
	CreateDateTime              time.Time `json:"createDateTime"`
	UpdateDateTime              time.Time `json:"updateDateTime"`
}

// RegistrationTransaction is a row of registration_transaction, written when a
// status is recorded as the latest transaction.
type RegistrationTransaction struct {
	ID                 string    `json:"id"`
	RegistrationID     string    `json:"registrationId"`
	WorkflowInstanceID string    `json:"workflowInstanceId"`
	TrnTypeCode        string    `json:"trnTypeCode"`
	StatusCode         string    `json:"statusCode"`
	SubStatusCode      string    `json:"subStatusCode"`
	StatusComment      string    `json:"statusComment"`
	StageName          string    `json:"stageName"`
	ModuleID           string    `json:"moduleId"`
	ModuleName         string    `json:"moduleName"`
	LangCode           string    `json:"langCode"`
	CreatedBy          string    `json:"createdBy"`
	CreateDateTime     time.Time `json:"createDateTime"`
}
