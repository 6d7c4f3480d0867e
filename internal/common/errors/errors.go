// Package errors provides the registration processor's failure catalog and
// the conversions used to report failures to callers and to the workflow engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Platform Catalog
// ==========================

// ErrorCode is a platform error or success code (e.g. RPR_WIS_UNKNOWN_EXCEPTION).
type ErrorCode string

const (
	ErrCodeWorkflowInstanceUnknown  ErrorCode = "RPR_WIS_UNKNOWN_EXCEPTION"
	ErrCodeRegistrationTableAccess  ErrorCode = "RPR_RGS_REGISTRATION_TABLE_NOT_ACCESSIBLE"
	ErrCodeWorkflowInstanceInput    ErrorCode = "RPR_WIS_INVALID_INPUT"
	SuccessCodeWorkflowInstance     ErrorCode = "RPR_WORKFLOW_INSTANCE_SERVICE_SUCCESS"
	SubStatusCodeWorkflowInstanceOK ErrorCode = "RPR_WIS_SUCCESS"
)

var messages = map[ErrorCode]string{
	ErrCodeWorkflowInstanceUnknown:  "Unknown exception occurred in workflow instance service",
	ErrCodeRegistrationTableAccess:  "The Registration Table is not accessible",
	ErrCodeWorkflowInstanceInput:    "Invalid workflow instance request",
	SuccessCodeWorkflowInstance:     "Workflow instance created successfully",
	SubStatusCodeWorkflowInstanceOK: "Workflow instance created successfully",
}

// Message returns the catalog message for a code, or the code itself when unknown.
func (c ErrorCode) Message() string {
	if msg, ok := messages[c]; ok {
		return msg
	}
	return string(c)
}

func (c ErrorCode) String() string {
	return string(c)
}

// ==========================
// 2. Domain Error Types
// ==========================

// TableNotAccessibleError is returned by the registration stores when the
// backing table cannot be reached (connection loss, missing relation,
// missing privileges). It carries the repository's own code and message.
type TableNotAccessibleError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// NewTableNotAccessibleError wraps cause with the registration-table code.
func NewTableNotAccessibleError(cause error) *TableNotAccessibleError {
	return &TableNotAccessibleError{
		Code:    ErrCodeRegistrationTableAccess,
		Message: ErrCodeRegistrationTableAccess.Message(),
		Cause:   cause,
	}
}

func (e *TableNotAccessibleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TableNotAccessibleError) Unwrap() error {
	return e.Cause
}

// IsTableNotAccessible reports whether err (or anything it wraps) is a
// *TableNotAccessibleError.
func IsTableNotAccessible(err error) bool {
	var tna *TableNotAccessibleError
	return stderrors.As(err, &tna)
}

// WorkflowInstanceError is the single failure kind surfaced by the intake
// service. Only the code and message are exposed; the cause is logged.
type WorkflowInstanceError struct {
	Code    ErrorCode
	Message string
}

func NewWorkflowInstanceError(code ErrorCode, message string) *WorkflowInstanceError {
	return &WorkflowInstanceError{Code: code, Message: message}
}

func (e *WorkflowInstanceError) Error() string {
	return fmt.Sprintf("WorkflowInstanceError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 3. Standard / BPMN Errors
// ==========================

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewInvalidInputError creates a non-retryable input validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowInstanceInput,
		Message:   ErrCodeWorkflowInstanceInput.Message(),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job error variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// Normalize turns any error returned by the intake path into a StandardError.
// Intake never retries, so every result is non-retryable.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var wie *WorkflowInstanceError
	if stderrors.As(err, &wie) {
		return &StandardError{
			Code:      wie.Code,
			Message:   wie.Message,
			Timestamp: time.Now().UTC(),
		}
	}

	var tna *TableNotAccessibleError
	if stderrors.As(err, &tna) {
		return &StandardError{
			Code:      tna.Code,
			Message:   tna.Message,
			Timestamp: time.Now().UTC(),
		}
	}

	return &StandardError{
		Code:      ErrCodeWorkflowInstanceUnknown,
		Message:   ErrCodeWorkflowInstanceUnknown.Message(),
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: false,
		Retries:   0,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeRegistrationTableAccess:
		return "DATABASE"
	case ErrCodeWorkflowInstanceInput:
		return "VALIDATION"
	case ErrCodeWorkflowInstanceUnknown:
		return "UNKNOWN"
	default:
		return "OTHER"
	}
}
