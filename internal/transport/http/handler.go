package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"workflow-intake/internal/common/errors"
	"workflow-intake/internal/common/logger"
	workflowinstanceintake "workflow-intake/internal/workers/registration/workflow-instance-intake"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

type Handler struct {
	service workflowinstanceintake.IntakeService
	logger  logger.Logger
	checks  []Check
}

func NewHandler(service workflowinstanceintake.IntakeService, log logger.Logger, checks ...Check) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{service: service, logger: log, checks: checks}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HandleCreateWorkflowInstance handles POST /v1/workflow-instances.
func (h *Handler) HandleCreateWorkflowInstance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var body map[string]interface{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, errors.NewInvalidInputError("request body must be a JSON object"))
		return
	}

	req, err := workflowinstanceintake.ParseRequest(body)
	if err != nil {
		if rid := workflowinstanceintake.RegistrationIDFrom(body); rid != "" {
			h.service.RecordRejection(ctx, rid, err)
		}
		h.writeError(w, err)
		return
	}

	status, err := h.service.AddRegistrationProcess(ctx, req)
	if err != nil {
		h.logger.Warn("Workflow instance request failed", map[string]interface{}{
			"requestId":      requestID,
			"registrationId": req.RegistrationID,
			"error":          err,
		})
		h.writeError(w, err)
		return
	}

	h.logger.Info("Workflow instance created", map[string]interface{}{
		"requestId":          requestID,
		"registrationId":     status.RegistrationID,
		"workflowInstanceId": status.WorkflowInstanceID,
	})
	writeJSON(w, http.StatusCreated, status)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleReady runs every readiness check and reports the failing ones.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for _, c := range h.checks {
		if err := c.Fn(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"failed": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	resp := errorResponse{Code: string(stdErr.Code), Message: stdErr.Message}
	if stdErr.Code == errors.ErrCodeWorkflowInstanceInput {
		resp.Details = stdErr.Details
	}
	writeJSON(w, statusFor(stdErr.Code), resp)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeWorkflowInstanceInput:
		return http.StatusBadRequest
	case errors.ErrCodeRegistrationTableAccess:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
