package workflowinstanceintake

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workflow-intake/internal/common/camunda"
	"workflow-intake/internal/common/config"
	"workflow-intake/internal/common/errors"
	"workflow-intake/internal/common/logger"
	"workflow-intake/internal/common/metrics"
	"workflow-intake/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "workflow-instance-intake"

// IntakeService is the part of Service the handler depends on.
type IntakeService interface {
	AddRegistrationProcess(ctx context.Context, req *models.IntakeRequest) (*models.RegistrationStatus, error)
	RecordRejection(ctx context.Context, registrationID string, cause error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	camunda   *camunda.Client
	service   IntakeService
	jobWorker worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Logger       logger.Logger
	Service      IntakeService
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: intake service is required", TaskType)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:  workerConfig,
		logger:  loggerInstance,
		camunda: opts.Camunda,
		service: opts.Service,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing workflow instance intake", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.rejectInput(ctx, job, err)
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute runs one intake outside of a job, e.g. from tests.
func (h *Handler) Execute(ctx context.Context, input *models.IntakeRequest) (*Output, error) {
	status, err := h.service.AddRegistrationProcess(ctx, input)
	if err != nil {
		return nil, err
	}
	return newOutput(status), nil
}

func (h *Handler) parseInput(job entities.Job) (*models.IntakeRequest, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	return ParseRequest(variables)
}

// rejectInput audits a job whose variables failed validation but still name
// a registration.
func (h *Handler) rejectInput(ctx context.Context, job entities.Job, cause error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return
	}
	if rid := RegistrationIDFrom(variables); rid != "" {
		h.service.RecordRejection(ctx, rid, cause)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.variables())
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Workflow instance intake completed", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"registrationId":     output.RegistrationID,
		"workflowInstanceId": output.WorkflowInstanceID,
		"worker":             TaskType,
	})
}

// failJob throws a BPMN error; intake failures are never retried.
func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	bpmnErr := errors.ConvertToBPMNError(errors.Normalize(err))

	h.logger.Error("Workflow instance intake job failed", map[string]interface{}{
		"jobKey":       job.GetKey(),
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"category":     errors.GetErrorCategory(errors.ErrorCode(bpmnErr.Code)),
		"worker":       TaskType,
	})

	cmd := client.NewThrowErrorCommand().
		JobKey(job.GetKey()).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, marshalErr := json.Marshal(bpmnErr.ToErrorVariables()); marshalErr == nil {
		if cmdWithVars, varErr := cmd.VariablesFromString(string(varsJSON)); varErr == nil {
			if _, sendErr := cmdWithVars.Send(ctx); sendErr != nil {
				h.logSendFailure(job, sendErr)
			}
			return
		}
	}

	if _, sendErr := cmd.Send(ctx); sendErr != nil {
		h.logSendFailure(job, sendErr)
	}
}

func (h *Handler) logSendFailure(job entities.Job, err error) {
	h.logger.Error("Failed to send BPMN error to Camunda", map[string]interface{}{
		"jobKey": job.GetKey(),
		"error":  err.Error(),
		"worker": TaskType,
	})
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: camunda client is not configured", TaskType)
	}

	h.jobWorker = camunda.StartWorker(h.camunda, camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h.Handle, h.logger)

	h.logger.Info("Workflow instance intake worker registered with Camunda", map[string]interface{}{
		"taskType":       TaskType,
		"maxJobsActive":  h.config.MaxJobsActive,
		"timeout":        h.config.Timeout.String(),
		"beginningStage": h.config.BeginningStage,
	})

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", map[string]interface{}{
			"worker": TaskType,
		})
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return nil
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func extractErrorCode(err error) string {
	return string(errors.Normalize(err).Code)
}
