package audit

import (
	"context"

	"workflow-intake/internal/common/logger"
)

// LogSink writes events to the structured log.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log.WithFields(map[string]interface{}{"component": "audit"})}
}

func (s *LogSink) Record(_ context.Context, e Event) error {
	s.logger.Info(e.Description, map[string]interface{}{
		"auditId":            e.ID,
		"eventId":            e.EventID,
		"eventName":          e.EventName,
		"eventType":          e.EventType,
		"moduleId":           e.ModuleID,
		"moduleName":         e.ModuleName,
		"registrationId":     e.RegistrationID,
		"workflowInstanceId": e.WorkflowInstanceID,
	})
	return nil
}
