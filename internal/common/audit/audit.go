// Package audit records registration processing events.
//
// Sinks are fire-and-forget from the caller's point of view: the intake
// service logs a failed Record and carries on.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workflow-intake/internal/common/metrics"
)

// Event ids, names and types used by the workflow instance service.
const (
	EventIDUpdate    = "RPR_402"
	EventIDException = "RPR_405"

	EventNameUpdate    = "UPDATE"
	EventNameException = "EXCEPTION"

	EventTypeBusiness = "BUSINESS"
	EventTypeSystem   = "SYSTEM"
)

// Event is a single audit record.
type Event struct {
	ID                 string    `json:"id"`
	Description        string    `json:"description"`
	EventID            string    `json:"eventId"`
	EventName          string    `json:"eventName"`
	EventType          string    `json:"eventType"`
	ModuleID           string    `json:"moduleId"`
	ModuleName         string    `json:"moduleName"`
	RegistrationID     string    `json:"registrationId"`
	WorkflowInstanceID string    `json:"workflowInstanceId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// NamedSink labels a Sink for logs and metrics.
type NamedSink struct {
	Name string
	Sink Sink
}

// MultiSink records each event on every sink in order. One failing sink does
// not stop the others. Failures are counted per sink and returned joined,
// each prefixed with the sink name; logging is left to the caller.
type MultiSink struct {
	sinks []NamedSink
}

func NewMultiSink(sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Record(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Record(ctx, event); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}
