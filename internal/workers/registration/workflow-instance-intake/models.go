package workflowinstanceintake

import "workflow-intake/internal/models"

// Output is what a completed intake job hands back to the process.
type Output struct {
	WorkflowInstanceID    string
	RegistrationID        string
	RegistrationStageName string
	StatusCode            string
	Iteration             int
}

func newOutput(status *models.RegistrationStatus) *Output {
	return &Output{
		WorkflowInstanceID:    status.WorkflowInstanceID,
		RegistrationID:        status.RegistrationID,
		RegistrationStageName: status.RegistrationStageName,
		StatusCode:            status.StatusCode,
		Iteration:             status.Iteration,
	}
}

func (o *Output) variables() map[string]interface{} {
	return map[string]interface{}{
		"workflowInstanceId":    o.WorkflowInstanceID,
		"registrationId":        o.RegistrationID,
		"registrationStageName": o.RegistrationStageName,
		"statusCode":            o.StatusCode,
		"iteration":             o.Iteration,
	}
}
