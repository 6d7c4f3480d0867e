// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"time"

	"workflow-intake/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	// Name defaults to "<TaskType>-worker".
	Name string
}

// StartWorker opens a job worker for opts.TaskType. A panicking handler is
// logged and the job is left to time out.
func StartWorker(c *Client, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-worker", opts.TaskType)
	}

	return c.GetClient().NewJobWorker().
		JobType(opts.TaskType).
		Handler(recoverHandler(opts.TaskType, handler, log)).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		RequestTimeout(c.config.RequestTimeout).
		Name(name).
		Open()
}

func recoverHandler(taskType string, handler worker.JobHandler, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		defer func() {
			if r := recover(); r != nil {
				log.WithStack().Error("Job handler panicked", map[string]interface{}{
					"jobKey":   job.GetKey(),
					"taskType": taskType,
					"panic":    fmt.Sprint(r),
				})
			}
		}()
		handler(client, job)
	}
}
