package stage

import (
	"context"

	"batchdl/internal/jobs"
)

// Handler describes the contract the stage processor needs from each stage.
// Execute performs one unit of work for job and persists the job's next stage
// before returning nil.
type Handler interface {
	Execute(context.Context, *jobs.Job) error
	HealthCheck(context.Context) Health
}
