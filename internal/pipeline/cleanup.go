package pipeline

import (
	"context"
	"errors"
	"os"

	"batchdl/internal/jobs"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// Cleaner removes the uncompressed work file.
type Cleaner struct {
	base
}

func (c *Cleaner) Execute(ctx context.Context, job *jobs.Job) error {
	if err := os.Remove(c.layout.WorkFile(job)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c.fail(services.ErrStorage, job, "remove work file", err)
	}
	return c.advance(ctx, job, jobs.StageMove)
}

func (c *Cleaner) HealthCheck(context.Context) stage.Health {
	return directoryHealth(string(c.name), "Work directory", c.layout.WorkDir)
}
