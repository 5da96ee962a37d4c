package pipeline

import (
	"context"
	"os"

	"batchdl/internal/formats"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// Creator opens a fresh work file and writes the format prologue.
type Creator struct {
	base
}

func (c *Creator) Execute(ctx context.Context, job *jobs.Job) error {
	path := c.layout.WorkFile(job)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return c.fail(services.ErrStorage, job, "create work file", err)
	}
	defer file.Close()

	writer, err := formats.New(job.Format, job.Columns)
	if err != nil {
		return c.fail(services.ErrValidation, job, "select format", err)
	}
	out := formats.NewOutput(file, 0)
	if err := writer.Prologue(out); err != nil {
		return c.fail(services.ErrStorage, job, "write prologue", err)
	}
	if err := out.Sync(); err != nil {
		return c.fail(services.ErrStorage, job, "sync work file", err)
	}
	job.FileSize = out.Offset()

	logging.WithContext(ctx, c.logger).Info("work file created",
		logging.String(logging.FieldEventType, "work_file_created"),
		logging.String("path", path),
		logging.Int64("file_size", job.FileSize),
	)
	return c.advance(ctx, job, jobs.StageHarvest)
}

func (c *Creator) HealthCheck(context.Context) stage.Health {
	return directoryHealth(string(c.name), "Work directory", c.layout.WorkDir)
}
