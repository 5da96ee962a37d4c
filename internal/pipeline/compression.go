package pipeline

import (
	"context"
	"errors"
	"os"

	"batchdl/internal/compress"
	"batchdl/internal/deps"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// Compressor archives the finished work file.
type Compressor struct {
	base
	tools compress.Set
}

func (c *Compressor) Execute(ctx context.Context, job *jobs.Job) error {
	input := c.layout.WorkFile(job)
	output := c.layout.CompressedFile(job)

	// A retired generation may have left partial output behind.
	if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c.fail(services.ErrStorage, job, "remove stale archive", err)
	}
	tool, err := c.tools.For(job.Compression)
	if err != nil {
		return c.fail(services.ErrConfiguration, job, "select compressor", err)
	}
	if err := stage.Checkpoint(ctx); err != nil {
		return err
	}

	runErr := tool.Compress(ctx, input, output)
	if err := stage.Checkpoint(ctx); err != nil {
		return err
	}
	if runErr != nil {
		return c.fail(services.ErrExternalTool, job, "compress "+string(job.Compression), runErr)
	}

	logging.WithContext(ctx, c.logger).Info("work file compressed",
		logging.String(logging.FieldEventType, "work_file_compressed"),
		logging.String("output", output),
	)
	return c.advance(ctx, job, jobs.StageDelete)
}

func (c *Compressor) HealthCheck(context.Context) stage.Health {
	reqs := make([]deps.Requirement, 0, 2)
	for _, bin := range c.tools.Binaries() {
		reqs = append(reqs, deps.Requirement{Name: bin, Command: bin})
	}
	for _, status := range deps.CheckBinaries(reqs) {
		if !status.Available {
			return stage.Unhealthy(string(c.name), status.Detail)
		}
	}
	return stage.Healthy(string(c.name))
}
