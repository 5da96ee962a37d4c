package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"batchdl/internal/fileutil"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// Publisher moves the archive into the public directory. A rerun after a
// completed move succeeds without touching the published file.
type Publisher struct {
	base
}

func (p *Publisher) Execute(ctx context.Context, job *jobs.Job) error {
	src := p.layout.CompressedFile(job)
	dst := p.layout.PublicFile(job)

	_, err := os.Stat(src)
	switch {
	case err == nil:
		if err := fileutil.MoveFile(src, dst); err != nil {
			return p.fail(services.ErrStorage, job, "publish archive", err)
		}
		logging.WithContext(ctx, p.logger).Info("download published",
			logging.String(logging.FieldEventType, "download_published"),
			logging.String("path", dst),
		)
	case errors.Is(err, os.ErrNotExist):
		if _, err := os.Stat(dst); err != nil {
			return p.fail(services.ErrNotFound, job, "publish archive",
				fmt.Errorf("neither %s nor %s exists: %w", src, dst, err))
		}
	default:
		return p.fail(services.ErrStorage, job, "stat archive", err)
	}
	return p.advance(ctx, job, jobs.StageNotify)
}

func (p *Publisher) HealthCheck(context.Context) stage.Health {
	return directoryHealth(string(p.name), "Public directory", p.layout.PublicDir)
}
