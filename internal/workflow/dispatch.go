package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/pipeline"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

func withGeneration(ctx context.Context, tok *stage.Token) context.Context {
	ctx = stage.WithToken(ctx, tok)
	return services.WithGeneration(ctx, tok.ID)
}

func (p *Processor) dispatch(ctx context.Context, set pipeline.StageSet, job *jobs.Job) error {
	handler, ok := set.For(job.Stage)
	if !ok {
		return services.Wrap(services.ErrConfiguration, string(job.Stage), "dispatch",
			fmt.Sprintf("job %d (%s): no handler for stage", job.Seq, job.Filename), nil)
	}

	jobCtx := services.WithJobSeq(ctx, job.Seq)
	jobCtx = services.WithStage(jobCtx, string(job.Stage))
	p.setLastJob(job)

	logger := logging.WithContext(jobCtx, p.logger)
	started := time.Now()
	logger.Debug("stage started",
		logging.String(logging.FieldEventType, "stage_started"),
		logging.String(logging.FieldFilename, job.Filename),
	)
	if err := handler.Execute(jobCtx, job); err != nil {
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String(logging.FieldFilename, job.Filename),
		logging.Duration("duration", time.Since(started)),
	)
	p.clearAlert()
	return nil
}

func (p *Processor) recordFailure(ctx context.Context, logger *slog.Logger, job *jobs.Job, err error) {
	p.setLastError(err)

	attrs := []logging.Attr{
		logging.Error(err),
		logging.String("error_category", services.Category(err)),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
		logging.String(logging.FieldImpact, "job stays at its stage and is retried"),
	}
	label := "job queue"
	if job != nil {
		label = fmt.Sprintf("job %d %s", job.Seq, job.Stage)
		attrs = append(attrs,
			logging.Int64(logging.FieldJobSeq, job.Seq),
			logging.String(logging.FieldStage, string(job.Stage)),
			logging.String(logging.FieldFilename, job.Filename),
		)
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failed", attrs...)

	if !p.shouldAlert(err) || p.notifier == nil {
		return
	}
	if alertErr := p.notifier.NotifyPipelineError(ctx, err, label); alertErr != nil {
		logger.Warn("operator alert failed",
			logging.Error(alertErr),
			logging.String(logging.FieldEventType, "alert_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// shouldAlert reports whether err differs from the last alerted failure.
func (p *Processor) shouldAlert(err error) bool {
	msg := err.Error()
	p.mu.Lock()
	defer p.mu.Unlock()
	if msg == p.lastAlerted {
		return false
	}
	p.lastAlerted = msg
	return true
}

func (p *Processor) clearAlert() {
	p.mu.Lock()
	p.lastAlerted = ""
	p.mu.Unlock()
}
