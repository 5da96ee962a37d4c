package workflow

import (
	"context"

	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/stage"
)

// StatusSummary represents lightweight worker diagnostics.
type StatusSummary struct {
	Running     bool
	Generation  string
	LastError   string
	LastJob     *jobs.Job
	QueueLength int
	StageHealth []stage.Health
}

// Status returns the latest worker information.
func (p *Processor) Status(ctx context.Context) StatusSummary {
	p.mu.RLock()
	running := p.running
	lastErr := p.lastErr
	lastJob := p.lastJob
	set := p.stages
	p.mu.RUnlock()

	summary := StatusSummary{Running: running}
	if tok := p.gens.Active(); tok != nil {
		summary.Generation = tok.ID
	}
	count, err := p.store.Count(ctx)
	if err != nil {
		p.logger.Warn("failed to read queue length", logging.Error(err))
	}
	summary.QueueLength = count
	if set != nil {
		summary.StageHealth = set.Health(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (p *Processor) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

func (p *Processor) setLastJob(job *jobs.Job) {
	p.mu.Lock()
	if job != nil {
		copy := *job
		p.lastJob = &copy
	} else {
		p.lastJob = nil
	}
	p.mu.Unlock()
}
