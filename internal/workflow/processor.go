package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"batchdl/internal/config"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/notifications"
	"batchdl/internal/pipeline"
	"batchdl/internal/stage"
)

// Store is the subset of the job store the processor polls.
type Store interface {
	Oldest(ctx context.Context) (*jobs.Job, error)
	Count(ctx context.Context) (int, error)
}

// Option customizes a Processor.
type Option func(*Processor)

// WithIdleSleep overrides the idle and retry delay.
func WithIdleSleep(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.idleSleep = d
		}
	}
}

// Processor is the single-worker stage processor.
type Processor struct {
	store     Store
	notifier  notifications.Service
	logger    *slog.Logger
	idleSleep time.Duration
	gens      stage.Generations

	mu          sync.RWMutex
	stages      pipeline.StageSet
	running     bool
	wg          sync.WaitGroup
	lastErr     error
	lastAlerted string
	lastJob     *jobs.Job
}

// NewProcessor constructs a processor. Stages must be configured before Start.
func NewProcessor(cfg *config.Config, store Store, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		idleSleep: cfg.IdleSleepDuration(),
	}
	if p.idleSleep <= 0 {
		p.idleSleep = 10 * time.Second
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConfigureStages installs the handlers used by the next generation.
func (p *Processor) ConfigureStages(set pipeline.StageSet) {
	p.mu.Lock()
	p.stages = set
	p.mu.Unlock()
}

// Start begins a generation and launches the worker loop.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(p.stages) == 0 {
		p.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	p.running = true
	p.mu.Unlock()

	p.launch(ctx)
	return nil
}

// Restart installs set and begins a new generation, retiring the current
// loop at its next checkpoint.
func (p *Processor) Restart(ctx context.Context, set pipeline.StageSet) error {
	if len(set) == 0 {
		return errors.New("workflow stages not configured")
	}
	p.ConfigureStages(set)
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	p.launch(ctx)
	return nil
}

// Stop retires the active generation and waits for every loop to exit.
func (p *Processor) Stop() {
	p.gens.Retire()
	p.wg.Wait()
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Processor) launch(ctx context.Context) {
	p.mu.RLock()
	set := p.stages
	p.mu.RUnlock()

	tok := p.gens.Begin()
	p.wg.Add(1)
	go p.run(ctx, tok, set)
}

func (p *Processor) run(ctx context.Context, tok *stage.Token, set pipeline.StageSet) {
	defer p.wg.Done()
	ctx = withGeneration(ctx, tok)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("worker generation started", logging.String(logging.FieldEventType, "generation_started"))
	defer logger.Info("worker generation stopped", logging.String(logging.FieldEventType, "generation_stopped"))

	idle := false
	for {
		if idle && !p.wait(ctx, tok) {
			return
		}
		if stage.Checkpoint(ctx) != nil {
			return
		}

		job, err := p.store.Oldest(ctx)
		if err != nil {
			p.recordFailure(ctx, logger, nil, err)
			idle = true
			continue
		}
		if job == nil {
			idle = true
			continue
		}
		if stage.Checkpoint(ctx) != nil {
			return
		}

		err = p.dispatch(ctx, set, job)
		switch {
		case err == nil:
			idle = false
		case errors.Is(err, stage.ErrCancelled):
			logger.Info("worker generation retired mid-stage",
				logging.String(logging.FieldEventType, "generation_retired"),
				logging.Int64(logging.FieldJobSeq, job.Seq),
				logging.String(logging.FieldStage, string(job.Stage)),
			)
			return
		default:
			p.recordFailure(ctx, logger, job, err)
			idle = true
		}
	}
}

// wait sleeps for the idle interval. It returns false when the generation or
// context ended first.
func (p *Processor) wait(ctx context.Context, tok *stage.Token) bool {
	timer := time.NewTimer(p.idleSleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-tok.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Drain processes jobs on the caller's goroutine until the queue is empty and
// returns the first handler error.
func (p *Processor) Drain(ctx context.Context) error {
	p.mu.RLock()
	set := p.stages
	p.mu.RUnlock()
	if len(set) == 0 {
		return errors.New("workflow stages not configured")
	}
	logger := logging.WithContext(ctx, p.logger)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := p.store.Oldest(ctx)
		if err != nil {
			p.setLastError(err)
			return err
		}
		if job == nil {
			return nil
		}
		if err := p.dispatch(ctx, set, job); err != nil {
			if !errors.Is(err, stage.ErrCancelled) {
				p.recordFailure(ctx, logger, job, err)
			}
			return err
		}
	}
}
