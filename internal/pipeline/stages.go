package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"batchdl/internal/compress"
	"batchdl/internal/config"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/mapping"
	"batchdl/internal/notifications"
	"batchdl/internal/registry"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// JobStore persists job progress.
type JobStore interface {
	Update(ctx context.Context, job *jobs.Job) error
	Delete(ctx context.Context, seq int64) (bool, error)
}

// Source pages through an owner's identifier records in identifier order.
type Source interface {
	Harvest(ctx context.Context, owner, after string, limit int) ([]registry.Record, error)
}

// Directory resolves persistent user identifiers.
type Directory interface {
	UserByID(ctx context.Context, id string) (*registry.User, error)
}

// Dependencies are the collaborators shared by the stage handlers.
type Dependencies struct {
	Config      *config.Config
	Store       JobStore
	Source      Source
	Directory   Directory
	Compressors compress.Set
	Notifier    notifications.Service
	Logger      *slog.Logger
}

// StageSet maps each stage to its handler.
type StageSet map[jobs.Stage]stage.Handler

// NewStageSet builds the six handlers from deps.
func NewStageSet(deps Dependencies) StageSet {
	layout := NewLayout(deps.Config)
	mk := func(name jobs.Stage) base {
		return base{
			name:   name,
			store:  deps.Store,
			layout: layout,
			logger: logging.NewComponentLogger(deps.Logger, string(name)),
		}
	}
	pageSize := deps.Config.Download.HarvestPageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	return StageSet{
		jobs.StageCreate: &Creator{base: mk(jobs.StageCreate)},
		jobs.StageHarvest: &Harvester{
			base:       mk(jobs.StageHarvest),
			source:     deps.Source,
			pageSize:   pageSize,
			classifier: mapping.NewClassifier(deps.Config.Download.TestPrefixes),
		},
		jobs.StageCompress: &Compressor{base: mk(jobs.StageCompress), tools: deps.Compressors},
		jobs.StageDelete:   &Cleaner{base: mk(jobs.StageDelete)},
		jobs.StageMove:     &Publisher{base: mk(jobs.StageMove)},
		jobs.StageNotify: &Notifier{
			base:      mk(jobs.StageNotify),
			directory: deps.Directory,
			notifier:  deps.Notifier,
			baseURL:   deps.Config.Server.BaseURL,
		},
	}
}

// For returns the handler for st.
func (s StageSet) For(st jobs.Stage) (stage.Handler, bool) {
	h, ok := s[st]
	return h, ok && h != nil
}

// Health reports each configured handler's readiness in pipeline order.
func (s StageSet) Health(ctx context.Context) []stage.Health {
	out := make([]stage.Health, 0, len(s))
	for _, st := range jobs.Stages() {
		h, ok := s.For(st)
		if !ok {
			out = append(out, stage.Unhealthy(string(st), "handler not configured"))
			continue
		}
		out = append(out, h.HealthCheck(ctx))
	}
	return out
}

type base struct {
	name   jobs.Stage
	store  JobStore
	layout Layout
	logger *slog.Logger
}

func (b *base) fail(marker error, job *jobs.Job, operation string, err error) error {
	return services.Wrap(marker, string(b.name), operation, fmt.Sprintf("job %d (%s)", job.Seq, job.Filename), err)
}

// save checkpoints the generation and persists job progress.
func (b *base) save(ctx context.Context, job *jobs.Job) error {
	if err := stage.Checkpoint(ctx); err != nil {
		return err
	}
	if err := b.store.Update(ctx, job); err != nil {
		return b.fail(services.ErrStorage, job, "persist progress", err)
	}
	return nil
}

// advance persists job at the next stage. The in-memory stage is restored
// when the write fails.
func (b *base) advance(ctx context.Context, job *jobs.Job, next jobs.Stage) error {
	prev := job.Stage
	job.Stage = next
	if err := b.save(ctx, job); err != nil {
		job.Stage = prev
		return err
	}
	logging.WithContext(ctx, b.logger).Debug("stage advanced",
		logging.String(logging.FieldEventType, "stage_advanced"),
		logging.String("next_stage", string(next)),
	)
	return nil
}
