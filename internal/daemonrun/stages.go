package daemonrun

import (
	"context"
	"fmt"
	"log/slog"

	"batchdl/internal/compress"
	"batchdl/internal/config"
	"batchdl/internal/filenames"
	"batchdl/internal/jobs"
	"batchdl/internal/notifications"
	"batchdl/internal/pipeline"
	"batchdl/internal/registry"
)

// BuildStages constructs the production stage handlers for cfg.
func BuildStages(cfg *config.Config, store *jobs.Store, reg *registry.Store, notifier notifications.Service, logger *slog.Logger) pipeline.StageSet {
	return pipeline.NewStageSet(pipeline.Dependencies{
		Config:      cfg,
		Store:       store,
		Source:      reg,
		Directory:   reg,
		Compressors: compress.NewSet(cfg),
		Notifier:    notifier,
		Logger:      logger,
	})
}

// FilenameSource lists filenames already claimed by queued jobs.
type FilenameSource interface {
	Filenames(ctx context.Context) ([]string, error)
}

// SeedFilenames registers every name in use by a queued job or a published
// download so new allocations never collide with them. It returns the
// registry size afterwards.
func SeedFilenames(ctx context.Context, names *filenames.Registry, source FilenameSource, publicDir string) (int, error) {
	queued, err := source.Filenames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list queued filenames: %w", err)
	}
	names.Seed(queued...)
	if _, err := names.SeedFromDir(publicDir); err != nil {
		return 0, err
	}
	return names.Len(), nil
}
