package daemon

import (
	"context"
	"time"

	"batchdl/internal/logging"
	"batchdl/internal/pipeline"
)

func (d *Daemon) pruneLoop(ctx context.Context) {
	defer d.wg.Done()
	d.prunePublished()
	for {
		interval := d.config().PruneIntervalDuration()
		if interval <= 0 {
			interval = time.Hour
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.prunePublished()
		}
	}
}

func (d *Daemon) prunePublished() {
	cfg := d.config()
	removed, err := pipeline.PrunePublished(cfg.Paths.PublicDir, cfg.RetentionPeriod(), d.logger)
	if err != nil {
		logging.WarnWithContext(d.logger, "public download prune failed", "prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.public_dir permissions"),
			logging.String(logging.FieldImpact, "expired downloads stay published"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("pruned expired downloads",
			logging.String(logging.FieldEventType, "downloads_pruned"),
			logging.Int("removed", removed),
		)
	}
}
