package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"batchdl/internal/logging"
)

// PrunePublished removes files in dir last modified more than maxAge ago and
// returns how many were removed. Subdirectories are left alone.
func PrunePublished(dir string, maxAge time.Duration, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read public dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to prune published file",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "prune_failed"),
				logging.String(logging.FieldErrorHint, "check public_dir permissions"),
				logging.String(logging.FieldImpact, "expired download remains available"),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("pruned expired downloads",
			logging.String(logging.FieldEventType, "downloads_pruned"),
			logging.Int("removed", removed),
		)
	}
	return removed, nil
}
