package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"batchdl/internal/config"
	"batchdl/internal/daemon"
	"batchdl/internal/filenames"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/notifications"
	"batchdl/internal/preflight"
	"batchdl/internal/registry"
	"batchdl/internal/submission"
	"batchdl/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	ConfigPath  string
	LogLevel    string
	Development bool
}

// Run starts the batchdl daemon runtime loop. It returns once SIGINT or
// SIGTERM is received or cmdCtx ends. SIGHUP reloads the configuration file.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("batchdl-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "batchdl-*.log", Exclude: []string{logPath}},
	)
	logPreflight(signalCtx, logger, cfg)

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	reg, err := registry.Open(cfg)
	if err != nil {
		logger.Error("open registry", logging.Error(err))
		return err
	}
	defer reg.Close()

	names := filenames.New(cfg.Download.SecretKey)
	seeded, err := SeedFilenames(signalCtx, names, store, cfg.Paths.PublicDir)
	if err != nil {
		return fmt.Errorf("seed filename registry: %w", err)
	}
	logger.Info("filename registry seeded",
		logging.String(logging.FieldEventType, "filenames_seeded"),
		logging.Int("count", seeded),
	)

	notifier := notifications.NewService(cfg)
	processor := workflow.NewProcessor(cfg, store, notifier, logger)
	processor.ConfigureStages(BuildStages(cfg, store, reg, notifier, logger))
	encoder := submission.NewEncoder(cfg, store, reg, names, logger)

	d, err := daemon.New(cfg, store, reg, encoder, processor, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, the lock file, and server.api_bind"),
			logging.String(logging.FieldImpact, "download requests are not served"),
		)
		return err
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "batchdl.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-signalCtx.Done():
			logger.Info("batchdl daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
			return nil
		case <-hangup:
			reload(signalCtx, logger, d, store, reg, opts.ConfigPath)
		}
	}
}

func reload(ctx context.Context, logger *slog.Logger, d *daemon.Daemon, store *jobs.Store, reg *registry.Store, path string) {
	cfg, resolved, _, err := config.Load(path)
	if err != nil {
		logging.WarnWithContext(logger, "configuration reload failed", "config_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the configuration file and send SIGHUP again"),
			logging.String(logging.FieldImpact, "previous configuration stays active"),
		)
		return
	}
	if err := cfg.EnsureDirectories(); err != nil {
		logging.WarnWithContext(logger, "configuration reload failed", "config_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous configuration stays active"),
		)
		return
	}
	notifier := notifications.NewService(cfg)
	if err := d.Reload(ctx, cfg, BuildStages(cfg, store, reg, notifier, logger)); err != nil {
		logging.ErrorWithContext(logger, "configuration reload failed", "config_reload_failed", logging.Error(err))
		return
	}
	logger.Info("configuration file reloaded",
		logging.String(logging.FieldEventType, "config_file_reloaded"),
		logging.String("path", resolved),
	)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String(logging.FieldEventType, "preflight_passed"),
				logging.String("check", result.Name),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "affected stages will fail until fixed"),
		)
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		logger.Info("dependency snapshot",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", dep.Name),
			logging.String("command", dep.Command),
			logging.Bool("available", dep.Available),
			logging.Bool("optional", dep.Optional),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
