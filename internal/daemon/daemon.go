package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"batchdl/internal/config"
	"batchdl/internal/deps"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/pipeline"
	"batchdl/internal/preflight"
	"batchdl/internal/registry"
	"batchdl/internal/submission"
	"batchdl/internal/workflow"
)

// LockFileName is created next to the job database.
const LockFileName = "batchdl.lock"

// Accounts resolves the authenticated principal of a download request.
type Accounts interface {
	UserByUsername(ctx context.Context, username string) (*registry.User, error)
}

// Daemon coordinates the background worker and HTTP surface and enforces
// single-instance execution.
type Daemon struct {
	logger    *slog.Logger
	store     *jobs.Store
	accounts  Accounts
	encoder   *submission.Encoder
	processor *workflow.Processor

	cfgMu sync.RWMutex
	cfg   *config.Config

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	server  *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, accounts Accounts, encoder *submission.Encoder, processor *workflow.Processor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || accounts == nil || encoder == nil || processor == nil {
		return nil, errors.New("daemon requires config, store, accounts, encoder, and processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(filepath.Dir(cfg.Paths.DatabasePath), LockFileName)
	d := &Daemon{
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		accounts:  accounts,
		encoder:   encoder,
		processor: processor,
		cfg:       cfg,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.server = newAPIServer(d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the worker when downloads are
// enabled, and begins serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another batchdl daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	cfg := d.config()
	if cfg.Download.Enabled {
		if err := d.processor.Start(d.ctx); err != nil {
			d.abortStart()
			return fmt.Errorf("start workflow: %w", err)
		}
	} else {
		d.logger.Info("batch download worker disabled",
			logging.String(logging.FieldEventType, "worker_disabled"),
			logging.String(logging.FieldImpact, "requests are queued but not processed"),
		)
	}

	if err := d.server.start(d.ctx, cfg.Server.APIBind); err != nil {
		d.processor.Stop()
		d.abortStart()
		return err
	}

	d.wg.Add(1)
	go d.pruneLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("batchdl daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.server.stop()
	d.processor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("batchdl daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Reload applies a new configuration. The encoder picks up the new settings
// for subsequent requests and the worker restarts under a new generation
// with stages built from cfg.
func (d *Daemon) Reload(ctx context.Context, cfg *config.Config, stages pipeline.StageSet) error {
	if cfg == nil {
		return errors.New("reload requires a config")
	}
	d.cfgMu.Lock()
	d.cfg = cfg
	d.cfgMu.Unlock()
	d.encoder.Reconfigure(cfg)

	if !d.running.Load() {
		d.processor.ConfigureStages(stages)
		return nil
	}
	if !cfg.Download.Enabled {
		d.processor.Stop()
		d.processor.ConfigureStages(stages)
		d.logger.Info("batch download worker disabled by reload", logging.String(logging.FieldEventType, "worker_disabled"))
		return nil
	}
	if err := d.processor.Restart(d.ctx, stages); err != nil {
		return fmt.Errorf("restart workflow: %w", err)
	}
	d.logger.Info("configuration reloaded", logging.String(logging.FieldEventType, "config_reloaded"))
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	cfg := d.config()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.processor.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(cfg),
	}
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Addr returns the bound HTTP address once the daemon is serving.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

func (d *Daemon) config() *config.Config {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.cfg
}
