package pipeline

import (
	"context"
	"errors"
	"os"

	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/notifications"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// Notifier writes the audit sidecar, emails each recipient, and removes the
// finished job.
type Notifier struct {
	base
	directory Directory
	notifier  notifications.Service
	baseURL   string
}

func (n *Notifier) Execute(ctx context.Context, job *jobs.Job) error {
	logger := logging.WithContext(ctx, n.logger)

	username := job.Requestor
	if n.directory != nil {
		user, err := n.directory.UserByID(ctx, job.Requestor)
		if err != nil {
			return n.fail(services.ErrStorage, job, "lookup requestor", err)
		}
		if user != nil {
			username = user.Username
		}
	}
	sidecar := []byte(username + "\n" + job.RawRequest + "\n")
	if err := os.WriteFile(n.layout.Sidecar(job), sidecar, 0o644); err != nil {
		return n.fail(services.ErrStorage, job, "write request sidecar", err)
	}

	url := DownloadURL(n.baseURL, job.Filename, job.Suffix())
	for _, raw := range job.Notify {
		if err := stage.Checkpoint(ctx); err != nil {
			return err
		}
		recipient := notifications.ParseRecipient(raw)
		err := n.notifier.NotifyDownloadReady(ctx, recipient, url)
		if errors.Is(err, notifications.ErrMailDisabled) {
			logging.WarnWithContext(logger, "download email skipped", "email_skipped",
				logging.String("recipient", recipient.Address),
				logging.String(logging.FieldErrorHint, "set notifications.smtp_host to deliver download links"),
				logging.String(logging.FieldImpact, "recipient must be sent the link manually"),
			)
			continue
		}
		if err != nil {
			return n.fail(services.ErrTransient, job, "notify "+recipient.Address, err)
		}
	}

	if err := stage.Checkpoint(ctx); err != nil {
		return err
	}
	if _, err := n.store.Delete(ctx, job.Seq); err != nil {
		return n.fail(services.ErrStorage, job, "delete job", err)
	}
	logger.Info("download complete",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("url", url),
		logging.Int("recipients", len(job.Notify)),
	)
	return nil
}

func (n *Notifier) HealthCheck(context.Context) stage.Health {
	if n.notifier == nil {
		return stage.Unhealthy(string(n.name), "notifier not configured")
	}
	return directoryHealth(string(n.name), "Public directory", n.layout.PublicDir)
}
