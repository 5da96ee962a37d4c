package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"batchdl/internal/api"
	"batchdl/internal/config"
	"batchdl/internal/daemonrun"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/notifications"
	"batchdl/internal/preflight"
	"batchdl/internal/registry"
)

const statusTimeout = 2 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, worker, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := fetchDaemonStatus(cmd.Context(), cfg)
			if err != nil {
				local, localErr := localStatus(cmd.Context(), ctx)
				if localErr != nil {
					return localErr
				}
				status = local
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatus(status, shouldColorize(out)))
			return nil
		},
	}
}

// fetchDaemonStatus queries the running daemon's HTTP API.
func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (*api.DaemonStatus, error) {
	bind := strings.TrimSpace(cfg.Server.APIBind)
	if bind == "" {
		return nil, fmt.Errorf("server.api_bind is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token := cfg.Server.APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("daemon status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode daemon status: %w", err)
	}
	return &status, nil
}

// localStatus reconstructs what it can without a daemon.
func localStatus(cmdCtx context.Context, ctx *commandContext) (*api.DaemonStatus, error) {
	var status *api.DaemonStatus
	err := ctx.withStores(func(cfg *config.Config, store *jobs.Store, reg *registry.Store) error {
		count, err := store.Count(cmdCtx)
		if err != nil {
			return err
		}
		stages := daemonrun.BuildStages(cfg, store, reg, notifications.NewService(cfg), logging.NewNop())
		status = &api.DaemonStatus{
			QueueDBPath: store.Path(),
			Workflow: api.WorkflowStatus{
				QueueLength: count,
				StageHealth: api.FromStageHealth(stages.Health(cmdCtx)),
			},
			Dependencies: api.FromDependencies(preflight.CheckSystemDeps(cfg)),
		}
		return nil
	})
	return status, err
}

func renderStatus(status *api.DaemonStatus, colorize bool) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(renderSectionHeader("Daemon", colorize))
	if status.Running {
		line(renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		line(renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	wf := status.Workflow
	switch {
	case wf.Running:
		line(renderStatusLine("Worker", statusOK, "generation "+wf.Generation, colorize))
	case status.Running:
		line(renderStatusLine("Worker", statusWarn, "disabled", colorize))
	default:
		line(renderStatusLine("Worker", statusInfo, "stopped", colorize))
	}
	line(renderStatusLine("Queue", statusInfo, fmt.Sprintf("%d job(s)", wf.QueueLength), colorize))
	if wf.LastJob != nil {
		line(renderStatusLine("Last job", statusInfo, fmt.Sprintf("%d %s (%s)", wf.LastJob.Seq, wf.LastJob.Filename, wf.LastJob.Stage), colorize))
	}
	if wf.LastError != "" {
		line(renderStatusLine("Last error", statusError, wf.LastError, colorize))
	}
	if status.QueueDBPath != "" {
		line(renderStatusLine("Job database", statusInfo, status.QueueDBPath, colorize))
	}

	if len(wf.StageHealth) > 0 {
		line("")
		line(renderSectionHeader("Stages", colorize))
		for _, h := range wf.StageHealth {
			if h.Ready {
				line(renderStatusLine(h.Name, statusOK, "", colorize))
			} else {
				line(renderStatusLine(h.Name, statusError, h.Detail, colorize))
			}
		}
	}

	if len(status.Dependencies) > 0 {
		line("")
		line(renderSectionHeader("Dependencies", colorize))
		rows := make([][]string, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			avail := yesNo(dep.Available)
			if !dep.Available && dep.Optional {
				avail = "no (optional)"
			}
			rows = append(rows, []string{dep.Name, dep.Command, avail, dep.Detail})
		}
		b.WriteString(renderTable([]string{"Name", "Command", "Available", "Detail"}, rows, nil))
	}
	return b.String()
}
