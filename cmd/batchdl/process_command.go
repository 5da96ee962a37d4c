package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"batchdl/internal/config"
	"batchdl/internal/daemonrun"
	"batchdl/internal/jobs"
	"batchdl/internal/notifications"
	"batchdl/internal/registry"
	"batchdl/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run queued jobs to completion without starting the daemon",
		Long: "Process runs every queued job through the remaining pipeline stages on this\n" +
			"process and exits when the queue is empty or a stage fails. Do not run it\n" +
			"while the daemon is processing the same queue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			return ctx.withStores(func(cfg *config.Config, store *jobs.Store, reg *registry.Store) error {
				before, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				notifier := notifications.NewService(cfg)
				processor := workflow.NewProcessor(cfg, store, notifier, logger)
				processor.ConfigureStages(daemonrun.BuildStages(cfg, store, reg, notifier, logger))
				if err := processor.Drain(cmd.Context()); err != nil {
					return fmt.Errorf("process queue: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d job(s)\n", before)
				return nil
			})
		},
	}
}
