package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"batchdl/internal/api"
	"batchdl/internal/config"
	"batchdl/internal/jobs"
	"batchdl/internal/pipeline"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued download jobs",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueLengthCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued jobs in processing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				views, err := api.NewQueueService(store).List(cmd.Context())
				if err != nil {
					return err
				}
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Seq", "Stage", "Filename", "Format", "Owners", "Progress", "Size"},
					buildQueueRows(views),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func buildQueueRows(views []api.JobView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.FormatInt(view.Seq, 10),
			view.Stage,
			view.Filename,
			view.Format + "/" + view.Compression,
			strconv.Itoa(len(view.Owners)),
			fmt.Sprintf("%d/%d", min(view.CurrentIndex, len(view.Owners)), len(view.Owners)),
			strconv.FormatInt(view.FileSize, 10),
		})
	}
	return rows
}

func newQueueLengthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "length",
		Short: "Print the number of queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				n, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <seq>...",
		Short: "Remove jobs from the queue and discard their work files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs := make([]int64, 0, len(args))
			for _, arg := range args {
				seq, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || seq <= 0 {
					return fmt.Errorf("invalid job sequence %q", arg)
				}
				seqs = append(seqs, seq)
			}
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				layout := pipeline.NewLayout(cfg)
				out := cmd.OutOrStdout()
				for _, seq := range seqs {
					job, err := store.GetBySeq(cmd.Context(), seq)
					if err != nil {
						return err
					}
					if job == nil {
						fmt.Fprintf(out, "Job %d not found\n", seq)
						continue
					}
					if _, err := store.Delete(cmd.Context(), seq); err != nil {
						return err
					}
					for _, path := range []string{layout.WorkFile(job), layout.CompressedFile(job)} {
						if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
							fmt.Fprintf(cmd.ErrOrStderr(), "warn: remove %s: %v\n", path, err)
						}
					}
					fmt.Fprintf(out, "Removed job %d (%s)\n", seq, job.Filename)
				}
				return nil
			})
		},
	}
}
