package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"batchdl/internal/config"
	"batchdl/internal/daemonrun"
	"batchdl/internal/filenames"
	"batchdl/internal/jobs"
	"batchdl/internal/registry"
	"batchdl/internal/submission"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "submit key=value...",
		Short: "Queue a download request on behalf of a registry user",
		Example: "  batchdl submit --user alice format=csv column=_id column=_mappedTitle\n" +
			"  batchdl submit --user alice format=anvl owner=bob notify='Bob <bob@example.org>'",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := encodeParams(args)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			return ctx.withStores(func(cfg *config.Config, store *jobs.Store, reg *registry.Store) error {
				user, err := reg.UserByUsername(cmd.Context(), strings.TrimSpace(username))
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("no such user: %s", username)
				}

				names := filenames.New(cfg.Download.SecretKey)
				if _, err := daemonrun.SeedFilenames(cmd.Context(), names, store, cfg.Paths.PublicDir); err != nil {
					return err
				}
				encoder := submission.NewEncoder(cfg, store, reg, names, logger)
				resp := encoder.SubmitEncoded(cmd.Context(), *user, raw)
				fmt.Fprintln(cmd.OutOrStdout(), resp.String())
				if resp.Status != submission.StatusSuccess {
					return errors.New("request rejected")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Registry username submitting the request")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// encodeParams form-encodes key=value arguments in the order given.
func encodeParams(args []string) (string, error) {
	pairs := make([]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return "", fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return strings.Join(pairs, "&"), nil
}
