package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"batchdl/internal/config"
	"batchdl/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage identifier records, users, and groups",
	}
	registryCmd.AddCommand(newRegistryImportCommand(ctx))
	registryCmd.AddCommand(newRegistryAddUserCommand(ctx))
	registryCmd.AddCommand(newRegistryAddGroupCommand(ctx))
	return registryCmd
}

func newRegistryImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import identifier records from JSON lines",
		Long: "Each line is an object of the form\n" +
			`  {"identifier":"ark:/13030/x","owner":"ark:/99166/alice","metadata":{"_p":"erc"}}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer file.Close()
				in = file
			}
			return ctx.withRegistry(func(_ *config.Config, reg *registry.Store) error {
				n, err := reg.ImportIdentifiers(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("import stopped after %d record(s): %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s)\n", n)
				return nil
			})
		},
	}
}

func newRegistryAddUserCommand(ctx *commandContext) *cobra.Command {
	var user registry.User
	cmd := &cobra.Command{
		Use:   "add-user <id> <username>",
		Short: "Add or replace a user account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user.ID = strings.TrimSpace(args[0])
			user.Username = strings.TrimSpace(args[1])
			return ctx.withRegistry(func(_ *config.Config, reg *registry.Store) error {
				if err := reg.AddUser(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s saved (group %q, superuser %s, group admin %s)\n",
					user.Username, user.Group, yesNo(user.Superuser), yesNo(user.GroupAdmin))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&user.Group, "group", "g", "", "Group name the user belongs to")
	cmd.Flags().BoolVar(&user.Superuser, "superuser", false, "Grant access to every owner and group")
	cmd.Flags().BoolVar(&user.GroupAdmin, "group-admin", false, "Grant access to every member of the user's group")
	return cmd
}

func newRegistryAddGroupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-group <id> <name>",
		Short: "Add or replace a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := registry.Group{ID: strings.TrimSpace(args[0]), Name: strings.TrimSpace(args[1])}
			return ctx.withRegistry(func(_ *config.Config, reg *registry.Store) error {
				if err := reg.AddGroup(cmd.Context(), group); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Group %s saved\n", group.Name)
				return nil
			})
		},
	}
}
