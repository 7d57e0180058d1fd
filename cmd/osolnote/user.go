package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/osolnote/internal/auth"
	"github.com/at-ishikawa/osolnote/internal/user"
)

func newUserCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "user",
		Short: "User account commands",
	}
	command.AddCommand(newUserCreateCommand())
	return command
}

func newUserCreateCommand() *cobra.Command {
	var password string

	command := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			ctx := cmd.Context()
			cfg, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			service := auth.NewService(user.NewDBRepository(db), cfg.Auth.Secret, cfg.Auth.TokenTTL)
			if err := service.Register(ctx, args[0], password); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created user %s.\n", args[0])
			return err
		},
	}
	command.Flags().StringVar(&password, "password", "", "password for the new user (read from stdin when omitted)")
	return command
}
