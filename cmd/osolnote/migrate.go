package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/osolnote/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema for the configured driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Applied the %s schema.\n", cfg.Database.Driver)
			return err
		},
	}
}
