package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/osolnote/internal/admin"
	"github.com/at-ishikawa/osolnote/internal/attachment"
	"github.com/at-ishikawa/osolnote/internal/datasync"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

func newProblemsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "problems",
		Short: "Problem catalog commands",
	}
	command.AddCommand(
		newProblemsImportCommand(),
		newProblemsExportCommand(),
		newProblemsListCommand(),
	)
	return command
}

func newProblemsImportCommand() *cobra.Command {
	var opts datasync.ImportOptions

	command := &cobra.Command{
		Use:   "import FILE.yml",
		Short: "Import problems from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("os.Open(%s) > %w", args[0], err)
			}
			defer func() {
				_ = file.Close()
			}()

			ctx := cmd.Context()
			cfg, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			problems := problem.NewDBRepository(db)
			validator, err := admin.NewService(problems, attachment.NewStorageClient(cfg.Storage))
			if err != nil {
				return fmt.Errorf("admin.NewService() > %w", err)
			}
			result, err := datasync.NewImporter(problems, validator, cmd.OutOrStdout()).ImportYAML(ctx, file, opts)
			if err != nil {
				return err
			}

			prefix := ""
			if opts.DryRun {
				prefix = "[dry run] "
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%sImported %d new, updated %d and skipped %d problem(s) from %s.\n",
				prefix, result.ProblemsNew, result.ProblemsUpdated, result.ProblemsSkipped, args[0])
			return err
		},
	}
	command.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be imported without writing")
	command.Flags().BoolVar(&opts.UpdateExisting, "update-existing", false, "Overwrite problems with the same body and source")
	return command
}

func newProblemsExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE.yml",
		Short: "Export every problem to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			file, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("os.Create(%s) > %w", args[0], err)
			}
			count, err := datasync.NewExporter(problem.NewDBRepository(db)).ExportYAML(ctx, file)
			if closeErr := file.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("close %s: %w", args[0], closeErr)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d problem(s) to %s.\n", count, args[0])
			return err
		},
	}
}

func newProblemsListCommand() *cobra.Command {
	var filter problem.Filter

	command := &cobra.Command{
		Use:   "list",
		Short: "List problems with their answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			problems, err := problem.NewDBRepository(db).FindAll(ctx, filter)
			if err != nil {
				return err
			}
			return printProblems(cmd.OutOrStdout(), problems, true)
		},
	}
	command.Flags().StringVar(&filter.Domain, "domain", "", "only list problems in this domain")
	command.Flags().StringVar(&filter.Source, "source", "", "only list problems from this source")
	return command
}

func printProblems(w io.Writer, problems []problem.Problem, withAnswers bool) error {
	if len(problems) == 0 {
		_, err := fmt.Fprintln(w, "No problems.")
		return err
	}

	header := color.New(color.FgCyan, color.Bold)
	answer := color.New(color.FgGreen)
	for _, p := range problems {
		domain := p.Domain
		if domain == "" {
			domain = "Other"
		}
		if _, err := header.Fprintf(w, "#%d %s (%d points)", p.ID, domain, p.Score); err != nil {
			return err
		}
		if p.Source != "" {
			if _, err := fmt.Fprintf(w, " [%s]", p.Source); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "\n  %s\n", p.Body); err != nil {
			return err
		}
		if withAnswers {
			if _, err := answer.Fprintf(w, "  answer: %s\n", p.Answer); err != nil {
				return err
			}
		}
	}
	return nil
}
