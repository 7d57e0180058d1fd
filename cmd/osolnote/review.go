package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/osolnote/internal/attempt"
	"github.com/at-ishikawa/osolnote/internal/sheet"
	"github.com/at-ishikawa/osolnote/internal/statistics"
)

func newReviewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "review",
		Short: "Review commands for a user",
	}
	command.AddCommand(
		newReviewWrongCommand(),
		newReviewSheetCommand(),
		newReviewStatsCommand(),
	)
	return command
}

func newReviewWrongCommand() *cobra.Command {
	var userID string

	command := &cobra.Command{
		Use:   "wrong",
		Short: "List the problems whose latest attempt was wrong",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			problems, err := newEngine(db).WrongProblems(ctx, userID)
			if err != nil {
				return err
			}
			if len(problems) > 0 {
				if _, err := color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "%d problem(s) to retry\n", len(problems)); err != nil {
					return err
				}
			}
			return printProblems(cmd.OutOrStdout(), problems, false)
		},
	}
	addUserFlag(command.Flags(), &userID)
	return command
}

func newReviewSheetCommand() *cobra.Command {
	var userID string
	var outputDir string

	command := &cobra.Command{
		Use:   "sheet",
		Short: "Export the bookmarked problems as a printable PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			ctx := cmd.Context()
			cfg, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if outputDir == "" {
				outputDir = cfg.Sheet.OutputDirectory
			}
			path, err := sheet.NewGenerator(newEngine(db), cfg.Sheet.Template).WritePDF(ctx, userID, outputDir)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}
	addUserFlag(command.Flags(), &userID)
	command.Flags().StringVarP(&outputDir, "output", "o", "", "directory to write the sheet to (defaults to sheet.output_directory)")
	return command
}

func newReviewStatsCommand() *cobra.Command {
	var userID string
	var year int
	var month int

	command := &cobra.Command{
		Use:   "stats",
		Short: "Show monthly answer statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if month != 0 && year == 0 {
				return errors.New("--month requires --year")
			}

			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			attempts, err := attempt.NewDBRepository(db).FindByUser(ctx, userID)
			if err != nil {
				return err
			}
			return printStatistics(cmd.OutOrStdout(), statistics.CalculateStatistics(attempts, year, month))
		},
	}
	addUserFlag(command.Flags(), &userID)
	command.Flags().IntVar(&year, "year", 0, "only count attempts in this year")
	command.Flags().IntVar(&month, "month", 0, "only count attempts in this month (1-12)")
	return command
}

func printStatistics(w io.Writer, result statistics.StatisticsResult) error {
	if len(result.Periods) == 0 {
		_, err := fmt.Fprintln(w, "No attempts.")
		return err
	}

	bold := color.New(color.Bold)
	if _, err := bold.Fprintf(w, "%-8s %8s %8s %9s %9s %7s\n", "Period", "Attempts", "Correct", "Problems", "Solved", "Rate"); err != nil {
		return err
	}
	for _, p := range result.Periods {
		if _, err := fmt.Fprintf(w, "%-8s %8d %8d %9d %9d %6.1f%%\n",
			p.Period, p.AttemptsCount, p.CorrectCount, p.ProblemsUnique, p.NewlySolvedCount, p.Accuracy()*100); err != nil {
			return err
		}
	}
	total := statistics.ReviewStatistics{
		Period:           "Total",
		AttemptsCount:    result.Aggregate.AttemptsCount,
		CorrectCount:     result.Aggregate.CorrectCount,
		ProblemsUnique:   result.Aggregate.ProblemsUnique,
		NewlySolvedCount: result.Aggregate.NewlySolvedCount,
	}
	_, err := bold.Fprintf(w, "%-8s %8d %8d %9d %9d %6.1f%%\n",
		total.Period, total.AttemptsCount, total.CorrectCount, total.ProblemsUnique, total.NewlySolvedCount, total.Accuracy()*100)
	return err
}
