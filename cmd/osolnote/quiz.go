package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/osolnote/internal/cli"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

func newQuizCommand() *cobra.Command {
	var userID string
	var wrongOnly bool
	var bookmarkedOnly bool
	var shuffle bool
	var filter problem.Filter

	command := &cobra.Command{
		Use:   "quiz",
		Short: "Answer problems interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if wrongOnly && bookmarkedOnly {
				return errors.New("--wrong and --bookmarked cannot be combined")
			}

			ctx := cmd.Context()
			_, db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			engine := newEngine(db)
			var problems []problem.Problem
			switch {
			case wrongOnly:
				problems, err = engine.WrongProblems(ctx, userID)
			case bookmarkedOnly:
				problems, err = engine.ReviewProblems(ctx, userID)
			default:
				entries, catalogErr := engine.Catalog(ctx, userID, filter)
				err = catalogErr
				for _, entry := range entries {
					problems = append(problems, entry.Problem)
				}
			}
			if err != nil {
				return err
			}

			quiz := cli.NewProblemQuizCLI(engine, userID, problems, cmd.InOrStdin(), cmd.OutOrStdout())
			if shuffle {
				quiz.ShuffleProblems()
			}
			return quiz.Run(ctx, quiz)
		},
	}
	addUserFlag(command.Flags(), &userID)
	command.Flags().BoolVar(&wrongOnly, "wrong", false, "only problems whose latest attempt was wrong")
	command.Flags().BoolVar(&bookmarkedOnly, "bookmarked", false, "only bookmarked problems")
	command.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle the problems")
	command.Flags().StringVar(&filter.Domain, "domain", "", "only problems in this domain")
	command.Flags().StringVar(&filter.Source, "source", "", "only problems from this source")
	return command
}
