package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/osolnote/internal/attempt"
	"github.com/at-ishikawa/osolnote/internal/bookmark"
	"github.com/at-ishikawa/osolnote/internal/config"
	"github.com/at-ishikawa/osolnote/internal/database"
	"github.com/at-ishikawa/osolnote/internal/problem"
	"github.com/at-ishikawa/osolnote/internal/review"
)

var (
	configFile string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
	os.Exit(0)
}

func newRootCommand() *cobra.Command {
	var debugMode bool
	rootCommand := &cobra.Command{
		Use:           "osolnote",
		Short:         "Study problems, grade answers and review mistakes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	rootCommand.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newUserCommand(),
		newProblemsCommand(),
		newReviewCommand(),
		newQuizCommand(),
	)
	return rootCommand
}

// setupLogger configures the default logger based on debug mode
func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// openDatabase loads the configuration and connects to its database.
func openDatabase(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database.Connect() > %w", err)
	}
	return cfg, db, nil
}

func newEngine(db *sqlx.DB) *review.Engine {
	return review.NewEngine(
		problem.NewDBRepository(db),
		attempt.NewDBRepository(db),
		bookmark.NewDBRepository(db),
	)
}

func addUserFlag(flags *pflag.FlagSet, userID *string) {
	flags.StringVarP(userID, "user", "u", "", "username whose review state is read")
}

func closeDatabase(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		slog.Default().Error("failed to close the database", slog.Any("error", err))
	}
}
