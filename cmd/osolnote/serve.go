package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/osolnote/internal/admin"
	"github.com/at-ishikawa/osolnote/internal/attachment"
	"github.com/at-ishikawa/osolnote/internal/auth"
	"github.com/at-ishikawa/osolnote/internal/bootstrap"
	"github.com/at-ishikawa/osolnote/internal/database"
	"github.com/at-ishikawa/osolnote/internal/problem"
	"github.com/at-ishikawa/osolnote/internal/server"
	"github.com/at-ishikawa/osolnote/internal/sheet"
	"github.com/at-ishikawa/osolnote/internal/user"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), migrate)
		},
	}
	command.Flags().BoolVar(&migrate, "migrate", false, "Apply the database schema before serving")
	return command
}

func runServer(ctx context.Context, migrate bool) error {
	app := bootstrap.New()

	cfg, db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	app.AddShutdownHook(func(ctx context.Context) error {
		return db.Close()
	})
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("database.Migrate() > %w", err)
		}
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			_ = db.Close()
			return err
		}
		slog.Default().Warn("auth.secret is not set; sessions will not survive a restart")
	}

	problems := problem.NewDBRepository(db)
	engine := newEngine(db)
	adminService, err := admin.NewService(problems, attachment.NewStorageClient(cfg.Storage))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("admin.NewService() > %w", err)
	}
	handler, err := server.New(
		*cfg,
		engine,
		auth.NewService(user.NewDBRepository(db), secret, cfg.Auth.TokenTTL),
		adminService,
		sheet.NewGenerator(engine, cfg.Sheet.Template),
	).Handler()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("server.Handler() > %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
	app.AddShutdownHook(srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		slog.Default().Info("Starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate auth secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
