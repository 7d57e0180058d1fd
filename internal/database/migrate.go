package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/osolnote/schemas"
)

// Migrate applies the embedded schema files for the pool's driver in file
// name order. Every statement is idempotent, so Migrate may run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	return migrateFS(ctx, db, schemas.Migrations)
}

func migrateFS(ctx context.Context, db *sqlx.DB, fsys fs.FS) error {
	dir := path.Join("migrations", db.DriverName())
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read migrations for %s: %w", db.DriverName(), err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
		slog.Default().Info("applied migration",
			slog.String("driver", db.DriverName()),
			slog.String("file", name),
		)
	}
	return nil
}

// splitStatements splits a schema file on statement-terminating semicolons.
// Schema files must not contain semicolons inside literals or comments.
func splitStatements(content string) []string {
	var stmts []string
	for _, part := range strings.Split(content, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
