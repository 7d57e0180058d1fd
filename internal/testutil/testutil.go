// Package testutil provides shared test helpers for creating config files, databases and problem fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/osolnote/internal/config"
	"github.com/at-ishikawa/osolnote/internal/database"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

// SetupTestConfig creates a config file using a SQLite database inside tmpDir
// and clears the environment variables that would override it.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	for _, key := range []string{"DB_PASSWORD", "OSOLNOTE_AUTH_SECRET", "OSOLNOTE_STORAGE_API_KEY"} {
		t.Setenv(key, "")
	}
	outputDir := filepath.Join(tmpDir, "sheets")
	require.NoError(t, os.MkdirAll(outputDir, 0755))

	configContent := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
sheet:
  output_directory: %s
`,
		filepath.Join(tmpDir, "osolnote.db"),
		outputDir,
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// NewSQLiteDB opens a migrated SQLite database in a temporary directory.
// It is closed when the test finishes.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(ctx, config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "osolnote.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

// ProblemOption configures optional fields when creating a problem fixture.
type ProblemOption func(*problem.Problem)

// WithAnswer sets the canonical answer. The default is "123".
func WithAnswer(answer string) ProblemOption {
	return func(p *problem.Problem) {
		p.Answer = answer
	}
}

// WithDomain sets the domain. The default is "algebra".
func WithDomain(domain string) ProblemOption {
	return func(p *problem.Problem) {
		p.Domain = domain
	}
}

// WithSource sets where the problem was taken from.
func WithSource(source string) ProblemOption {
	return func(p *problem.Problem) {
		p.Source = source
	}
}

// CreateProblem stores a problem with the given body and returns it with its id.
func CreateProblem(t *testing.T, repo problem.Repository, body string, opts ...ProblemOption) *problem.Problem {
	t.Helper()

	p := &problem.Problem{
		Domain: "algebra",
		Body:   body,
		Answer: "123",
		Score:  3,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}
