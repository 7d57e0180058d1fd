package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/osolnote/internal/auth"
	"github.com/at-ishikawa/osolnote/internal/testutil"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantLevel slog.Level
	}{
		{
			name:      "debug mode enabled",
			debugMode: true,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "debug mode disabled",
			debugMode: false,
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(tt.debugMode)
			logger := slog.Default()
			assert.NotNil(t, logger)
			assert.Equal(t, tt.wantLevel <= slog.LevelDebug, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "user", "problems", "review", "quiz"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

// writeConfig writes a config file pointing at a fresh SQLite database.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return testutil.SetupTestConfig(t, dir)
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	configPath := writeConfig(t)

	out, err := runCommand(t, "", "--config", configPath, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "Applied the sqlite schema.\n", out)

	problemsFile := filepath.Join(t.TempDir(), "problems.yml")
	require.NoError(t, os.WriteFile(problemsFile, []byte(`- domain: algebra
  body: Compute 100 + 23.
  answer: "123"
  score: 3
  source: workbook
- domain: geometry
  body: Name the angle of a square corner.
  answer: "90"
`), 0644))

	out, err = runCommand(t, "", "--config", configPath, "problems", "import", problemsFile, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[dry run] Imported 2 new, updated 0 and skipped 0 problem(s)")

	out, err = runCommand(t, "", "--config", configPath, "problems", "import", problemsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 new, updated 0 and skipped 0 problem(s)")

	out, err = runCommand(t, "", "--config", configPath, "problems", "import", problemsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 new, updated 0 and skipped 2 problem(s)")

	exportFile := filepath.Join(t.TempDir(), "export.yml")
	out, err = runCommand(t, "", "--config", configPath, "problems", "export", exportFile)
	require.NoError(t, err)
	assert.Equal(t, "Exported 2 problem(s) to "+exportFile+".\n", out)
	exported, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "body: Compute 100 + 23.")

	out, err = runCommand(t, "", "--config", configPath, "problems", "list", "--domain", "algebra")
	require.NoError(t, err)
	assert.Contains(t, out, "Compute 100 + 23.")
	assert.Contains(t, out, "[workbook]")
	assert.Contains(t, out, "answer: 123")
	assert.NotContains(t, out, "square corner")

	out, err = runCommand(t, "", "--config", configPath, "user", "create", "alice", "--password", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "Created user alice.\n", out)

	_, err = runCommand(t, "secret-pass\n", "--config", configPath, "user", "create", "alice")
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)

	out, err = runCommand(t, "other-pass\n", "--config", configPath, "user", "create", "bob")
	require.NoError(t, err)
	assert.Equal(t, "Created user bob.\n", out)

	out, err = runCommand(t, "", "--config", configPath, "review", "wrong", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "No problems.\n", out)

	out, err = runCommand(t, "", "--config", configPath, "review", "stats", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "No attempts.\n", out)

	// Newest first: the geometry problem is asked before the algebra one.
	out, err = runCommand(t, "91\ny\n124\n\n", "--config", configPath, "quiz", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Bookmarked.")
	assert.Contains(t, out, "You answered 0 of 2 correctly.")

	out, err = runCommand(t, "", "--config", configPath, "review", "wrong", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "2 problem(s) to retry")
	assert.NotContains(t, out, "answer:")

	out, err = runCommand(t, "90\n", "--config", configPath, "quiz", "--user", "alice", "--bookmarked")
	require.NoError(t, err)
	assert.Contains(t, out, "Name the angle of a square corner.")
	assert.Contains(t, out, "You answered 1 of 1 correctly.")

	out, err = runCommand(t, "", "--config", configPath, "review", "stats", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "33.3%")

	_, err = runCommand(t, "", "--config", configPath, "quiz", "--user", "alice", "--wrong", "--bookmarked")
	assert.EqualError(t, err, "--wrong and --bookmarked cannot be combined")

	_, err = runCommand(t, "", "--config", configPath, "review", "wrong")
	assert.EqualError(t, err, "--user is required")

	outputDir := t.TempDir()
	out, err = runCommand(t, "", "--config", configPath, "review", "sheet", "-u", "alice", "-o", outputDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+outputDir)
	matches, err := filepath.Glob(filepath.Join(outputDir, "alice-review-*.pdf"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestImportRejectsInvalidProblems(t *testing.T) {
	configPath := writeConfig(t)
	_, err := runCommand(t, "", "--config", configPath, "migrate")
	require.NoError(t, err)

	problemsFile := filepath.Join(t.TempDir(), "problems.yml")
	require.NoError(t, os.WriteFile(problemsFile, []byte("- body: no answer\n"), 0644))

	_, err = runCommand(t, "", "--config", configPath, "problems", "import", problemsFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem #1")
}

func TestRandomSecret(t *testing.T) {
	first, err := randomSecret()
	require.NoError(t, err)
	second, err := randomSecret()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
