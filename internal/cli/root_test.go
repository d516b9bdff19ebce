package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habittracker/internal/auth"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	base := "store:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "habits.db") +
		"\njwt:\n  secret: cli-secret\n  ttl: 1h\nhabits:\n  timezone: UTC\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	dir := writeConfig(t)

	out, err := execute(t, "token", "42", "--config-dir", dir, "--env", "test")
	require.NoError(t, err)

	userID, err := auth.ParseToken(strings.TrimSpace(out), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenCommand_InvalidUser(t *testing.T) {
	_, err := execute(t, "token", "-3", "--config-dir", writeConfig(t))
	assert.Error(t, err)

	_, err = execute(t, "token", "abc", "--config-dir", writeConfig(t))
	assert.Error(t, err)
}

func TestMigrateCommand_SQLite(t *testing.T) {
	dir := writeConfig(t)

	out, err := execute(t, "migrate", "--config-dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
	assert.FileExists(t, filepath.Join(dir, "habits.db"))
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "migrate", "--config-dir", t.TempDir())
	assert.Error(t, err)
}

func TestReplayCommand_RequiresPostgres(t *testing.T) {
	_, err := execute(t, "replay-events", "--config-dir", writeConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
