package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("OPEN_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "buddy.yaml")
	cfg := strings.Join([]string{
		"storage:",
		"  dir: " + filepath.Join(dir, "data"),
		"scheduler:",
		"  storage: " + filepath.Join(dir, "data", "jobs.json"),
		"knowledge:",
		"  enabled: false",
		"ai:",
		"  api_key: sk-abcdefghijkl",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestChat_SingleMessagePersists(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := execute(t, "-c", cfg, "chat", "add", "task", "buy", "milk")
	require.NoError(t, err)
	assert.Equal(t, "Task added: buy milk\n", out)

	out, err = execute(t, "-c", cfg, "chat", "show tasks")
	require.NoError(t, err)
	assert.Equal(t, "📝 Your tasks:\n1. buy milk\n", out)
}

func TestChat_ReminderIsPersistedForServe(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := execute(t, "-c", cfg, "chat", "--user", "a@b.c", "set reminder stretch at in 30 minutes")
	require.NoError(t, err)
	assert.Equal(t, "Reminder set: stretch at in 30 minutes\n", out)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "data", "jobs.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stretch"`)
	assert.Contains(t, string(data), `"a@b.c"`)
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := execute(t, "-c", cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "sk-a****kl")
	assert.NotContains(t, out, "sk-abcdefghijkl")
	assert.Contains(t, out, "default_city: Hyderabad")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, "config", "init", "-o", path)
	assert.Error(t, err)

	_, err = execute(t, "config", "init", "-o", path, "--force")
	assert.NoError(t, err)
}
