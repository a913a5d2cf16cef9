package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownCommandSuggestion(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "whoamy")
	require.Error(t, r.err)
	assert.Equal(t, exitUsage, ExitCode(r.err))
	assert.Contains(t, r.stderr, `Did you mean "whoami"?`)
}

func TestUnknownFlagSuggestion(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "call", "GET", "/x", "--feild", "a=b")
	require.Error(t, r.err)
	assert.Equal(t, exitUsage, ExitCode(r.err))
	assert.Contains(t, r.stderr, `Did you mean "--field"?`)
	assert.Contains(t, r.stderr, `Run "sl call --help"`)
}

func TestJSONConflictsWithOutput(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "version", "--json", "--output", "text")
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "--json conflicts with --output text")
}

func TestInvalidOutput(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "version", "--output", "yaml")
	require.Error(t, r.err)
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "version")
	require.NoError(t, r.err)
	assert.Equal(t, "sl version dev\n", r.stdout)

	r = runCLI(t, "", "version", "-j")
	require.NoError(t, r.err)
	assert.JSONEq(t, `{"version":"dev"}`, r.stdout)
}

func TestEnvFile(t *testing.T) {
	setupTestEnv(t)

	path := filepath.Join(t.TempDir(), "staffline.env")
	require.NoError(t, os.WriteFile(path, []byte("STAFFLINE_BASE_URL=http://env-file.test/api\nSTAFFLINE_STORAGE=memory\n"), 0o600))
	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv("STAFFLINE_BASE_URL"))

	r := runCLI(t, "", "config", "show", "--json", "--env-file", path)
	require.NoError(t, r.err, r.stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &got))
	assert.Equal(t, "http://env-file.test/api", got["base_url"])
	assert.Equal(t, "memory", got["storage"])
}

func TestEnvFileArg(t *testing.T) {
	assert.Equal(t, "a.env", envFileArg([]string{"status", "--env-file", "a.env"}))
	assert.Equal(t, "b.env", envFileArg([]string{"--env-file=b.env", "status"}))
	assert.Empty(t, envFileArg([]string{"status", "--env-file"}))
	assert.Empty(t, envFileArg(nil))
}

func TestInvalidTransportFlag(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "--transport", "carrier-pigeon", "status")
	require.Error(t, r.err)
	assert.Equal(t, exitUsage, ExitCode(r.err))
	assert.Contains(t, r.stderr, "invalid --transport")
}

func TestInvalidStorageFlag(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "--storage", "floppy", "status")
	require.Error(t, r.err)
	assert.Equal(t, exitUsage, ExitCode(r.err))
}

func TestInvalidBaseURL(t *testing.T) {
	setupTestEnv(t)

	r := runCLI(t, "", "--base-url", "http://169.254.169.254/api", "status")
	require.Error(t, r.err)
	assert.Equal(t, exitUsage, ExitCode(r.err))
	assert.Contains(t, r.stderr, "cloud metadata endpoints are not allowed")
}
