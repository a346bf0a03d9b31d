package cmd

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCLI runs the root command with args and returns combined output.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// TestCLI_EndToEnd drives the whole lifecycle through the command layer
// with the mock provider: create, inspect, generate, and delete.
func TestCLI_EndToEnd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOOM_PROVIDER", "mock")

	out, err := executeCLI(t, "projects", "create", "demo-site", "--template", "react")
	require.NoError(t, err)
	require.Contains(t, out, "created demo-site")
	id := uuidPattern.FindString(out)
	require.NotEmpty(t, id, "create output should carry the project id")

	out, err = executeCLI(t, "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "demo-site [react]")
	assert.Contains(t, out, id)

	// Template scaffold is version 1 across the board.
	out, err = executeCLI(t, "state", "list", "--project", id)
	require.NoError(t, err)
	assert.Contains(t, out, "index.html")
	assert.Contains(t, out, "src/App.tsx")
	assert.Contains(t, out, "v1")

	out, err = executeCLI(t, "generate", "--project", id, "--prompt", "build a landing page", "--allow", "*")
	require.NoError(t, err)
	assert.Contains(t, out, "committed 1 artifact")
	assert.Contains(t, out, "src/App.tsx v2")

	// The old version survives as history.
	out, err = executeCLI(t, "state", "list", "--project", id, "--path", "src/App.tsx")
	require.NoError(t, err)
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "v2")
	assert.Contains(t, out, "superseded")

	out, err = executeCLI(t, "state", "list", "--project", id, "--query", "landing page")
	require.NoError(t, err)
	assert.NotContains(t, out, "no artifacts")

	// Dry run previews without committing anything new.
	out, err = executeCLI(t, "generate", "--project", id, "--prompt", "tweak the styles", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "tokens:")
	assert.Contains(t, out, "tweak the styles")

	out, err = executeCLI(t, "projects", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = executeCLI(t, "state", "list", "--project", id)
	require.Error(t, err, "state of a deleted project should not resolve")
}

func TestCLI_CreateUnknownTemplate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOOM_PROVIDER", "mock")

	_, err := executeCLI(t, "projects", "create", "demo", "--template", "vue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
}

func TestCLI_GenerateRejectsBadProjectID(t *testing.T) {
	// Id parsing happens before any wiring, so no environment is needed.
	_, err := executeCLI(t, "generate", "--project", "not-a-uuid", "--prompt", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid project id")
}

func TestCLI_Version(t *testing.T) {
	out, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "loom "+AppVersion)
}
