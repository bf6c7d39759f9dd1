package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestSnapshot_View(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "hello", "b.bin": "\x00"})

	stdout, stderr, err := runCLI(t, "snapshot", dir, "--no-tokens")
	require.NoError(t, err)

	assert.Equal(t, "<file path=\""+filepath.Join(dir, "a.txt")+"\">\nhello\n</file>\n", stdout)
	assert.Contains(t, stderr, "complete: 1 included, 1 skipped")
	assert.Contains(t, stderr, "skipped (binary)")
}

func TestSnapshot_JSONWithBudget(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": strings.Repeat("x", 100)})

	stdout, stderr, err := runCLI(t, "snapshot", dir, "--no-tokens", "--format", "json", "--budget", "20")
	require.NoError(t, err)

	var got struct {
		Complete bool     `json:"complete"`
		Budget   int      `json:"budget"`
		Included []string `json:"included"`
		Skipped  []struct {
			Path   string `json:"path"`
			Reason string `json:"reason"`
		} `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.False(t, got.Complete)
	assert.Equal(t, 20, got.Budget)
	assert.Empty(t, got.Included)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "budget", got.Skipped[0].Reason)
	assert.Contains(t, stderr, "partial:")
}

func TestSnapshot_ReportToFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.go": "package main\n"})
	out := filepath.Join(t.TempDir(), "report.md")

	stdout, stderr, err := runCLI(t, "snapshot", dir, "--no-tokens", "--format", "report", "--output", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Output saved to")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- `main.go`")
}

func TestSnapshot_EnvOverride(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "hello"})
	t.Setenv("CTXHUB_BUDGET", "10")

	_, stderr, err := runCLI(t, "snapshot", dir, "--no-tokens")
	require.NoError(t, err)
	assert.Contains(t, stderr, "partial: 0 included, 1 skipped, 0/10 bytes")
}

func TestSnapshot_Errors(t *testing.T) {
	_, _, err := runCLI(t, "snapshot", filepath.Join(t.TempDir(), "missing"), "--no-tokens")
	assert.ErrorContains(t, err, "root does not exist")

	dir := writeFiles(t, map[string]string{"a.txt": "a"})
	_, _, err = runCLI(t, "snapshot", dir, "--no-tokens", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, _, err = runCLI(t, "snapshot", dir, "--no-tokens", "--budget", "-1")
	assert.ErrorContains(t, err, "budget must be at least 1")
}
