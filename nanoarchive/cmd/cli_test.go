package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupEnv isolates the CLI from the user's config, logs and cache
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("NANOARCHIVE_CONFIG", "")
	t.Setenv("NANOARCHIVE_ROOT", filepath.Join(dir, "archives"))
	t.Setenv("NANOARCHIVE_SUBDIR", "com.test.archives")
	t.Setenv("NANOARCHIVE_NO_COLOR", "true")
	t.Chdir(dir)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := NewCLI()
	var out bytes.Buffer
	cli.rootCmd.SetOut(&out)
	cli.rootCmd.SetErr(&out)
	cli.rootCmd.SetArgs(args)
	err := cli.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const response = `{
  "items": [
    {"id": "42", "name": "Widget"},
    {"id": 7, "name": "Numbered"},
    {"name": "No identifier"}
  ]
}`

func TestPathCommand(t *testing.T) {
	dir := setupEnv(t)

	out, err := runCLI(t, "path", "Widget", "42")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "archives", "com.test.archives", "Widget", "42.json")+"\n", out)

	out, err = runCLI(t, "--format", "yaml", "path", "Widget", "42")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "42.yaml"))

	_, err = runCLI(t, "path", "Widget", "../42")
	require.Error(t, err)
}

func TestImportShowAndList(t *testing.T) {
	for _, backend := range []string{"os", "bolt", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := setupEnv(t)
			t.Setenv("NANOARCHIVE_BACKEND", backend)
			file := writeFile(t, dir, "response.json", response)

			out, err := runCLI(t, "import", "Widget", file, "--key", "items")
			require.NoError(t, err)
			require.Contains(t, out, "imported 2 of 3 objects into Widget")

			out, err = runCLI(t, "ls")
			require.NoError(t, err)
			require.Equal(t, "Widget\n", out)

			out, err = runCLI(t, "ls", "Widget")
			require.NoError(t, err)
			require.Equal(t, "42\n7\n", out)

			out, err = runCLI(t, "show", "Widget", "42")
			require.NoError(t, err)
			require.JSONEq(t, `{"id":"42","name":"Widget"}`, out)

			out, err = runCLI(t, "show", "Widget", "7", "--output", "yaml")
			require.NoError(t, err)
			require.Contains(t, out, "name: Numbered")

			_, err = runCLI(t, "show", "Widget", "99")
			require.ErrorContains(t, err, `no entry "99" in Widget`)
		})
	}
}

func TestImportTopLevelShapes(t *testing.T) {
	dir := setupEnv(t)

	list := writeFile(t, dir, "list.json", `[{"id":"a"},{"id":"b"}]`)
	out, err := runCLI(t, "import", "Gadget", list)
	require.NoError(t, err)
	require.Contains(t, out, "imported 2 of 2")

	single := writeFile(t, dir, "single.json", `{"sku":"c","name":"Single"}`)
	out, err = runCLI(t, "import", "Gadget", single, "--id-field", "sku")
	require.NoError(t, err)
	require.Contains(t, out, "imported 1 of 1")

	out, err = runCLI(t, "ls", "Gadget")
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", out)

	broken := writeFile(t, dir, "broken.json", `{"id":`)
	_, err = runCLI(t, "import", "Gadget", broken)
	require.Error(t, err)
}

func TestImportKeepsObjectsWithNullFields(t *testing.T) {
	dir := setupEnv(t)
	file := writeFile(t, dir, "nulls.json", `[
  {"id": "7", "name": "Gear", "description": null, "dims": {"w": 2, "h": null}},
  {"id": null, "name": "No identifier"}
]`)

	out, err := runCLI(t, "import", "Part", file)
	require.NoError(t, err)
	require.Contains(t, out, "imported 1 of 2 objects into Part")

	out, err = runCLI(t, "show", "Part", "7")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"7","name":"Gear","dims":{"w":2}}`, out)
}

func TestRemoveAndClear(t *testing.T) {
	dir := setupEnv(t)
	file := writeFile(t, dir, "response.json", response)

	_, err := runCLI(t, "import", "Widget", file, "--key", "items")
	require.NoError(t, err)

	_, err = runCLI(t, "rm", "Widget", "42", "missing")
	require.NoError(t, err)

	out, err := runCLI(t, "ls", "Widget")
	require.NoError(t, err)
	require.Equal(t, "7\n", out)

	_, err = runCLI(t, "clear")
	require.ErrorContains(t, err, "--yes")

	out, err = runCLI(t, "clear", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "cleared")
	require.NoDirExists(t, filepath.Join(dir, "archives", "com.test.archives"))

	// Clearing an absent tree succeeds
	_, err = runCLI(t, "clear", "--yes")
	require.NoError(t, err)
}

func TestInvalidSettings(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "--backend", "redis", "ls")
	require.Error(t, err)

	_, err = runCLI(t, "--format", "plist", "ls")
	require.Error(t, err)
}

func TestLogFile(t *testing.T) {
	dir := setupEnv(t)

	_, err := runCLI(t, "--log-level", "debug", "ls")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "cache", "nanoarchive", "nanoarchive.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "logging initialized")
}
