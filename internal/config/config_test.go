package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
	"github.com/stretchr/testify/require"
)

// isolate points config discovery at an empty directory
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(EnvPrefix+"_CONFIG", "")
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	s, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "cache"), s.Root)
	require.Equal(t, "json", s.Format)
	require.Equal(t, BackendOS, s.Backend)
	require.Equal(t, "warn", s.LogLevel)
	require.Equal(t, 3*time.Second, s.LockTimeout)

	cfg := s.ArchiveConfig()
	require.True(t, cfg.FileLocking)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	dir := isolate(t)
	t.Setenv("NANOARCHIVE_ROOT", dir)
	t.Setenv("NANOARCHIVE_SUBDIR", "com.env.archives")
	t.Setenv("NANOARCHIVE_FORMAT", "yaml")
	t.Setenv("NANOARCHIVE_BACKEND", "sqlite")
	t.Setenv("NANOARCHIVE_LOCK_TIMEOUT", "5s")
	t.Setenv("NANOARCHIVE_LOG_LEVEL", "DEBUG")

	s, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, Settings{
		Root:        dir,
		Subdir:      "com.env.archives",
		Format:      "yaml",
		Backend:     BackendSQLite,
		LockTimeout: 5 * time.Second,
		LogLevel:    "debug",
	}, s)
	require.Equal(t, filepath.Join(dir, "com.env.archives.sqlite"), s.DatabasePath())
	require.False(t, s.ArchiveConfig().FileLocking)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	content := "root: " + dir + "\nsubdir: com.file.archives\nbackend: bolt\ndatabase: " + filepath.Join(dir, "db.bolt") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nanoarchive.yaml"), []byte(content), 0644))

	s, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, "com.file.archives", s.Subdir)
	require.Equal(t, BackendBolt, s.Backend)
	require.Equal(t, filepath.Join(dir, "db.bolt"), s.DatabasePath())

	fs, closeFS, err := s.OpenFileSystem()
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFS() })
	require.IsType(t, &store.BoltFileSystem{}, fs)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"NANOARCHIVE_BACKEND": "redis"}},
		{"unknown format", map[string]string{"NANOARCHIVE_FORMAT": "plist"}},
		{"bad subdirectory", map[string]string{"NANOARCHIVE_SUBDIR": "../escape"}},
		{"bad log level", map[string]string{"NANOARCHIVE_LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(NewViper())
			require.Error(t, err)
		})
	}
}

func TestOpenFileSystem(t *testing.T) {
	dir := t.TempDir()

	for _, backend := range []string{BackendOS, BackendBolt, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s := Settings{Root: dir, Subdir: "com.test.archives", Backend: backend}
			fs, closeFS, err := s.OpenFileSystem()
			require.NoError(t, err)
			require.NotNil(t, fs)
			require.NoError(t, closeFS())
		})
	}

	_, _, err := Settings{Backend: "redis"}.OpenFileSystem()
	require.Error(t, err)
}
