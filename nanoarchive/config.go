package nanoarchive

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/arthur-debert/nanoarchive/formats"
	"github.com/arthur-debert/nanoarchive/internal/validation"
)

// UnknownApp names the archive subdirectory when the executable name cannot
// be determined.
const UnknownApp = "UnknownApp"

// Config describes where an Archiver keeps its files and how it writes them.
// A Config is copied into the Archiver at construction time; later changes
// to the caller's value have no effect.
type Config struct {
	// RootDir is the directory the archive subdirectory lives in
	RootDir string `validate:"required"`

	// Subdirectory groups every collection of one application
	Subdirectory string `validate:"segment"`

	// Format is the name of the formats.RecordFormat used for files
	Format string `validate:"recordformat"`

	// LockTimeout bounds how long writers wait for the cross-process lock
	LockTimeout time.Duration `validate:"gte=0"`

	// FileLocking enables cross-process locking on the OS file system
	FileLocking bool
}

// DefaultConfig returns the configuration used by Default: the platform
// cache directory, a subdirectory named after the running executable, and
// JSON files.
func DefaultConfig() Config {
	return Config{
		RootDir:      DefaultRootDir(),
		Subdirectory: DefaultSubdirectory(),
		Format:       formats.Default,
		LockTimeout:  3 * time.Second,
		FileLocking:  true,
	}
}

// Validate checks the configuration for consistency and completeness
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ArchiveDir returns the directory every collection of this configuration
// lives in. ClearAll removes exactly this directory.
func (c Config) ArchiveDir() string {
	return filepath.Join(c.RootDir, c.Subdirectory)
}

// withDefaults fills zero-valued fields from DefaultConfig
func (c Config) withDefaults() Config {
	if c.RootDir == "" {
		c.RootDir = DefaultRootDir()
	}
	if c.Subdirectory == "" {
		c.Subdirectory = DefaultSubdirectory()
	}
	if c.Format == "" {
		c.Format = formats.Default
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = 3 * time.Second
	}
	return c
}

// DefaultRootDir returns the platform cache directory: $XDG_CACHE_HOME when
// set, ~/Library/Caches on macOS, ~/.cache elsewhere, and the temp directory
// as a last resort.
func DefaultRootDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return xdgCache
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches")
	}
	return filepath.Join(homeDir, ".cache")
}

// DefaultSubdirectory returns "com.<app>.archives" where app is the base
// name of the running executable.
func DefaultSubdirectory() string {
	return SubdirectoryFor(appName())
}

// SubdirectoryFor returns the archive subdirectory name for app
func SubdirectoryFor(app string) string {
	if validation.Segment(app) != nil {
		app = UnknownApp
	}
	return "com." + app + ".archives"
}

func appName() string {
	exe, err := os.Executable()
	if err != nil {
		return UnknownApp
	}
	name := strings.TrimSuffix(filepath.Base(exe), ".exe")
	if name == "" {
		return UnknownApp
	}
	return name
}
