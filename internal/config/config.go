// Package config loads CLI settings from flags, environment variables and
// config files, and turns them into an archive configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/nanoarchive/formats"
	"github.com/arthur-debert/nanoarchive/internal/validation"
	"github.com/arthur-debert/nanoarchive/nanoarchive"
	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. NANOARCHIVE_ROOT
const EnvPrefix = "NANOARCHIVE"

// Backends that can hold an archive tree
const (
	BackendOS     = "os"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Settings is the resolved CLI configuration
type Settings struct {
	Root        string        `mapstructure:"root" validate:"required"`
	Subdir      string        `mapstructure:"subdir" validate:"segment"`
	Format      string        `mapstructure:"format" validate:"recordformat"`
	Backend     string        `mapstructure:"backend" validate:"oneof=os bolt sqlite"`
	Database    string        `mapstructure:"database"`
	LockTimeout time.Duration `mapstructure:"lock-timeout" validate:"gte=0"`
	LogLevel    string        `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	NoColor     bool          `mapstructure:"no-color"`
}

// NewViper returns a viper instance with defaults, environment binding and
// config file discovery set up. NANOARCHIVE_CONFIG points at an explicit
// config file; otherwise nanoarchive.{yaml,json} is looked up in the
// current directory and in ~/.nanoarchive.
func NewViper() *viper.Viper {
	v := viper.New()

	if configFile := os.Getenv(EnvPrefix + "_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("nanoarchive")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.nanoarchive")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := nanoarchive.DefaultConfig()
	v.SetDefault("root", defaults.RootDir)
	v.SetDefault("subdir", defaults.Subdirectory)
	v.SetDefault("format", formats.Default)
	v.SetDefault("backend", BackendOS)
	v.SetDefault("database", "")
	v.SetDefault("lock-timeout", defaults.LockTimeout)
	v.SetDefault("log-level", "warn")
	v.SetDefault("no-color", false)

	return v
}

// Load reads the config file, if any, and decodes and validates the
// settings. A missing config file is not an error.
func Load(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.LogLevel = strings.ToLower(s.LogLevel)

	if err := validation.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// ArchiveConfig converts the settings into an archiver configuration
func (s Settings) ArchiveConfig() nanoarchive.Config {
	return nanoarchive.Config{
		RootDir:      s.Root,
		Subdirectory: s.Subdir,
		Format:       s.Format,
		LockTimeout:  s.LockTimeout,
		FileLocking:  s.Backend == BackendOS,
	}
}

// DatabasePath returns the database file of the bolt and sqlite backends.
// It defaults to <root>/<subdir>.<backend>.
func (s Settings) DatabasePath() string {
	if s.Database != "" {
		return s.Database
	}
	return filepath.Join(s.Root, s.Subdir+"."+s.Backend)
}

// OpenFileSystem opens the configured backend. The returned close function
// must be called when done; it is a no-op for the OS backend.
func (s Settings) OpenFileSystem() (store.FileSystem, func() error, error) {
	switch s.Backend {
	case BackendOS, "":
		return &store.OSFileSystem{}, func() error { return nil }, nil
	case BackendBolt:
		fs, err := store.OpenBoltFileSystem(s.DatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	case BackendSQLite:
		fs, err := store.OpenSQLiteFileSystem(s.DatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", s.Backend)
	}
}
