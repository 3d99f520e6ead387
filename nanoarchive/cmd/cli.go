package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/arthur-debert/nanoarchive/internal/config"
	"github.com/arthur-debert/nanoarchive/nanoarchive"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI is the nanoarchive command line: cobra commands whose settings are
// resolved through viper from flags, NANOARCHIVE_* variables and config
// files.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper

	settings config.Settings
	logger   *slog.Logger
	cleanup  []func() error
}

// NewCLI creates the command tree
func NewCLI() *CLI {
	cli := &CLI{viperInst: config.NewViper()}
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the CLI against os.Args and releases every backend and log
// file it opened, whether or not the command succeeded.
func (cli *CLI) Execute() error {
	err := cli.rootCmd.Execute()
	if closeErr := cli.close(); err == nil {
		err = closeErr
	}
	return err
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanoarchive",
		Short: "Inspect and manage per-identifier archive caches",
		Long: `nanoarchive works with archive trees laid out as

  <root>/<subdir>/<Collection>/<id>.<ext>

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOARCHIVE_*)
3. Configuration file (NANOARCHIVE_CONFIG, ./nanoarchive.yaml, ~/.nanoarchive/nanoarchive.yaml)
4. Defaults (platform cache directory, json files, os backend)

Examples:
  nanoarchive ls
  nanoarchive ls Widget
  nanoarchive show Widget 42 --output yaml
  nanoarchive import Widget response.json --key items
  nanoarchive --backend sqlite clear --yes`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(cli.viperInst)
			if err != nil {
				return err
			}
			cli.settings = settings

			if settings.NoColor {
				color.NoColor = true
			}

			var stderr io.Writer
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				stderr = cmd.ErrOrStderr()
			}
			logger, closeLog, err := initLogging(settings.LogLevel, stderr)
			if err != nil {
				return err
			}
			cli.logger = logger
			cli.cleanup = append(cli.cleanup, closeLog)
			return nil
		},
	}

	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.String("root", "", "Directory holding the archive subdirectory (default: platform cache directory)")
	flags.String("subdir", "", "Archive subdirectory name (default: com.<app>.archives)")
	flags.StringP("format", "f", "", "Archive file format (json|yaml)")
	flags.StringP("backend", "b", "", "Storage backend (os|bolt|sqlite)")
	flags.String("database", "", "Database file for the bolt and sqlite backends")
	flags.Duration("lock-timeout", 0, "How long writers wait for the cross-process lock")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.BoolP("verbose", "v", false, "Also write logs to stderr")

	// Flags only override viper when they are explicitly set
	for _, name := range []string{"root", "subdir", "format", "backend", "database", "lock-timeout", "log-level", "no-color"} {
		_ = cli.viperInst.BindPFlag(name, flags.Lookup(name))
	}
}

// addCommands adds all the CLI commands
func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.pathCommand(),
		cli.showCommand(),
		cli.listCommand(),
		cli.importCommand(),
		cli.removeCommand(),
		cli.clearCommand(),
	)
}

// archiver opens the configured backend and builds an Archiver on it
func (cli *CLI) archiver() (*nanoarchive.Archiver, error) {
	fs, closeFS, err := cli.settings.OpenFileSystem()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cli.settings.Backend, err)
	}
	cli.cleanup = append(cli.cleanup, closeFS)

	return nanoarchive.New(cli.settings.ArchiveConfig(),
		nanoarchive.WithFileSystem(fs),
		nanoarchive.WithLogger(cli.logger),
	)
}

// collection opens the named collection of untyped documents
func (cli *CLI) collection(name string) (*nanoarchive.Collection[document], error) {
	a, err := cli.archiver()
	if err != nil {
		return nil, err
	}
	return nanoarchive.NewCollection(a, decodeDocument, nanoarchive.WithCollectionName(name))
}

func (cli *CLI) close() error {
	var firstErr error
	// Release in reverse order of acquisition
	for i := len(cli.cleanup) - 1; i >= 0; i-- {
		if err := cli.cleanup[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	cli.cleanup = nil
	return firstErr
}
