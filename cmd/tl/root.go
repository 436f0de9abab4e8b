package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/gitbridge"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

var (
	// Global flags
	rootDir string
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Tierlock file protection CLI",
	Long: `tl protects declaratively-named workspace files from unauthorized
persistent modification by an untrusted automated writer.

Two tiers exist:
  locked   writes require owner approval via the staging/diff/approve flow
  tracked  the writer may write freely; ownership and mode are monitored

Core Commands:
  init     Set up protection in a workspace
  status   Show ownership/mode drift for both tiers
  diff     Review staged changes and their approval hash
  approve  Commit staged changes to the locked tier (privileged)
  sync     Correct drift and release removed files (privileged)
  reset    Overwrite staging with current locked content (privileged)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Workspace root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
}

// newLogger builds the CLI logger. Warn by default so read-only queries stay
// quiet; --verbose lowers the level to debug.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// setup wires the shared dependencies every command needs: the workspace
// filesystem, a freshly loaded configuration, and the git bridge.
func setup() (sysops.System, *config.Config, *gitbridge.Bridge, zerolog.Logger, error) {
	log := newLogger()
	sys := sysops.NewReal(rootDir)
	cfg, err := config.Load(sys, workspace.ConfigPath)
	if err != nil {
		return nil, nil, nil, log, err
	}
	bridge := gitbridge.New(rootDir, cfg.Git.Enabled, log)
	return sys, cfg, bridge, log, nil
}
