package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/approve"
	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/gitbridge"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/syncer"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

var initWriter string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up protection in a workspace (privileged)",
	Long: `Scaffold the .tierlock directory (default configuration, staging
directory, ownership ledger), run a first protection pass over the declared
tiers, generate staging copies, and request the initial git snapshot commit.

Safe to re-run: an existing configuration is kept as-is.

Examples:
  tl init
  tl init --writer agent`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initWriter, "writer", "", "Writer principal for a newly scaffolded config")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	log := newLogger()
	sys := sysops.NewReal(rootDir)

	st, err := sys.Stat(workspace.ConfigPath)
	if err != nil {
		return err
	}
	if !st.Exists {
		cfg := config.Default()
		if initWriter != "" {
			cfg.Writer.User = initWriter
		}
		if err := config.Save(sys, workspace.ConfigPath, cfg); err != nil {
			return err
		}
		fmt.Printf("created %s\n", workspace.ConfigPath)
	}

	cfg, err := config.Load(sys, workspace.ConfigPath)
	if err != nil {
		return err
	}
	if err := sys.MkdirAll(workspace.StagingDir, 0o755); err != nil {
		return err
	}

	bridge := gitbridge.New(rootDir, cfg.Git.Enabled, log)

	// First protection pass: converge ownership and mode, capturing each
	// file's pre-protection ownership in the ledger.
	syncEngine := &syncer.Engine{Sys: sys, Git: gitbridge.New(rootDir, false, log), Log: log}
	syncResult, err := syncEngine.Sync(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	for _, a := range syncResult.Fixed {
		fmt.Printf("protected: %s %s %s -> %s\n", a.Path, a.Field, a.From, a.To)
	}

	// Generate staging copies so the writer has a proposal surface.
	approveEngine := &approve.Engine{Sys: sys, Git: bridge, Log: log}
	regenerated, err := approveEngine.Reset(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("%d file(s) staged\n", len(regenerated))

	set, err := resolve.Resolve(sys, cfg)
	if err != nil {
		return err
	}
	var files []string
	for _, p := range append(append([]string{}, set.Locked...), set.Tracked...) {
		if fst, err := sys.Stat(p); err == nil && fst.Exists {
			files = append(files, p)
		}
	}
	printGit(bridge.CommitSnapshot(cmd.Context(), files))

	fmt.Println("workspace initialized")
	return nil
}
