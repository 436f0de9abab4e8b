package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Correct ownership/mode drift and release removed files (privileged)",
	Long: `Reconcile every resolved file with its tier's expected ownership and
mode, restore files removed from configuration to their pre-protection
ownership, and trigger a best-effort commit of all tracked files.

Idempotent: a clean workspace produces zero mutations on a repeated run.

Examples:
  tl sync`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	sys, cfg, bridge, log, err := setup()
	if err != nil {
		return err
	}

	engine := &syncer.Engine{Sys: sys, Git: bridge, Log: log}
	result, err := engine.Sync(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	for _, a := range result.Fixed {
		fmt.Printf("fixed: %s %s %s -> %s\n", a.Path, a.Field, a.From, a.To)
	}
	for _, p := range result.Released {
		fmt.Printf("released: %s\n", p)
	}
	if len(result.Fixed) == 0 && len(result.Released) == 0 {
		fmt.Println("Workspace clean; nothing to do.")
	}
	printGit(result.Git)
	return nil
}
