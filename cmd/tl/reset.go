package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/approve"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Overwrite staging with current locked-tier content (privileged)",
	Long: `Regenerate every staging copy from its locked original, discarding any
pending proposals. The next diff starts clean.

Examples:
  tl reset`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	sys, cfg, bridge, log, err := setup()
	if err != nil {
		return err
	}

	engine := &approve.Engine{Sys: sys, Git: bridge, Log: log}
	regenerated, err := engine.Reset(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	for _, p := range regenerated {
		fmt.Printf("staged: %s\n", p)
	}
	fmt.Printf("%d staging cop%s regenerated\n", len(regenerated), plural(len(regenerated), "y", "ies"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
