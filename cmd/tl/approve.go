package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/approve"
	"github.com/boshu2/tierlock/internal/gitbridge"
)

var approveCmd = &cobra.Command{
	Use:   "approve <hash>",
	Short: "Commit staged changes to the locked tier (privileged)",
	Long: `Validate the supplied approval hash against a freshly computed one and
commit the staged changes: modified files overwrite their locked copies,
removed staging copies delete theirs. Rejected with zero writes if anything
changed since the hash was produced.

Examples:
  tl diff                 # review, note the approval hash
  tl approve <hash>       # commit exactly what was reviewed`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	sys, cfg, bridge, log, err := setup()
	if err != nil {
		return err
	}

	engine := &approve.Engine{Sys: sys, Git: bridge, Log: log}
	result, err := engine.Commit(cmd.Context(), cfg, args[0])
	if err != nil {
		return err
	}

	for _, p := range result.Updated {
		fmt.Printf("updated: %s\n", p)
	}
	for _, p := range result.Removed {
		fmt.Printf("removed: %s\n", p)
	}
	printGit(result.Git)
	return nil
}

// printGit reports the best-effort commit outcome without ever treating a
// skip as a failure.
func printGit(r gitbridge.Result) {
	if r.Committed {
		fmt.Printf("git: committed %q\n", r.Message)
		return
	}
	if r.Reason != "" {
		fmt.Printf("git: skipped (%s)\n", r.Reason)
	}
}
