package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/diff"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/workspace"
)

var diffQuiet bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Review staged changes and their approval hash",
	Long: `Compare every locked-tier file against its staging copy and print the
aggregate approval hash gating the pending changes. Read-only.

Pass the printed hash to 'tl approve' to commit. If anything changes in
between, the commit is rejected as stale.

Examples:
  tl diff
  tl diff --quiet     # hash and summary only
  tl diff -o json`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVarP(&diffQuiet, "quiet", "q", false, "Suppress diff bodies; print outcomes and hash only")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	sys, cfg, _, log, err := setup()
	if err != nil {
		return err
	}

	set, err := resolve.Resolve(sys, cfg)
	if err != nil {
		return err
	}
	led, err := workspace.LoadLedger(sys)
	if err != nil {
		return err
	}

	engine := &diff.Engine{Sys: sys, Log: log}
	rep, err := engine.Compare(set, led)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Files []diff.FileDiff `json:"files"`
			Hash  string          `json:"approval_hash,omitempty"`
		}{rep.Files, rep.Hash})
	}

	pending := 0
	for _, f := range rep.Files {
		switch f.Outcome {
		case diff.OutcomeModified:
			pending++
			fmt.Printf("modified: %s\n", f.Path)
			if !diffQuiet {
				fmt.Print(f.Unified)
			}
		case diff.OutcomeDeleted:
			pending++
			fmt.Printf("deleted:  %s\n", f.Path)
		case diff.OutcomeError:
			fmt.Printf("error:    %s (%v)\n", f.Path, f.Err)
		}
	}

	if pending == 0 {
		fmt.Println("No staged changes.")
		return nil
	}
	fmt.Printf("\n%d pending change(s)\n", pending)
	fmt.Printf("approval hash: %s\n", rep.Hash)
	return nil
}
