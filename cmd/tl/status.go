package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boshu2/tierlock/internal/formatter"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ownership and mode drift for both tiers",
	Long: `Compare every resolved file's actual ownership and mode against its
tier's expectations. Read-only; needs no elevated privilege.

Examples:
  tl status
  tl status -o json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	sys, cfg, _, log, err := setup()
	if err != nil {
		return err
	}

	set, err := resolve.Resolve(sys, cfg)
	if err != nil {
		return err
	}

	engine := &status.Engine{Sys: sys, Log: log}
	rep, err := engine.Check(cfg, set)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep.Files)
	}

	table := formatter.NewTable(os.Stdout, "PATH", "TIER", "STATE", "DETAIL")
	for _, f := range rep.Files {
		detail := ""
		switch f.State {
		case status.StateDrifted:
			for i, issue := range f.Issues {
				if i > 0 {
					detail += "; "
				}
				detail += issue.String()
			}
		case status.StateError:
			detail = f.Err.Error()
		}
		table.AddRow(f.Path, string(f.Tier), string(f.State), detail)
	}
	if err := table.Render(); err != nil {
		return err
	}

	counts := rep.Counts()
	fmt.Printf("\n%d ok, %d drifted, %d missing, %d error\n",
		counts[status.StateOK], counts[status.StateDrifted],
		counts[status.StateMissing], counts[status.StateError])
	return nil
}
