// Package workspace defines the on-disk layout of a protected workspace and
// the ownership ledger that survives between invocations.
//
// Layout, relative to the workspace root:
//
//	.tierlock/config.yaml    tier configuration (implicitly locked)
//	.tierlock/staging/<rel>  writer-editable mirrors of locked files
//	.tierlock/ledger.jsonl   pre-protection ownership records
package workspace

import "path"

const (
	// Dir is the workspace dot-directory holding all tool state.
	Dir = ".tierlock"

	// ConfigPath is the configuration file, always a locked-tier member.
	ConfigPath = Dir + "/config.yaml"

	// StagingDir holds the writer-editable mirrors of locked files,
	// keyed by their workspace-relative path.
	StagingDir = Dir + "/staging"

	// LedgerPath is the persisted per-file ownership record.
	LedgerPath = Dir + "/ledger.jsonl"
)

// StagingPath returns the staging mirror path for a locked file.
func StagingPath(rel string) string {
	return path.Join(StagingDir, rel)
}

// Internal reports whether a path lives inside the tool's own state
// directory. Glob expansion skips such paths so a broad pattern cannot pull
// staging copies or the ledger into a tier.
func Internal(rel string) bool {
	return rel == Dir || len(rel) > len(Dir) && rel[:len(Dir)+1] == Dir+"/"
}
