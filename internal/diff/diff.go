// Package diff implements the read-only comparison of staging copies against
// their locked-tier originals, and derives the aggregate approval hash that
// gates every commit.
//
// The engine distinguishes an intentional deletion proposal (the staging
// copy existed and was removed) from a file that was never staged, using the
// ledger's staging marker: absence alone is ambiguous. Unreadable entries
// degrade to per-file error outcomes without aborting the batch.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/worker"
	"github.com/boshu2/tierlock/internal/workspace"
)

// Outcome classifies one locked file's staging comparison.
type Outcome string

const (
	// OutcomeModified means the staging copy differs from the locked file
	// (including a proposal to create a not-yet-existing locked file).
	OutcomeModified Outcome = "modified"

	// OutcomeUnchanged means staging and locked content hash identically.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeMissingStaging means no staging copy exists and none was ever
	// generated for this path.
	OutcomeMissingStaging Outcome = "missing_staging"

	// OutcomeDeleted means a previously generated staging copy was removed:
	// a proposal to delete the locked file.
	OutcomeDeleted Outcome = "deleted"

	// OutcomeError means the entry could not be compared.
	OutcomeError Outcome = "error"
)

// deletionSentinel is a reserved non-content marker mixed into the approval
// hash for deletions. Combined with the locked file's pre-deletion content
// hash it makes deleting the same path at different historical content
// produce distinct aggregate hashes, so an old approval cannot be replayed.
const deletionSentinel = "\x00tierlock/tombstone\x00"

// FileDiff is the comparison result for a single locked-tier file.
type FileDiff struct {
	Path string `json:"path"`

	Outcome Outcome `json:"outcome"`

	// Unified holds the reviewer-facing diff text for modified entries.
	Unified string `json:"unified,omitempty"`

	// LockedHash is the current locked content hash ("" when the locked
	// file does not exist yet). StagedHash is the staging copy's hash.
	LockedHash string `json:"locked_hash,omitempty"`
	StagedHash string `json:"staged_hash,omitempty"`

	// StagedData carries the exact bytes StagedHash was computed over. The
	// commit path writes these bytes rather than re-reading the staging
	// copy, which the writer principal could swap after the comparison.
	StagedData []byte `json:"-"`

	Err error `json:"-"`
}

// Report is the full comparison, in lexicographic path order.
type Report struct {
	Files []FileDiff

	// Hash is the aggregate approval hash over all pending entries, or ""
	// when nothing is modified or deleted.
	Hash string
}

// Pending returns the entries that contribute to the approval hash.
func (r *Report) Pending() []FileDiff {
	var out []FileDiff
	for _, f := range r.Files {
		if f.Outcome == OutcomeModified || f.Outcome == OutcomeDeleted {
			out = append(out, f)
		}
	}
	return out
}

// Errs returns the entries that could not be compared.
func (r *Report) Errs() []FileDiff {
	var out []FileDiff
	for _, f := range r.Files {
		if f.Outcome == OutcomeError {
			out = append(out, f)
		}
	}
	return out
}

// Engine performs the staging comparison.
type Engine struct {
	Sys sysops.System
	Log zerolog.Logger
}

// Compare inspects every locked-tier member against its staging copy and
// computes the aggregate approval hash.
func (e *Engine) Compare(set *resolve.Set, led *workspace.Ledger) (*Report, error) {
	// Comparisons only read; fan them out while keeping lexicographic order.
	pool := worker.New[FileDiff](0)
	rep := &Report{
		Files: pool.Map(set.Locked, func(p string) FileDiff {
			return e.compare(p, led)
		}),
	}
	rep.Hash = aggregate(rep.Files)
	return rep, nil
}

// compare classifies a single locked file against its staging copy.
func (e *Engine) compare(p string, led *workspace.Ledger) FileDiff {
	staged := workspace.StagingPath(p)

	lockedSt, err := e.Sys.Stat(p)
	if err != nil {
		return FileDiff{Path: p, Outcome: OutcomeError, Err: err}
	}
	stagedSt, err := e.Sys.Stat(staged)
	if err != nil {
		return FileDiff{Path: p, Outcome: OutcomeError, Err: err}
	}

	if !stagedSt.Exists {
		if lockedSt.Exists && led.WasStaged(p) {
			// The writer removed a staging copy that existed: a deletion
			// proposal, keyed to the content it would delete.
			lockedHash, err := e.Sys.HashFile(p)
			if err != nil {
				return FileDiff{Path: p, Outcome: OutcomeError, Err: err}
			}
			return FileDiff{Path: p, Outcome: OutcomeDeleted, LockedHash: lockedHash}
		}
		return FileDiff{Path: p, Outcome: OutcomeMissingStaging}
	}

	stagedData, err := e.Sys.ReadFile(staged)
	if err != nil {
		return FileDiff{Path: p, Outcome: OutcomeError, Err: err}
	}
	stagedHash := sysops.HashBytes(stagedData)

	var lockedData []byte
	var lockedHash string
	if lockedSt.Exists {
		lockedData, err = e.Sys.ReadFile(p)
		if err != nil {
			return FileDiff{Path: p, Outcome: OutcomeError, Err: err}
		}
		lockedHash = sysops.HashBytes(lockedData)
	}

	if lockedSt.Exists && lockedHash == stagedHash {
		return FileDiff{Path: p, Outcome: OutcomeUnchanged, LockedHash: lockedHash, StagedHash: stagedHash}
	}

	unified, err := unifiedDiff(p, lockedData, stagedData)
	if err != nil {
		return FileDiff{Path: p, Outcome: OutcomeError, Err: err}
	}
	return FileDiff{
		Path:       p,
		Outcome:    OutcomeModified,
		Unified:    unified,
		LockedHash: lockedHash,
		StagedHash: stagedHash,
		StagedData: stagedData,
	}
}

// unifiedDiff renders the reviewer-facing diff from locked to staged content.
func unifiedDiff(p string, locked, staged []byte) (string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(locked)),
		B:        difflib.SplitLines(string(staged)),
		FromFile: "a/" + p,
		ToFile:   "b/" + p,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", p, err)
	}
	return text, nil
}

// aggregate digests the pending entries into the approval hash. Entries are
// already in lexicographic order; unchanged and missing-staging entries
// never contribute. Modified entries bind both the locked and staged
// content, so external mutation of either side between review and commit
// changes the hash.
func aggregate(files []FileDiff) string {
	h := sha256.New()
	pending := false
	for _, f := range files {
		switch f.Outcome {
		case OutcomeModified:
			pending = true
			fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\n", f.Path, f.Outcome, f.LockedHash, f.StagedHash)
		case OutcomeDeleted:
			pending = true
			fmt.Fprintf(h, "%s\x00%s\x00%s%s\n", f.Path, f.Outcome, deletionSentinel, f.LockedHash)
		}
	}
	if !pending {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
