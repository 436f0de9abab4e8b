// Package approve implements the privileged commit path: validate a
// caller-supplied approval hash against a freshly recomputed one, then apply
// the staged changes to the locked tier with rollback on failure.
//
// Atomicity is logical, not transactional: the hash check closes the race
// window between review and commit, the bytes the hash covered are the bytes
// written (staging is never re-read once compared), and a pre-commit
// snapshot provides best-effort restoration when a per-file write fails
// partway through. Two
// self-protection checks can veto the whole commit before any write: the
// configuration file may never be deleted, and a modified configuration must
// still parse and validate.
package approve

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/diff"
	"github.com/boshu2/tierlock/internal/gitbridge"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/status"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

// Engine performs approval commits and staging resets.
type Engine struct {
	Sys sysops.System
	Git *gitbridge.Bridge
	Log zerolog.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// Result reports a successful commit.
type Result struct {
	// Updated and Removed list the locked files written and deleted.
	Updated []string `json:"updated,omitempty"`
	Removed []string `json:"removed,omitempty"`

	// Git is the best-effort version-control outcome, never an error.
	Git gitbridge.Result `json:"git"`
}

// snapshot captures one file's pre-commit state for rollback.
type snapshot struct {
	exists bool
	data   []byte
	mode   fs.FileMode
	uid    int
	gid    int
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Commit validates the supplied hash and applies the pending staged changes.
// The diff is recomputed at the instant of commit; any mismatch rejects with
// a StalenessError before a single write.
func (e *Engine) Commit(ctx context.Context, cfg *config.Config, supplied string) (*Result, error) {
	set, err := resolve.Resolve(e.Sys, cfg)
	if err != nil {
		return nil, err
	}
	led, err := workspace.LoadLedger(e.Sys)
	if err != nil {
		return nil, err
	}

	de := &diff.Engine{Sys: e.Sys, Log: e.Log}
	rep, err := de.Compare(set, led)
	if err != nil {
		return nil, err
	}
	if errs := rep.Errs(); len(errs) > 0 {
		return nil, fmt.Errorf("cannot approve: %s unreadable: %w", errs[0].Path, errs[0].Err)
	}

	pending := rep.Pending()
	if len(pending) == 0 {
		return nil, ErrNothingPending
	}
	if supplied != rep.Hash {
		return nil, &StalenessError{Supplied: supplied, Computed: rep.Hash}
	}

	if err := e.checkSelfProtection(pending); err != nil {
		return nil, err
	}

	lockedExp, writerExp, err := cfg.Expectations(e.Sys)
	if err != nil {
		return nil, fmt.Errorf("resolve principals: %w", err)
	}

	snaps, err := e.takeSnapshots(pending)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var applied []string
	for _, f := range pending {
		mutated, err := e.apply(f, lockedExp)
		if err != nil {
			if mutated {
				applied = append(applied, f.Path)
			}
			return nil, e.rollback(applied, snaps, err)
		}
		applied = append(applied, f.Path)
		switch f.Outcome {
		case diff.OutcomeModified:
			result.Updated = append(result.Updated, f.Path)
		case diff.OutcomeDeleted:
			result.Removed = append(result.Removed, f.Path)
		}
	}

	// Commit succeeded; everything from here is convergence, not gating.
	now := e.now()
	for _, f := range pending {
		switch f.Outcome {
		case diff.OutcomeModified:
			snap := snaps[f.Path]
			orig := sysops.FileState{Path: f.Path, Exists: snap.exists, Mode: snap.mode, UID: snap.uid, GID: snap.gid}
			if !snap.exists {
				// Created through approval: there is no pre-protection
				// ownership, so releasing it later keeps owner identity.
				orig.UID, orig.GID, orig.Mode = lockedExp.UID, lockedExp.GID, config.LockedMode
			}
			led.Ensure(f.Path, config.TierLocked, orig, now)
		case diff.OutcomeDeleted:
			led.Delete(f.Path)
		}
	}

	// Files entering the tier through this commit without a record yet must
	// have their ownership captured before re-protection overwrites it.
	for _, p := range set.Locked {
		st, err := e.Sys.Stat(p)
		if err != nil {
			return nil, err
		}
		if st.Exists {
			led.Ensure(p, config.TierLocked, st, now)
		}
	}

	if err := e.reprotect(set, lockedExp); err != nil {
		return nil, err
	}
	if _, err := e.restage(set, led, writerExp, now); err != nil {
		return nil, err
	}
	if err := led.Save(e.Sys); err != nil {
		return nil, err
	}

	changed := append(append([]string{}, result.Updated...), result.Removed...)
	result.Git = e.Git.CommitApproved(ctx, changed)

	e.Log.Info().
		Int("updated", len(result.Updated)).
		Int("removed", len(result.Removed)).
		Msg("approval committed")
	return result, nil
}

// checkSelfProtection vetoes commits that would delete the configuration or
// replace it with a structurally invalid document.
func (e *Engine) checkSelfProtection(pending []diff.FileDiff) error {
	for _, f := range pending {
		if f.Path != workspace.ConfigPath {
			continue
		}
		if f.Outcome == diff.OutcomeDeleted {
			return &SelfProtectionError{Reason: "configuration file cannot be deleted"}
		}
		// Validate the bytes the hash covered, not a fresh staging read.
		if _, err := config.Parse(f.StagedData); err != nil {
			return &SelfProtectionError{Reason: "configuration replacement is invalid", Err: err}
		}
	}
	return nil
}

// takeSnapshots reads the current locked state of every contributing file.
func (e *Engine) takeSnapshots(pending []diff.FileDiff) (map[string]snapshot, error) {
	snaps := make(map[string]snapshot, len(pending))
	for _, f := range pending {
		st, err := e.Sys.Stat(f.Path)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", f.Path, err)
		}
		snap := snapshot{exists: st.Exists, mode: st.Mode, uid: st.UID, gid: st.GID}
		if st.Exists {
			snap.data, err = e.Sys.ReadFile(f.Path)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", f.Path, err)
			}
		}
		snaps[f.Path] = snap
	}
	return snaps, nil
}

// apply commits one pending entry to the locked tier. It writes the bytes
// the approval hash covered, never re-reading the writer-owned staging copy.
// The returned flag reports whether the locked file may have been mutated,
// so a failure before the first mutation is not rolled back.
func (e *Engine) apply(f diff.FileDiff, exp config.Expectation) (bool, error) {
	switch f.Outcome {
	case diff.OutcomeDeleted:
		if err := e.Sys.Remove(f.Path); err != nil {
			return false, err
		}
		return true, nil
	case diff.OutcomeModified:
		if err := e.Sys.WriteFile(f.Path, f.StagedData, config.LockedMode); err != nil {
			return false, err
		}
		if err := e.Sys.Chown(f.Path, exp.UID, exp.GID); err != nil {
			return true, err
		}
		if err := e.Sys.Chmod(f.Path, config.LockedMode); err != nil {
			return true, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("apply %s: unexpected outcome %s", f.Path, f.Outcome)
	}
}

// rollback restores already-changed files from their snapshots, best-effort,
// and reports which files were reverted versus left indeterminate.
func (e *Engine) rollback(applied []string, snaps map[string]snapshot, cause error) error {
	perr := &PartialCommitError{Cause: cause}
	for i := len(applied) - 1; i >= 0; i-- {
		p := applied[i]
		if err := e.restore(p, snaps[p]); err != nil {
			e.Log.Error().Str("path", p).Err(err).Msg("rollback failed")
			perr.Indeterminate = append(perr.Indeterminate, p)
			continue
		}
		perr.Reverted = append(perr.Reverted, p)
	}
	return perr
}

// restore re-establishes one file's snapshot state.
func (e *Engine) restore(p string, snap snapshot) error {
	if !snap.exists {
		st, err := e.Sys.Stat(p)
		if err != nil {
			return err
		}
		if !st.Exists {
			return nil
		}
		return e.Sys.Remove(p)
	}
	if err := e.Sys.WriteFile(p, snap.data, snap.mode); err != nil {
		return err
	}
	if err := e.Sys.Chown(p, snap.uid, snap.gid); err != nil {
		return err
	}
	return e.Sys.Chmod(p, snap.mode)
}

// reprotect re-asserts locked ownership and mode on every existing locked
// file after a successful commit.
func (e *Engine) reprotect(set *resolve.Set, exp config.Expectation) error {
	for _, p := range set.Locked {
		st, err := e.Sys.Stat(p)
		if err != nil {
			return err
		}
		if !st.Exists {
			continue
		}
		if len(status.Diff(st, exp)) == 0 {
			continue
		}
		if err := e.Sys.Chown(p, exp.UID, exp.GID); err != nil {
			return err
		}
		if err := e.Sys.Chmod(p, exp.Mode); err != nil {
			return err
		}
	}
	return nil
}

// restage regenerates staging copies to mirror current locked content so the
// next diff starts clean. Staging for locked members that no longer exist is
// removed.
func (e *Engine) restage(set *resolve.Set, led *workspace.Ledger, writer config.Expectation, now time.Time) ([]string, error) {
	var regenerated []string
	for _, p := range set.Locked {
		staged := workspace.StagingPath(p)
		st, err := e.Sys.Stat(p)
		if err != nil {
			return nil, err
		}
		if !st.Exists {
			sst, err := e.Sys.Stat(staged)
			if err != nil {
				return nil, err
			}
			if sst.Exists {
				if err := e.Sys.Remove(staged); err != nil {
					return nil, err
				}
			}
			continue
		}

		data, err := e.Sys.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := e.Sys.WriteFile(staged, data, config.StagingMode); err != nil {
			return nil, err
		}
		if err := e.Sys.Chown(staged, writer.UID, writer.GID); err != nil {
			return nil, err
		}
		led.Ensure(p, config.TierLocked, st, now)
		led.MarkStaged(p, now)
		regenerated = append(regenerated, p)
	}
	return regenerated, nil
}

// Reset overwrites every staging copy with current locked-tier content,
// discarding pending proposals. Privileged: staging copies are rewritten and
// handed back to the writer principal.
func (e *Engine) Reset(ctx context.Context, cfg *config.Config) ([]string, error) {
	set, err := resolve.Resolve(e.Sys, cfg)
	if err != nil {
		return nil, err
	}
	led, err := workspace.LoadLedger(e.Sys)
	if err != nil {
		return nil, err
	}
	_, writerExp, err := cfg.Expectations(e.Sys)
	if err != nil {
		return nil, fmt.Errorf("resolve principals: %w", err)
	}

	regenerated, err := e.restage(set, led, writerExp, e.now())
	if err != nil {
		return nil, err
	}
	if err := led.Save(e.Sys); err != nil {
		return nil, err
	}
	e.Log.Info().Int("files", len(regenerated)).Msg("staging reset")
	return regenerated, nil
}
