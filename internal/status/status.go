// Package status implements the read-only drift check: for every resolved
// file in both tiers, compare actual ownership and mode against the tier's
// expectations. It never mutates and never needs elevated privilege; an
// unreadable file degrades to a per-file error entry instead of aborting
// the batch.
package status

import (
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/worker"
)

// State classifies one file's drift check result.
type State string

const (
	// StateOK means ownership and mode match the tier's expectations.
	StateOK State = "ok"

	// StateDrifted means at least one of owner, group, or mode mismatches.
	StateDrifted State = "drifted"

	// StateMissing means the declared file does not exist.
	StateMissing State = "missing"

	// StateError means the file could not be inspected.
	StateError State = "error"
)

// Issue is one specific mismatch on a drifted file.
type Issue struct {
	Field    string `json:"field"` // "owner", "group", or "mode"
	Actual   string `json:"actual"`
	Expected string `json:"expected"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s is %s, want %s", i.Field, i.Actual, i.Expected)
}

// FileStatus is the drift check result for a single file. Issues is set only
// for StateDrifted; Err only for StateError.
type FileStatus struct {
	Path   string      `json:"path"`
	Tier   config.Tier `json:"tier"`
	State  State       `json:"state"`
	Issues []Issue     `json:"issues,omitempty"`
	Err    error       `json:"-"`
}

// Report holds the per-file results in deterministic order, locked tier
// first.
type Report struct {
	Files []FileStatus
}

// Counts tallies results by state.
func (r *Report) Counts() map[State]int {
	counts := make(map[State]int)
	for _, f := range r.Files {
		counts[f.State]++
	}
	return counts
}

// Clean reports whether every file is StateOK.
func (r *Report) Clean() bool {
	for _, f := range r.Files {
		if f.State != StateOK {
			return false
		}
	}
	return true
}

// Engine performs the read-only drift check.
type Engine struct {
	Sys sysops.System
	Log zerolog.Logger
}

// Check compares every resolved file against its tier's expected ownership
// and mode.
func (e *Engine) Check(cfg *config.Config, set *resolve.Set) (*Report, error) {
	lockedExp, trackedExp, err := cfg.Expectations(e.Sys)
	if err != nil {
		return nil, fmt.Errorf("resolve principals: %w", err)
	}

	// Per-file checks are independent reads; fan them out, locked tier first.
	pool := worker.New[FileStatus](0)
	rep := &Report{}
	rep.Files = append(rep.Files, pool.Map(set.Locked, func(p string) FileStatus {
		return e.check(p, config.TierLocked, lockedExp)
	})...)
	rep.Files = append(rep.Files, pool.Map(set.Tracked, func(p string) FileStatus {
		return e.check(p, config.TierTracked, trackedExp)
	})...)
	return rep, nil
}

// check classifies a single file.
func (e *Engine) check(p string, tier config.Tier, exp config.Expectation) FileStatus {
	st, err := e.Sys.Stat(p)
	if err != nil {
		e.Log.Debug().Str("path", p).Err(err).Msg("stat failed")
		return FileStatus{Path: p, Tier: tier, State: StateError, Err: err}
	}
	if !st.Exists {
		return FileStatus{Path: p, Tier: tier, State: StateMissing}
	}

	issues := Diff(st, exp)
	if len(issues) > 0 {
		return FileStatus{Path: p, Tier: tier, State: StateDrifted, Issues: issues}
	}
	return FileStatus{Path: p, Tier: tier, State: StateOK}
}

// Diff returns the specific ownership and mode mismatches between an
// observed state and an expectation. An empty result means no drift.
func Diff(st sysops.FileState, exp config.Expectation) []Issue {
	var issues []Issue
	if st.UID != exp.UID {
		issues = append(issues, Issue{
			Field:    "owner",
			Actual:   fmt.Sprintf("uid %d", st.UID),
			Expected: fmt.Sprintf("uid %d", exp.UID),
		})
	}
	if st.GID != exp.GID {
		issues = append(issues, Issue{
			Field:    "group",
			Actual:   fmt.Sprintf("gid %d", st.GID),
			Expected: fmt.Sprintf("gid %d", exp.GID),
		})
	}
	if st.Mode.Perm() != exp.Mode.Perm() {
		issues = append(issues, Issue{
			Field:    "mode",
			Actual:   modeString(st.Mode),
			Expected: modeString(exp.Mode),
		})
	}
	return issues
}

func modeString(m fs.FileMode) string {
	return fmt.Sprintf("%04o", m.Perm())
}
