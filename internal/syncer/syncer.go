// Package syncer reconciles ownership and mode drift across both tiers and
// releases files that were removed from configuration back to their
// pre-protection ownership.
//
// Corrections are issued ownership-first, then permissions. Ownership
// changes need elevated privilege; permission-only corrections may succeed
// without it. The engine is idempotent: a clean workspace produces zero
// mutations on a repeated run.
package syncer

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/gitbridge"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/status"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

// Action is one corrective change applied to a file.
type Action struct {
	Path  string `json:"path"`
	Field string `json:"field"` // "owner" or "mode"
	From  string `json:"from"`
	To    string `json:"to"`
}

// Result reports what a sync run changed.
type Result struct {
	// Fixed lists the corrective actions applied, in path order.
	Fixed []Action `json:"fixed,omitempty"`

	// Released lists files restored to their pre-protection ownership
	// after being removed from configuration.
	Released []string `json:"released,omitempty"`

	// Git is the best-effort version-control outcome.
	Git gitbridge.Result `json:"git"`
}

// Engine performs drift reconciliation.
type Engine struct {
	Sys sysops.System
	Git *gitbridge.Bridge
	Log zerolog.Logger

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Sync corrects drift on every resolved file, releases files dropped from
// configuration, and triggers a best-effort commit of all tracked files.
// A correction failure aborts the batch; already-applied corrections stand,
// since every action converges toward the declared state and a re-run
// continues where this one stopped.
func (e *Engine) Sync(ctx context.Context, cfg *config.Config) (*Result, error) {
	set, err := resolve.Resolve(e.Sys, cfg)
	if err != nil {
		return nil, err
	}
	led, err := workspace.LoadLedger(e.Sys)
	if err != nil {
		return nil, err
	}
	lockedExp, trackedExp, err := cfg.Expectations(e.Sys)
	if err != nil {
		return nil, fmt.Errorf("resolve principals: %w", err)
	}

	result := &Result{}
	now := e.now()

	for _, p := range set.Locked {
		if err := e.reconcile(p, config.TierLocked, lockedExp, led, now, result); err != nil {
			return nil, err
		}
	}
	for _, p := range set.Tracked {
		if err := e.reconcile(p, config.TierTracked, trackedExp, led, now, result); err != nil {
			return nil, err
		}
	}

	if err := e.release(set, led, result); err != nil {
		return nil, err
	}

	if len(result.Fixed) > 0 || len(result.Released) > 0 {
		if err := led.Save(e.Sys); err != nil {
			return nil, err
		}
	}

	result.Git = e.Git.CommitSync(ctx, e.existing(set))

	e.Log.Info().
		Int("fixed", len(result.Fixed)).
		Int("released", len(result.Released)).
		Msg("sync complete")
	return result, nil
}

// reconcile converges one file to its tier's expected ownership and mode.
// The pre-protection ownership is captured before the first corrective
// action; the OS retains no history of prior ownership.
func (e *Engine) reconcile(p string, tier config.Tier, exp config.Expectation, led *workspace.Ledger, now time.Time, result *Result) error {
	st, err := e.Sys.Stat(p)
	if err != nil {
		return err
	}
	if !st.Exists {
		return nil
	}

	issues := status.Diff(st, exp)
	if len(issues) == 0 {
		return nil
	}

	led.Ensure(p, tier, st, now)

	ownerDrift := false
	modeDrift := false
	for _, issue := range issues {
		switch issue.Field {
		case "owner", "group":
			ownerDrift = true
		case "mode":
			modeDrift = true
		}
	}

	if ownerDrift {
		if err := e.Sys.Chown(p, exp.UID, exp.GID); err != nil {
			return err
		}
		result.Fixed = append(result.Fixed, Action{
			Path:  p,
			Field: "owner",
			From:  fmt.Sprintf("%d:%d", st.UID, st.GID),
			To:    fmt.Sprintf("%d:%d", exp.UID, exp.GID),
		})
	}
	if modeDrift {
		if err := e.Sys.Chmod(p, exp.Mode); err != nil {
			return err
		}
		result.Fixed = append(result.Fixed, Action{
			Path:  p,
			Field: "mode",
			From:  modeString(st.Mode),
			To:    modeString(exp.Mode),
		})
	}
	return nil
}

// release restores ledgered files that are no longer members of any tier to
// the ownership they held immediately before protection began, and clears
// their staging copies and records.
func (e *Engine) release(set *resolve.Set, led *workspace.Ledger, result *Result) error {
	for _, p := range led.Paths() {
		if set.Contains(p) {
			continue
		}
		rec, _ := led.Get(p)

		st, err := e.Sys.Stat(p)
		if err != nil {
			return err
		}
		if st.Exists {
			if err := e.Sys.Chown(p, rec.OrigUID, rec.OrigGID); err != nil {
				return err
			}
			if err := e.Sys.Chmod(p, fs.FileMode(rec.OrigMode)); err != nil {
				return err
			}
		}

		staged := workspace.StagingPath(p)
		sst, err := e.Sys.Stat(staged)
		if err != nil {
			return err
		}
		if sst.Exists {
			if err := e.Sys.Remove(staged); err != nil {
				return err
			}
		}

		led.Delete(p)
		result.Released = append(result.Released, p)
		e.Log.Debug().Str("path", p).Msg("released from protection")
	}
	return nil
}

// existing returns the resolved files that are present on disk, for the
// post-sync commit.
func (e *Engine) existing(set *resolve.Set) []string {
	var out []string
	for _, p := range append(append([]string{}, set.Locked...), set.Tracked...) {
		st, err := e.Sys.Stat(p)
		if err != nil || !st.Exists {
			continue
		}
		out = append(out, p)
	}
	return out
}

func modeString(m fs.FileMode) string {
	return fmt.Sprintf("%04o", m.Perm())
}
