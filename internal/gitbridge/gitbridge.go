// Package gitbridge provides best-effort version-control commits for the
// enforcement engines. Every call returns a structured result, never an
// error: version control is an audit trail, and no git failure may abort or
// fail the operation that triggered it.
//
// Commits are attributed to a fixed service identity, never to the human or
// the writer principal. Before touching the index the bridge checks for
// unrelated pending staged changes and skips rather than absorbing foreign
// work.
package gitbridge

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Service identity attached to every commit.
const (
	identityName  = "tierlock"
	identityEmail = "tierlock@localhost"
)

// Reason explains why a commit was skipped.
type Reason string

const (
	// ReasonDisabled: the git bridge is turned off in configuration.
	ReasonDisabled Reason = "disabled"

	// ReasonNoFiles: the caller had nothing to commit.
	ReasonNoFiles Reason = "no_files"

	// ReasonNothingStaged: adding the files produced no staged change.
	ReasonNothingStaged Reason = "nothing_staged"

	// ReasonDirtyStaging: the index already holds unrelated pending
	// changes; committing would absorb foreign work.
	ReasonDirtyStaging Reason = "dirty_staging"

	// ReasonError: an underlying git invocation failed (including "not a
	// repository"); the failure is informational only.
	ReasonError Reason = "error"
)

// Result is the outcome of one bridge call. Exactly one of Committed or a
// skip Reason applies.
type Result struct {
	Committed bool     `json:"committed"`
	Message   string   `json:"message,omitempty"`
	Files     []string `json:"files,omitempty"`
	Reason    Reason   `json:"reason,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

// Runner abstracts git invocation for testing.
type Runner interface {
	// Run executes git with the given arguments and returns its combined
	// output.
	Run(ctx context.Context, args ...string) (string, error)
}

// execRunner shells out to the git binary against a fixed repository root.
type execRunner struct {
	root string
}

func (r *execRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.root}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Bridge issues the three commit calls the engines consume.
type Bridge struct {
	Enabled bool
	Log     zerolog.Logger

	runner Runner
}

// New returns a bridge that shells out to git in the workspace root.
func New(root string, enabled bool, log zerolog.Logger) *Bridge {
	return &Bridge{Enabled: enabled, Log: log, runner: &execRunner{root: root}}
}

// NewWithRunner returns a bridge with a custom runner, for tests.
func NewWithRunner(runner Runner, enabled bool, log zerolog.Logger) *Bridge {
	return &Bridge{Enabled: enabled, Log: log, runner: runner}
}

// CommitSnapshot records the initial protected state of all tracked files.
func (b *Bridge) CommitSnapshot(ctx context.Context, files []string) Result {
	return b.commit(ctx, "tierlock: initial snapshot", files)
}

// CommitApproved records the locked-tier files changed by an approval.
func (b *Bridge) CommitApproved(ctx context.Context, files []string) Result {
	msg := fmt.Sprintf("tierlock: approve %d change(s)", len(files))
	return b.commit(ctx, msg, files)
}

// CommitSync records all tracked files in both tiers after a sync.
func (b *Bridge) CommitSync(ctx context.Context, files []string) Result {
	return b.commit(ctx, "tierlock: sync", files)
}

// commit runs the guarded add/commit sequence. Every failure path returns a
// skip result; nothing escapes as an error.
func (b *Bridge) commit(ctx context.Context, message string, files []string) Result {
	if !b.Enabled {
		return Result{Reason: ReasonDisabled}
	}
	if len(files) == 0 {
		return Result{Reason: ReasonNoFiles}
	}

	// Refuse to absorb foreign pending work.
	out, err := b.runner.Run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return b.skip(ReasonError, err, out)
	}
	if strings.TrimSpace(out) != "" {
		return Result{Reason: ReasonDirtyStaging, Detail: strings.TrimSpace(out)}
	}

	addArgs := append([]string{"add", "--"}, files...)
	if out, err := b.runner.Run(ctx, addArgs...); err != nil {
		return b.skip(ReasonError, err, out)
	}

	// Exit status 0 means the index matches HEAD: nothing to commit.
	if _, err := b.runner.Run(ctx, "diff", "--cached", "--quiet"); err == nil {
		return Result{Reason: ReasonNothingStaged}
	}

	out, err = b.runner.Run(ctx,
		"-c", "user.name="+identityName,
		"-c", "user.email="+identityEmail,
		"commit", "-m", message)
	if err != nil {
		// Unstage what we added, or every later call would skip on our own
		// leftovers as a dirty index.
		resetArgs := append([]string{"reset", "--"}, files...)
		if rout, rerr := b.runner.Run(ctx, resetArgs...); rerr != nil {
			b.Log.Debug().Str("output", rout).Err(rerr).Msg("git reset after failed commit")
		}
		return b.skip(ReasonError, err, out)
	}

	b.Log.Debug().Str("message", message).Int("files", len(files)).Msg("git commit")
	return Result{Committed: true, Message: message, Files: files}
}

func (b *Bridge) skip(reason Reason, err error, out string) Result {
	detail := err.Error()
	if s := strings.TrimSpace(out); s != "" {
		detail += ": " + s
	}
	b.Log.Debug().Str("reason", string(reason)).Str("detail", detail).Msg("git commit skipped")
	return Result{Reason: reason, Detail: detail}
}
