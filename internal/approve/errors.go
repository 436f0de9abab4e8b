package approve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNothingPending is returned when a commit is requested but no staged
// change contributes to an approval hash.
var ErrNothingPending = errors.New("no staged changes to approve")

// StalenessError reports that the supplied approval hash no longer matches
// the freshly recomputed one: something changed between review and commit.
// Zero writes happen when this is returned.
type StalenessError struct {
	Supplied string
	Computed string
}

func (e *StalenessError) Error() string {
	return fmt.Sprintf("stale approval hash: supplied %.12s…, current state is %.12s…; re-run diff and review again",
		e.Supplied, e.Computed)
}

// SelfProtectionError reports an attempt to delete or corrupt the tool's own
// configuration through the workflow it governs. It vetoes the entire
// commit.
type SelfProtectionError struct {
	Reason string
	Err    error
}

func (e *SelfProtectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("self-protection: %s: %v", e.Reason, e.Err)
	}
	return "self-protection: " + e.Reason
}

func (e *SelfProtectionError) Unwrap() error {
	return e.Err
}

// PartialCommitError reports a write or removal that failed mid-commit. The
// engine attempted a best-effort rollback from the pre-commit snapshot;
// Reverted lists the files restored, Indeterminate the files whose state
// could not be re-established.
type PartialCommitError struct {
	Cause         error
	Reverted      []string
	Indeterminate []string
}

func (e *PartialCommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "commit failed: %v", e.Cause)
	if len(e.Reverted) > 0 {
		fmt.Fprintf(&b, "; reverted: %s", strings.Join(e.Reverted, ", "))
	}
	if len(e.Indeterminate) > 0 {
		fmt.Fprintf(&b, "; indeterminate: %s", strings.Join(e.Indeterminate, ", "))
	}
	return b.String()
}

func (e *PartialCommitError) Unwrap() error {
	return e.Cause
}
