package resolve

import (
	"errors"
	"fmt"
)

// ErrReservedPath rejects a declared pattern naming the tool's own state
// directory. Tier membership for the ledger or a staging copy would hand the
// writer principal ownership of the protection records themselves; only the
// configuration file is tier-eligible, and it is injected unconditionally.
var ErrReservedPath = errors.New("path is inside the tool state directory")

// ConflictError reports a path claimed by both tiers. Tier membership must
// be exclusive; overlapping patterns are a configuration defect the operator
// has to resolve, not something the tool tie-breaks.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pattern conflict: %s is claimed by both the locked and tracked tiers", e.Path)
}
