// Package resolve expands the declared tier patterns into concrete,
// deterministically ordered file lists.
//
// Literal paths pass through even when the target is absent: declarative
// membership does not require existence. Glob entries expand against the
// live filesystem at call time. Output ordering is lexicographic because the
// approval hash depends on a stable ordering. A path claimed by both tiers
// is a hard configuration error, never a silent tie-break.
package resolve

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

// Set is the resolved membership of both tiers.
type Set struct {
	// Locked and Tracked are sorted, deduplicated path lists.
	Locked  []string
	Tracked []string

	byPath map[string]config.Tier
}

// TierOf returns the tier a resolved path belongs to.
func (s *Set) TierOf(p string) (config.Tier, bool) {
	t, ok := s.byPath[p]
	return t, ok
}

// Contains reports whether the path resolved into either tier.
func (s *Set) Contains(p string) bool {
	_, ok := s.byPath[p]
	return ok
}

// Resolve expands the configuration's pattern lists. The configuration
// file's own path is unconditionally injected into the locked tier.
func Resolve(sys sysops.System, cfg *config.Config) (*Set, error) {
	locked, err := expand(sys, cfg.Locked)
	if err != nil {
		return nil, err
	}
	locked[workspace.ConfigPath] = struct{}{}

	tracked, err := expand(sys, cfg.Tracked)
	if err != nil {
		return nil, err
	}

	set := &Set{byPath: make(map[string]config.Tier, len(locked)+len(tracked))}
	for p := range locked {
		set.byPath[p] = config.TierLocked
		set.Locked = append(set.Locked, p)
	}
	for p := range tracked {
		if _, claimed := locked[p]; claimed {
			return nil, &ConflictError{Path: p}
		}
		set.byPath[p] = config.TierTracked
		set.Tracked = append(set.Tracked, p)
	}

	sort.Strings(set.Locked)
	sort.Strings(set.Tracked)
	return set, nil
}

// expand resolves one tier's pattern list into a path set.
func expand(sys sysops.System, patterns []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, p := range patterns {
		if !isGlob(p) {
			cleaned := path.Clean(p)
			if workspace.Internal(cleaned) && cleaned != workspace.ConfigPath {
				return nil, fmt.Errorf("pattern %q: %w", p, ErrReservedPath)
			}
			out[cleaned] = struct{}{}
			continue
		}
		matches, err := sys.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", p, err)
		}
		for _, m := range matches {
			// The tool's own state directory is never tier-eligible;
			// only the config file is, and it is injected explicitly.
			if workspace.Internal(m) {
				continue
			}
			out[path.Clean(m)] = struct{}{}
		}
	}
	return out, nil
}

// isGlob reports whether a pattern contains glob metacharacters.
func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
