// Package config defines the tier configuration: which files belong to the
// locked tier (approval-gated writes) and the tracked tier (free writes,
// monitored ownership), which OS principals own each tier, and whether the
// git bridge is enabled.
//
// The configuration lives inside the workspace at .tierlock/config.yaml and
// is itself always a member of the locked tier, whether or not it is
// declared. Parsing is strict and validation fails closed: an unparseable or
// structurally invalid document is rejected outright, which is what the
// approval engine's self-protection check relies on.
package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/boshu2/tierlock/internal/sysops"
)

// Tier identifies which enforcement tier a file belongs to.
type Tier string

const (
	// TierLocked files require owner approval for every persistent change.
	TierLocked Tier = "locked"

	// TierTracked files may be written freely but their ownership and
	// permissions are continuously verified.
	TierTracked Tier = "tracked"
)

// File modes enforced per tier.
const (
	// LockedMode is read-only for everyone; only the approval principal,
	// holding ownership, can re-open the file for a gated write.
	LockedMode fs.FileMode = 0o444

	// TrackedMode lets the writer principal edit while everyone can read.
	TrackedMode fs.FileMode = 0o644

	// StagingMode applies to staging copies, which the writer edits freely.
	StagingMode fs.FileMode = 0o644
)

// Config is the declarative tier configuration.
type Config struct {
	// Locked lists patterns whose matches require approval-gated writes.
	Locked []string `yaml:"locked"`

	// Tracked lists patterns the writer may modify freely.
	Tracked []string `yaml:"tracked"`

	// Owner is the approval principal that holds locked-tier ownership.
	Owner PrincipalConfig `yaml:"owner"`

	// Writer is the unprivileged automated-writer principal.
	Writer PrincipalConfig `yaml:"writer"`

	// Git controls the best-effort version-control bridge.
	Git GitConfig `yaml:"git"`
}

// PrincipalConfig names an OS identity. Group is optional; when empty the
// user's primary group is used.
type PrincipalConfig struct {
	User  string `yaml:"user"`
	Group string `yaml:"group,omitempty"`
}

// GitConfig holds version-control bridge settings.
type GitConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the default configuration: empty tiers, root as the
// approval principal, and the git bridge enabled.
func Default() *Config {
	return &Config{
		Owner:  PrincipalConfig{User: "root"},
		Writer: PrincipalConfig{User: "agent"},
		Git:    GitConfig{Enabled: true},
	}
}

// Parse decodes and validates a configuration document. Unknown fields are
// rejected so a corrupted or foreign document cannot slip through as a
// structurally valid replacement.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the configuration at path.
func Load(sys sysops.System, path string) (*Config, error) {
	data, err := sys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return Parse(data)
}

// Save serializes the configuration to path with locked-tier permissions.
func Save(sys sysops.System, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal configuration: %w", err)
	}
	if err := sys.WriteFile(path, data, LockedMode); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	return nil
}

// Validate checks structural validity. It fails closed: any malformed
// pattern or missing principal rejects the whole document.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Owner.User) == "" {
		return fmt.Errorf("%w: owner.user is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Writer.User) == "" {
		return fmt.Errorf("%w: writer.user is required", ErrInvalid)
	}
	for _, p := range c.Locked {
		if err := validatePattern(p); err != nil {
			return fmt.Errorf("locked pattern %q: %w", p, err)
		}
	}
	for _, p := range c.Tracked {
		if err := validatePattern(p); err != nil {
			return fmt.Errorf("tracked pattern %q: %w", p, err)
		}
	}
	return nil
}

// validatePattern rejects empty, absolute, escaping, and syntactically
// invalid patterns. Patterns are always workspace-relative.
func validatePattern(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalid)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: absolute paths are not allowed", ErrInvalid)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: pattern escapes the workspace", ErrInvalid)
		}
	}
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("%w: malformed glob", ErrInvalid)
	}
	return nil
}

// Expectation is the ownership and mode a tier requires of its files.
type Expectation struct {
	UID  int
	GID  int
	Mode fs.FileMode
}

// Expectations resolves the configured principals into the concrete
// per-tier ownership and mode requirements.
func (c *Config) Expectations(sys sysops.System) (locked, tracked Expectation, err error) {
	locked, err = c.expectation(sys, c.Owner, LockedMode)
	if err != nil {
		return Expectation{}, Expectation{}, err
	}
	tracked, err = c.expectation(sys, c.Writer, TrackedMode)
	if err != nil {
		return Expectation{}, Expectation{}, err
	}
	return locked, tracked, nil
}

func (c *Config) expectation(sys sysops.System, p PrincipalConfig, mode fs.FileMode) (Expectation, error) {
	u, err := sys.LookupUser(p.User)
	if err != nil {
		return Expectation{}, err
	}
	gid := u.GID
	if p.Group != "" {
		gid, err = sys.LookupGroup(p.Group)
		if err != nil {
			return Expectation{}, err
		}
	}
	return Expectation{UID: u.UID, GID: gid, Mode: mode}, nil
}
