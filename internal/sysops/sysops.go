// Package sysops abstracts the primitive filesystem and ownership operations
// consumed by every engine: stat, read, write, remove, chown, chmod,
// content hashing, glob expansion, and principal lookup.
//
// Production code uses [Real], which delegates to the os package against a
// workspace root. Tests use [Fake], an in-memory filesystem with configurable
// failure injection, so error paths are exercised deterministically and
// without real privilege escalation.
//
// All paths are workspace-relative and slash-separated.
package sysops

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
)

// FileState describes a file's observed state. Exists is false when the path
// is absent; the remaining fields are only meaningful when Exists is true.
type FileState struct {
	Path   string
	Exists bool
	Mode   fs.FileMode
	UID    int
	GID    int
	Size   int64
}

// Principal is a resolved OS identity.
type Principal struct {
	Name string
	UID  int
	GID  int
}

// System is the single abstraction every engine consumes for filesystem and
// ownership access.
type System interface {
	// Stat returns the file's state. An absent path yields Exists=false with
	// a nil error; any other stat failure returns the underlying error.
	Stat(path string) (FileState, error)

	// ReadFile returns the file's content.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path, creating it with the given mode and
	// creating parent directories as needed.
	WriteFile(path string, data []byte, mode fs.FileMode) error

	// Remove deletes the file.
	Remove(path string) error

	// Chown changes the file's owner and group.
	Chown(path string, uid, gid int) error

	// Chmod changes the file's permission bits.
	Chmod(path string, mode fs.FileMode) error

	// HashFile returns the hex-encoded SHA-256 of the file's content.
	HashFile(path string) (string, error)

	// Glob expands a doublestar pattern against the workspace, returning
	// matching regular files.
	Glob(pattern string) ([]string, error)

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string, mode fs.FileMode) error

	// LookupUser resolves a user name to its uid and primary gid.
	LookupUser(name string) (Principal, error)

	// LookupGroup resolves a group name to its gid.
	LookupGroup(name string) (int, error)
}

// HashBytes returns the hex-encoded SHA-256 of data. It is the same digest
// HashFile computes, exposed for callers that already hold content in memory.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
