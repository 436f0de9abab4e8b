package sysops

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
)

// Real implements System against the OS, rooted at a workspace directory.
type Real struct {
	Root string
}

// NewReal returns a System operating on the filesystem under root.
func NewReal(root string) *Real {
	return &Real{Root: root}
}

// abs converts a workspace-relative slash path to an absolute host path.
func (r *Real) abs(path string) string {
	return filepath.Join(r.Root, filepath.FromSlash(path))
}

// Stat returns the file's state, including uid/gid from the underlying inode.
func (r *Real) Stat(path string) (FileState, error) {
	info, err := os.Stat(r.abs(path))
	if os.IsNotExist(err) {
		return FileState{Path: path}, nil
	}
	if err != nil {
		return FileState{Path: path}, fmt.Errorf("stat %s: %w", path, err)
	}

	st := FileState{
		Path:   path,
		Exists: true,
		Mode:   info.Mode().Perm(),
		Size:   info.Size(),
	}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		st.UID = int(sys.Uid)
		st.GID = int(sys.Gid)
	}
	return st, nil
}

func (r *Real) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(r.abs(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes atomically via a temp file and rename in the target's
// directory. Rename also replaces read-only targets, so re-locking a 0444
// file needs no mode juggling.
func (r *Real) WriteFile(path string, data []byte, mode fs.FileMode) error {
	target := r.abs(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tierlock-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (r *Real) Remove(path string) error {
	if err := os.Remove(r.abs(path)); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (r *Real) Chown(path string, uid, gid int) error {
	if err := os.Chown(r.abs(path), uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}

func (r *Real) Chmod(path string, mode fs.FileMode) error {
	if err := os.Chmod(r.abs(path), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

func (r *Real) HashFile(path string) (string, error) {
	data, err := os.ReadFile(r.abs(path))
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return HashBytes(data), nil
}

func (r *Real) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(r.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	return matches, nil
}

func (r *Real) MkdirAll(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(r.abs(path), mode); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (r *Real) LookupUser(name string) (Principal, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return Principal{}, fmt.Errorf("lookup user %s: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Principal{}, fmt.Errorf("parse uid for %s: %w", name, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Principal{}, fmt.Errorf("parse gid for %s: %w", name, err)
	}
	return Principal{Name: name, UID: uid, GID: gid}, nil
}

func (r *Real) LookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup group %s: %w", name, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("parse gid for group %s: %w", name, err)
	}
	return gid, nil
}
