package sysops

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// fakeFile is a single in-memory file.
type fakeFile struct {
	data []byte
	mode fs.FileMode
	uid  int
	gid  int
}

// Fake is an in-memory System with spy and failure-injection capabilities.
// Mutating calls are appended to Ops as "op path" strings so tests can assert
// exactly which mutations happened (and that idempotent runs perform none).
type Fake struct {
	files    map[string]*fakeFile
	users    map[string]Principal
	groups   map[string]int
	failures map[string]error

	// Ops records every mutating operation in call order.
	Ops []string
}

// NewFake returns an empty in-memory filesystem.
func NewFake() *Fake {
	return &Fake{
		files:    make(map[string]*fakeFile),
		users:    make(map[string]Principal),
		groups:   make(map[string]int),
		failures: make(map[string]error),
	}
}

// Seed creates or replaces a file without going through the spy log.
func (f *Fake) Seed(path, content string, mode fs.FileMode, uid, gid int) {
	f.files[path] = &fakeFile{data: []byte(content), mode: mode, uid: uid, gid: gid}
}

// SeedUser registers a principal for LookupUser.
func (f *Fake) SeedUser(name string, uid, gid int) {
	f.users[name] = Principal{Name: name, UID: uid, GID: gid}
}

// SeedGroup registers a group for LookupGroup.
func (f *Fake) SeedGroup(name string, gid int) {
	f.groups[name] = gid
}

// FailWith makes the named operation fail for the given path. Path "*" fails
// the operation for every path. Operation names: stat, read, write, remove,
// chown, chmod, hash, glob, mkdir.
func (f *Fake) FailWith(op, path string, err error) {
	f.failures[op+" "+path] = err
}

// ClearFailures removes all injected failures.
func (f *Fake) ClearFailures() {
	f.failures = make(map[string]error)
}

// Content returns the current content of a file, or "" if absent.
func (f *Fake) Content(path string) string {
	if ff, ok := f.files[path]; ok {
		return string(ff.data)
	}
	return ""
}

// Exists reports whether the path is present.
func (f *Fake) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

// MutationCount returns how many mutating operations have run.
func (f *Fake) MutationCount() int {
	return len(f.Ops)
}

func (f *Fake) injected(op, path string) error {
	if err, ok := f.failures[op+" "+path]; ok {
		return err
	}
	if err, ok := f.failures[op+" *"]; ok {
		return err
	}
	return nil
}

func (f *Fake) record(op, path string) {
	f.Ops = append(f.Ops, op+" "+path)
}

func (f *Fake) Stat(path string) (FileState, error) {
	if err := f.injected("stat", path); err != nil {
		return FileState{Path: path}, fmt.Errorf("stat %s: %w", path, err)
	}
	ff, ok := f.files[path]
	if !ok {
		return FileState{Path: path}, nil
	}
	return FileState{
		Path:   path,
		Exists: true,
		Mode:   ff.mode,
		UID:    ff.uid,
		GID:    ff.gid,
		Size:   int64(len(ff.data)),
	}, nil
}

func (f *Fake) ReadFile(path string) ([]byte, error) {
	if err := f.injected("read", path); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ff, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	out := make([]byte, len(ff.data))
	copy(out, ff.data)
	return out, nil
}

func (f *Fake) WriteFile(path string, data []byte, mode fs.FileMode) error {
	if err := f.injected("write", path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f.record("write", path)
	prev, existed := f.files[path]
	ff := &fakeFile{data: append([]byte(nil), data...), mode: mode}
	if existed {
		ff.uid, ff.gid = prev.uid, prev.gid
	}
	f.files[path] = ff
	return nil
}

func (f *Fake) Remove(path string) error {
	if err := f.injected("remove", path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("remove %s: %w", path, fs.ErrNotExist)
	}
	f.record("remove", path)
	delete(f.files, path)
	return nil
}

func (f *Fake) Chown(path string, uid, gid int) error {
	if err := f.injected("chown", path); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	ff, ok := f.files[path]
	if !ok {
		return fmt.Errorf("chown %s: %w", path, fs.ErrNotExist)
	}
	f.record("chown", path)
	ff.uid, ff.gid = uid, gid
	return nil
}

func (f *Fake) Chmod(path string, mode fs.FileMode) error {
	if err := f.injected("chmod", path); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	ff, ok := f.files[path]
	if !ok {
		return fmt.Errorf("chmod %s: %w", path, fs.ErrNotExist)
	}
	f.record("chmod", path)
	ff.mode = mode
	return nil
}

func (f *Fake) HashFile(path string) (string, error) {
	if err := f.injected("hash", path); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	ff, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("hash %s: %w", path, fs.ErrNotExist)
	}
	return HashBytes(ff.data), nil
}

func (f *Fake) Glob(pattern string) ([]string, error) {
	if err := f.injected("glob", pattern); err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	var matches []string
	for path := range f.files {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if ok {
			matches = append(matches, path)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

func (f *Fake) MkdirAll(path string, mode fs.FileMode) error {
	if err := f.injected("mkdir", path); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	// Directories are implicit in the flat path map.
	return nil
}

func (f *Fake) LookupUser(name string) (Principal, error) {
	p, ok := f.users[name]
	if !ok {
		return Principal{}, fmt.Errorf("lookup user %s: unknown user", name)
	}
	return p, nil
}

func (f *Fake) LookupGroup(name string) (int, error) {
	gid, ok := f.groups[name]
	if !ok {
		return 0, fmt.Errorf("lookup group %s: unknown group", name)
	}
	return gid, nil
}

// OpsFor returns the recorded mutations whose op matches, in call order.
func (f *Fake) OpsFor(op string) []string {
	var out []string
	for _, entry := range f.Ops {
		if strings.HasPrefix(entry, op+" ") {
			out = append(out, entry)
		}
	}
	return out
}
