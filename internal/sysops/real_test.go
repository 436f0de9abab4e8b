package sysops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReal_WriteStatReadRemove(t *testing.T) {
	sys := NewReal(t.TempDir())

	if err := sys.WriteFile("docs/a.md", []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	st, err := sys.Stat("docs/a.md")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !st.Exists || st.Mode != 0o644 || st.Size != 5 {
		t.Errorf("Stat() = %+v, want exists mode 0644 size 5", st)
	}

	data, err := sys.ReadFile("docs/a.md")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadFile() = %q, want hello", data)
	}

	if err := sys.Remove("docs/a.md"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	st, err = sys.Stat("docs/a.md")
	if err != nil {
		t.Fatalf("Stat() after remove error = %v", err)
	}
	if st.Exists {
		t.Error("Stat() Exists = true after remove")
	}
}

func TestReal_OverwriteReadOnly(t *testing.T) {
	// Re-locking a 0444 file must succeed: the approval engine rewrites
	// read-only locked files as part of every commit.
	sys := NewReal(t.TempDir())

	if err := sys.WriteFile("A.md", []byte("v1"), 0o444); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := sys.WriteFile("A.md", []byte("v2"), 0o444); err != nil {
		t.Fatalf("WriteFile() over read-only error = %v", err)
	}

	data, err := sys.ReadFile("A.md")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
	st, _ := sys.Stat("A.md")
	if st.Mode != 0o444 {
		t.Errorf("mode = %04o, want 0444", st.Mode)
	}
}

func TestReal_Glob(t *testing.T) {
	root := t.TempDir()
	sys := NewReal(root)

	for _, p := range []string{"docs/a.md", "docs/sub/b.md", "other.txt"} {
		if err := sys.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", p, err)
		}
	}

	matches, err := sys.Glob("docs/**/*.md")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Glob() = %v, want 2 matches", matches)
	}

	// Directories never match; only regular files are tier-eligible.
	if err := os.MkdirAll(filepath.Join(root, "docs", "dir.md"), 0o755); err != nil {
		t.Fatal(err)
	}
	matches, err = sys.Glob("docs/*.md")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 1 || matches[0] != "docs/a.md" {
		t.Errorf("Glob(docs/*.md) = %v, want [docs/a.md]", matches)
	}
}

func TestReal_HashFile(t *testing.T) {
	sys := NewReal(t.TempDir())
	if err := sys.WriteFile("A.md", []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := sys.HashFile("A.md")
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if want := HashBytes([]byte("content")); got != want {
		t.Errorf("HashFile() = %s, want %s", got, want)
	}
}
