package status

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/resolve"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

func testWorld(t *testing.T) (*sysops.Fake, *config.Config) {
	t.Helper()
	fake := sysops.NewFake()
	fake.SeedUser("root", 0, 0)
	fake.SeedUser("agent", 1000, 1000)
	fake.Seed(workspace.ConfigPath, "", config.LockedMode, 0, 0)

	cfg := config.Default()
	cfg.Writer.User = "agent"
	return fake, cfg
}

func check(t *testing.T, fake *sysops.Fake, cfg *config.Config) *Report {
	t.Helper()
	set, err := resolve.Resolve(fake, cfg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	engine := &Engine{Sys: fake, Log: zerolog.Nop()}
	rep, err := engine.Check(cfg, set)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	return rep
}

func find(t *testing.T, rep *Report, path string) FileStatus {
	t.Helper()
	for _, f := range rep.Files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no status entry for %s", path)
	return FileStatus{}
}

func TestCheck_Classification(t *testing.T) {
	fake, cfg := testWorld(t)
	cfg.Locked = []string{"A.md", "gone.md"}
	cfg.Tracked = []string{"notes/x.md", "notes/y.md"}

	fake.Seed("A.md", "v1", config.LockedMode, 0, 0)
	fake.Seed("notes/x.md", "n", config.TrackedMode, 1000, 1000)
	fake.Seed("notes/y.md", "n", config.TrackedMode, 0, 0) // drifted ownership

	rep := check(t, fake, cfg)

	if got := find(t, rep, "A.md"); got.State != StateOK {
		t.Errorf("A.md state = %s, want ok", got.State)
	}
	if got := find(t, rep, "gone.md"); got.State != StateMissing {
		t.Errorf("gone.md state = %s, want missing", got.State)
	}
	if got := find(t, rep, "notes/x.md"); got.State != StateOK {
		t.Errorf("notes/x.md state = %s, want ok", got.State)
	}

	drifted := find(t, rep, "notes/y.md")
	if drifted.State != StateDrifted {
		t.Fatalf("notes/y.md state = %s, want drifted", drifted.State)
	}
	fields := map[string]bool{}
	for _, issue := range drifted.Issues {
		fields[issue.Field] = true
	}
	if !fields["owner"] || !fields["group"] {
		t.Errorf("issues = %v, want owner and group mismatches", drifted.Issues)
	}
}

func TestCheck_ModeDrift(t *testing.T) {
	fake, cfg := testWorld(t)
	cfg.Locked = []string{"A.md"}
	fake.Seed("A.md", "v1", 0o644, 0, 0) // writable, should be 0444

	got := find(t, check(t, fake, cfg), "A.md")
	if got.State != StateDrifted {
		t.Fatalf("state = %s, want drifted", got.State)
	}
	if len(got.Issues) != 1 || got.Issues[0].Field != "mode" {
		t.Errorf("issues = %v, want single mode mismatch", got.Issues)
	}
	if got.Issues[0].Actual != "0644" || got.Issues[0].Expected != "0444" {
		t.Errorf("mode issue = %+v, want 0644 -> 0444", got.Issues[0])
	}
}

func TestCheck_PerFileErrorDoesNotAbortBatch(t *testing.T) {
	fake, cfg := testWorld(t)
	cfg.Locked = []string{"A.md", "B.md"}
	fake.Seed("A.md", "v1", config.LockedMode, 0, 0)
	fake.Seed("B.md", "v1", config.LockedMode, 0, 0)
	fake.FailWith("stat", "A.md", errors.New("permission denied"))

	rep := check(t, fake, cfg)

	if got := find(t, rep, "A.md"); got.State != StateError || got.Err == nil {
		t.Errorf("A.md = %+v, want error state with cause", got)
	}
	if got := find(t, rep, "B.md"); got.State != StateOK {
		t.Errorf("B.md state = %s, want ok despite sibling failure", got.State)
	}
}

func TestReport_CleanAndCounts(t *testing.T) {
	fake, cfg := testWorld(t)
	cfg.Locked = []string{"A.md"}
	fake.Seed("A.md", "v1", config.LockedMode, 0, 0)

	rep := check(t, fake, cfg)
	if !rep.Clean() {
		t.Errorf("Clean() = false, report = %+v", rep.Files)
	}
	if rep.Counts()[StateOK] != 2 { // A.md plus the config file
		t.Errorf("Counts()[ok] = %d, want 2", rep.Counts()[StateOK])
	}
}
