package syncer

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/gitbridge"
	"github.com/boshu2/tierlock/internal/sysops"
	"github.com/boshu2/tierlock/internal/workspace"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) (*Engine, *sysops.Fake, *config.Config) {
	t.Helper()
	fake := sysops.NewFake()
	fake.SeedUser("root", 0, 0)
	fake.SeedUser("agent", 1000, 1000)
	fake.Seed(workspace.ConfigPath, "", config.LockedMode, 0, 0)

	engine := &Engine{
		Sys: fake,
		Git: gitbridge.NewWithRunner(nil, false, zerolog.Nop()),
		Log: zerolog.Nop(),
		Now: func() time.Time { return testNow },
	}
	return engine, fake, config.Default()
}

func hasAction(res *Result, path, field string) bool {
	for _, a := range res.Fixed {
		if a.Path == path && a.Field == field {
			return true
		}
	}
	return false
}

func TestSync_FixesTrackedDrift(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	cfg.Tracked = []string{"notes.md"}
	fake.Seed("notes.md", "data\n", 0o600, 2000, 2000)

	res, err := engine.Sync(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !hasAction(res, "notes.md", "owner") || !hasAction(res, "notes.md", "mode") {
		t.Errorf("Fixed = %+v, want owner and mode corrections for notes.md", res.Fixed)
	}

	st, err := fake.Stat("notes.md")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if st.UID != 1000 || st.GID != 1000 || st.Mode != config.TrackedMode {
		t.Errorf("state = %d:%d %04o, want 1000:1000 0644", st.UID, st.GID, st.Mode)
	}
	if got := fake.Content("notes.md"); got != "data\n" {
		t.Errorf("content = %q, sync must never touch content", got)
	}

	// The pre-drift ownership must be on record before the correction.
	led, err := workspace.LoadLedger(fake)
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	rec, ok := led.Get("notes.md")
	if !ok {
		t.Fatal("no ledger record after first corrective action")
	}
	if rec.OrigUID != 2000 || rec.OrigGID != 2000 || fs.FileMode(rec.OrigMode) != 0o600 {
		t.Errorf("record = %+v, want pre-protection ownership 2000:2000 0600", rec)
	}
}

func TestSync_FixesLockedDrift(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	cfg.Locked = []string{"A.md"}
	fake.Seed("A.md", "v1\n", 0o644, 1000, 1000)

	res, err := engine.Sync(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !hasAction(res, "A.md", "owner") || !hasAction(res, "A.md", "mode") {
		t.Errorf("Fixed = %+v, want corrections for A.md", res.Fixed)
	}
	st, _ := fake.Stat("A.md")
	if st.UID != 0 || st.GID != 0 || st.Mode != config.LockedMode {
		t.Errorf("state = %d:%d %04o, want 0:0 0444", st.UID, st.GID, st.Mode)
	}
}

func TestSync_Idempotent(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	cfg.Tracked = []string{"notes.md"}
	fake.Seed("notes.md", "data\n", 0o600, 2000, 2000)

	if _, err := engine.Sync(context.Background(), cfg); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	before := fake.MutationCount()

	res, err := engine.Sync(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if len(res.Fixed) != 0 || len(res.Released) != 0 {
		t.Errorf("second run Result = %+v, want nothing to do", res)
	}
	if delta := fake.MutationCount() - before; delta != 0 {
		t.Errorf("second run performed %d mutations, want 0", delta)
	}
}

func TestSync_SkipsAbsentFiles(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	cfg.Tracked = []string{"ghost.md"}

	res, err := engine.Sync(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Fixed) != 0 {
		t.Errorf("Fixed = %+v, want none for an absent file", res.Fixed)
	}
	led, _ := workspace.LoadLedger(fake)
	if _, ok := led.Get("ghost.md"); ok {
		t.Error("ledger recorded an absent file")
	}
}

func TestSync_ReleasesDroppedFiles(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	// old.md was once locked; it no longer appears in configuration.
	fake.Seed("old.md", "v1\n", config.LockedMode, 0, 0)
	fake.Seed(workspace.StagingPath("old.md"), "v1\n", config.StagingMode, 1000, 1000)
	led := workspace.NewLedger()
	led.Ensure("old.md", config.TierLocked, sysops.FileState{UID: 2000, GID: 2000, Mode: 0o600}, testNow)
	led.MarkStaged("old.md", testNow)
	if err := led.Save(fake); err != nil {
		t.Fatalf("ledger Save() error = %v", err)
	}

	res, err := engine.Sync(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Released) != 1 || res.Released[0] != "old.md" {
		t.Fatalf("Released = %v, want [old.md]", res.Released)
	}

	st, _ := fake.Stat("old.md")
	if st.UID != 2000 || st.GID != 2000 || st.Mode != 0o600 {
		t.Errorf("released state = %d:%d %04o, want pre-protection 2000:2000 0600", st.UID, st.GID, st.Mode)
	}
	if fake.Exists(workspace.StagingPath("old.md")) {
		t.Error("staging copy survived the release")
	}
	reloaded, _ := workspace.LoadLedger(fake)
	if _, ok := reloaded.Get("old.md"); ok {
		t.Error("ledger still records the released file")
	}
}

func TestSync_ReleaseOfMissingFileClearsRecord(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	led := workspace.NewLedger()
	led.Ensure("gone.md", config.TierTracked, sysops.FileState{UID: 2000, GID: 2000, Mode: 0o600}, testNow)
	if err := led.Save(fake); err != nil {
		t.Fatalf("ledger Save() error = %v", err)
	}

	res, err := engine.Sync(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Released) != 1 || res.Released[0] != "gone.md" {
		t.Errorf("Released = %v, want [gone.md]", res.Released)
	}
	reloaded, _ := workspace.LoadLedger(fake)
	if _, ok := reloaded.Get("gone.md"); ok {
		t.Error("record for vanished file survived")
	}
}

func TestSync_AbortsOnCorrectionFailure(t *testing.T) {
	engine, fake, cfg := testEngine(t)
	cfg.Tracked = []string{"a.md", "b.md"}
	fake.Seed("a.md", "a\n", 0o600, 2000, 2000)
	fake.Seed("b.md", "b\n", 0o600, 2000, 2000)
	fake.FailWith("chown", "b.md", errors.New("operation not permitted"))

	if _, err := engine.Sync(context.Background(), cfg); err == nil {
		t.Fatal("Sync() error = nil, want chown failure")
	}

	// Corrections already applied stand; a re-run continues from here.
	st, _ := fake.Stat("a.md")
	if st.UID != 1000 || st.GID != 1000 {
		t.Errorf("a.md ownership = %d:%d, want corrected 1000:1000", st.UID, st.GID)
	}
	bst, _ := fake.Stat("b.md")
	if bst.UID != 2000 {
		t.Errorf("b.md uid = %d, want untouched 2000", bst.UID)
	}
}
