package workspace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/boshu2/tierlock/internal/config"
	"github.com/boshu2/tierlock/internal/sysops"
)

// ledgerMode keeps the ledger readable by the writer principal but owned,
// like everything under the dot-directory, by the approval principal.
const ledgerMode fs.FileMode = 0o644

// Record is one ledger entry: the ownership a file held immediately before
// protection began, plus the staging lifecycle marker. The OS retains no
// history of prior ownership, so releasing a file removed from configuration
// depends entirely on this record. StagedAt doubles as the "was ever staged"
// signal that lets the diff engine tell an intentional deletion apart from a
// file that never had a staging copy.
type Record struct {
	Path        string      `json:"path"`
	Tier        config.Tier `json:"tier"`
	OrigUID     int         `json:"orig_uid"`
	OrigGID     int         `json:"orig_gid"`
	OrigMode    uint32      `json:"orig_mode"`
	ProtectedAt time.Time   `json:"protected_at"`
	StagedAt    *time.Time  `json:"staged_at,omitempty"`
}

// Ledger is the in-memory view of the persisted ownership records.
type Ledger struct {
	records map[string]Record
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]Record)}
}

// LoadLedger reads the ledger from the workspace. An absent ledger is a
// valid empty state; malformed lines are skipped rather than failing the
// whole load, so one corrupt record cannot brick every operation.
func LoadLedger(sys sysops.System) (*Ledger, error) {
	led := NewLedger()

	st, err := sys.Stat(LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !st.Exists {
		return led, nil
	}

	data, err := sys.ReadFile(LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		led.records[rec.Path] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return led, nil
}

// Save writes the full ledger back as sorted JSONL.
func (l *Ledger) Save(sys sysops.System) error {
	var buf bytes.Buffer
	for _, p := range l.Paths() {
		line, err := json.Marshal(l.records[p])
		if err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := sys.WriteFile(LedgerPath, buf.Bytes(), ledgerMode); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Get returns the record for a path.
func (l *Ledger) Get(path string) (Record, bool) {
	rec, ok := l.records[path]
	return rec, ok
}

// Put inserts or replaces a record.
func (l *Ledger) Put(rec Record) {
	l.records[rec.Path] = rec
}

// Delete removes a path's record.
func (l *Ledger) Delete(path string) {
	delete(l.records, path)
}

// Paths returns all recorded paths in lexicographic order.
func (l *Ledger) Paths() []string {
	out := make([]string, 0, len(l.records))
	for p := range l.records {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Ensure captures a file's pre-protection ownership the first time it enters
// a tier. An existing record is never overwritten: the original ownership is
// the one observed before the very first corrective action.
func (l *Ledger) Ensure(path string, tier config.Tier, st sysops.FileState, now time.Time) Record {
	if rec, ok := l.records[path]; ok {
		return rec
	}
	rec := Record{
		Path:        path,
		Tier:        tier,
		OrigUID:     st.UID,
		OrigGID:     st.GID,
		OrigMode:    uint32(st.Mode),
		ProtectedAt: now,
	}
	l.records[path] = rec
	return rec
}

// MarkStaged records that a staging copy was (re)generated for path.
func (l *Ledger) MarkStaged(path string, now time.Time) {
	rec, ok := l.records[path]
	if !ok {
		return
	}
	rec.StagedAt = &now
	l.records[path] = rec
}

// WasStaged reports whether path ever had a staging copy generated.
func (l *Ledger) WasStaged(path string) bool {
	rec, ok := l.records[path]
	return ok && rec.StagedAt != nil
}
