package formatter

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_RendersAlignedColumns(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "PATH", "STATE")
	table.AddRow("docs/a.md", "ok")
	table.AddRow("x", "drifted")
	if err := table.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "PATH") || !strings.Contains(lines[0], "STATE") {
		t.Errorf("header = %q", lines[0])
	}
	// Columns align: STATE starts at the same offset in every line.
	col := strings.Index(lines[0], "STATE")
	if got := strings.Index(lines[1], "ok"); got != col {
		t.Errorf("row 1 second column at %d, want %d", got, col)
	}
	if got := strings.Index(lines[2], "drifted"); got != col {
		t.Errorf("row 2 second column at %d, want %d", got, col)
	}
}

func TestTable_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "PATH", "STATE")
	if err := table.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("empty table rendered %d lines, want header only", got)
	}
}

func TestTable_ShortRowsPadded(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "A", "B", "C")
	table.AddRow("only")
	if err := table.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "only") {
		t.Error("row value missing from output")
	}
}
