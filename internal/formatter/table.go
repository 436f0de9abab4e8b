// Package formatter renders command output as aligned tables.
package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Table formats columnar output using tabwriter.
type Table struct {
	w             *tabwriter.Writer
	headers       []string
	headerWritten bool
}

// NewTable creates a table that writes to w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		w:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		headers: headers,
	}
}

// AddRow appends a data row. Missing values are filled with empty strings;
// extra values beyond the header count are ignored.
func (t *Table) AddRow(values ...string) {
	if !t.headerWritten {
		t.headerWritten = true
		t.writeHeader()
	}

	for i := range t.headers {
		if i > 0 {
			fmt.Fprint(t.w, "\t")
		}
		if i < len(values) {
			fmt.Fprint(t.w, values[i])
		}
	}
	fmt.Fprintln(t.w)
}

// Render flushes the underlying tabwriter. Must be called after all AddRow
// calls.
func (t *Table) Render() error {
	if !t.headerWritten {
		t.headerWritten = true
		t.writeHeader()
	}
	return t.w.Flush()
}

func (t *Table) writeHeader() {
	for i, h := range t.headers {
		if i > 0 {
			fmt.Fprint(t.w, "\t")
		}
		fmt.Fprint(t.w, h)
	}
	fmt.Fprintln(t.w)
}
