package history

import (
	"fmt"
	"iter"

	"github.com/HerbHall/rangeping/pkg/models"
)

// dateColumn heads the address column and the header row.
const dateColumn = "Date"

// Table is the history of one site: a header row of run timestamps and one
// row per address holding that address's outcome in each run. Rows are
// matched to results by address, never by position.
type Table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

// NewTable creates an empty table with one row per address.
func NewTable(addrs iter.Seq[string]) *Table {
	t := &Table{
		header: []string{dateColumn},
		index:  make(map[string]int),
	}
	for addr := range addrs {
		t.addRow(addr)
	}
	return t
}

// parseTable rebuilds a Table from CSV records. Short rows are padded to
// the header width.
func parseTable(records [][]string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != dateColumn {
		return nil, fmt.Errorf("missing %q header row", dateColumn)
	}
	t := &Table{
		header: append([]string(nil), records[0]...),
		index:  make(map[string]int, len(records)-1),
	}
	width := len(t.header)
	for i, rec := range records[1:] {
		if len(rec) == 0 || rec[0] == "" {
			return nil, fmt.Errorf("row %d: empty address", i+2)
		}
		if len(rec) > width {
			return nil, fmt.Errorf("row %d: %d columns, header has %d", i+2, len(rec), width)
		}
		if _, dup := t.index[rec[0]]; dup {
			return nil, fmt.Errorf("row %d: duplicate address %s", i+2, rec[0])
		}
		row := make([]string, width)
		copy(row, rec)
		t.index[rec[0]] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Runs returns the timestamps of every recorded run, oldest first.
func (t *Table) Runs() []string {
	return append([]string(nil), t.header[1:]...)
}

// Addresses returns the row addresses in file order.
func (t *Table) Addresses() []string {
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[0]
	}
	return out
}

// Lookup returns the outcomes recorded for addr, one per run. A run that
// did not cover addr has an empty entry.
func (t *Table) Lookup(addr string) ([]string, bool) {
	i, ok := t.index[addr]
	if !ok {
		return nil, false
	}
	return append([]string(nil), t.rows[i][1:]...), true
}

// AppendRun adds a run column headed by stamp. Each result lands on the
// row for its address; addresses not seen before get a new row.
func (t *Table) AppendRun(stamp string, results []models.ProbeResult) {
	t.header = append(t.header, stamp)
	width := len(t.header)
	for _, r := range results {
		i, ok := t.index[r.Address]
		if !ok {
			i = t.addRow(r.Address)
		}
		t.pad(i, width-1)
		t.rows[i] = append(t.rows[i][:width-1], string(r.Outcome))
	}
	for i := range t.rows {
		t.pad(i, width)
	}
}

// Records returns the table as CSV records, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, append([]string(nil), t.header...))
	for _, row := range t.rows {
		out = append(out, append([]string(nil), row...))
	}
	return out
}

func (t *Table) addRow(addr string) int {
	if i, ok := t.index[addr]; ok {
		return i
	}
	row := make([]string, len(t.header))
	row[0] = addr
	t.index[addr] = len(t.rows)
	t.rows = append(t.rows, row)
	return len(t.rows) - 1
}

// pad extends row i with empty cells up to n columns.
func (t *Table) pad(i, n int) {
	for len(t.rows[i]) < n {
		t.rows[i] = append(t.rows[i], "")
	}
}
