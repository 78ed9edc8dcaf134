package table

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// AppendRows appends n default rows and returns their indices.
func (t *Table) AppendRows(n int) []int {
	if n <= 0 {
		return nil
	}
	added := make([]int, 0, n)
	for i := 0; i < n; i++ {
		t.rows = append(t.rows, t.newRow())
		added = append(added, len(t.rows)-1)
	}
	t.record(Operation{Kind: OpAddRows, Rows: added})
	t.log.Debug("rows appended", zap.String("table", t.name), zap.Int("count", n))
	t.refreshSearch()
	return added
}

// InsertRows inserts one default row before every selected model row. With no
// selection it appends a single row. It returns the indices of the new rows.
func (t *Table) InsertRows(rows []int) ([]int, error) {
	return t.insertBefore(rows, false)
}

// CloneAndInsert inserts a copy of every selected row right before it.
func (t *Table) CloneAndInsert(rows []int) ([]int, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySelection
	}
	return t.insertBefore(rows, true)
}

// CloneAndAppend appends a copy of every selected row, in model order.
func (t *Table) CloneAndAppend(rows []int) ([]int, error) {
	sorted, err := t.sortedRows(rows)
	if err != nil {
		return nil, err
	}
	if len(sorted) == 0 {
		return nil, ErrEmptySelection
	}
	added := make([]int, 0, len(sorted))
	for _, r := range sorted {
		t.rows = append(t.rows, cloneAsNew(t.rows[r]))
		added = append(added, len(t.rows)-1)
	}
	t.record(Operation{Kind: OpAddRows, Rows: added})
	t.refreshSearch()
	return added, nil
}

func (t *Table) insertBefore(rows []int, clone bool) ([]int, error) {
	sorted, err := t.sortedRows(rows)
	if err != nil {
		return nil, err
	}
	if len(sorted) == 0 {
		return t.AppendRows(1), nil
	}

	// Inserting from the bottom keeps the lower indices valid; the row inserted
	// before sorted[i] ends up at sorted[i]+i.
	added := make([]int, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		row := t.newRow()
		if clone {
			row = cloneAsNew(t.rows[r])
		}
		t.insertRow(r, row)
		added[i] = r + i
	}
	t.record(Operation{Kind: OpAddRows, Rows: added})
	t.log.Debug("rows inserted", zap.String("table", t.name), zap.Int("count", len(added)), zap.Bool("clone", clone))
	t.refreshSearch()
	return added, nil
}

// DeleteRows removes the given model rows as one undoable action.
func (t *Table) DeleteRows(rows []int) (int, error) {
	sorted, err := t.sortedRows(rows)
	if err != nil {
		return 0, err
	}
	if len(sorted) == 0 {
		return 0, nil
	}
	t.record(Operation{Kind: OpRemoveRows, Removed: t.deleteRows(sorted)})
	t.log.Debug("rows deleted", zap.String("table", t.name), zap.Int("count", len(sorted)))
	t.refreshSearch()
	return len(sorted), nil
}

// deleteRows removes rows in descending order so pending indices stay valid,
// and returns the removed rows as ascending contiguous runs.
func (t *Table) deleteRows(rows []int) []RowRun {
	sorted := dedup(rows)

	removed := make(map[int]Row, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		removed[r] = t.rows[r]
		t.rows = append(t.rows[:r], t.rows[r+1:]...)
	}

	var runs []RowRun
	for _, r := range sorted {
		if n := len(runs); n > 0 && runs[n-1].Start+len(runs[n-1].Rows) == r {
			runs[n-1].Rows = append(runs[n-1].Rows, removed[r])
			continue
		}
		runs = append(runs, RowRun{Start: r, Rows: []Row{removed[r]}})
	}
	return runs
}

func (t *Table) insertRow(at int, row Row) {
	t.rows = append(t.rows, nil)
	copy(t.rows[at+1:], t.rows[at:])
	t.rows[at] = row
}

// sortedRows validates model row indices and returns them sorted without duplicates.
func (t *Table) sortedRows(rows []int) ([]int, error) {
	for _, r := range rows {
		if r < 0 || r >= len(t.rows) {
			return nil, fmt.Errorf("%w: row %d", ErrOutOfRange, r)
		}
	}
	return dedup(rows), nil
}

func dedup(rows []int) []int {
	out := append([]int(nil), rows...)
	sort.Ints(out)
	n := 0
	for i, r := range out {
		if i == 0 || r != out[n-1] {
			out[n] = r
			n++
		}
	}
	return out[:n]
}

// cloneAsNew copies a row as if it had been created in the editor.
func cloneAsNew(r Row) Row {
	out := make(Row, len(r))
	for i, c := range r {
		out[i] = Cell{Value: c.Value.Clone(), Modified: true}
	}
	return out
}
