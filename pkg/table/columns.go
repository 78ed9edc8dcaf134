package table

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/schema"
)

// InsertColumn adds a field at index at and fills it with the field's default in
// every row. Column changes reshape every row, so both undo logs are dropped.
func (t *Table) InsertColumn(at int, f schema.Field) error {
	t.mu.Lock()
	if at < 0 || at > len(t.def.Fields) {
		t.mu.Unlock()
		return fmt.Errorf("%w: column %d", ErrOutOfRange, at)
	}
	f = f.Clone()
	fields := append(t.def.Fields, schema.Field{})
	copy(fields[at+1:], fields[at:])
	fields[at] = f
	t.def.Fields = fields
	t.mu.Unlock()

	value := f.Default()
	for i, row := range t.rows {
		row = append(row, Cell{})
		copy(row[at+1:], row[at:])
		row[at] = Cell{Value: value.Clone(), Modified: true}
		t.rows[i] = row
	}
	t.columnsChanged("column inserted", f.Name, at, 1)
	return nil
}

// RemoveColumn drops the field at index at from the definition and every row.
func (t *Table) RemoveColumn(at int) error {
	t.mu.Lock()
	if at < 0 || at >= len(t.def.Fields) {
		t.mu.Unlock()
		return fmt.Errorf("%w: column %d", ErrOutOfRange, at)
	}
	name := t.def.Fields[at].Name
	t.def.Fields = append(t.def.Fields[:at], t.def.Fields[at+1:]...)
	t.mu.Unlock()

	for i, row := range t.rows {
		t.rows[i] = append(row[:at], row[at+1:]...)
	}
	t.columnsChanged("column removed", name, at, -1)
	return nil
}

// columnsChanged keeps the filter and search on their field after a column was
// inserted (delta 1) or removed (delta -1) at index at. Both are dropped when
// their own column was removed.
func (t *Table) columnsChanged(msg, name string, at, delta int) {
	t.ClearHistory()
	if col, ok := shiftColumn(t.filter.Column, at, delta); ok {
		t.filter.Column = col
	} else {
		t.filter = Filter{Column: -1}
	}
	if col, ok := shiftColumn(t.search.query.Column, at, delta); ok {
		t.search.query.Column = col
	} else {
		t.search = searchState{}
	}
	t.refreshSearch()
	t.log.Info(msg, zap.String("table", t.name), zap.String("field", name), zap.Int("width", t.Width()))
}

func shiftColumn(col, at, delta int) (int, bool) {
	switch {
	case col < 0 || col < at:
		return col, true
	case col == at && delta < 0:
		return 0, false
	}
	return col + delta, true
}
