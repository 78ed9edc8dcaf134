// Package table is the editable in-memory model of a decoded table.
//
// Every mutation goes through the undo log. A single user action that touches
// many cells (paste, replace all, smart delete) is coalesced into one log entry,
// so one Undo reverts the whole action. Selections are given in view
// coordinates: rows are indices into the rows visible through the active
// filter, columns are field indices.
package table

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/schema"
)

// Table errors.
var (
	ErrRowWidth       = errors.New("row width does not match definition")
	ErrOutOfRange     = errors.New("position out of range")
	ErrKindMismatch   = errors.New("value kind does not match column")
	ErrEmptySelection = errors.New("empty selection")
)

// Cell is one table cell. Source is the value the cell had when it was loaded;
// cells created by the editor have no source.
type Cell struct {
	Value     schema.Value
	Source    schema.Value
	HasSource bool
	Modified  bool
}

func (c Cell) clone() Cell {
	c.Value = c.Value.Clone()
	c.Source = c.Source.Clone()
	return c
}

// Row is one table entry. Its length always equals the definition's field count.
type Row []Cell

func (r Row) clone() Row {
	out := make(Row, len(r))
	for i, c := range r {
		out[i] = c.clone()
	}
	return out
}

// Pos is a (row, column) cell position.
type Pos struct {
	Row int
	Col int
}

// Config holds optional table settings.
type Config struct {
	// Name is the table name written into TSV exports.
	Name string
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Table is an editable table with an undo/redo log.
type Table struct {
	// mu guards def. Row data is owned by the caller's goroutine.
	mu  sync.RWMutex
	def schema.Definition

	name string
	rows []Row

	undo []Operation
	redo []Operation

	filter Filter
	search searchState
	parent *nestedLink
	log    *zap.Logger
}

// New builds a table from decoded rows. Every loaded cell keeps its value as source.
func New(def schema.Definition, rows [][]schema.Value, cfg Config) (*Table, error) {
	t := &Table{
		def:    def.Clone(),
		name:   cfg.Name,
		log:    cfg.Logger,
		filter: Filter{Column: -1},
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	loaded, err := t.loadRows(rows)
	if err != nil {
		return nil, err
	}
	t.rows = loaded
	return t, nil
}

func (t *Table) loadRows(rows [][]schema.Value) ([]Row, error) {
	width := t.Width()
	out := make([]Row, len(rows))
	for r, values := range rows {
		if len(values) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRowWidth, r, len(values), width)
		}
		row := make(Row, width)
		for c, v := range values {
			row[c] = Cell{Value: v.Clone(), Source: v.Clone(), HasSource: true}
		}
		out[r] = row
	}
	return out, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Definition returns a copy of the column definition.
func (t *Table) Definition() schema.Definition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.def.Clone()
}

func (t *Table) field(col int) schema.Field {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.def.Fields[col]
}

func (t *Table) kind(col int) schema.FieldKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.def.Fields[col].Type.Kind
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.def.Fields)
}

// Cell returns a copy of the cell at model position (r, c).
func (t *Table) Cell(r, c int) (Cell, error) {
	if err := t.check(Pos{r, c}); err != nil {
		return Cell{}, err
	}
	return t.rows[r][c].clone(), nil
}

// Rows returns a copy of every row.
func (t *Table) Rows() []Row { return cloneRows(t.rows) }

// Values returns the current cell values, ready for encoding.
func (t *Table) Values() [][]schema.Value {
	out := make([][]schema.Value, len(t.rows))
	for i, r := range t.rows {
		values := make([]schema.Value, len(r))
		for c, cell := range r {
			values[c] = cell.Value.Clone()
		}
		out[i] = values
	}
	return out
}

func (t *Table) check(p Pos) error {
	if p.Row < 0 || p.Row >= len(t.rows) || p.Col < 0 || p.Col >= t.Width() {
		return fmt.Errorf("%w: (%d, %d)", ErrOutOfRange, p.Row, p.Col)
	}
	return nil
}

// SetValue writes v into model position (r, c) as one undoable edit.
// Writing the value the cell already holds records nothing.
func (t *Table) SetValue(r, c int, v schema.Value) error {
	if err := t.check(Pos{r, c}); err != nil {
		return err
	}
	if k := t.kind(c); v.Kind != k {
		return fmt.Errorf("%w: %s into %s column", ErrKindMismatch, v.Kind, k)
	}
	if t.write(Pos{r, c}, v) {
		t.refreshSearch()
	}
	return nil
}

// SetText parses text for the column's kind and writes it.
func (t *Table) SetText(r, c int, text string) error {
	if err := t.check(Pos{r, c}); err != nil {
		return err
	}
	v, err := schema.ParseValue(t.kind(c), text)
	if err != nil {
		return err
	}
	if t.write(Pos{r, c}, v) {
		t.refreshSearch()
	}
	return nil
}

// write records one Editing entry and updates the cell. It reports false when
// the cell already held v.
func (t *Table) write(p Pos, v schema.Value) bool {
	cell := &t.rows[p.Row][p.Col]
	if cell.Value.Equal(v) {
		return false
	}
	t.record(Operation{Kind: OpEditing, Edits: []Edit{{Pos: p, Cell: cell.clone()}}})
	setCell(cell, v)
	return true
}

func setCell(c *Cell, v schema.Value) {
	c.Value = v.Clone()
	c.Modified = !c.HasSource || !c.Value.Equal(c.Source)
}

func (t *Table) newRow() Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row := make(Row, len(t.def.Fields))
	for i := range t.def.Fields {
		row[i] = Cell{Value: t.def.Fields[i].Default(), Modified: true}
	}
	return row
}
