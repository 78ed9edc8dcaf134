package table

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/codec"
	"github.com/Faultbox/packedit/pkg/schema"
)

// Nested table errors.
var (
	ErrNotSequence = errors.New("column is not a sequence")
	ErrNotNested   = errors.New("table is not a nested table")
)

type nestedLink struct {
	parent *Table
	pos    Pos
}

// OpenNested decodes the sequence cell at model position (r, c) into a child
// table. Edits to the child reach the parent only through CommitNested.
func (t *Table) OpenNested(r, c int) (*Table, error) {
	if err := t.check(Pos{r, c}); err != nil {
		return nil, err
	}
	f := t.field(c)
	if !f.Type.IsSequence() {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotSequence, f.Name, f.Kind())
	}

	rows, err := codec.DecodeSequence(f.Type, t.rows[r][c].Value.Blob)
	if err != nil {
		return nil, fmt.Errorf("opening %q at row %d: %w", f.Name, r, err)
	}
	child, err := New(schema.Definition{Fields: f.Type.Fields}, rows, Config{
		Name:   t.name + "/" + f.Name,
		Logger: t.log,
	})
	if err != nil {
		return nil, err
	}
	child.parent = &nestedLink{parent: t, pos: Pos{Row: r, Col: c}}
	return child, nil
}

// Parent returns the table and cell a nested table was opened from.
func (t *Table) Parent() (*Table, Pos, bool) {
	if t.parent == nil {
		return nil, Pos{}, false
	}
	return t.parent.parent, t.parent.pos, true
}

// CommitNested encodes the child's rows back into the parent cell it was opened
// from, as one edit in the parent's undo log.
func (t *Table) CommitNested(child *Table) error {
	if child.parent == nil || child.parent.parent != t {
		return ErrNotNested
	}
	p := child.parent.pos
	if err := t.check(p); err != nil {
		return err
	}
	f := t.field(p.Col)
	if !f.Type.IsSequence() {
		return fmt.Errorf("%w: %q is %s", ErrNotSequence, f.Name, f.Kind())
	}

	v, err := codec.EncodeSequence(f.Type, child.Values())
	if err != nil {
		return fmt.Errorf("encoding %q: %w", f.Name, err)
	}
	if t.write(p, v) {
		t.log.Debug("nested table committed",
			zap.String("table", t.name),
			zap.String("field", f.Name),
			zap.Int("row", p.Row),
			zap.Int("entries", child.Len()))
		t.refreshSearch()
	}
	return nil
}
