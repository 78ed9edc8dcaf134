package table

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/schema"
)

// floatEpsilon is the tolerance under which a computed number counts as unchanged.
const floatEpsilon = 1e-6

// ResetSelection reverts every selected cell to the value it was loaded with.
// Cells created in the editor have nothing to revert to and are left alone.
// It returns the number of cells reverted.
func (t *Table) ResetSelection(sel []Pos) int {
	n := 0
	for _, p := range t.modelSelection(sel) {
		cell := &t.rows[p.Row][p.Col]
		if !cell.HasSource || cell.Value.Equal(cell.Source) {
			continue
		}
		if t.write(p, cell.Source) {
			n++
		}
	}
	t.coalesce(n)
	if n > 0 {
		t.refreshSearch()
	}
	return n
}

// RewriteSelection rewrites every selected cell from a template. In the template
// {x} is the cell's current text, {y} its column and {z} its row. With evaluate set,
// the result is evaluated as an arithmetic expression first. Cells whose result
// does not parse for the column are skipped; sequence cells are never rewritten.
// It returns the number of cells changed.
func (t *Table) RewriteSelection(sel []Pos, template string, evaluate bool) int {
	n := 0
	for _, p := range t.modelSelection(sel) {
		kind := t.kind(p.Col)
		if kind.IsSequence() {
			continue
		}
		cell := &t.rows[p.Row][p.Col]
		current := cell.Value.String()

		text := strings.NewReplacer(
			"{x}", current,
			"{y}", strconv.Itoa(p.Col),
			"{z}", strconv.Itoa(p.Row),
		).Replace(template)

		if evaluate {
			result, err := evalExpr(text)
			if err != nil {
				t.log.Debug("rewrite skipped", zap.String("expr", text), zap.Error(err))
				continue
			}
			text = formatResult(cell.Value, result)
		}

		v, err := schema.ParseValue(kind, text)
		if err != nil {
			continue
		}
		if t.write(p, v) {
			n++
		}
	}
	t.coalesce(n)
	if n > 0 {
		t.refreshSearch()
	}
	return n
}

// formatResult renders a computed number. A result within epsilon of the cell's
// current number keeps the current text, so float noise does not count as an edit.
func formatResult(current schema.Value, result float64) string {
	var old float64
	switch current.Kind {
	case schema.F32:
		old = float64(current.F32)
	case schema.I16, schema.I32, schema.I64:
		old = float64(current.Int)
	default:
		return strconv.FormatFloat(result, 'f', -1, 64)
	}
	if math.Abs(result-old) < floatEpsilon {
		return current.String()
	}
	return strconv.FormatFloat(result, 'f', -1, 64)
}

// SmartDelete removes every row whose cells are all selected and resets the
// remaining selected cells to their column's zero value. The whole action is
// one undo entry. It returns the number of rows removed and cells cleared.
func (t *Table) SmartDelete(sel []Pos) (rows, cells int) {
	width := t.Width()
	byRow := make(map[int]map[int]bool)
	for _, p := range t.modelSelection(sel) {
		if byRow[p.Row] == nil {
			byRow[p.Row] = make(map[int]bool)
		}
		byRow[p.Row][p.Col] = true
	}

	var full []int
	for r, cols := range byRow {
		if len(cols) == width {
			full = append(full, r)
			continue
		}
		for c := range cols {
			kind := t.kind(c)
			if kind.IsSequence() {
				continue
			}
			if t.write(Pos{Row: r, Col: c}, schema.Zero(kind)) {
				cells++
			}
		}
	}
	t.coalesce(cells)

	// Undo must re-insert the rows before restoring the cleared cells, whose
	// positions were taken with every row still present.
	var ops []Operation
	if len(full) > 0 {
		full = dedup(full)
		ops = append(ops, Operation{Kind: OpRemoveRows, Removed: t.deleteRows(full)})
	}
	if cells > 0 {
		ops = append(ops, t.pop())
	}

	switch len(ops) {
	case 0:
		return 0, 0
	case 1:
		t.record(ops[0])
	default:
		t.record(Operation{Kind: OpComposite, Ops: ops})
	}
	t.log.Debug("smart delete", zap.String("table", t.name), zap.Int("rows", len(full)), zap.Int("cells", cells))
	t.refreshSearch()
	return len(full), cells
}
