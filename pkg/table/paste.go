package table

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/schema"
)

// PasteStrategy is how clipboard cells are laid onto a selection.
type PasteStrategy uint8

// Paste strategies.
const (
	// PasteBroadcast writes a single clipboard value into every selected cell.
	PasteBroadcast PasteStrategy = iota + 1
	// PasteRowCycle repeats a single clipboard row across every selected row.
	PasteRowCycle
	// PasteBlock lays the clipboard grid down from the first selected cell,
	// growing the table when the grid runs past the last visible row.
	PasteBlock
)

func (s PasteStrategy) String() string {
	switch s {
	case PasteBroadcast:
		return "broadcast"
	case PasteRowCycle:
		return "row-cycle"
	case PasteBlock:
		return "block"
	}
	return "unknown"
}

// PasteReport describes what a paste did.
type PasteReport struct {
	Strategy PasteStrategy
	// Changed counts cells whose value actually changed.
	Changed int
	// Skipped counts cells left alone because the text did not fit the column.
	Skipped int
	// Added lists the model rows appended to fit the clipboard.
	Added []int
}

// ParseClipboard splits clipboard text into rows of cells. One trailing newline is ignored.
func ParseClipboard(text string) [][]string {
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	grid := make([][]string, len(lines))
	for i, line := range lines {
		grid[i] = strings.Split(line, "\t")
	}
	return grid
}

// Paste writes clipboard text into the selection, given in view coordinates.
// The whole paste is one undo entry.
func (t *Table) Paste(text string, sel []Pos) (PasteReport, error) {
	if len(sel) == 0 {
		return PasteReport{}, ErrEmptySelection
	}
	visible, width := len(t.Visible()), t.Width()
	for _, p := range sel {
		if p.Row < 0 || p.Row >= visible || p.Col < 0 || p.Col >= width {
			return PasteReport{}, fmt.Errorf("%w: view cell (%d, %d)", ErrOutOfRange, p.Row, p.Col)
		}
	}
	grid := ParseClipboard(text)
	sel = sortVisually(sel)

	var report PasteReport
	switch {
	case len(grid) == 1 && len(grid[0]) == 1:
		report = t.pasteBroadcast(grid[0][0], sel)
	case len(grid) == 1 && rowsOfWidth(sel, len(grid[0])):
		report = t.pasteRowCycle(grid[0], sel)
	default:
		report = t.pasteBlock(grid, sel)
	}

	t.log.Debug("paste",
		zap.String("table", t.name),
		zap.Stringer("strategy", report.Strategy),
		zap.Int("changed", report.Changed),
		zap.Int("skipped", report.Skipped),
		zap.Int("added", len(report.Added)))
	if report.Changed > 0 || len(report.Added) > 0 {
		t.refreshSearch()
	}
	return report, nil
}

func (t *Table) pasteBroadcast(text string, sel []Pos) PasteReport {
	report := PasteReport{Strategy: PasteBroadcast}
	for _, p := range t.modelSelection(sel) {
		t.pasteCell(p, text, &report)
	}
	t.coalesce(report.Changed)
	return report
}

func (t *Table) pasteRowCycle(src []string, sel []Pos) PasteReport {
	report := PasteReport{Strategy: PasteRowCycle}
	for i, p := range t.modelSelection(sel) {
		t.pasteCell(p, src[i%len(src)], &report)
	}
	t.coalesce(report.Changed)
	return report
}

func (t *Table) pasteBlock(grid [][]string, sel []Pos) PasteReport {
	report := PasteReport{Strategy: PasteBlock}
	origin := sel[0]
	visible := t.Visible()
	width := t.Width()

	for r, cells := range grid {
		viewRow := origin.Row + r
		modelRow := -1
		if viewRow < len(visible) {
			modelRow = visible[viewRow]
		}

		for c, text := range cells {
			col := origin.Col + c
			if col >= width {
				continue
			}
			v, ok := t.coerce(col, text)
			if !ok {
				report.Skipped++
				continue
			}
			// Rows past the view are created on demand, one per clipboard row.
			if modelRow < 0 {
				t.rows = append(t.rows, t.newRow())
				modelRow = len(t.rows) - 1
				report.Added = append(report.Added, modelRow)
			}
			if t.write(Pos{Row: modelRow, Col: col}, v) {
				report.Changed++
			}
		}
	}
	t.coalesce(report.Changed)

	if len(report.Added) > 0 {
		var ops []Operation
		if report.Changed > 0 {
			ops = append(ops, t.pop())
		}
		ops = append(ops, Operation{Kind: OpAddRows, Rows: report.Added})
		t.record(Operation{Kind: OpComposite, Ops: ops})
	}
	return report
}

func (t *Table) pasteCell(p Pos, text string, report *PasteReport) {
	v, ok := t.coerce(p.Col, text)
	if !ok {
		report.Skipped++
		return
	}
	if t.write(p, v) {
		report.Changed++
	}
}

// coerce parses text for a column. Sequence columns never accept text.
func (t *Table) coerce(col int, text string) (schema.Value, bool) {
	v, err := schema.ParseValue(t.kind(col), text)
	if err != nil {
		return schema.Value{}, false
	}
	return v, true
}

func sortVisually(sel []Pos) []Pos {
	out := append([]Pos(nil), sel...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// rowsOfWidth reports whether a visually sorted selection spans more than one
// row with exactly width cells in each.
func rowsOfWidth(sel []Pos, width int) bool {
	rows, count := 1, 0
	for i, p := range sel {
		if i > 0 && p.Row != sel[i-1].Row {
			if count != width {
				return false
			}
			rows++
			count = 0
		}
		count++
	}
	return rows > 1 && count == width
}
