package table

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// OpKind identifies the variant of an Operation.
type OpKind uint8

// Operation kinds.
const (
	OpEditing OpKind = iota
	OpAddRows
	OpRemoveRows
	OpImport
	OpComposite
)

func (k OpKind) String() string {
	switch k {
	case OpEditing:
		return "Editing"
	case OpAddRows:
		return "AddRows"
	case OpRemoveRows:
		return "RemoveRows"
	case OpImport:
		return "Import"
	case OpComposite:
		return "Composite"
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// Edit is the snapshot of one cell taken before it was changed.
type Edit struct {
	Pos  Pos
	Cell Cell
}

// RowRun is a contiguous block of removed rows. Start is the index of the first
// row before the removal.
type RowRun struct {
	Start int
	Rows  []Row
}

// Operation is one entry of the undo or redo log. Applying it reverts the
// change it describes:
//
//	OpEditing     restores every cell in Edits
//	OpAddRows     removes the rows at Rows
//	OpRemoveRows  re-inserts every run in Removed
//	OpImport      swaps the table contents with Snapshot
//	OpComposite   applies Ops in order
type Operation struct {
	Kind     OpKind
	Edits    []Edit
	Rows     []int
	Removed  []RowRun
	Snapshot []Row
	Ops      []Operation
}

func (op Operation) String() string {
	switch op.Kind {
	case OpEditing:
		return fmt.Sprintf("Editing(%d cells)", len(op.Edits))
	case OpAddRows:
		return fmt.Sprintf("AddRows(%d rows)", len(op.Rows))
	case OpRemoveRows:
		n := 0
		for _, run := range op.Removed {
			n += len(run.Rows)
		}
		return fmt.Sprintf("RemoveRows(%d rows)", n)
	case OpImport:
		return fmt.Sprintf("Import(%d rows)", len(op.Snapshot))
	case OpComposite:
		return fmt.Sprintf("Composite(%d ops)", len(op.Ops))
	}
	return op.Kind.String()
}

// Undo reverts up to steps entries and returns how many were reverted.
func (t *Table) Undo(steps int) int {
	done := 0
	for ; done < steps && len(t.undo) > 0; done++ {
		op := t.undo[len(t.undo)-1]
		t.undo = t.undo[:len(t.undo)-1]
		t.redo = append(t.redo, t.apply(op))
	}
	if done > 0 {
		t.log.Debug("undo", zap.String("table", t.name), zap.Int("steps", done))
		t.refreshSearch()
	}
	return done
}

// Redo re-applies up to steps reverted entries and returns how many were re-applied.
func (t *Table) Redo(steps int) int {
	done := 0
	for ; done < steps && len(t.redo) > 0; done++ {
		op := t.redo[len(t.redo)-1]
		t.redo = t.redo[:len(t.redo)-1]
		t.undo = append(t.undo, t.apply(op))
	}
	if done > 0 {
		t.log.Debug("redo", zap.String("table", t.name), zap.Int("steps", done))
		t.refreshSearch()
	}
	return done
}

// CanUndo reports whether there is anything to undo.
func (t *Table) CanUndo() bool { return len(t.undo) > 0 }

// CanRedo reports whether there is anything to redo.
func (t *Table) CanRedo() bool { return len(t.redo) > 0 }

// History returns the lengths of the undo and redo logs.
func (t *Table) History() (undo, redo int) { return len(t.undo), len(t.redo) }

// LastUndo returns the entry the next Undo would apply.
func (t *Table) LastUndo() (Operation, bool) {
	if len(t.undo) == 0 {
		return Operation{}, false
	}
	return t.undo[len(t.undo)-1], true
}

// LastRedo returns the entry the next Redo would apply.
func (t *Table) LastRedo() (Operation, bool) {
	if len(t.redo) == 0 {
		return Operation{}, false
	}
	return t.redo[len(t.redo)-1], true
}

// ClearHistory drops both logs.
func (t *Table) ClearHistory() {
	t.undo = nil
	t.redo = nil
}

// record pushes a new user action. Any new action invalidates the redo log.
func (t *Table) record(op Operation) {
	t.undo = append(t.undo, op)
	t.redo = nil
}

// pop removes the newest undo entry.
func (t *Table) pop() Operation {
	op := t.undo[len(t.undo)-1]
	t.undo = t.undo[:len(t.undo)-1]
	return op
}

// coalesce merges the last n Editing entries into one.
func (t *Table) coalesce(n int) {
	if n > len(t.undo) {
		n = len(t.undo)
	}
	if n <= 1 {
		return
	}
	tail := t.undo[len(t.undo)-n:]
	var edits []Edit
	for _, op := range tail {
		if op.Kind == OpEditing {
			edits = append(edits, op.Edits...)
		}
	}
	t.undo = append(t.undo[:len(t.undo)-n], Operation{Kind: OpEditing, Edits: edits})
}

// apply executes op and returns the operation that reverts it.
func (t *Table) apply(op Operation) Operation {
	switch op.Kind {
	case OpEditing:
		inverse := make([]Edit, 0, len(op.Edits))
		for i := len(op.Edits) - 1; i >= 0; i-- {
			e := op.Edits[i]
			cell := &t.rows[e.Pos.Row][e.Pos.Col]
			inverse = append(inverse, Edit{Pos: e.Pos, Cell: cell.clone()})
			*cell = e.Cell.clone()
		}
		return Operation{Kind: OpEditing, Edits: inverse}

	case OpAddRows:
		return Operation{Kind: OpRemoveRows, Removed: t.deleteRows(op.Rows)}

	case OpRemoveRows:
		runs := append([]RowRun(nil), op.Removed...)
		sort.Slice(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start })
		var added []int
		for _, run := range runs {
			for offset, row := range run.Rows {
				t.insertRow(run.Start+offset, row.clone())
				added = append(added, run.Start+offset)
			}
		}
		return Operation{Kind: OpAddRows, Rows: added}

	case OpImport:
		previous := t.rows
		t.rows = cloneRows(op.Snapshot)
		return Operation{Kind: OpImport, Snapshot: previous}

	case OpComposite:
		inverse := make([]Operation, len(op.Ops))
		for i, sub := range op.Ops {
			inverse[len(op.Ops)-1-i] = t.apply(sub)
		}
		return Operation{Kind: OpComposite, Ops: inverse}
	}
	return op
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.clone()
	}
	return out
}
