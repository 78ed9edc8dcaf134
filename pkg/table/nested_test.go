package table

import (
	"errors"
	"testing"

	"github.com/Faultbox/packedit/pkg/codec"
	"github.com/Faultbox/packedit/pkg/schema"
)

func dropType() schema.FieldType {
	return schema.SequenceOf(schema.SequenceU16,
		schema.NewField("item", schema.TypeOf(schema.I32)),
		schema.NewField("chance", schema.TypeOf(schema.F32)),
	)
}

func newNestedTable(t *testing.T) *Table {
	t.Helper()
	drops, err := codec.EncodeSequence(dropType(), [][]schema.Value{
		{schema.IntValue(schema.I32, 100), schema.F32Value(0.25)},
		{schema.IntValue(schema.I32, 200), schema.F32Value(0.75)},
	})
	if err != nil {
		t.Fatalf("EncodeSequence failed: %v", err)
	}
	def := schema.Definition{Version: 2, Fields: []schema.Field{
		schema.NewField("name", schema.TypeOf(schema.StringU16)),
		schema.NewField("drops", dropType()),
	}}
	tb, err := New(def, [][]schema.Value{
		{schema.StringValue(schema.StringU16, "poring"), drops},
	}, Config{Name: "monsters_tables"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tb
}

func TestOpenNested(t *testing.T) {
	tb := newNestedTable(t)

	child, err := tb.OpenNested(0, 1)
	if err != nil {
		t.Fatalf("OpenNested failed: %v", err)
	}
	if child.Name() != "monsters_tables/drops" || child.Len() != 2 || child.Width() != 2 {
		t.Fatalf("unexpected child %q: %d x %d", child.Name(), child.Len(), child.Width())
	}
	if v := cellValue(t, child, 1, 0); v.Int != 200 {
		t.Errorf("expected item 200, got %d", v.Int)
	}
	parent, pos, ok := child.Parent()
	if !ok || parent != tb || pos != (Pos{0, 1}) {
		t.Errorf("unexpected parent link %v %v", pos, ok)
	}
	if _, _, ok := tb.Parent(); ok {
		t.Error("top-level table should have no parent")
	}

	if _, err := tb.OpenNested(0, 0); !errors.Is(err, ErrNotSequence) {
		t.Errorf("expected ErrNotSequence, got %v", err)
	}
	if _, err := tb.OpenNested(3, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestCommitNested(t *testing.T) {
	tb := newNestedTable(t)
	before := cellValue(t, tb, 0, 1)

	child, _ := tb.OpenNested(0, 1)
	if err := child.SetText(0, 0, "150"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	child.AppendRows(1)

	if v := cellValue(t, tb, 0, 1); !v.Equal(before) {
		t.Fatal("child edits must not reach the parent before commit")
	}
	if err := tb.CommitNested(child); err != nil {
		t.Fatalf("CommitNested failed: %v", err)
	}

	after := cellValue(t, tb, 0, 1)
	if after.Int != 3 {
		t.Errorf("expected 3 entries, got %d", after.Int)
	}
	rows, err := codec.DecodeSequence(dropType(), after.Blob)
	if err != nil {
		t.Fatalf("DecodeSequence failed: %v", err)
	}
	if rows[0][0].Int != 150 || rows[2][0].Int != 0 {
		t.Errorf("unexpected committed rows %+v", rows)
	}
	if cell, _ := tb.Cell(0, 1); !cell.Modified {
		t.Error("committed cell should be modified")
	}

	if undo, _ := tb.History(); undo != 1 {
		t.Errorf("expected one parent entry, got %d", undo)
	}
	tb.Undo(1)
	if v := cellValue(t, tb, 0, 1); !v.Equal(before) {
		t.Error("undo did not restore the original blob")
	}

	other := newNestedTable(t)
	if err := other.CommitNested(child); !errors.Is(err, ErrNotNested) {
		t.Errorf("expected ErrNotNested, got %v", err)
	}
	if err := tb.CommitNested(tb); !errors.Is(err, ErrNotNested) {
		t.Errorf("expected ErrNotNested, got %v", err)
	}
}

func TestColumns(t *testing.T) {
	tb := newMixedTable(t)
	tb.SetText(0, 1, "changed")

	level := schema.NewField("level", schema.TypeOf(schema.I16))
	if err := tb.InsertColumn(1, level); err != nil {
		t.Fatalf("InsertColumn failed: %v", err)
	}
	if tb.Width() != 5 || tb.Definition().Fields[1].Name != "level" {
		t.Fatalf("column not inserted: %+v", tb.Definition().Fields)
	}
	if cell, _ := tb.Cell(2, 1); cell.Value.Kind != schema.I16 || !cell.Modified {
		t.Errorf("new column should hold modified defaults, got %+v", cell)
	}
	if cellValue(t, tb, 0, 2).Str != "changed" {
		t.Error("existing cells should shift right")
	}
	if tb.CanUndo() || tb.CanRedo() {
		t.Error("column changes must clear the history")
	}

	tb.Find(Query{Pattern: "x", Column: 4})
	if err := tb.RemoveColumn(4); err != nil {
		t.Fatalf("RemoveColumn failed: %v", err)
	}
	if tb.Width() != 4 {
		t.Errorf("expected 4 columns, got %d", tb.Width())
	}
	if st := tb.SearchStatus(); st.Label != "" {
		t.Errorf("search on a removed column should be dropped, got %q", st.Label)
	}

	if err := tb.RemoveColumn(4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := tb.InsertColumn(-1, level); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestColumns_FilterAndSearchFollowTheirField(t *testing.T) {
	tb := newMixedTable(t)
	if err := tb.SetFilter(Filter{Column: 1, Pattern: "fo"}); err != nil {
		t.Fatalf("SetFilter failed: %v", err)
	}
	if _, err := tb.Find(Query{Pattern: "1.5", Column: 3}); err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	expect := func(step string, filterCol, searchCol int, visible int) {
		t.Helper()
		if got := tb.CurrentFilter().Column; got != filterCol {
			t.Errorf("%s: filter column %d, want %d", step, got, filterCol)
		}
		if got := len(tb.Visible()); got != visible {
			t.Errorf("%s: %d visible rows, want %d", step, got, visible)
		}
		m := tb.Matches()
		if len(m) != 1 || m[0].Pos != (Pos{1, searchCol}) {
			t.Errorf("%s: matches %+v, want row 1 col %d", step, m, searchCol)
		}
	}

	tb.InsertColumn(0, schema.NewField("level", schema.TypeOf(schema.I16)))
	expect("insert before", 2, 4, 2)

	tb.RemoveColumn(0)
	expect("remove before", 1, 3, 2)

	tb.RemoveColumn(2)
	expect("remove between", 1, 2, 2)

	tb.InsertColumn(3, schema.NewField("tail", schema.TypeOf(schema.I16)))
	expect("insert after", 1, 2, 2)

	tb.RemoveColumn(1)
	if f := tb.CurrentFilter(); f.Pattern != "" {
		t.Errorf("filter on a removed column should be dropped, got %+v", f)
	}
	expect("remove filtered column", -1, 1, 4)
}

