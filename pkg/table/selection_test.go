package table

import (
	"errors"
	"reflect"
	"testing"
)

func TestResetSelection(t *testing.T) {
	tb := newMixedTable(t)
	tb.SetText(0, 1, "changed")
	tb.SetText(1, 0, "99")
	tb.AppendRows(1)

	n := tb.ResetSelection([]Pos{{0, 1}, {1, 0}, {2, 2}, {4, 0}})
	if n != 2 {
		t.Fatalf("expected 2 cells reverted, got %d", n)
	}
	if cell, _ := tb.Cell(0, 1); cell.Value.Str != "foo" || cell.Modified {
		t.Errorf("cell not reverted: %+v", cell)
	}
	if undo, _ := tb.History(); undo != 4 {
		t.Errorf("expected the reset to add one entry, have %d", undo)
	}
	if tb.ResetSelection([]Pos{{0, 1}}) != 0 {
		t.Error("resetting an unmodified cell should do nothing")
	}
}

func TestRewriteSelection(t *testing.T) {
	tb := newMixedTable(t)

	n := tb.RewriteSelection([]Pos{{0, 0}, {1, 0}, {2, 0}}, "{x} * 2 + {z}", true)
	if n != 3 {
		t.Fatalf("expected 3 cells rewritten, got %d", n)
	}
	for r, want := range []int64{2, 5, 8} {
		if v := cellValue(t, tb, r, 0); v.Int != want {
			t.Errorf("row %d = %d, want %d", r, v.Int, want)
		}
	}
	if undo, _ := tb.History(); undo != 1 {
		t.Errorf("expected one entry, got %d", undo)
	}

	n = tb.RewriteSelection([]Pos{{0, 1}, {1, 1}}, "{x}_{y}", false)
	if n != 2 || cellValue(t, tb, 1, 1).Str != "food_1" {
		t.Errorf("text rewrite failed: %d, %q", n, cellValue(t, tb, 1, 1).Str)
	}

	// Fractions do not fit an integer column; division by zero is skipped.
	if n = tb.RewriteSelection([]Pos{{0, 0}}, "{x} / 4", true); n != 0 {
		t.Errorf("fractional result should be skipped, got %d", n)
	}
	if n = tb.RewriteSelection([]Pos{{0, 3}}, "{x} / 0", true); n != 0 {
		t.Errorf("division by zero should be skipped, got %d", n)
	}

	n = tb.RewriteSelection([]Pos{{1, 3}}, "{x} * 3", true)
	if n != 1 || cellValue(t, tb, 1, 3).F32 != 4.5 {
		t.Errorf("float rewrite failed: %d, %v", n, cellValue(t, tb, 1, 3).F32)
	}
}

func TestFormatResult(t *testing.T) {
	tb := newMixedTable(t)
	cur, _ := tb.Cell(1, 3)
	if got := formatResult(cur.Value, 1.5000000001); got != "1.5" {
		t.Errorf("near-equal result should keep the current text, got %q", got)
	}
	if got := formatResult(cur.Value, 2.25); got != "2.25" {
		t.Errorf("unexpected %q", got)
	}
}

func TestEvalExpr(t *testing.T) {
	tests := []struct {
		expr    string
		want    float64
		wantErr bool
	}{
		{"1+2*3", 7, false},
		{"(1+2)*3", 9, false},
		{" -4 / 2 ", -2, false},
		{"7 % 4", 3, false},
		{"--3", 3, false},
		{"1.5e2", 150, false},
		{"1/0", 0, true},
		{"2+", 0, true},
		{"(2", 0, true},
		{"abc", 0, true},
		{"2 3", 0, true},
	}
	for _, tt := range tests {
		got, err := evalExpr(tt.expr)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidExpression) {
				t.Errorf("evalExpr(%q): expected ErrInvalidExpression, got %v", tt.expr, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("evalExpr(%q) = %v, %v; want %v", tt.expr, got, err, tt.want)
		}
	}
}

func TestSmartDelete(t *testing.T) {
	tb := newMixedTable(t)
	rows, cells := tb.SmartDelete([]Pos{{1, 0}, {1, 1}, {1, 2}, {1, 3}, {2, 1}, {3, 0}})
	if rows != 1 || cells != 2 {
		t.Fatalf("SmartDelete = %d rows, %d cells", rows, cells)
	}
	if tb.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tb.Len())
	}
	// Former rows 2 and 3 moved up.
	if cellValue(t, tb, 1, 1).Str != "" || cellValue(t, tb, 2, 0).Int != 0 {
		t.Error("partial cells should be reset to zero values")
	}

	op, _ := tb.LastUndo()
	if op.Kind != OpComposite || len(op.Ops) != 2 || op.Ops[0].Kind != OpRemoveRows || op.Ops[1].Kind != OpEditing {
		t.Fatalf("expected Composite{RemoveRows, Editing}, got %+v", op)
	}

	tb.Undo(1)
	if tb.Len() != 4 || cellValue(t, tb, 2, 1).Str != "bar" || cellValue(t, tb, 3, 0).Int != 4 {
		t.Error("undo did not restore rows and cells")
	}

	tb = newMixedTable(t)
	if rows, cells = tb.SmartDelete([]Pos{{0, 0}, {0, 1}, {0, 2}, {0, 3}}); rows != 1 || cells != 0 {
		t.Errorf("full-row delete = %d, %d", rows, cells)
	}
	if op, _ = tb.LastUndo(); op.Kind != OpRemoveRows {
		t.Errorf("rows only should record RemoveRows, got %s", op)
	}
}

func TestCopySelection(t *testing.T) {
	tb := newMixedTable(t)
	got := tb.CopySelection([]Pos{{1, 1}, {0, 0}, {0, 1}, {1, 2}})
	if want := "1\tfoo\nfood\tfalse"; got != want {
		t.Errorf("CopySelection = %q, want %q", got, want)
	}
	if tb.CopySelection(nil) != "" {
		t.Error("empty selection should copy nothing")
	}
}

func TestCopySelectionLua(t *testing.T) {
	tb := newMixedTable(t)

	got := tb.CopySelectionLua([]Pos{{0, 0}, {0, 1}, {1, 0}, {1, 3}})
	want := "TABLE = {\n" +
		"\t[1] = { [\"id\"] = 1, [\"name\"] = \"foo\" },\n" +
		"\t[2] = { [\"id\"] = 2, [\"ratio\"] = 1.5 }\n" +
		"}\n"
	if got != want {
		t.Errorf("keyed Lua:\n got %q\nwant %q", got, want)
	}

	got = tb.CopySelectionLua([]Pos{{2, 1}, {2, 2}})
	want = "\n{ [\"name\"] = \"bar\", [\"enabled\"] = true }\n"
	if got != want {
		t.Errorf("plain Lua:\n got %q\nwant %q", got, want)
	}
}

func TestLuaValue(t *testing.T) {
	tb := newMixedTable(t)
	tb.SetText(0, 3, "0.123456")
	tb.SetText(0, 1, "say \"hi\"")
	if got := luaValue(cellValue(t, tb, 0, 3)); got != "0.123" {
		t.Errorf("float should be trimmed to three decimals, got %q", got)
	}
	if got := luaValue(cellValue(t, tb, 0, 1)); got != `"say \"hi\""` {
		t.Errorf("string should be quoted, got %q", got)
	}
}

func TestFilter(t *testing.T) {
	tb := newMixedTable(t)

	tests := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{"empty pattern", Filter{Column: -1}, []int{0, 1, 2, 3}},
		{"column contains", Filter{Column: 1, Pattern: "fo"}, []int{0, 1}},
		{"any column", Filter{Column: -1, Pattern: "2"}, []int{1, 2}},
		{"case sensitive", Filter{Column: 1, Pattern: "b", CaseSensitive: true}, []int{2}},
		{"regex", Filter{Column: 1, Pattern: "^(bar|baz)$", Regex: true}, []int{2, 3}},
		{"boolean", Filter{Column: 2, Pattern: "false"}, []int{1, 3}},
		{"boolean unparseable", Filter{Column: 2, Pattern: "fals"}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tb.SetFilter(tt.filter); err != nil {
				t.Fatalf("SetFilter failed: %v", err)
			}
			if got := tb.Visible(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}

	tb.SetFilter(Filter{Column: 1, Pattern: "ba"})
	if r, ok := tb.ToModel(1); !ok || r != 3 {
		t.Errorf("ToModel(1) = %d, %v", r, ok)
	}
	if v, ok := tb.ToView(2); !ok || v != 0 {
		t.Errorf("ToView(2) = %d, %v", v, ok)
	}
	if _, ok := tb.ToView(0); ok {
		t.Error("filtered-out row should have no view index")
	}
	if got := tb.SelectedRows([]Pos{{1, 0}, {0, 2}, {1, 3}}); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("SelectedRows = %v", got)
	}

	if err := tb.SetFilter(Filter{Column: 1, Pattern: "[", Regex: true}); err == nil {
		t.Error("expected error for invalid regex")
	}
	if f := tb.CurrentFilter(); f.Pattern != "ba" {
		t.Errorf("invalid filter replaced the active one: %+v", f)
	}
}
