package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Faultbox/packedit/pkg/decoder"
	"github.com/Faultbox/packedit/pkg/schema"
	"github.com/Faultbox/packedit/pkg/table"
)

func pos(r, c int) table.Pos { return table.Pos{Row: r, Col: c} }

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in   string
		want []table.Pos
	}{
		{"2:1", []table.Pos{pos(2, 1)}},
		{"0:0-1:1", []table.Pos{pos(0, 0), pos(0, 1), pos(1, 0), pos(1, 1)}},
		{"3:2-1:2", []table.Pos{pos(1, 2), pos(2, 2), pos(3, 2)}},
		{" 0:1 - 0:2 ", []table.Pos{pos(0, 1), pos(0, 2)}},
	}
	for _, tt := range tests {
		got, err := parseSelection(tt.in)
		if err != nil {
			t.Errorf("parseSelection(%q) failed: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseSelection(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "1", "a:1", "1:b", "1:1-", "-1:0"} {
		if _, err := parseSelection(bad); !errors.Is(err, errBadSelection) {
			t.Errorf("parseSelection(%q) = %v, want errBadSelection", bad, err)
		}
	}
}

func TestParseKinds(t *testing.T) {
	got, err := parseKinds("StringU16, I32,,Bool")
	if err != nil {
		t.Fatalf("parseKinds failed: %v", err)
	}
	want := []schema.FieldKind{schema.StringU16, schema.I32, schema.Boolean}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKinds = %v, want %v", got, want)
	}

	if kinds, err := parseKinds(""); err != nil || len(kinds) != 0 {
		t.Errorf("empty list: %v, %v", kinds, err)
	}
	if _, err := parseKinds("I32,Nope"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func unitsDef() schema.Definition {
	key := schema.NewField("key", schema.TypeOf(schema.StringU16))
	key.IsKey = true
	return schema.Definition{Version: 1, Fields: []schema.Field{
		key,
		schema.NewField("faction", schema.TypeOf(schema.StringU16)),
		schema.NewField("cost", schema.TypeOf(schema.I32)),
	}}
}

func TestParseFilterAndColumn(t *testing.T) {
	def := unitsDef()

	f, err := parseFilter(def, "faction=brt")
	if err != nil || f.Column != 1 || f.Pattern != "brt" {
		t.Errorf("parseFilter = %+v, %v", f, err)
	}
	f, err = parseFilter(def, "spear")
	if err != nil || f.Column != -1 || f.Pattern != "spear" {
		t.Errorf("bare parseFilter = %+v, %v", f, err)
	}
	if _, err := parseFilter(def, "missing=x"); err == nil {
		t.Error("expected error for unknown column")
	}

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", -1, false},
		{"cost", 2, false},
		{"1", 1, false},
		{"3", 0, true},
		{"price", 0, true},
	}
	for _, tt := range tests {
		got, err := columnIndex(def, tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("columnIndex(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"units", "db/units_tables/data__", true},
		{"db/units_tables/*", "DB/Units_Tables/data__", true},
		{"*.loc", "text/db/units.loc", true},
		{"data__", "db/units_tables/mod", false},
		{"db/*.loc", "text/db/units.loc", false},
	}
	for _, tt := range tests {
		if got := matchPath(tt.pattern, tt.path); got != tt.want {
			t.Errorf("matchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestTSVName(t *testing.T) {
	if got := tsvName("db/units_tables/data__"); got != "units_tables_data__.tsv" {
		t.Errorf("tsvName = %q", got)
	}
	if got := tsvName(`text\db\units.loc`); got != "loc_units.loc.tsv" {
		t.Errorf("tsvName = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	tb, err := table.New(unitsDef(), [][]schema.Value{
		{schema.StringValue(schema.StringU16, "spearmen"), schema.StringValue(schema.StringU16, "wh_main_emp"), schema.IntValue(schema.I32, 400)},
		{schema.StringValue(schema.StringU16, "knights"), schema.StringValue(schema.StringU16, "wh_main_brt"), schema.IntValue(schema.I32, 1200)},
	}, table.Config{Name: "units_tables"})
	if err != nil {
		t.Fatalf("table.New failed: %v", err)
	}

	refs := map[int]map[string]string{1: {"wh_main_emp": "Empire"}}
	out := renderTable(tb, refs, 0)
	for _, want := range []string{"key *", "faction", "spearmen", "wh_main_emp (Empire)", "wh_main_brt", "1200"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table lacks %q:\n%s", want, out)
		}
	}

	out = renderTable(tb, nil, 1)
	if strings.Contains(out, "knights") {
		t.Errorf("row limit not applied:\n%s", out)
	}
}

func TestCellText(t *testing.T) {
	seq := schema.Value{Kind: schema.SequenceU16, Int: 3}
	if got := cellText(seq, nil); got != "[3 entries]" {
		t.Errorf("sequence cell = %q", got)
	}
	v := schema.StringValue(schema.StringU16, "wh_main_emp")
	if got := cellText(v, map[string]string{"wh_main_emp": ""}); got != "wh_main_emp" {
		t.Errorf("empty lookup should show the value only, got %q", got)
	}
}

func TestRenderHexDump(t *testing.T) {
	d := decoder.HexDump{
		Lines: []decoder.HexLine{
			{Offset: 0, Hex: "01 02", ASCII: ".."},
			{Offset: 2, Hex: "41 42", ASCII: "AB"},
			{Offset: 4, Hex: "43", ASCII: "C"},
		},
		Header:  decoder.Span{Start: 0, End: 2},
		Decoded: decoder.Span{Start: 2, End: 3},
	}

	lines := strings.Split(strings.TrimSuffix(renderHexDump(d, 3, -1), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", lines)
	}
	for i, mark := range []string{"h", "d", " "} {
		if !strings.HasPrefix(lines[i], mark+" ") {
			t.Errorf("line %d = %q, want mark %q", i, lines[i], mark)
		}
	}

	lines = strings.Split(strings.TrimSuffix(renderHexDump(d, 4, 1), "\n"), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "00000004") {
		t.Errorf("window around the cursor = %q", lines)
	}
}
