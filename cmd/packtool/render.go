package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/Faultbox/packedit/pkg/decoder"
	"github.com/Faultbox/packedit/pkg/schema"
	"github.com/Faultbox/packedit/pkg/table"
)

var (
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	modifiedStyle = cellStyle.Foreground(lipgloss.Color("214"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// renderTable draws up to limit visible rows of tb. Referencing columns show the
// lookup text of the referenced row next to the value. The first column is the
// view row index.
func renderTable(tb *table.Table, refs map[int]map[string]string, limit int) string {
	def := tb.Definition()
	headers := make([]string, 0, len(def.Fields)+1)
	headers = append(headers, "#")
	for _, f := range def.Fields {
		name := f.Name
		if f.IsKey {
			name += " *"
		}
		headers = append(headers, name)
	}

	visible := tb.Visible()
	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}

	rows := make([][]string, 0, len(visible))
	modified := make(map[table.Pos]bool)
	for view, model := range visible {
		cells := make([]string, 0, len(def.Fields)+1)
		cells = append(cells, strconv.Itoa(view))
		for col := range def.Fields {
			cell, err := tb.Cell(model, col)
			if err != nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, cellText(cell.Value, refs[col]))
			if cell.Modified {
				modified[table.Pos{Row: view, Col: col + 1}] = true
			}
		}
		rows = append(rows, cells)
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle.Inherit(dimStyle)
			case modified[table.Pos{Row: row, Col: col}]:
				return modifiedStyle
			}
			return cellStyle
		})
	return t.String()
}

func cellText(v schema.Value, lookup map[string]string) string {
	text := v.String()
	if v.Kind.IsSequence() {
		return fmt.Sprintf("[%s entries]", text)
	}
	if desc, ok := lookup[text]; ok && desc != "" {
		return text + " (" + desc + ")"
	}
	return text
}

// renderFields draws the decoder's field tree, one line per field.
func renderFields(previews []decoder.FieldPreview) string {
	var sb strings.Builder
	for _, p := range previews {
		offset := "   -    "
		if p.Offset >= 0 {
			offset = fmt.Sprintf("%08X", p.Offset)
		}
		name := p.Name
		if p.IsKey {
			name += " *"
		}
		fmt.Fprintf(&sb, "%s  %s%-24s %-12s %s\n",
			offset, strings.Repeat("  ", p.Depth), name, p.Kind, p.Preview)
	}
	return sb.String()
}

// renderPreviews draws what the bytes at the cursor decode to as each kind.
func renderPreviews(previews []decoder.KindPreview) string {
	var sb strings.Builder
	for _, p := range previews {
		fmt.Fprintf(&sb, "  %-12s %s\n", p.Kind, p.Preview)
	}
	return sb.String()
}

var errBadSelection = errors.New("invalid selection")

// parseSelection parses "row:col" or "row:col-row:col" into the cells of the
// rectangle, row by row.
func parseSelection(s string) ([]table.Pos, error) {
	from, to, isRange := strings.Cut(s, "-")
	start, err := parsePos(from)
	if err != nil {
		return nil, err
	}
	end := start
	if isRange {
		if end, err = parsePos(to); err != nil {
			return nil, err
		}
	}
	if end.Row < start.Row {
		start.Row, end.Row = end.Row, start.Row
	}
	if end.Col < start.Col {
		start.Col, end.Col = end.Col, start.Col
	}

	sel := make([]table.Pos, 0, (end.Row-start.Row+1)*(end.Col-start.Col+1))
	for r := start.Row; r <= end.Row; r++ {
		for c := start.Col; c <= end.Col; c++ {
			sel = append(sel, table.Pos{Row: r, Col: c})
		}
	}
	return sel, nil
}

func parsePos(s string) (table.Pos, error) {
	rs, cs, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return table.Pos{}, fmt.Errorf("%w: %q", errBadSelection, s)
	}
	r, err := strconv.Atoi(rs)
	if err != nil || r < 0 {
		return table.Pos{}, fmt.Errorf("%w: row %q", errBadSelection, rs)
	}
	c, err := strconv.Atoi(cs)
	if err != nil || c < 0 {
		return table.Pos{}, fmt.Errorf("%w: column %q", errBadSelection, cs)
	}
	return table.Pos{Row: r, Col: c}, nil
}

// parseKinds parses a comma-separated list of field kind names.
func parseKinds(s string) ([]schema.FieldKind, error) {
	var kinds []schema.FieldKind
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		k, err := schema.ParseFieldKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// parseFilter parses "column=pattern" against def. A bare pattern matches any column.
func parseFilter(def schema.Definition, s string) (table.Filter, error) {
	f := table.Filter{Column: -1, Pattern: s}
	if name, pattern, ok := strings.Cut(s, "="); ok {
		col := def.FieldIndex(name)
		if col < 0 {
			return table.Filter{}, fmt.Errorf("unknown column %q", name)
		}
		f.Column, f.Pattern = col, pattern
	}
	return f, nil
}

// columnIndex resolves a column given by name or index; "" means every column.
func columnIndex(def schema.Definition, s string) (int, error) {
	if s == "" {
		return -1, nil
	}
	if i := def.FieldIndex(s); i >= 0 {
		return i, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i >= len(def.Fields) {
		return 0, fmt.Errorf("unknown column %q", s)
	}
	return i, nil
}
