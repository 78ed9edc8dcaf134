package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Faultbox/packedit/pkg/schema"
)

// CopySelection renders a view selection as TSV: cells of a row joined by tabs,
// rows joined by newlines.
func (t *Table) CopySelection(sel []Pos) string {
	var sb strings.Builder
	groupRows(t.modelSelection(sortVisually(sel)), func(first bool, cells []Pos) {
		if !first {
			sb.WriteByte('\n')
		}
		for i, p := range cells {
			if i > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(t.rows[p.Row][p.Col].Value.String())
		}
	})
	return sb.String()
}

// CopySelectionLua renders a view selection as Lua tables. Rows with a selected
// key column go into a TABLE keyed by that column; the rest follow as bare tables.
func (t *Table) CopySelectionLua(sel []Pos) string {
	var keyed, plain [][]Pos
	groupRows(t.modelSelection(sortVisually(sel)), func(_ bool, cells []Pos) {
		for _, p := range cells {
			if f := t.field(p.Col); f.IsKey {
				keyed = append(keyed, cells)
				return
			}
		}
		plain = append(plain, cells)
	})
	return t.luaTable(keyed, true) + "\n" + t.luaTable(plain, false)
}

func (t *Table) luaTable(rows [][]Pos, hasKeys bool) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	if hasKeys {
		sb.WriteString("TABLE = {\n")
	}
	for i, cells := range rows {
		key := ""
		parts := make([]string, 0, len(cells))
		for _, p := range cells {
			f := t.field(p.Col)
			value := luaValue(t.rows[p.Row][p.Col].Value)
			if key == "" && f.IsKey {
				key = value
			}
			parts = append(parts, fmt.Sprintf(" [%q] = %s", f.Name, value))
		}

		if key != "" {
			fmt.Fprintf(&sb, "\t[%s] = {", key)
		} else {
			sb.WriteByte('{')
		}
		sb.WriteString(strings.Join(parts, ","))
		if i == len(rows)-1 {
			sb.WriteString(" }\n")
		} else {
			sb.WriteString(" },\n")
		}
	}
	if hasKeys {
		sb.WriteString("}")
	}
	return sb.String()
}

// luaValue renders a value as a Lua literal. Floats are trimmed to three decimals.
func luaValue(v schema.Value) string {
	switch v.Kind {
	case schema.F32:
		s := strconv.FormatFloat(float64(v.F32), 'f', -1, 32)
		if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot > 4 {
			rounded := math.Round(float64(v.F32)*1000) / 1000
			s = strconv.FormatFloat(rounded, 'f', -1, 64)
		}
		return s
	case schema.SequenceU16, schema.SequenceU32:
		return strconv.Quote(v.Kind.String())
	case schema.StringU8, schema.StringU16, schema.OptionalStringU8, schema.OptionalStringU16:
		return strconv.Quote(v.Str)
	default:
		return v.String()
	}
}

// groupRows calls fn once per run of consecutive positions on the same row.
func groupRows(sel []Pos, fn func(first bool, cells []Pos)) {
	start := 0
	for i := 1; i <= len(sel); i++ {
		if i == len(sel) || sel[i].Row != sel[start].Row {
			fn(start == 0, sel[start:i])
			start = i
		}
	}
}
