package table

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/schema"
)

// Filter selects the visible rows. An empty pattern shows every row.
type Filter struct {
	// Column is the field index to match, or -1 for any column.
	Column        int
	Pattern       string
	CaseSensitive bool
	Regex         bool
}

// matcher tests cell values against a pattern. Boolean cells match when the
// pattern parses as a boolean of the same truth. Sequence cells never match.
type matcher struct {
	raw           string
	folded        string
	caseSensitive bool
	re            *regexp.Regexp
}

func newMatcher(pattern string, caseSensitive, regex bool) (*matcher, error) {
	m := &matcher{raw: pattern, folded: strings.ToLower(pattern), caseSensitive: caseSensitive}
	if regex {
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		m.re = re
	}
	return m, nil
}

func (m *matcher) match(v schema.Value) bool {
	switch {
	case v.Kind == schema.Boolean:
		b, err := schema.ParseBool(m.raw)
		return err == nil && b == v.Bool
	case v.Kind.IsSequence():
		return false
	case m.re != nil:
		return m.re.MatchString(v.String())
	case m.caseSensitive:
		return strings.Contains(v.String(), m.raw)
	default:
		return strings.Contains(strings.ToLower(v.String()), m.folded)
	}
}

// SetFilter replaces the active filter. An invalid regex leaves the old filter in place.
func (t *Table) SetFilter(f Filter) error {
	if f.Column >= t.Width() {
		return fmt.Errorf("%w: filter column %d", ErrOutOfRange, f.Column)
	}
	if f.Column < 0 {
		f.Column = -1
	}
	if _, err := newMatcher(f.Pattern, f.CaseSensitive, f.Regex); err != nil {
		return err
	}
	t.filter = f
	t.log.Debug("filter changed",
		zap.String("table", t.name),
		zap.Int("column", f.Column),
		zap.String("pattern", f.Pattern))
	t.refreshSearch()
	return nil
}

// ClearFilter makes every row visible again.
func (t *Table) ClearFilter() {
	t.filter = Filter{Column: -1}
	t.refreshSearch()
}

// CurrentFilter returns the active filter.
func (t *Table) CurrentFilter() Filter { return t.filter }

// Visible returns the model indices of the rows that pass the filter, in view order.
func (t *Table) Visible() []int {
	visible := make([]int, 0, len(t.rows))
	if t.filter.Pattern == "" {
		for r := range t.rows {
			visible = append(visible, r)
		}
		return visible
	}

	// SetFilter already validated the pattern.
	m, _ := newMatcher(t.filter.Pattern, t.filter.CaseSensitive, t.filter.Regex)
	for r, row := range t.rows {
		if t.filter.Column >= 0 {
			if m.match(row[t.filter.Column].Value) {
				visible = append(visible, r)
			}
			continue
		}
		for _, cell := range row {
			if m.match(cell.Value) {
				visible = append(visible, r)
				break
			}
		}
	}
	return visible
}

// ToModel maps a view row to its model row.
func (t *Table) ToModel(viewRow int) (int, bool) {
	visible := t.Visible()
	if viewRow < 0 || viewRow >= len(visible) {
		return 0, false
	}
	return visible[viewRow], true
}

// ToView maps a model row to its view row. It reports false for filtered-out rows.
func (t *Table) ToView(modelRow int) (int, bool) {
	return viewIndex(t.Visible(), modelRow)
}

func viewIndex(visible []int, modelRow int) (int, bool) {
	for v, r := range visible {
		if r == modelRow {
			return v, true
		}
		if r > modelRow {
			break
		}
	}
	return 0, false
}

// modelSelection maps view positions to model positions, dropping any that fall outside the view.
func (t *Table) modelSelection(sel []Pos) []Pos {
	visible := t.Visible()
	width := t.Width()
	out := make([]Pos, 0, len(sel))
	for _, p := range sel {
		if p.Row < 0 || p.Row >= len(visible) || p.Col < 0 || p.Col >= width {
			continue
		}
		out = append(out, Pos{Row: visible[p.Row], Col: p.Col})
	}
	return out
}

// SelectedRows returns the sorted model rows touched by a view selection.
func (t *Table) SelectedRows(sel []Pos) []int {
	var rows []int
	for _, p := range t.modelSelection(sel) {
		rows = append(rows, p.Row)
	}
	return dedup(rows)
}

// viewRows maps every model row to its view row, or -1 when it is filtered out.
func viewRows(visible []int, rows int) []int {
	viewOf := make([]int, rows)
	for r := range viewOf {
		viewOf[r] = -1
	}
	for v, r := range visible {
		viewOf[r] = v
	}
	return viewOf
}
