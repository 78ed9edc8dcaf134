package table

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/schema"
)

// Search errors.
var (
	ErrReplaceInvalidData = errors.New("replacement is not valid for the column")
	ErrNoCurrentMatch     = errors.New("no current match")
)

// Query is a search over the table.
type Query struct {
	Pattern string
	// Column is the field index to search, or -1 for every column.
	Column        int
	CaseSensitive bool
	Regex         bool
	Replacement   string
}

// Match is one matching cell. View is only meaningful when InFilter is set;
// matches hidden by the filter count toward the total but cannot be navigated to.
type Match struct {
	Pos      Pos
	View     Pos
	InFilter bool
}

// SearchStatus is what a search bar shows.
type SearchStatus struct {
	Label string
	// Current is the index of the current match among the filtered matches, or -1.
	Current  int
	InFilter int
	Total    int

	PrevEnabled    bool
	NextEnabled    bool
	ReplaceEnabled bool
}

type searchState struct {
	query   Query
	matcher *matcher
	matches []Match
	// filtered indexes matches that are visible through the filter.
	filtered []int
	current  int
}

// Find runs a new search and moves to its first visible match.
func (t *Table) Find(q Query) (SearchStatus, error) {
	if q.Column >= t.Width() {
		return SearchStatus{}, fmt.Errorf("%w: search column %d", ErrOutOfRange, q.Column)
	}
	if q.Column < 0 {
		q.Column = -1
	}
	m, err := newMatcher(q.Pattern, q.CaseSensitive, q.Regex)
	if err != nil {
		return SearchStatus{}, err
	}
	t.search = searchState{query: q, matcher: m}
	t.collectMatches()
	t.search.current = 0
	t.log.Debug("search",
		zap.String("table", t.name),
		zap.String("pattern", q.Pattern),
		zap.Int("matches", len(t.search.matches)))
	return t.SearchStatus(), nil
}

// SetReplacement changes the replacement text of the active search.
func (t *Table) SetReplacement(text string) { t.search.query.Replacement = text }

// UpdateSearch recomputes the matches after the data or the filter changed. The
// current position is kept when it is still in range.
func (t *Table) UpdateSearch() SearchStatus {
	t.refreshSearch()
	return t.SearchStatus()
}

func (t *Table) refreshSearch() {
	if t.search.matcher == nil {
		return
	}
	t.collectMatches()
	if t.search.current >= len(t.search.filtered) {
		t.search.current = 0
	}
}

// collectMatches walks the table column by column, rows ascending within each column.
func (t *Table) collectMatches() {
	s := &t.search
	s.matches = s.matches[:0]
	s.filtered = s.filtered[:0]
	if s.query.Pattern == "" {
		return
	}

	viewOf := viewRows(t.Visible(), len(t.rows))
	for col := 0; col < t.Width(); col++ {
		if s.query.Column >= 0 && col != s.query.Column {
			continue
		}
		if t.kind(col).IsSequence() {
			continue
		}
		for row := range t.rows {
			if !s.matcher.match(t.rows[row][col].Value) {
				continue
			}
			m := Match{Pos: Pos{Row: row, Col: col}}
			if v := viewOf[row]; v >= 0 {
				m.View = Pos{Row: v, Col: col}
				m.InFilter = true
				s.filtered = append(s.filtered, len(s.matches))
			}
			s.matches = append(s.matches, m)
		}
	}
}

// Matches returns every match of the active search, including filtered-out ones.
func (t *Table) Matches() []Match {
	return append([]Match(nil), t.search.matches...)
}

// CurrentMatch returns the match the search is positioned on.
func (t *Table) CurrentMatch() (Match, bool) {
	s := &t.search
	if s.current < 0 || s.current >= len(s.filtered) {
		return Match{}, false
	}
	return s.matches[s.filtered[s.current]], true
}

// NextMatch moves to the next visible match, stopping at the last one.
func (t *Table) NextMatch() SearchStatus {
	if t.search.current < len(t.search.filtered)-1 {
		t.search.current++
	}
	return t.SearchStatus()
}

// PrevMatch moves to the previous visible match, stopping at the first one.
func (t *Table) PrevMatch() SearchStatus {
	if t.search.current > 0 {
		t.search.current--
	}
	return t.SearchStatus()
}

// SearchStatus reports the label and button states for the active search.
func (t *Table) SearchStatus() SearchStatus {
	s := &t.search
	st := SearchStatus{Current: -1, Total: len(s.matches), InFilter: len(s.filtered)}

	switch {
	case s.query.Pattern == "":
		return st
	case st.Total == 0:
		st.Label = "No matches found."
	case st.InFilter == 0:
		st.Label = fmt.Sprintf("0 in current filter (%d in total)", st.Total)
	default:
		st.Current = s.current
		st.Label = fmt.Sprintf("%d of %d in current filter (%d in total)", s.current+1, st.InFilter, st.Total)
		st.PrevEnabled = s.current > 0
		st.NextEnabled = s.current < st.InFilter-1
		st.ReplaceEnabled = true
	}
	return st
}

// replacement computes the new text for one matched cell.
func (t *Table) replacement(v schema.Value) string {
	q := t.search.query
	if v.Kind == schema.Boolean {
		return q.Replacement
	}
	text := v.String()
	switch {
	case q.Regex:
		return t.search.matcher.re.ReplaceAllString(text, q.Replacement)
	case q.CaseSensitive:
		return strings.ReplaceAll(text, q.Pattern, q.Replacement)
	default:
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(q.Pattern))
		return re.ReplaceAllLiteralString(text, q.Replacement)
	}
}

// replaceValue computes and validates the replacement for one cell. It reports
// false when the replacement leaves the cell's text as it is.
func (t *Table) replaceValue(p Pos) (schema.Value, bool, error) {
	kind := t.kind(p.Col)
	current := t.rows[p.Row][p.Col].Value
	text := t.replacement(current)
	if text == current.String() {
		return current, false, nil
	}
	v, err := schema.ParseValue(kind, text)
	if err != nil {
		return schema.Value{}, false, fmt.Errorf("%w: %q into %s column at (%d, %d)", ErrReplaceInvalidData, text, kind, p.Row, p.Col)
	}
	return v, !v.Equal(current), nil
}

// ReplaceCurrent replaces the pattern in the current match. Nothing changes if
// the result does not fit the column.
func (t *Table) ReplaceCurrent() error {
	q := t.search.query
	if q.Pattern == "" || q.Pattern == q.Replacement {
		return nil
	}
	m, ok := t.CurrentMatch()
	if !ok {
		return ErrNoCurrentMatch
	}
	v, changed, err := t.replaceValue(m.Pos)
	if err != nil {
		return err
	}
	if changed && t.write(m.Pos, v) {
		t.refreshSearch()
	}
	return nil
}

// ReplaceAll replaces the pattern in every visible match as one undo entry.
// Every replacement is validated before any is applied. It returns the number
// of cells changed.
func (t *Table) ReplaceAll() (int, error) {
	q := t.search.query
	if q.Pattern == "" || q.Pattern == q.Replacement {
		return 0, nil
	}

	type change struct {
		pos   Pos
		value schema.Value
	}
	var changes []change
	for _, idx := range t.search.filtered {
		p := t.search.matches[idx].Pos
		v, changed, err := t.replaceValue(p)
		if err != nil {
			return 0, err
		}
		if !changed {
			continue
		}
		changes = append(changes, change{pos: p, value: v})
	}

	n := 0
	for _, c := range changes {
		if t.write(c.pos, c.value) {
			n++
		}
	}
	t.coalesce(n)
	if n > 0 {
		t.log.Debug("replace all", zap.String("table", t.name), zap.Int("cells", n))
		t.refreshSearch()
	}
	return n, nil
}
