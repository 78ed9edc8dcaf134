package table

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/codec"
	"github.com/Faultbox/packedit/pkg/schema"
)

// ErrTSVMismatch is returned when a TSV file was exported from another table or version.
var ErrTSVMismatch = errors.New("tsv does not match table")

var (
	tsvEscaper   = strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n")
	tsvUnescaper = strings.NewReplacer("\\\\", "\\", "\\t", "\t", "\\n", "\n")
)

// WriteTSV writes the table as TSV. The first line is "#name;version", the
// second holds the field names, then one line per row. Sequence cells are
// written as the hex of their encoded bytes.
func (t *Table) WriteTSV(w io.Writer) error {
	def := t.Definition()
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "#%s;%d\n", t.name, def.Version)
	for i := range def.Fields {
		if i > 0 {
			bw.WriteByte('\t')
		}
		bw.WriteString(tsvEscaper.Replace(def.Fields[i].Name))
	}
	bw.WriteByte('\n')

	for _, row := range t.rows {
		for c, cell := range row {
			if c > 0 {
				bw.WriteByte('\t')
			}
			if cell.Value.Kind.IsSequence() {
				bw.WriteString(hex.EncodeToString(cell.Value.Blob))
				continue
			}
			bw.WriteString(tsvEscaper.Replace(cell.Value.String()))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadTSV parses TSV written by WriteTSV against the table's definition.
func (t *Table) ReadTSV(r io.Reader) ([][]schema.Value, error) {
	def := t.Definition()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return strings.TrimSuffix(sc.Text(), "\r"), true
	}

	meta, ok := next()
	if !ok {
		return nil, fmt.Errorf("%w: missing metadata line", ErrTSVMismatch)
	}
	name, version, err := parseTSVMeta(meta)
	if err != nil {
		return nil, err
	}
	if name != t.name || version != def.Version {
		return nil, fmt.Errorf("%w: file is %s;%d, table is %s;%d", ErrTSVMismatch, name, version, t.name, def.Version)
	}

	header, ok := next()
	if !ok {
		return nil, fmt.Errorf("%w: missing field names", ErrTSVMismatch)
	}
	names := strings.Split(header, "\t")
	if len(names) != len(def.Fields) {
		return nil, fmt.Errorf("%w: %d columns, want %d", ErrTSVMismatch, len(names), len(def.Fields))
	}
	for i, n := range names {
		if tsvUnescaper.Replace(n) != def.Fields[i].Name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrTSVMismatch, i, n, def.Fields[i].Name)
		}
	}

	var rows [][]schema.Value
	for {
		text, ok := next()
		if !ok {
			break
		}
		cells := strings.Split(text, "\t")
		if len(cells) != len(def.Fields) {
			return nil, fmt.Errorf("line %d: %w: %d cells, want %d", line, ErrRowWidth, len(cells), len(def.Fields))
		}
		row := make([]schema.Value, len(cells))
		for c, cell := range cells {
			v, err := parseTSVCell(def.Fields[c].Type, cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, def.Fields[c].Name, err)
			}
			row[c] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseTSVMeta(line string) (string, int32, error) {
	if !strings.HasPrefix(line, "#") {
		return "", 0, fmt.Errorf("%w: bad metadata line %q", ErrTSVMismatch, line)
	}
	sep := strings.LastIndexByte(line, ';')
	if sep < 0 {
		return "", 0, fmt.Errorf("%w: bad metadata line %q", ErrTSVMismatch, line)
	}
	version, err := strconv.ParseInt(line[sep+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad version in %q", ErrTSVMismatch, line)
	}
	return line[1:sep], int32(version), nil
}

func parseTSVCell(t schema.FieldType, text string) (schema.Value, error) {
	if !t.IsSequence() {
		return schema.ParseValue(t.Kind, tsvUnescaper.Replace(text))
	}
	blob, err := hex.DecodeString(text)
	if err != nil {
		return schema.Value{}, fmt.Errorf("%w: %v", schema.ErrInvalidValue, err)
	}
	rows, err := codec.DecodeSequence(t, blob)
	if err != nil {
		return schema.Value{}, err
	}
	return schema.Value{Kind: t.Kind, Int: int64(len(rows)), Blob: blob}, nil
}

// ExportTSV writes the table to a TSV file.
func (t *Table) ExportTSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := t.WriteTSV(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	t.log.Info("table exported", zap.String("table", t.name), zap.String("path", path), zap.Int("rows", len(t.rows)))
	return nil
}

// ImportTSV replaces the table contents with a TSV file as one undoable action.
// Nothing changes if any line fails to parse.
func (t *Table) ImportTSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	values, err := t.ReadTSV(f)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := t.Import(values); err != nil {
		return 0, err
	}
	t.log.Info("table imported", zap.String("table", t.name), zap.String("path", path), zap.Int("rows", len(values)))
	return len(values), nil
}

// Import replaces every row at once. The previous contents are kept in the undo log.
func (t *Table) Import(values [][]schema.Value) error {
	rows, err := t.loadRows(values)
	if err != nil {
		return err
	}
	t.record(Operation{Kind: OpImport, Snapshot: t.rows})
	t.rows = rows
	t.refreshSearch()
	return nil
}
