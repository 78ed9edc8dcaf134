package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/packedit/pkg/codec"
	"github.com/Faultbox/packedit/pkg/schema"
)

// Table errors.
var (
	ErrVersionMismatch = errors.New("definition version does not match header")
	ErrTrailingData    = errors.New("unexpected data after last entry")
)

// Table is a decoded table file.
type Table struct {
	Header Header
	Name   string
	Rows   [][]schema.Value
}

// DecodeTable decodes a whole table file with the given definition.
// The definition's version must match the header's.
func DecodeTable(kind schema.FileKind, def *schema.Definition, data []byte) (*Table, error) {
	h, err := ReadHeader(kind, data)
	if err != nil {
		return nil, err
	}
	if def.Version != h.Version {
		return nil, fmt.Errorf("%w: definition %d, header %d", ErrVersionMismatch, def.Version, h.Version)
	}

	rows, end, err := codec.DecodeRows(data, h.Size, def.Fields, int(h.EntryCount))
	if err != nil {
		return nil, fmt.Errorf("decoding %s table: %w", kind, err)
	}
	if end != len(data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(data)-end)
	}

	return &Table{Header: *h, Rows: rows}, nil
}

// DecodeTableFile decodes a table file from disk, finding the definition in s.
func DecodeTableFile(path string, kind schema.FileKind, name string, s *schema.Schema) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading table file: %w", err)
	}
	h, err := ReadHeader(kind, data)
	if err != nil {
		return nil, err
	}
	def, err := s.Definition(kind, name, h.Version)
	if err != nil {
		return nil, err
	}
	t, err := DecodeTable(kind, def, data)
	if err != nil {
		return nil, err
	}
	t.Name = name
	return t, nil
}

// EncodeTable writes the header (with the entry count taken from Rows) and every entry.
func EncodeTable(t *Table, def *schema.Definition) ([]byte, error) {
	h := t.Header
	h.Version = def.Version
	h.EntryCount = uint32(len(t.Rows))
	if h.Kind == schema.KindDB && def.Version > 0 {
		h.HasVersion = true
	}

	buf, err := AppendHeader(nil, &h)
	if err != nil {
		return nil, err
	}
	return codec.EncodeRows(buf, def.Fields, t.Rows)
}
