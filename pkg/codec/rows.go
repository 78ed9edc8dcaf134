package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/packedit/pkg/schema"
)

// DecodeRows decodes count consecutive entries laid out by fields, starting at offset.
// Sequence cells keep their raw bytes in Value.Blob so they can be re-encoded untouched.
//
// Every primitive occupies at least one byte, so entries without fields or a count
// larger than the bytes left after offset are rejected before anything is decoded.
func DecodeRows(data []byte, offset int, fields []schema.Field, count int) ([][]schema.Value, int, error) {
	if count < 0 || (count > 0 && (len(fields) == 0 || count > len(data)-offset)) {
		return nil, offset, fmt.Errorf("%w: %d entries with %d bytes left at offset %d",
			ErrInvalidLength, count, len(data)-offset, offset)
	}
	capacity := count
	if capacity > len(data) {
		capacity = len(data)
	}
	rows := make([][]schema.Value, 0, capacity)

	for i := 0; i < count; i++ {
		row, next, err := decodeRow(data, offset, fields)
		if err != nil {
			return nil, offset, fmt.Errorf("entry %d: %w", i, err)
		}
		rows = append(rows, row)
		offset = next
	}
	return rows, offset, nil
}

func decodeRow(data []byte, offset int, fields []schema.Field) ([]schema.Value, int, error) {
	row := make([]schema.Value, len(fields))
	for i := range fields {
		f := &fields[i]
		start := offset
		v, next, err := Decode(data, offset, f.Type)
		if err != nil {
			return nil, offset, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.Type.IsSequence() {
			if len(f.Type.Fields) == 0 && v.Int > 0 {
				return nil, offset, fmt.Errorf("field %q: %w", f.Name, &DecodeError{Kind: f.Type.Kind, Offset: start,
					Err: fmt.Errorf("%w: %d entries without nested fields", ErrInvalidLength, v.Int)})
			}
			_, end, err := DecodeRows(data, next, f.Type.Fields, int(v.Int))
			if err != nil {
				return nil, offset, fmt.Errorf("field %q: %w", f.Name, err)
			}
			v.Blob = append([]byte(nil), data[start:end]...)
			next = end
		}
		row[i] = v
		offset = next
	}
	return row, offset, nil
}

// EncodeRows appends every row, encoded field by field, to buf.
func EncodeRows(buf []byte, fields []schema.Field, rows [][]schema.Value) ([]byte, error) {
	for r, row := range rows {
		if len(row) != len(fields) {
			return buf, fmt.Errorf("entry %d: %d values for %d fields", r, len(row), len(fields))
		}
		for i := range fields {
			var err error
			buf, err = Encode(buf, fields[i].Type, row[i])
			if err != nil {
				return buf, fmt.Errorf("entry %d field %q: %w", r, fields[i].Name, err)
			}
		}
	}
	return buf, nil
}

// DecodeSequence expands a sequence cell's blob into rows of its nested fields.
func DecodeSequence(t schema.FieldType, blob []byte) ([][]schema.Value, error) {
	if !t.IsSequence() {
		return nil, fmt.Errorf("%w: %s is not a sequence", ErrUnexpectedType, t.Kind)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	count, next, err := Decode(blob, 0, t)
	if err != nil {
		return nil, err
	}
	rows, end, err := DecodeRows(blob, next, t.Fields, int(count.Int))
	if err != nil {
		return nil, err
	}
	if end != len(blob) {
		return nil, fmt.Errorf("%w: %d trailing bytes in sequence", ErrInvalidLength, len(blob)-end)
	}
	return rows, nil
}

// EncodeSequence packs rows of nested fields into a sequence value.
func EncodeSequence(t schema.FieldType, rows [][]schema.Value) (schema.Value, error) {
	var buf []byte
	switch t.Kind {
	case schema.SequenceU16:
		if len(rows) > math.MaxUint16 {
			return schema.Value{}, fmt.Errorf("%w: %d entries", ErrInvalidLength, len(rows))
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(rows)))
	case schema.SequenceU32:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(rows)))
	default:
		return schema.Value{}, fmt.Errorf("%w: %s is not a sequence", ErrUnexpectedType, t.Kind)
	}

	buf, err := EncodeRows(buf, t.Fields, rows)
	if err != nil {
		return schema.Value{}, err
	}
	return schema.Value{Kind: t.Kind, Int: int64(len(rows)), Blob: buf}, nil
}
