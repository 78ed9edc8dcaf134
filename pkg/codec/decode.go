// Package codec reads and writes the primitive field types of PackFile tables.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/packedit/pkg/encoding"
	"github.com/Faultbox/packedit/pkg/schema"
)

// Decode errors.
var (
	ErrOutOfBounds    = errors.New("read past end of data")
	ErrInvalidLength  = errors.New("invalid string or sequence length")
	ErrInvalidFlag    = errors.New("invalid optional string flag")
	ErrInvalidText    = errors.New("invalid string data")
	ErrUnexpectedType = errors.New("value kind does not match field")
)

// ErrorPreview is shown in place of a value that could not be decoded.
const ErrorPreview = "Error"

// DecodeError describes a failed decode at a given offset.
type DecodeError struct {
	Kind   schema.FieldKind
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s at offset %d: %v", e.Kind, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads one value of type t at offset and returns it with the offset just past it.
// On failure the original offset is returned together with a *DecodeError.
//
// Sequence types only read their entry count; the caller loops over the nested fields.
func Decode(data []byte, offset int, t schema.FieldType) (schema.Value, int, error) {
	v, next, err := decode(data, offset, t.Kind)
	if err != nil {
		return schema.Value{}, offset, &DecodeError{Kind: t.Kind, Offset: offset, Err: err}
	}
	return v, next, nil
}

// Preview decodes one value and renders it, or ErrorPreview on failure.
func Preview(data []byte, offset int, kind schema.FieldKind) string {
	v, _, err := decode(data, offset, kind)
	if err != nil {
		return ErrorPreview
	}
	return v.String()
}

func decode(data []byte, offset int, kind schema.FieldKind) (schema.Value, int, error) {
	if offset < 0 || offset > len(data) {
		return schema.Value{}, offset, ErrOutOfBounds
	}

	switch kind {
	case schema.Boolean:
		b, err := need(data, offset, 1)
		if err != nil {
			return schema.Value{}, offset, err
		}
		return schema.BoolValue(b[0] != 0), offset + 1, nil

	case schema.F32:
		b, err := need(data, offset, 4)
		if err != nil {
			return schema.Value{}, offset, err
		}
		f := math.Float32frombits(binary.LittleEndian.Uint32(b))
		return schema.F32Value(f), offset + 4, nil

	case schema.I16:
		b, err := need(data, offset, 2)
		if err != nil {
			return schema.Value{}, offset, err
		}
		return schema.IntValue(kind, int64(int16(binary.LittleEndian.Uint16(b)))), offset + 2, nil

	case schema.I32:
		b, err := need(data, offset, 4)
		if err != nil {
			return schema.Value{}, offset, err
		}
		return schema.IntValue(kind, int64(int32(binary.LittleEndian.Uint32(b)))), offset + 4, nil

	case schema.I64:
		b, err := need(data, offset, 8)
		if err != nil {
			return schema.Value{}, offset, err
		}
		return schema.IntValue(kind, int64(binary.LittleEndian.Uint64(b))), offset + 8, nil

	case schema.StringU8, schema.StringU16:
		s, next, err := decodeString(data, offset, kind == schema.StringU16)
		if err != nil {
			return schema.Value{}, offset, err
		}
		return schema.StringValue(kind, s), next, nil

	case schema.OptionalStringU8, schema.OptionalStringU16:
		b, err := need(data, offset, 1)
		if err != nil {
			return schema.Value{}, offset, err
		}
		switch b[0] {
		case 0:
			return schema.StringValue(kind, ""), offset + 1, nil
		case 1:
			s, next, err := decodeString(data, offset+1, kind == schema.OptionalStringU16)
			if err != nil {
				return schema.Value{}, offset, err
			}
			return schema.StringValue(kind, s), next, nil
		default:
			return schema.Value{}, offset, ErrInvalidFlag
		}

	case schema.SequenceU16:
		b, err := need(data, offset, 2)
		if err != nil {
			return schema.Value{}, offset, err
		}
		return schema.IntValue(kind, int64(binary.LittleEndian.Uint16(b))), offset + 2, nil

	case schema.SequenceU32:
		b, err := need(data, offset, 4)
		if err != nil {
			return schema.Value{}, offset, err
		}
		count := int32(binary.LittleEndian.Uint32(b))
		if count < 0 {
			return schema.Value{}, offset, ErrInvalidLength
		}
		return schema.IntValue(kind, int64(count)), offset + 4, nil
	}

	return schema.Value{}, offset, fmt.Errorf("%w: %s", schema.ErrUnknownFieldKind, kind)
}

// decodeString reads a u16 character count followed by the characters.
func decodeString(data []byte, offset int, wide bool) (string, int, error) {
	b, err := need(data, offset, 2)
	if err != nil {
		return "", offset, err
	}
	chars := int(binary.LittleEndian.Uint16(b))
	size := chars
	if wide {
		size *= 2
	}

	start := offset + 2
	if start+size > len(data) {
		return "", offset, ErrInvalidLength
	}
	raw := data[start : start+size]

	var s string
	if wide {
		s, err = encoding.UTF16LEToUTF8(raw)
	} else {
		s, err = encoding.UTF8Bytes(raw)
	}
	if err != nil {
		return "", offset, ErrInvalidText
	}
	return s, start + size, nil
}

func need(data []byte, offset, n int) ([]byte, error) {
	if offset+n > len(data) {
		return nil, ErrOutOfBounds
	}
	return data[offset : offset+n], nil
}
