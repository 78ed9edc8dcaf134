package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/packedit/pkg/encoding"
	"github.com/Faultbox/packedit/pkg/schema"
)

// Encode appends the binary form of v, which must be of type t, to buf.
// Sequence values are written from their Blob, which already holds the count prefix.
func Encode(buf []byte, t schema.FieldType, v schema.Value) ([]byte, error) {
	if v.Kind != t.Kind {
		return buf, fmt.Errorf("%w: have %s, want %s", ErrUnexpectedType, v.Kind, t.Kind)
	}

	switch t.Kind {
	case schema.Boolean:
		if v.Bool {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case schema.F32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.F32)), nil
	case schema.I16:
		return binary.LittleEndian.AppendUint16(buf, uint16(int16(v.Int))), nil
	case schema.I32:
		return binary.LittleEndian.AppendUint32(buf, uint32(int32(v.Int))), nil
	case schema.I64:
		return binary.LittleEndian.AppendUint64(buf, uint64(v.Int)), nil
	case schema.StringU8, schema.StringU16:
		return encodeString(buf, v.Str, t.Kind == schema.StringU16)
	case schema.OptionalStringU8, schema.OptionalStringU16:
		if v.Str == "" {
			return append(buf, 0), nil
		}
		return encodeString(append(buf, 1), v.Str, t.Kind == schema.OptionalStringU16)
	case schema.SequenceU16, schema.SequenceU32:
		if len(v.Blob) == 0 {
			return append(buf, schema.Zero(t.Kind).Blob...), nil
		}
		return append(buf, v.Blob...), nil
	}
	return buf, fmt.Errorf("%w: %s", schema.ErrUnknownFieldKind, t.Kind)
}

func encodeString(buf []byte, s string, wide bool) ([]byte, error) {
	raw := []byte(s)
	chars := len(raw)
	if wide {
		var err error
		raw, err = encoding.UTF8ToUTF16LE(s)
		if err != nil {
			return buf, err
		}
		chars = len(raw) / 2
	}
	if chars > math.MaxUint16 {
		return buf, fmt.Errorf("%w: %d characters", ErrInvalidLength, chars)
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(chars))
	return append(buf, raw...), nil
}
