package schema

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a decoded cell. Kind selects which of the payload fields is meaningful:
// Bool for Boolean, F32 for F32, Int for the integer kinds, Str for strings.
// Sequences keep their entry count in Int and their encoded bytes (count prefix
// included) in Blob.
type Value struct {
	Kind FieldKind
	Bool bool
	F32  float32
	Int  int64
	Str  string
	Blob []byte
}

// Zero returns the empty value of a kind.
func Zero(kind FieldKind) Value {
	v := Value{Kind: kind}
	switch kind {
	case SequenceU16:
		v.Blob = []byte{0, 0}
	case SequenceU32:
		v.Blob = []byte{0, 0, 0, 0}
	}
	return v
}

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: Boolean, Bool: b} }

// F32Value wraps a float32.
func F32Value(f float32) Value { return Value{Kind: F32, F32: f} }

// IntValue wraps an integer of the given kind.
func IntValue(kind FieldKind, i int64) Value { return Value{Kind: kind, Int: i} }

// StringValue wraps a string of the given kind.
func StringValue(kind FieldKind, s string) Value { return Value{Kind: kind, Str: s} }

// String renders the value the way tables display and export it.
func (v Value) String() string {
	switch v.Kind {
	case Boolean:
		return strconv.FormatBool(v.Bool)
	case F32:
		return strconv.FormatFloat(float64(v.F32), 'f', -1, 32)
	case I16, I32, I64, SequenceU16, SequenceU32:
		return strconv.FormatInt(v.Int, 10)
	default:
		return v.Str
	}
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Boolean:
		return v.Bool == o.Bool
	case F32:
		// Compared bitwise: NaN equals itself.
		return math.Float32bits(v.F32) == math.Float32bits(o.F32)
	case I16, I32, I64:
		return v.Int == o.Int
	case SequenceU16, SequenceU32:
		return v.Int == o.Int && bytes.Equal(v.Blob, o.Blob)
	default:
		return v.Str == o.Str
	}
}

// IsZero reports whether the value equals the zero value of its kind.
func (v Value) IsZero() bool {
	return v.Equal(Zero(v.Kind))
}

// Clone copies the blob so the result shares no memory with v.
func (v Value) Clone() Value {
	if v.Blob != nil {
		v.Blob = append([]byte(nil), v.Blob...)
	}
	return v
}

// ParseBool accepts "true"/"false"/"1"/"0", case-insensitive.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
}

// ParseValue coerces text into a value of the given kind. Numbers must fit the
// kind's width. Sequences are never parseable from text.
func ParseValue(kind FieldKind, s string) (Value, error) {
	switch kind {
	case Boolean:
		b, err := ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case F32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an F32", ErrInvalidValue, s)
		}
		return F32Value(float32(f)), nil
	case I16, I32, I64:
		bits := map[FieldKind]int{I16: 16, I32: 32, I64: 64}[kind]
		i, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an %s", ErrInvalidValue, s, kind)
		}
		return IntValue(kind, i), nil
	case StringU8, StringU16, OptionalStringU8, OptionalStringU16:
		return StringValue(kind, s), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrNotEditable, kind)
	}
}
