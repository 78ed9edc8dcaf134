// Package schema describes how the bytes of a binary table map to typed columns.
package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldKind is the primitive type of a field.
type FieldKind uint8

// Field kinds, in the order the decoder offers them.
const (
	Boolean FieldKind = iota
	F32
	I16
	I32
	I64
	StringU8
	StringU16
	OptionalStringU8
	OptionalStringU16
	SequenceU16
	SequenceU32
)

var fieldKindNames = [...]string{
	Boolean:           "Bool",
	F32:               "F32",
	I16:               "I16",
	I32:               "I32",
	I64:               "I64",
	StringU8:          "StringU8",
	StringU16:         "StringU16",
	OptionalStringU8:  "OptionalStringU8",
	OptionalStringU16: "OptionalStringU16",
	SequenceU16:       "SequenceU16",
	SequenceU32:       "SequenceU32",
}

// AllKinds lists every field kind in decoder order.
var AllKinds = []FieldKind{
	Boolean, F32, I16, I32, I64,
	StringU8, StringU16, OptionalStringU8, OptionalStringU16,
	SequenceU16, SequenceU32,
}

// String returns the kind name used in schemas and TSV headers.
func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", uint8(k))
}

// ParseFieldKind converts a kind name back to a FieldKind. Matching is case-insensitive
// and accepts "Boolean" as an alias of "Bool".
func ParseFieldKind(s string) (FieldKind, error) {
	if strings.EqualFold(s, "boolean") {
		return Boolean, nil
	}
	for i, name := range fieldKindNames {
		if strings.EqualFold(s, name) {
			return FieldKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFieldKind, s)
}

// IsSequence reports whether the kind carries a nested schema.
func (k FieldKind) IsSequence() bool {
	return k == SequenceU16 || k == SequenceU32
}

// IsNumeric reports whether the kind is a float or integer.
func (k FieldKind) IsNumeric() bool {
	return k == F32 || k == I16 || k == I32 || k == I64
}

// IsString reports whether the kind is one of the four string encodings.
func (k FieldKind) IsString() bool {
	return k >= StringU8 && k <= OptionalStringU16
}

// MarshalYAML stores the kind by name.
func (k FieldKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML reads a kind by name.
func (k *FieldKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFieldKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// FieldType is the tagged union of primitive types. Sequence kinds carry the
// ordered nested fields decoded once per entry.
type FieldType struct {
	Kind   FieldKind `yaml:"type"`
	Fields []Field   `yaml:"fields,omitempty"`
}

// TypeOf returns a non-sequence FieldType.
func TypeOf(kind FieldKind) FieldType {
	return FieldType{Kind: kind}
}

// SequenceOf returns a sequence FieldType with the given nested fields.
func SequenceOf(kind FieldKind, fields ...Field) FieldType {
	return FieldType{Kind: kind, Fields: fields}
}

// IsSequence reports whether the type carries a nested schema.
func (t FieldType) IsSequence() bool {
	return t.Kind.IsSequence()
}

// String returns the kind name.
func (t FieldType) String() string {
	return t.Kind.String()
}

// Clone returns a deep copy, including nested fields.
func (t FieldType) Clone() FieldType {
	out := FieldType{Kind: t.Kind}
	if len(t.Fields) > 0 {
		out.Fields = make([]Field, len(t.Fields))
		for i := range t.Fields {
			out.Fields[i] = t.Fields[i].Clone()
		}
	}
	return out
}

// FileKind identifies the binary table format of a packed file.
type FileKind uint8

// Supported table formats.
const (
	KindUnknown FileKind = iota
	KindDB
	KindLoc
	KindAnimTable
	KindMatchedCombat
)

var fileKindNames = [...]string{
	KindUnknown:       "unknown",
	KindDB:            "db",
	KindLoc:           "loc",
	KindAnimTable:     "anim_table",
	KindMatchedCombat: "matched_combat",
}

// String returns the lowercase kind name.
func (k FileKind) String() string {
	if int(k) < len(fileKindNames) {
		return fileKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// ParseFileKind converts a kind name to a FileKind.
func ParseFileKind(s string) (FileKind, error) {
	for i, name := range fileKindNames {
		if strings.EqualFold(s, name) && FileKind(i) != KindUnknown {
			return FileKind(i), nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownFileKind, s)
}

// MarshalYAML stores the kind by name.
func (k FileKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML reads a kind by name.
func (k *FileKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseFileKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
