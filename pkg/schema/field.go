package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultFieldName is the name given to fields created from the decoder.
const DefaultFieldName = "new_field"

// Reference points a column at a column of another table.
type Reference struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// Field describes one column of a binary table.
type Field struct {
	Name                 string           `yaml:"name"`
	Type                 FieldType        `yaml:",inline"`
	IsKey                bool             `yaml:"is_key,omitempty"`
	Reference            *Reference       `yaml:"reference,omitempty"`
	Lookup               []string         `yaml:"lookup,omitempty"`
	DefaultValue         *string          `yaml:"default_value,omitempty"`
	MaxLength            int32            `yaml:"max_length,omitempty"`
	IsFilename           bool             `yaml:"is_filename,omitempty"`
	FilenameRelativePath *string          `yaml:"filename_relative_path,omitempty"`
	CAOrder              int16            `yaml:"ca_order"`
	Description          string           `yaml:"description,omitempty"`
	IsBitwise            int32            `yaml:"is_bitwise,omitempty"`
	EnumValues           map[int32]string `yaml:"enum_values,omitempty"`
}

// NewField returns a field with the decoder defaults.
func NewField(name string, t FieldType) Field {
	if name == "" {
		name = DefaultFieldName
	}
	return Field{
		Name:    name,
		Type:    t,
		CAOrder: -1,
	}
}

// Kind is shorthand for f.Type.Kind.
func (f *Field) Kind() FieldKind {
	return f.Type.Kind
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	out.Type = f.Type.Clone()
	if f.Reference != nil {
		ref := *f.Reference
		out.Reference = &ref
	}
	if f.Lookup != nil {
		out.Lookup = append([]string(nil), f.Lookup...)
	}
	if f.DefaultValue != nil {
		v := *f.DefaultValue
		out.DefaultValue = &v
	}
	if f.FilenameRelativePath != nil {
		v := *f.FilenameRelativePath
		out.FilenameRelativePath = &v
	}
	if f.EnumValues != nil {
		out.EnumValues = make(map[int32]string, len(f.EnumValues))
		for k, v := range f.EnumValues {
			out.EnumValues[k] = v
		}
	}
	return out
}

// Default returns the value new rows get in this column.
// An unparseable default falls back to the zero value.
func (f *Field) Default() Value {
	if f.DefaultValue != nil && !f.Type.IsSequence() {
		if v, err := ParseValue(f.Type.Kind, *f.DefaultValue); err == nil {
			return v
		}
	}
	return Zero(f.Type.Kind)
}

// EnumValuesString renders the enum map as "index,label;index,label", sorted by index.
func (f *Field) EnumValuesString() string {
	if len(f.EnumValues) == 0 {
		return ""
	}
	keys := make([]int, 0, len(f.EnumValues))
	for k := range f.EnumValues {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d,%s", k, f.EnumValues[int32(k)]))
	}
	return strings.Join(parts, ";")
}

// ParseEnumValues parses the "index,label;index,label" form. Malformed pairs are skipped.
func ParseEnumValues(s string) map[int32]string {
	out := make(map[int32]string)
	for _, pair := range strings.Split(s, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			continue
		}
		idx, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
		if err != nil {
			continue
		}
		out[int32(idx)] = parts[1]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
