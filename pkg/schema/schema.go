package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Schema errors.
var (
	ErrUnknownFieldKind   = errors.New("unknown field kind")
	ErrUnknownFileKind    = errors.New("unknown file kind")
	ErrDefinitionNotFound = errors.New("definition not found")
	ErrInvalidValue       = errors.New("invalid value for field")
	ErrNotEditable        = errors.New("field is not editable as text")
)

// FormatVersion is written into saved schema files.
const FormatVersion = 1

// Definition is one version of a table layout.
type Definition struct {
	Version int32   `yaml:"version"`
	Fields  []Field `yaml:"fields"`
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	out := Definition{Version: d.Version}
	if d.Fields != nil {
		out.Fields = make([]Field, len(d.Fields))
		for i := range d.Fields {
			out.Fields[i] = d.Fields[i].Clone()
		}
	}
	return out
}

// FieldIndex returns the position of the named field, or -1.
func (d *Definition) FieldIndex(name string) int {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// KeyColumns returns the indexes of key fields.
func (d *Definition) KeyColumns() []int {
	var keys []int
	for i := range d.Fields {
		if d.Fields[i].IsKey {
			keys = append(keys, i)
		}
	}
	return keys
}

// VersionedFile groups the definitions of one table kind (and, for DB tables, one table name).
type VersionedFile struct {
	Kind        FileKind     `yaml:"kind"`
	Name        string       `yaml:"name,omitempty"`
	Definitions []Definition `yaml:"definitions"`
}

// Definition returns the definition for a version.
func (v *VersionedFile) Definition(version int32) (*Definition, bool) {
	for i := range v.Definitions {
		if v.Definitions[i].Version == version {
			return &v.Definitions[i], true
		}
	}
	return nil, false
}

// Schema holds every known table layout.
type Schema struct {
	FormatVersion int             `yaml:"format_version"`
	Files         []VersionedFile `yaml:"files"`
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{FormatVersion: FormatVersion}
}

// File returns the versioned file for (kind, name). Name is ignored for kinds other than DB.
func (s *Schema) File(kind FileKind, name string) (*VersionedFile, bool) {
	if kind != KindDB {
		name = ""
	}
	for i := range s.Files {
		if s.Files[i].Kind == kind && s.Files[i].Name == name {
			return &s.Files[i], true
		}
	}
	return nil, false
}

// Definition looks up a definition by (kind, name, version).
func (s *Schema) Definition(kind FileKind, name string, version int32) (*Definition, error) {
	file, ok := s.File(kind, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrDefinitionNotFound, kind, name)
	}
	def, ok := file.Definition(version)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q version %d", ErrDefinitionNotFound, kind, name, version)
	}
	return def, nil
}

// Versions lists decoded versions for (kind, name), newest first.
func (s *Schema) Versions(kind FileKind, name string) []int32 {
	file, ok := s.File(kind, name)
	if !ok {
		return nil
	}
	versions := make([]int32, 0, len(file.Definitions))
	for _, d := range file.Definitions {
		versions = append(versions, d.Version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	return versions
}

// Upsert stores def under (kind, name), replacing an existing definition with the same version.
func (s *Schema) Upsert(kind FileKind, name string, def Definition) {
	if kind != KindDB {
		name = ""
	}
	file, ok := s.File(kind, name)
	if !ok {
		s.Files = append(s.Files, VersionedFile{Kind: kind, Name: name})
		file = &s.Files[len(s.Files)-1]
	}
	if existing, ok := file.Definition(def.Version); ok {
		*existing = def.Clone()
		return
	}
	file.Definitions = append(file.Definitions, def.Clone())
}

// RemoveVersion deletes one definition. Removing the last version drops the versioned file.
func (s *Schema) RemoveVersion(kind FileKind, name string, version int32) error {
	file, ok := s.File(kind, name)
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrDefinitionNotFound, kind, name)
	}
	for i := range file.Definitions {
		if file.Definitions[i].Version != version {
			continue
		}
		file.Definitions = append(file.Definitions[:i], file.Definitions[i+1:]...)
		if len(file.Definitions) == 0 {
			s.removeFile(file)
		}
		return nil
	}
	return fmt.Errorf("%w: %s %q version %d", ErrDefinitionNotFound, kind, name, version)
}

func (s *Schema) removeFile(file *VersionedFile) {
	for i := range s.Files {
		if &s.Files[i] == file {
			s.Files = append(s.Files[:i], s.Files[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := &Schema{FormatVersion: s.FormatVersion}
	for _, f := range s.Files {
		vf := VersionedFile{Kind: f.Kind, Name: f.Name}
		for _, d := range f.Definitions {
			vf.Definitions = append(vf.Definitions, d.Clone())
		}
		out.Files = append(out.Files, vf)
	}
	return out
}

// Load reads a schema from a YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", path, err)
	}
	return s, nil
}

// Save writes the schema to a YAML file, creating parent directories.
func (s *Schema) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	s.FormatVersion = FormatVersion
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
