// Package decoder builds table definitions by interpreting raw table bytes field by field.
//
// A Session walks a table file left to right. Every confirmed field appends a
// descriptor to the field tree, and every change to the tree replays the whole
// tree from the end of the header so the cursor and the first-entry previews
// always agree with the field list.
package decoder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/pkg/codec"
	"github.com/Faultbox/packedit/pkg/formats"
	"github.com/Faultbox/packedit/pkg/schema"
)

// Session errors.
var (
	ErrInvalidPath = errors.New("invalid field path")
	ErrCannotMove  = errors.New("field cannot be moved in that direction")
	ErrNoSchema    = errors.New("session has no schema")
)

// Config holds the collaborators a session needs.
type Config struct {
	// Schema is used to load stored definitions. May be nil.
	Schema *schema.Schema
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// HexBytesPerLine defaults to 16.
	HexBytesPerLine int
}

// FieldPreview is the replay result for one field of the tree.
type FieldPreview struct {
	Path  []int
	Depth int
	Name  string
	Kind  schema.FieldKind
	IsKey bool
	// Offset is where the field was decoded in the first entry, or -1 if
	// the replay never reached it (for example an empty sequence).
	Offset  int
	Preview string
}

// KindPreview is one entry of the "what could the next bytes be" list.
type KindPreview struct {
	Kind    schema.FieldKind
	Preview string
}

// Session is the state of one decoding run over a single table file.
type Session struct {
	data   []byte
	kind   schema.FileKind
	name   string
	header *formats.Header

	fields   []schema.Field
	cursor   int
	previews []FieldPreview

	schema       *schema.Schema
	log          *zap.Logger
	bytesPerLine int
}

// NewSession opens a decoding session over data. If cfg.Schema already holds a
// definition for the header's version, its fields are loaded and replayed.
func NewSession(data []byte, kind schema.FileKind, name string, cfg Config) (*Session, error) {
	h, err := formats.ReadHeader(kind, data)
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", kind, err)
	}

	s := &Session{
		data:         data,
		kind:         kind,
		name:         name,
		header:       h,
		cursor:       h.Size,
		schema:       cfg.Schema,
		log:          cfg.Logger,
		bytesPerLine: cfg.HexBytesPerLine,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.bytesPerLine <= 0 {
		s.bytesPerLine = 16
	}

	if s.schema != nil {
		if def, err := s.schema.Definition(kind, name, h.Version); err == nil {
			s.fields = def.Clone().Fields
			s.log.Debug("loaded stored definition",
				zap.String("kind", kind.String()),
				zap.String("table", name),
				zap.Int32("version", h.Version))
		}
	}
	s.Replay()
	return s, nil
}

// Header returns the parsed file header.
func (s *Session) Header() formats.Header { return *s.header }

// Cursor returns the offset the next field would be decoded at.
func (s *Session) Cursor() int { return s.cursor }

// Data returns the raw bytes under decode.
func (s *Session) Data() []byte { return s.data }

// Fields returns a copy of the field tree.
func (s *Session) Fields() []schema.Field {
	return s.Definition().Fields
}

// FieldPreviews returns the previews computed by the last replay.
func (s *Session) FieldPreviews() []FieldPreview { return s.previews }

// Replay decodes the whole field tree from the end of the header and moves the
// cursor to where the fold ends. Sequences are walked entry-count times; only the
// first entry contributes previews. A field that fails to decode previews as
// "Error" and leaves the cursor where it was for the next field.
func (s *Session) Replay() []FieldPreview {
	s.previews = nil
	s.cursor, _ = s.replay(s.fields, nil, s.header.Size, true)
	return s.previews
}

func (s *Session) replay(fields []schema.Field, parent []int, cursor int, record bool) (int, bool) {
	ok := true
	for i := range fields {
		f := &fields[i]
		path := appendPath(parent, i)

		v, next, err := codec.Decode(s.data, cursor, f.Type)
		if record {
			p := FieldPreview{
				Path:    path,
				Depth:   len(parent),
				Name:    f.Name,
				Kind:    f.Kind(),
				IsKey:   f.IsKey,
				Offset:  cursor,
				Preview: codec.ErrorPreview,
			}
			if err == nil {
				p.Preview = v.String()
			}
			s.previews = append(s.previews, p)
		}
		if err != nil {
			s.log.Debug("field failed to decode", zap.String("field", f.Name), zap.Error(err))
			ok = false
			if record && f.Type.IsSequence() {
				s.recordUnvisited(f.Type.Fields, path)
			}
			continue
		}
		cursor = next

		if !f.Type.IsSequence() {
			continue
		}
		entries := int(v.Int)
		if entries == 0 || len(f.Type.Fields) == 0 {
			if record {
				s.recordUnvisited(f.Type.Fields, path)
			}
			continue
		}
		for e := 0; e < entries; e++ {
			var entryOK bool
			cursor, entryOK = s.replay(f.Type.Fields, path, cursor, record && e == 0)
			if !entryOK {
				// Garbage counts would otherwise loop over the same failing bytes.
				ok = false
				break
			}
		}
	}
	return cursor, ok
}

func (s *Session) recordUnvisited(fields []schema.Field, parent []int) {
	for i := range fields {
		f := &fields[i]
		path := appendPath(parent, i)
		s.previews = append(s.previews, FieldPreview{
			Path:   path,
			Depth:  len(parent),
			Name:   f.Name,
			Kind:   f.Kind(),
			IsKey:  f.IsKey,
			Offset: -1,
		})
		if f.Type.IsSequence() {
			s.recordUnvisited(f.Type.Fields, path)
		}
	}
}

func appendPath(parent []int, i int) []int {
	path := make([]int, len(parent)+1)
	copy(path, parent)
	path[len(parent)] = i
	return path
}

// Previews decodes every field kind at the cursor.
func (s *Session) Previews() []KindPreview {
	out := make([]KindPreview, 0, len(schema.AllKinds))
	for _, k := range schema.AllKinds {
		out = append(out, KindPreview{Kind: k, Preview: codec.Preview(s.data, s.cursor, k)})
	}
	return out
}

// AppendPoint returns the path of the list the next UseAs appends to: the
// top-level list, or the innermost trailing sequence.
func (s *Session) AppendPoint() []int {
	var path []int
	list := s.fields
	for len(list) > 0 && list[len(list)-1].Type.IsSequence() {
		last := len(list) - 1
		path = append(path, last)
		list = list[last].Type.Fields
	}
	return path
}

// UseAs appends a default-named field of the given kind at the append point and replays.
func (s *Session) UseAs(kind schema.FieldKind) []FieldPreview {
	list := &s.fields
	for len(*list) > 0 && (*list)[len(*list)-1].Type.IsSequence() {
		list = &(*list)[len(*list)-1].Type.Fields
	}
	*list = append(*list, schema.NewField("", schema.TypeOf(kind)))

	s.log.Debug("field confirmed", zap.String("kind", kind.String()), zap.Int("offset", s.cursor))
	return s.Replay()
}

// LoadFields replaces the field tree and replays.
func (s *Session) LoadFields(fields []schema.Field) []FieldPreview {
	s.fields = schema.Definition{Fields: fields}.Clone().Fields
	return s.Replay()
}

// LoadVersion replaces the field tree with a stored definition and replays.
func (s *Session) LoadVersion(version int32) ([]FieldPreview, error) {
	if s.schema == nil {
		return nil, ErrNoSchema
	}
	def, err := s.schema.Definition(s.kind, s.name, version)
	if err != nil {
		return nil, err
	}
	return s.LoadFields(def.Fields), nil
}

// Reset clears the field tree. The cursor returns to the end of the header.
func (s *Session) Reset() {
	s.fields = nil
	s.Replay()
}

// Definition exports the field tree under the header's version.
func (s *Session) Definition() schema.Definition {
	return schema.Definition{Version: s.header.Version, Fields: s.fields}.Clone()
}

// SaveTo upserts the session's definition into sch, keyed by (kind, table name, version).
func (s *Session) SaveTo(sch *schema.Schema) {
	sch.Upsert(s.kind, s.name, s.Definition())
	s.log.Info("definition saved",
		zap.String("kind", s.kind.String()),
		zap.String("table", s.name),
		zap.Int32("version", s.header.Version),
		zap.Int("fields", len(s.fields)))
}

// Test decodes every entry of the file with the current definition.
func (s *Session) Test() (*formats.Table, error) {
	def := s.Definition()
	return formats.DecodeTable(s.kind, &def, s.data)
}
