// Package app holds the application context shared by the packedit tools: the
// configuration, the active schema and the reference data loaded from dependency
// PackFiles. Decoder sessions and tables are built through it so they receive the
// schema and logger explicitly.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/internal/config"
	"github.com/Faultbox/packedit/pkg/decoder"
	"github.com/Faultbox/packedit/pkg/formats"
	"github.com/Faultbox/packedit/pkg/packfile"
	"github.com/Faultbox/packedit/pkg/schema"
	"github.com/Faultbox/packedit/pkg/table"
)

// Context is the application context. The schema and dependency data are read
// and written from several goroutines; each access takes the lock for its own
// duration only.
type Context struct {
	Config *config.Config
	Log    *zap.Logger

	mu         sync.RWMutex
	schema     *schema.Schema
	schemaPath string
	deps       map[string]*formats.Table
	depDefs    map[string]schema.Definition
}

// New builds a context and loads the schema named by cfg. A missing schema file
// starts an empty schema; a malformed one is an error.
func New(cfg *config.Config, log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Context{
		Config:     cfg,
		Log:        log,
		schemaPath: cfg.SchemaPath(),
		deps:       make(map[string]*formats.Table),
		depDefs:    make(map[string]schema.Definition),
	}

	s, err := schema.Load(c.schemaPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("schema not found, starting empty", zap.String("path", c.schemaPath))
		s = schema.New()
	case err != nil:
		return nil, err
	default:
		log.Info("schema loaded", zap.String("path", c.schemaPath), zap.Int("files", len(s.Files)))
	}
	c.schema = s
	return c, nil
}

// Schema returns a copy of the active schema.
func (c *Context) Schema() *schema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema.Clone()
}

// UpdateSchema runs fn with the active schema under the write lock.
func (c *Context) UpdateSchema(fn func(*schema.Schema)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.schema)
}

// SaveSchema writes the active schema to its file.
func (c *Context) SaveSchema() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.schema.Save(c.schemaPath); err != nil {
		return fmt.Errorf("saving schema: %w", err)
	}
	c.Log.Info("schema saved", zap.String("path", c.schemaPath))
	return nil
}

// Definition looks up the definition for a table file.
func (c *Context) Definition(kind schema.FileKind, name string, version int32) (schema.Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, err := c.schema.Definition(kind, name, version)
	if err != nil {
		return schema.Definition{}, err
	}
	return def.Clone(), nil
}

// NewDecoderSession opens a decoder session over a packed file. The session gets
// its own copy of the schema; SaveSession merges its definition back.
func (c *Context) NewDecoderSession(packedPath string, data []byte) (*decoder.Session, error) {
	kind, name := formats.KindFromPath(packedPath)
	if kind == schema.KindUnknown {
		return nil, fmt.Errorf("%w: %s", formats.ErrUnsupportedKind, packedPath)
	}
	return decoder.NewSession(data, kind, name, decoder.Config{
		Schema:          c.Schema(),
		Logger:          c.Log.Named("decoder"),
		HexBytesPerLine: c.Config.Decoder.HexBytesPerLine,
	})
}

// SaveSession stores the session's definition in the active schema.
func (c *Context) SaveSession(s *decoder.Session) {
	c.UpdateSchema(s.SaveTo)
}

// OpenTable decodes a packed table file into an editable table. The returned
// header is needed to encode the table again.
func (c *Context) OpenTable(packedPath string, data []byte) (*table.Table, formats.Header, error) {
	kind, name := formats.KindFromPath(packedPath)
	h, err := formats.ReadHeader(kind, data)
	if err != nil {
		return nil, formats.Header{}, fmt.Errorf("%s: %w", packedPath, err)
	}
	def, err := c.Definition(kind, name, h.Version)
	if err != nil {
		return nil, formats.Header{}, fmt.Errorf("%s: %w", packedPath, err)
	}
	decoded, err := formats.DecodeTable(kind, &def, data)
	if err != nil {
		return nil, formats.Header{}, fmt.Errorf("%s: %w", packedPath, err)
	}

	tableName := name
	if tableName == "" {
		tableName = kind.String()
	}
	tb, err := table.New(def, decoded.Rows, table.Config{Name: tableName, Logger: c.Log.Named("table")})
	if err != nil {
		return nil, formats.Header{}, err
	}
	return tb, decoded.Header, nil
}

// EncodeTable encodes a table back into packed file bytes.
func (c *Context) EncodeTable(h formats.Header, tb *table.Table) ([]byte, error) {
	def := tb.Definition()
	return formats.EncodeTable(&formats.Table{Header: h, Rows: tb.Values()}, &def)
}

// LoadDependencies decodes every DB table of the given archives that the schema
// knows, and keeps them as reference data. Tables the schema cannot decode are
// skipped. It returns the number of tables loaded.
func (c *Context) LoadDependencies(archives ...*packfile.Archive) int {
	loaded := 0
	for _, a := range archives {
		for _, p := range a.List() {
			kind, name := formats.KindFromPath(p)
			if kind != schema.KindDB {
				continue
			}
			data, err := a.Read(p)
			if err != nil {
				c.Log.Warn("dependency unreadable", zap.String("path", p), zap.Error(err))
				continue
			}
			h, err := formats.ReadHeader(kind, data)
			if err != nil {
				continue
			}
			def, err := c.Definition(kind, name, h.Version)
			if err != nil {
				continue
			}
			t, err := formats.DecodeTable(kind, &def, data)
			if err != nil {
				c.Log.Debug("dependency undecodable", zap.String("path", p), zap.Error(err))
				continue
			}
			t.Name = name
			c.addDependency(p, t, def)
			loaded++
		}
	}
	c.Log.Info("dependencies loaded", zap.Int("tables", loaded))
	return loaded
}

// addDependency appends the rows of a table file to the reference data of its table.
// A DB table may be split across several files.
func (c *Context) addDependency(packedPath string, t *formats.Table, def schema.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(t.Name)
	if prev, ok := c.deps[key]; ok && prev.Header.Version == t.Header.Version {
		prev.Rows = append(prev.Rows, t.Rows...)
		return
	}
	c.deps[key] = t
	c.depDefs[key] = def
	c.Log.Debug("dependency added", zap.String("table", t.Name), zap.String("file", path.Base(packedPath)))
}

// ReferenceData returns, for every column of def with a reference, the values of
// the referenced column mapped to their lookup text. Columns whose referenced
// table is not loaded are absent.
func (c *Context) ReferenceData(def schema.Definition) map[int]map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[int]map[string]string)
	for col, f := range def.Fields {
		if f.Reference == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(f.Reference.Table, "_tables") + "_tables")
		t, ok := c.deps[key]
		if !ok {
			continue
		}
		refDef := c.depDefs[key]
		refCol := refDef.FieldIndex(f.Reference.Column)
		if refCol < 0 {
			continue
		}
		var lookups []int
		for _, name := range f.Lookup {
			if i := refDef.FieldIndex(name); i >= 0 {
				lookups = append(lookups, i)
			}
		}

		data := make(map[string]string, len(t.Rows))
		for _, row := range t.Rows {
			parts := make([]string, 0, len(lookups))
			for _, i := range lookups {
				parts = append(parts, row[i].String())
			}
			data[row[refCol].String()] = strings.Join(parts, " ")
		}
		out[col] = data
	}
	return out
}
