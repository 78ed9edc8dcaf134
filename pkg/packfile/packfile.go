// Package packfile provides reading and writing of PFH4 PackFile archives.
package packfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/packedit/pkg/encoding"
)

const (
	preamble   = "PFH4"
	headerSize = 28
)

// PackFile errors.
var (
	ErrInvalidPreamble = errors.New("invalid PackFile preamble: expected 'PFH4'")
	ErrTruncatedIndex  = errors.New("truncated PackFile index")
	ErrNotFound        = errors.New("packed file not found")
)

// Archive represents an opened PackFile.
type Archive struct {
	file   io.ReaderAt
	closer io.Closer
	header Header

	dependencies []string
	entries      []*Entry
	byPath       map[string]*Entry
}

// Header contains the PackFile header fields that follow the preamble.
type Header struct {
	Type               uint32
	DependencyCount    uint32
	DependencyIndexLen uint32
	FileCount          uint32
	FileIndexLen       uint32
	Timestamp          uint32
}

// Entry is one packed file.
type Entry struct {
	// Path is the path as stored, with '/' separators.
	Path   string
	Size   uint32
	Offset int64

	// data replaces the on-disk contents once the entry was edited or added.
	data []byte
}

// Open opens a PackFile for reading. Contents are read lazily.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	a, err := newArchive(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	a.closer = file
	return a, nil
}

// OpenBytes reads a PackFile held in memory.
func OpenBytes(data []byte) (*Archive, error) {
	return newArchive(bytes.NewReader(data))
}

// New returns an empty archive of the given pack type.
func New(packType uint32) *Archive {
	return &Archive{
		header: Header{Type: packType},
		byPath: make(map[string]*Entry),
	}
}

func newArchive(r io.ReaderAt) (*Archive, error) {
	a := &Archive{file: r, byPath: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readIndex(); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return a, nil
}

// Close closes the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header { return a.header }

// Dependencies returns the names of the PackFiles this one depends on.
func (a *Archive) Dependencies() []string { return a.dependencies }

func (a *Archive) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := a.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrTruncatedIndex, err)
	}
	if string(buf[:4]) != preamble {
		return ErrInvalidPreamble
	}
	return binary.Read(bytes.NewReader(buf[4:]), binary.LittleEndian, &a.header)
}

func (a *Archive) readIndex() error {
	depLen := int(a.header.DependencyIndexLen)
	fileLen := int(a.header.FileIndexLen)

	index := make([]byte, depLen+fileLen)
	if len(index) > 0 {
		if _, err := a.file.ReadAt(index, headerSize); err != nil {
			return fmt.Errorf("%w: %v", ErrTruncatedIndex, err)
		}
	}

	deps := index[:depLen]
	for i := uint32(0); i < a.header.DependencyCount; i++ {
		name, next := encoding.NullTerminated(deps)
		if next < 0 {
			return fmt.Errorf("%w: dependency %d", ErrTruncatedIndex, i)
		}
		a.dependencies = append(a.dependencies, string(name))
		deps = deps[next:]
	}

	files := index[depLen:]
	offset := int64(headerSize + depLen + fileLen)
	for i := uint32(0); i < a.header.FileCount; i++ {
		if len(files) < 4 {
			return fmt.Errorf("%w: entry %d size", ErrTruncatedIndex, i)
		}
		size := binary.LittleEndian.Uint32(files)
		name, next := encoding.NullTerminated(files[4:])
		if next < 0 {
			return fmt.Errorf("%w: entry %d path", ErrTruncatedIndex, i)
		}
		files = files[4+next:]

		entry := &Entry{
			Path:   strings.ReplaceAll(string(name), "\\", "/"),
			Size:   size,
			Offset: offset,
		}
		offset += int64(size)

		a.entries = append(a.entries, entry)
		a.byPath[encoding.NormalizePackedFilePath(entry.Path)] = entry
	}

	return nil
}

// List returns all packed file paths, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		result = append(result, e.Path)
	}
	sort.Strings(result)
	return result
}

// Stat returns the index entry of a packed file.
func (a *Archive) Stat(path string) (Entry, bool) {
	entry, ok := a.byPath[encoding.NormalizePackedFilePath(path)]
	if !ok {
		return Entry{}, false
	}
	return Entry{Path: entry.Path, Size: entry.Size, Offset: entry.Offset}, true
}

// Contains checks if a packed file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.byPath[encoding.NormalizePackedFilePath(path)]
	return ok
}

// Read returns the contents of a packed file.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.byPath[encoding.NormalizePackedFilePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if entry.data != nil {
		return append([]byte(nil), entry.data...), nil
	}

	data := make([]byte, entry.Size)
	if len(data) == 0 {
		return data, nil
	}
	if _, err := a.file.ReadAt(data, entry.Offset); err != nil {
		return nil, fmt.Errorf("reading %s: %w", entry.Path, err)
	}
	return data, nil
}

// Replace swaps the contents of an existing packed file.
func (a *Archive) Replace(path string, data []byte) error {
	entry, ok := a.byPath[encoding.NormalizePackedFilePath(path)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	entry.data = append([]byte{}, data...)
	entry.Size = uint32(len(data))
	return nil
}

// Add inserts a packed file, replacing it if the path already exists.
func (a *Archive) Add(path string, data []byte) {
	if a.Contains(path) {
		a.Replace(path, data)
		return
	}
	entry := &Entry{
		Path: strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "/"),
		Size: uint32(len(data)),
		data: append([]byte{}, data...),
	}
	a.entries = append(a.entries, entry)
	a.byPath[encoding.NormalizePackedFilePath(path)] = entry
}

// WriteTo writes the whole archive to w.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	var deps bytes.Buffer
	for _, d := range a.dependencies {
		deps.WriteString(d)
		deps.WriteByte(0)
	}

	blobs := make([][]byte, len(a.entries))
	var files bytes.Buffer
	for i, e := range a.entries {
		data, err := a.Read(e.Path)
		if err != nil {
			return 0, err
		}
		blobs[i] = data
		binary.Write(&files, binary.LittleEndian, uint32(len(data)))
		files.WriteString(e.Path)
		files.WriteByte(0)
	}

	h := a.header
	h.DependencyCount = uint32(len(a.dependencies))
	h.DependencyIndexLen = uint32(deps.Len())
	h.FileCount = uint32(len(a.entries))
	h.FileIndexLen = uint32(files.Len())

	var out bytes.Buffer
	out.WriteString(preamble)
	binary.Write(&out, binary.LittleEndian, h)
	out.Write(deps.Bytes())
	out.Write(files.Bytes())
	for _, b := range blobs {
		out.Write(b)
	}
	return out.WriteTo(w)
}

// Save writes the archive to path, creating parent directories.
func (a *Archive) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// AddDependency appends a PackFile name to the dependency list.
func (a *Archive) AddDependency(name string) {
	a.dependencies = append(a.dependencies, name)
}
