package packfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
)

// createTestPack builds a PFH4 archive by hand.
func createTestPack(deps []string, files map[string][]byte, order []string) []byte {
	var depIndex, fileIndex, blobs bytes.Buffer
	for _, d := range deps {
		depIndex.WriteString(d)
		depIndex.WriteByte(0)
	}
	for _, name := range order {
		binary.Write(&fileIndex, binary.LittleEndian, uint32(len(files[name])))
		fileIndex.WriteString(name)
		fileIndex.WriteByte(0)
		blobs.Write(files[name])
	}

	buf := new(bytes.Buffer)
	buf.WriteString("PFH4")
	binary.Write(buf, binary.LittleEndian, uint32(3)) // mod pack
	binary.Write(buf, binary.LittleEndian, uint32(len(deps)))
	binary.Write(buf, binary.LittleEndian, uint32(depIndex.Len()))
	binary.Write(buf, binary.LittleEndian, uint32(len(order)))
	binary.Write(buf, binary.LittleEndian, uint32(fileIndex.Len()))
	binary.Write(buf, binary.LittleEndian, uint32(1600000000))
	buf.Write(depIndex.Bytes())
	buf.Write(fileIndex.Bytes())
	buf.Write(blobs.Bytes())
	return buf.Bytes()
}

func TestOpenBytes(t *testing.T) {
	files := map[string][]byte{
		"db/units_tables/data": {1, 2, 3},
		"text/names.loc":       []byte("hello"),
		"empty.bin":            {},
	}
	data := createTestPack([]string{"data.pack"}, files, []string{"text/names.loc", "db/units_tables/data", "empty.bin"})

	a, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	defer a.Close()

	if a.Header().Type != 3 || a.Header().FileCount != 3 {
		t.Errorf("unexpected header %+v", a.Header())
	}
	if deps := a.Dependencies(); len(deps) != 1 || deps[0] != "data.pack" {
		t.Errorf("unexpected dependencies %v", deps)
	}

	list := a.List()
	if len(list) != 3 || list[0] != "db/units_tables/data" {
		t.Errorf("unexpected list %v", list)
	}

	if !a.Contains("DB\\Units_Tables\\data") {
		t.Error("lookup should ignore case and separators")
	}

	for name, want := range files {
		got, err := a.Read(name)
		if err != nil {
			t.Fatalf("Read(%s) failed: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Read(%s) = %v, want %v", name, got, want)
		}
	}

	if _, err := a.Read("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenBytes_Errors(t *testing.T) {
	if _, err := OpenBytes([]byte("PFH3" + string(make([]byte, 24)))); !errors.Is(err, ErrInvalidPreamble) {
		t.Errorf("expected ErrInvalidPreamble, got %v", err)
	}
	if _, err := OpenBytes([]byte("PFH4")); !errors.Is(err, ErrTruncatedIndex) {
		t.Errorf("expected ErrTruncatedIndex, got %v", err)
	}

	data := createTestPack(nil, map[string][]byte{"a": {1}}, []string{"a"})
	if _, err := OpenBytes(data[:30]); !errors.Is(err, ErrTruncatedIndex) {
		t.Errorf("expected ErrTruncatedIndex for cut index, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	data := createTestPack([]string{"base.pack"}, map[string][]byte{
		"db/a/one": {1, 1},
		"db/b/two": {2, 2, 2},
	}, []string{"db/a/one", "db/b/two"})

	a, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}

	if err := a.Replace("db/a/one", []byte{9}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := a.Replace("db/c/none", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	a.Add("db/c/three", []byte{3, 3, 3, 3})

	path := filepath.Join(t.TempDir(), "out", "mod.pack")
	if err := a.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	want := map[string][]byte{
		"db/a/one":   {9},
		"db/b/two":   {2, 2, 2},
		"db/c/three": {3, 3, 3, 3},
	}
	for name, w := range want {
		got, err := b.Read(name)
		if err != nil {
			t.Fatalf("Read(%s) failed: %v", name, err)
		}
		if !bytes.Equal(got, w) {
			t.Errorf("Read(%s) = %v, want %v", name, got, w)
		}
	}
	if e, ok := b.Stat("DB/B/TWO"); !ok || e.Size != 3 || e.Path != "db/b/two" {
		t.Errorf("Stat = %+v, %v", e, ok)
	}
	if _, ok := b.Stat("db/none"); ok {
		t.Error("Stat found a missing file")
	}
	if b.Header().Timestamp != 1600000000 || len(b.Dependencies()) != 1 {
		t.Errorf("header or dependencies not preserved: %+v %v", b.Header(), b.Dependencies())
	}
}

func TestNewArchive(t *testing.T) {
	a := New(3)
	a.AddDependency("data.pack")
	a.Add("\\db\\x\\y", []byte("z"))

	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	b, err := OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	if list := b.List(); len(list) != 1 || list[0] != "db/x/y" {
		t.Errorf("unexpected list %v", list)
	}

	buf.Reset()
	New(0).WriteTo(&buf)
	empty, err := OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("empty archive failed to open: %v", err)
	}
	if len(empty.List()) != 0 {
		t.Error("expected empty archive")
	}
}
