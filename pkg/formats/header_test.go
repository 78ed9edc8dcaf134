package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Faultbox/packedit/pkg/schema"
)

// createDBHeader builds a DB header with optional GUID and version markers.
func createDBHeader(guid string, version int32, count uint32) []byte {
	buf := new(bytes.Buffer)
	if guid != "" {
		buf.Write(dbGUIDMarker)
		binary.Write(buf, binary.LittleEndian, uint16(len(guid)))
		for _, c := range []byte(guid) {
			buf.WriteByte(c)
			buf.WriteByte(0)
		}
	}
	if version > 0 {
		buf.Write(dbVersionMarker)
		binary.Write(buf, binary.LittleEndian, version)
	}
	buf.WriteByte(1) // mystery byte
	binary.Write(buf, binary.LittleEndian, count)
	return buf.Bytes()
}

func TestReadHeader_DB(t *testing.T) {
	tests := []struct {
		name    string
		guid    string
		version int32
		size    int
	}{
		{"bare", "", 0, 5},
		{"version only", "", 3, 13},
		{"guid and version", "abcd", 7, 4 + 2 + 8 + 13},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := createDBHeader(tc.guid, tc.version, 42)
			h, err := ReadHeader(schema.KindDB, data)
			if err != nil {
				t.Fatalf("ReadHeader failed: %v", err)
			}
			if h.Size != tc.size {
				t.Errorf("expected header size %d, got %d", tc.size, h.Size)
			}
			if h.Version != tc.version {
				t.Errorf("expected version %d, got %d", tc.version, h.Version)
			}
			if h.EntryCount != 42 {
				t.Errorf("expected 42 entries, got %d", h.EntryCount)
			}
			if h.GUID != tc.guid || h.HasGUID != (tc.guid != "") {
				t.Errorf("unexpected GUID %q (has=%v)", h.GUID, h.HasGUID)
			}
			if h.Mystery != 1 {
				t.Errorf("expected mystery byte 1, got %d", h.Mystery)
			}
		})
	}
}

func TestReadHeader_Loc(t *testing.T) {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0xFF, 0xFE, 'L', 'O', 'C', 0})
	binary.Write(buf, binary.LittleEndian, int32(1))
	binary.Write(buf, binary.LittleEndian, uint32(9))

	h, err := ReadHeader(schema.KindLoc, buf.Bytes())
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.Size != LocHeaderSize || h.Version != 1 || h.EntryCount != 9 {
		t.Errorf("unexpected header %+v", h)
	}

	bad := buf.Bytes()
	bad[2] = 'X'
	if _, err := ReadHeader(schema.KindLoc, bad); !errors.Is(err, ErrInvalidLocMagic) {
		t.Errorf("expected ErrInvalidLocMagic, got %v", err)
	}
}

func TestReadHeader_Simple(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, int32(2))
	binary.Write(buf, binary.LittleEndian, uint32(5))

	for _, kind := range []schema.FileKind{schema.KindAnimTable, schema.KindMatchedCombat} {
		h, err := ReadHeader(kind, buf.Bytes())
		if err != nil {
			t.Fatalf("%s: ReadHeader failed: %v", kind, err)
		}
		if h.Size != SimpleHeaderSize || h.Version != 2 || h.EntryCount != 5 {
			t.Errorf("%s: unexpected header %+v", kind, h)
		}
	}
}

func TestReadHeader_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind schema.FileKind
		data []byte
		want error
	}{
		{"db truncated count", schema.KindDB, []byte{1, 0}, ErrTruncatedHeader},
		{"db truncated version", schema.KindDB, []byte{0xFC, 0xFD, 0xFE, 0xFF, 1}, ErrTruncatedHeader},
		{"db truncated guid", schema.KindDB, []byte{0xFD, 0xFE, 0xFC, 0xFF, 9, 0}, ErrTruncatedHeader},
		{"loc too short", schema.KindLoc, []byte{0xFF, 0xFE}, ErrTruncatedHeader},
		{"anim too short", schema.KindAnimTable, []byte{1, 0, 0}, ErrTruncatedHeader},
		{"unknown kind", schema.KindUnknown, nil, ErrUnsupportedKind},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadHeader(tc.kind, tc.data); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAppendHeader_RoundTrip(t *testing.T) {
	headers := []Header{
		{Kind: schema.KindDB, Version: 4, EntryCount: 3, GUID: "guid-1", HasGUID: true, HasVersion: true, Mystery: 1},
		{Kind: schema.KindDB, EntryCount: 1, Mystery: 1},
		{Kind: schema.KindLoc, Version: 1, EntryCount: 7},
		{Kind: schema.KindAnimTable, Version: 2, EntryCount: 0},
		{Kind: schema.KindMatchedCombat, Version: 3, EntryCount: 11},
	}

	for _, want := range headers {
		data, err := AppendHeader(nil, &want)
		if err != nil {
			t.Fatalf("%s: AppendHeader failed: %v", want.Kind, err)
		}
		got, err := ReadHeader(want.Kind, data)
		if err != nil {
			t.Fatalf("%s: ReadHeader failed: %v", want.Kind, err)
		}
		want.Size = len(data)
		if *got != want {
			t.Errorf("%s: got %+v, want %+v", want.Kind, *got, want)
		}
	}
}

func TestKindFromPath(t *testing.T) {
	tests := []struct {
		path  string
		kind  schema.FileKind
		table string
	}{
		{"db/units_tables/data__", schema.KindDB, "units_tables"},
		{"DB\\Land_Units_Tables\\mod", schema.KindDB, "land_units_tables"},
		{"text/db/names.loc", schema.KindLoc, ""},
		{"animations/animtable.bin", schema.KindAnimTable, ""},
		{"animations/matched_combat/matched_combat.bin", schema.KindMatchedCombat, ""},
		{"db/units_tables", schema.KindUnknown, ""},
		{"ui/skins/default.png", schema.KindUnknown, ""},
	}

	for _, tc := range tests {
		kind, table := KindFromPath(tc.path)
		if kind != tc.kind || table != tc.table {
			t.Errorf("KindFromPath(%q) = %s %q, want %s %q", tc.path, kind, table, tc.kind, tc.table)
		}
	}
}
