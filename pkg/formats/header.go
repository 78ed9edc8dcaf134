package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/packedit/pkg/codec"
	"github.com/Faultbox/packedit/pkg/schema"
)

// Header errors.
var (
	ErrTruncatedHeader = errors.New("truncated table header")
	ErrInvalidLocMagic = errors.New("invalid Loc magic: expected FF FE 'LOC'")
)

// Header markers and fixed sizes.
var (
	dbGUIDMarker    = []byte{0xFD, 0xFE, 0xFC, 0xFF}
	dbVersionMarker = []byte{0xFC, 0xFD, 0xFE, 0xFF}
	locMagic        = []byte{0xFF, 0xFE, 'L', 'O', 'C', 0}
)

const (
	// LocHeaderSize is BOM + "LOC\0" + version + entry count.
	LocHeaderSize = 14
	// SimpleHeaderSize is version + entry count, used by AnimTable and MatchedCombat.
	SimpleHeaderSize = 8
)

// Header is the decoded prefix of a table file.
type Header struct {
	Kind       schema.FileKind
	Version    int32
	EntryCount uint32
	// Size is the offset of the first entry.
	Size int

	// DB only.
	GUID       string
	HasGUID    bool
	HasVersion bool
	Mystery    byte
}

// ReadHeader parses the header of a table file of the given kind.
func ReadHeader(kind schema.FileKind, data []byte) (*Header, error) {
	switch kind {
	case schema.KindDB:
		return readDBHeader(data)
	case schema.KindLoc:
		return readLocHeader(data)
	case schema.KindAnimTable, schema.KindMatchedCombat:
		return readSimpleHeader(kind, data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}

func readDBHeader(data []byte) (*Header, error) {
	h := &Header{Kind: schema.KindDB}
	offset := 0

	if bytes.HasPrefix(data, dbGUIDMarker) {
		v, next, err := codec.Decode(data, len(dbGUIDMarker), schema.TypeOf(schema.StringU16))
		if err != nil {
			return nil, fmt.Errorf("%w: reading GUID: %v", ErrTruncatedHeader, err)
		}
		h.GUID = v.Str
		h.HasGUID = true
		offset = next
	}

	if bytes.HasPrefix(data[offset:], dbVersionMarker) {
		offset += len(dbVersionMarker)
		if len(data) < offset+4 {
			return nil, fmt.Errorf("%w: reading version", ErrTruncatedHeader)
		}
		h.Version = int32(binary.LittleEndian.Uint32(data[offset:]))
		h.HasVersion = true
		offset += 4
	}

	if len(data) < offset+5 {
		return nil, fmt.Errorf("%w: reading entry count", ErrTruncatedHeader)
	}
	h.Mystery = data[offset]
	h.EntryCount = binary.LittleEndian.Uint32(data[offset+1:])
	h.Size = offset + 5
	return h, nil
}

func readLocHeader(data []byte) (*Header, error) {
	if len(data) < LocHeaderSize {
		return nil, ErrTruncatedHeader
	}
	if !bytes.Equal(data[:len(locMagic)], locMagic) {
		return nil, ErrInvalidLocMagic
	}
	return &Header{
		Kind:       schema.KindLoc,
		Version:    int32(binary.LittleEndian.Uint32(data[6:])),
		EntryCount: binary.LittleEndian.Uint32(data[10:]),
		Size:       LocHeaderSize,
	}, nil
}

func readSimpleHeader(kind schema.FileKind, data []byte) (*Header, error) {
	if len(data) < SimpleHeaderSize {
		return nil, ErrTruncatedHeader
	}
	return &Header{
		Kind:       kind,
		Version:    int32(binary.LittleEndian.Uint32(data[0:])),
		EntryCount: binary.LittleEndian.Uint32(data[4:]),
		Size:       SimpleHeaderSize,
	}, nil
}

// AppendHeader writes h to buf. Size is ignored; the written length is returned by
// the new slice.
func AppendHeader(buf []byte, h *Header) ([]byte, error) {
	switch h.Kind {
	case schema.KindDB:
		if h.HasGUID {
			buf = append(buf, dbGUIDMarker...)
			var err error
			buf, err = codec.Encode(buf, schema.TypeOf(schema.StringU16), schema.StringValue(schema.StringU16, h.GUID))
			if err != nil {
				return buf, fmt.Errorf("writing GUID: %w", err)
			}
		}
		if h.HasVersion {
			buf = append(buf, dbVersionMarker...)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(h.Version))
		}
		buf = append(buf, h.Mystery)
		return binary.LittleEndian.AppendUint32(buf, h.EntryCount), nil

	case schema.KindLoc:
		buf = append(buf, locMagic...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(h.Version))
		return binary.LittleEndian.AppendUint32(buf, h.EntryCount), nil

	case schema.KindAnimTable, schema.KindMatchedCombat:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(h.Version))
		return binary.LittleEndian.AppendUint32(buf, h.EntryCount), nil
	}
	return buf, fmt.Errorf("%w: %s", ErrUnsupportedKind, h.Kind)
}

// HeaderSize returns the offset of the first entry in data.
func HeaderSize(kind schema.FileKind, data []byte) (int, error) {
	h, err := ReadHeader(kind, data)
	if err != nil {
		return 0, err
	}
	return h.Size, nil
}
