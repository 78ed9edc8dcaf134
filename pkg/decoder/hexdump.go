package decoder

import (
	"fmt"
	"strings"
)

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// HexLine is one row of a hex dump.
type HexLine struct {
	Offset int
	Hex    string
	ASCII  string
}

// HexDump is the raw data laid out for display, with the header and the
// bytes consumed by the current field tree marked.
type HexDump struct {
	Lines   []HexLine
	Header  Span
	Decoded Span
}

// HexDump renders the session's data.
func (s *Session) HexDump() HexDump {
	return HexDump{
		Lines:   hexLines(s.data, s.bytesPerLine),
		Header:  Span{Start: 0, End: s.header.Size},
		Decoded: Span{Start: s.header.Size, End: s.cursor},
	}
}

func hexLines(data []byte, perLine int) []HexLine {
	lines := make([]HexLine, 0, (len(data)+perLine-1)/perLine)
	for off := 0; off < len(data); off += perLine {
		end := off + perLine
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		var hex, ascii strings.Builder
		for i, b := range chunk {
			if i > 0 {
				hex.WriteByte(' ')
			}
			fmt.Fprintf(&hex, "%02X", b)
			if b >= 0x20 && b < 0x7f {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}
		lines = append(lines, HexLine{Offset: off, Hex: hex.String(), ASCII: ascii.String()})
	}
	return lines
}

// String renders the dump as "offset  hex  ascii" lines.
func (d HexDump) String() string {
	var sb strings.Builder
	for _, l := range d.Lines {
		fmt.Fprintf(&sb, "%08X  %-47s  %s\n", l.Offset, l.Hex, l.ASCII)
	}
	return sb.String()
}
