// Package formats reads and writes the binary table files stored inside PackFiles.
package formats

import (
	"errors"
	"strings"

	"github.com/Faultbox/packedit/pkg/encoding"
	"github.com/Faultbox/packedit/pkg/schema"
)

// ErrUnsupportedKind is returned for files that are not a known table format.
var ErrUnsupportedKind = errors.New("unsupported table kind")

// KindFromPath guesses the table kind of a packed file from its path.
// DB tables live under db/<table>/<file>; the table name is returned alongside.
func KindFromPath(path string) (schema.FileKind, string) {
	p := encoding.NormalizePackedFilePath(path)
	parts := strings.Split(p, "/")

	switch {
	case len(parts) == 3 && parts[0] == "db":
		return schema.KindDB, parts[1]
	case strings.HasSuffix(p, ".loc"):
		return schema.KindLoc, ""
	case strings.HasSuffix(p, "animtable.bin"):
		return schema.KindAnimTable, ""
	case strings.HasSuffix(p, "matched_combat.bin"):
		return schema.KindMatchedCombat, ""
	}
	return schema.KindUnknown, ""
}
