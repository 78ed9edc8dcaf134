package worker

import (
	"github.com/Faultbox/packedit/pkg/formats"
	"github.com/Faultbox/packedit/pkg/table"
)

// Request is a message to the worker. Every request is answered by exactly one Response.
type Request interface {
	requestName() string
}

// Requests.
type (
	// GetPackedFile reads the raw bytes of a packed file.
	GetPackedFile struct{ Path string }
	// DecodePackedFile decodes a packed table file into an editable table.
	DecodePackedFile struct{ Path string }
	// SavePackedFile replaces (or adds) a packed file's bytes.
	SavePackedFile struct {
		Path string
		Data []byte
	}
	// SaveTable encodes an edited table back into its packed file.
	SaveTable struct {
		Path   string
		Header formats.Header
		Table  *table.Table
	}
	// ImportTSV replaces a packed table's contents with a TSV file.
	ImportTSV struct{ Path, TSVPath string }
	// ExportTSV writes a packed table to a TSV file.
	ExportTSV struct{ Path, TSVPath string }
	// GlobalSearch searches every decodable table of the PackFile.
	GlobalSearch struct {
		Pattern       string
		CaseSensitive bool
		Regex         bool
	}
	// SavePackFile writes the PackFile to disk.
	SavePackFile struct{ Output string }
	// SaveSchema writes the active schema to its file.
	SaveSchema struct{}
)

func (GetPackedFile) requestName() string    { return "GetPackedFile" }
func (DecodePackedFile) requestName() string { return "DecodePackedFile" }
func (SavePackedFile) requestName() string   { return "SavePackedFile" }
func (SaveTable) requestName() string        { return "SaveTable" }
func (ImportTSV) requestName() string        { return "ImportTSV" }
func (ExportTSV) requestName() string        { return "ExportTSV" }
func (GlobalSearch) requestName() string     { return "GlobalSearch" }
func (SavePackFile) requestName() string     { return "SavePackFile" }
func (SaveSchema) requestName() string       { return "SaveSchema" }

// Response is the worker's answer to a Request.
type Response interface {
	responseName() string
}

// GlobalMatch is one cell found by GlobalSearch.
type GlobalMatch struct {
	Path  string
	Row   int
	Col   int
	Field string
	Text  string
}

// Responses.
type (
	// PackedFileResp carries raw packed file bytes.
	PackedFileResp struct {
		Path string
		Data []byte
	}
	// TableResp carries a decoded table and the header needed to encode it again.
	TableResp struct {
		Path   string
		Header formats.Header
		Table  *table.Table
	}
	// GlobalSearchResp lists matches ordered by path, then search order within a table.
	GlobalSearchResp struct {
		Matches []GlobalMatch
		// Skipped counts table files that could not be decoded.
		Skipped int
	}
	// SuccessResp acknowledges a request with no payload.
	SuccessResp struct{}
	// ErrorResp reports a failed request.
	ErrorResp struct{ Err error }
)

func (PackedFileResp) responseName() string   { return "PackedFile" }
func (TableResp) responseName() string        { return "Table" }
func (GlobalSearchResp) responseName() string { return "GlobalSearch" }
func (SuccessResp) responseName() string      { return "Success" }
func (ErrorResp) responseName() string        { return "Error" }
