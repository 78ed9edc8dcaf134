package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Faultbox/packedit/internal/worker"
	"github.com/Faultbox/packedit/pkg/decoder"
	"github.com/Faultbox/packedit/pkg/schema"
	"github.com/Faultbox/packedit/pkg/table"
)

func cmdDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	use := fs.String("use", "", "Comma-separated field kinds to append at the cursor")
	names := fs.String("names", "", "Comma-separated names for the top-level fields")
	version := fs.Int("version", -1, "Start from the stored definition of this version")
	hexLines := fs.Int("hex", 8, "Hex dump lines to show (0 = none, -1 = all)")
	test := fs.Bool("test", false, "Decode every entry with the resulting definition")
	save := fs.Bool("save", false, "Store the definition in the schema file")
	fs.Parse(args)

	if fs.NArg() < 2 {
		usage("decode [-use kinds] [-names names] [-save] <file.pack> <table>")
	}
	kinds, err := parseKinds(*use)
	if err != nil {
		fatal(err)
	}

	ctx := loadContext()
	s := openSession(ctx, fs.Arg(0))
	defer s.close()

	packed := fs.Arg(1)
	file := call[worker.PackedFileResp](s, worker.GetPackedFile{Path: packed})
	ds, err := ctx.NewDecoderSession(packed, file.Data)
	if err != nil {
		fatal(err)
	}

	if *version >= 0 {
		if _, err := ds.LoadVersion(int32(*version)); err != nil {
			fatal(err)
		}
	}
	for _, k := range kinds {
		ds.UseAs(k)
	}
	if *names != "" {
		for i, name := range strings.Split(*names, ",") {
			if err := ds.Rename([]int{i}, strings.TrimSpace(name)); err != nil {
				fatal(fmt.Errorf("naming field %d: %w", i, err))
			}
		}
	}

	h := ds.Header()
	fmt.Printf("File:    %s (%s)\n", packed, h.Kind)
	fmt.Printf("Version: %d\n", h.Version)
	fmt.Printf("Entries: %d\n", h.EntryCount)
	fmt.Printf("Header:  %d bytes\n", h.Size)
	fmt.Printf("Cursor:  0x%X of 0x%X\n", ds.Cursor(), len(ds.Data()))
	fmt.Println()

	if *hexLines != 0 {
		fmt.Print(renderHexDump(ds.HexDump(), ds.Cursor(), *hexLines))
		fmt.Println()
	}

	if previews := ds.FieldPreviews(); len(previews) > 0 {
		fmt.Println("Fields:")
		fmt.Print(renderFields(previews))
		fmt.Println()
	}

	fmt.Printf("Next field at 0x%X:\n", ds.Cursor())
	fmt.Print(renderPreviews(ds.Previews()))

	if *test {
		fmt.Println()
		testDefinition(ds, ctx.Config.Decoder.PreviewRows)
	}

	if *save {
		ctx.SaveSession(ds)
		call[worker.SuccessResp](s, worker.SaveSchema{})
		fmt.Printf("\nSaved version %d to %s\n", h.Version, ctx.Config.SchemaPath())
	}
}

// renderHexDump prints the dump lines around the cursor. Lines fully inside the
// header are marked "h", lines holding decoded bytes "d".
func renderHexDump(d decoder.HexDump, cursor, lines int) string {
	start, end := 0, len(d.Lines)
	if lines > 0 && lines < len(d.Lines) {
		at := 0
		for i, l := range d.Lines {
			if l.Offset <= cursor {
				at = i
			}
		}
		start = max(0, at-lines/2)
		end = min(len(d.Lines), start+lines)
	}

	var sb strings.Builder
	for _, l := range d.Lines[start:end] {
		mark := " "
		switch {
		case l.Offset+len(l.ASCII) <= d.Header.End:
			mark = "h"
		case l.Offset < d.Decoded.End:
			mark = "d"
		}
		fmt.Fprintf(&sb, "%s %08X  %-47s  %s\n", mark, l.Offset, l.Hex, l.ASCII)
	}
	return sb.String()
}

func testDefinition(ds *decoder.Session, previewRows int) {
	decoded, err := ds.Test()
	if err != nil {
		fmt.Printf("Test failed: %v\n", err)
		return
	}
	fmt.Printf("Test decoded %d entries\n", len(decoded.Rows))
	if len(ds.Fields()) == 0 {
		return
	}
	tb, err := table.New(ds.Definition(), decoded.Rows, table.Config{})
	if err != nil {
		fmt.Printf("Test failed: %v\n", err)
		return
	}
	fmt.Println(renderTable(tb, nil, previewRows))
}

func cmdSchema(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	remove := fs.Int("remove", -1, "Remove this version of the given table")
	fs.Parse(args)

	ctx := loadContext()
	sch := ctx.Schema()

	if fs.NArg() == 0 {
		fmt.Printf("Schema: %s\n\n", ctx.Config.SchemaPath())
		for _, f := range sch.Files {
			name := f.Name
			if name == "" {
				name = "-"
			}
			fmt.Printf("  %-16s %-40s %s\n", f.Kind, name, joinVersions(sch.Versions(f.Kind, f.Name)))
		}
		return
	}

	kind, err := schema.ParseFileKind(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	name := ""
	if fs.NArg() > 1 {
		name = fs.Arg(1)
	}

	if *remove >= 0 {
		var rmErr error
		ctx.UpdateSchema(func(s *schema.Schema) {
			rmErr = s.RemoveVersion(kind, name, int32(*remove))
		})
		if rmErr != nil {
			fatal(rmErr)
		}
		if err := ctx.SaveSchema(); err != nil {
			fatal(err)
		}
		fmt.Printf("Removed %s %s version %d\n", kind, name, *remove)
		return
	}

	versions := sch.Versions(kind, name)
	if len(versions) == 0 {
		fmt.Fprintf(os.Stderr, "No definitions for %s %s\n", kind, name)
		os.Exit(1)
	}
	for _, v := range versions {
		def, err := sch.Definition(kind, name, v)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Version %d:\n", v)
		printFields(def.Fields, 1)
	}
}

func printFields(fields []schema.Field, depth int) {
	for _, f := range fields {
		var notes []string
		if f.IsKey {
			notes = append(notes, "key")
		}
		if f.Reference != nil {
			notes = append(notes, "ref "+f.Reference.Table+"."+f.Reference.Column)
		}
		note := ""
		if len(notes) > 0 {
			note = "(" + strings.Join(notes, ", ") + ")"
		}
		fmt.Printf("%s%-24s %-12s %s\n", strings.Repeat("  ", depth), f.Name, f.Type, note)
		if f.Type.IsSequence() {
			printFields(f.Type.Fields, depth+1)
		}
	}
}

func joinVersions(versions []int32) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
