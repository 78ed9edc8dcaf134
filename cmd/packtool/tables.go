package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/Faultbox/packedit/internal/logger"
	"github.com/Faultbox/packedit/internal/worker"
	"github.com/Faultbox/packedit/pkg/formats"
	"github.com/Faultbox/packedit/pkg/table"
)

// tableFlags are the options shared by commands that open one table.
type tableFlags struct {
	filter        *string
	caseSensitive *bool
	regex         *bool
}

func addTableFlags(fs *flag.FlagSet) tableFlags {
	return tableFlags{
		filter:        fs.String("filter", "", `Only show rows matching "column=pattern" or "pattern"`),
		caseSensitive: fs.Bool("case", false, "Case-sensitive matching"),
		regex:         fs.Bool("regex", false, "Treat patterns as regular expressions"),
	}
}

// openTable decodes a packed table through the session's worker and applies the
// filter from the command line.
func (s *session) openTable(packed string, tf tableFlags) worker.TableResp {
	resp := call[worker.TableResp](s, worker.DecodePackedFile{Path: packed})
	if *tf.filter == "" {
		return resp
	}
	f, err := parseFilter(resp.Table.Definition(), *tf.filter)
	if err != nil {
		fatal(err)
	}
	f.CaseSensitive = *tf.caseSensitive || s.app.Config.Table.CaseSensitive
	f.Regex = *tf.regex || s.app.Config.Table.Regex
	if err := resp.Table.SetFilter(f); err != nil {
		fatal(err)
	}
	return resp
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	limit := fs.Int("n", 50, "Limit output to N rows (0 = all)")
	tf := addTableFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		usage("show [-n rows] [-filter col=pattern] <file.pack> <table>")
	}

	s := openSession(loadContext(), fs.Arg(0))
	defer s.close()

	resp := s.openTable(fs.Arg(1), tf)
	tb := resp.Table
	refs := s.app.ReferenceData(tb.Definition())

	fmt.Printf("Table:   %s (version %d)\n", tb.Name(), resp.Header.Version)
	if resp.Header.HasGUID {
		fmt.Printf("GUID:    %s\n", resp.Header.GUID)
	}
	fmt.Printf("Rows:    %d shown of %d\n", min(len(tb.Visible()), limitOrAll(*limit, tb.Len())), tb.Len())
	fmt.Println(renderTable(tb, refs, *limit))
}

func limitOrAll(limit, n int) int {
	if limit <= 0 {
		return n
	}
	return limit
}

func cmdExportTSV(args []string) {
	fs := flag.NewFlagSet("export-tsv", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		usage("export-tsv <file.pack> <table> [out.tsv]")
	}

	ctx := loadContext()
	packed := fs.Arg(1)
	out := filepath.Join(ctx.Config.Table.TSVDir, tsvName(packed))
	if fs.NArg() > 2 {
		out = fs.Arg(2)
	}

	s := openSession(ctx, fs.Arg(0))
	defer s.close()

	call[worker.SuccessResp](s, worker.ExportTSV{Path: packed, TSVPath: out})
	fmt.Printf("Exported: %s\n", out)
}

// tsvName names the default TSV export of a packed table.
func tsvName(packed string) string {
	kind, name := formats.KindFromPath(packed)
	if name == "" {
		name = kind.String()
	}
	return name + "_" + path.Base(strings.ReplaceAll(packed, "\\", "/")) + ".tsv"
}

func cmdImportTSV(args []string) {
	fs := flag.NewFlagSet("import-tsv", flag.ExitOnError)
	output := fs.String("o", "", "Write the PackFile here instead of over the input")
	fs.Parse(args)

	if fs.NArg() < 3 {
		usage("import-tsv [-o out.pack] <file.pack> <table> <in.tsv>")
	}

	s := openSession(loadContext(), fs.Arg(0))
	defer s.close()

	resp := call[worker.TableResp](s, worker.ImportTSV{Path: fs.Arg(1), TSVPath: fs.Arg(2)})
	fmt.Printf("Imported: %d rows into %s\n", resp.Table.Len(), resp.Path)

	out := *output
	if out == "" {
		out = s.path
	}
	call[worker.SuccessResp](s, worker.SavePackFile{Output: out})
	fmt.Printf("Saved %s\n", out)
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("n", 50, "Limit results per PackFile (0 = all)")
	caseSensitive := fs.Bool("case", false, "Case-sensitive matching")
	regex := fs.Bool("regex", false, "Treat the pattern as a regular expression")
	fs.Parse(args)

	ctx := loadContext()
	var packs []string
	var pattern string
	switch {
	case fs.NArg() >= 2:
		packs, pattern = []string{fs.Arg(0)}, fs.Arg(1)
	case fs.NArg() == 1 && len(ctx.Config.Data.PackPaths) > 0:
		packs, pattern = ctx.Config.Data.PackPaths, fs.Arg(0)
	default:
		usage("search [-case] [-regex] [file.pack] <pattern>")
	}

	req := worker.GlobalSearch{
		Pattern:       pattern,
		CaseSensitive: *caseSensitive || ctx.Config.Table.CaseSensitive,
		Regex:         *regex || ctx.Config.Table.Regex,
	}

	total := 0
	for _, p := range packs {
		s := openSession(ctx, p)
		resp := call[worker.GlobalSearchResp](s, req)
		s.close()

		for i, m := range resp.Matches {
			if *limit > 0 && i >= *limit {
				fmt.Printf("... and %d more in %s\n", len(resp.Matches)-i, p)
				break
			}
			fmt.Printf("%s  %s  row %d  %s = %s\n", filepath.Base(p), m.Path, m.Row, m.Field, m.Text)
		}
		if resp.Skipped > 0 {
			logger.Info("tables without a definition were not searched",
				zap.String("pack", p), zap.Int("skipped", resp.Skipped))
		}
		total += len(resp.Matches)
	}

	fmt.Fprintf(os.Stderr, "\n(%d matches)\n", total)
}

func cmdReplace(args []string) {
	fs := flag.NewFlagSet("replace", flag.ExitOnError)
	column := fs.String("col", "", "Only replace in this column (name or index)")
	output := fs.String("o", "", "Write the PackFile here instead of over the input")
	dryRun := fs.Bool("dry-run", false, "Report matches without writing")
	tf := addTableFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 4 {
		usage("replace [-col column] [-case] [-regex] [-o out.pack] <file.pack> <table> <find> <with>")
	}

	s := openSession(loadContext(), fs.Arg(0))
	defer s.close()

	resp := s.openTable(fs.Arg(1), tf)
	tb := resp.Table
	col, err := columnIndex(tb.Definition(), *column)
	if err != nil {
		fatal(err)
	}

	status, err := tb.Find(table.Query{
		Pattern:       fs.Arg(2),
		Column:        col,
		CaseSensitive: *tf.caseSensitive || s.app.Config.Table.CaseSensitive,
		Regex:         *tf.regex || s.app.Config.Table.Regex,
		Replacement:   fs.Arg(3),
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println(status.Label)
	if status.InFilter == 0 || *dryRun {
		return
	}

	n, err := tb.ReplaceAll()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Replaced: %d cells\n", n)
	if n > 0 {
		s.save(resp, *output)
	}
}

func cmdPaste(args []string) {
	fs := flag.NewFlagSet("paste", flag.ExitOnError)
	file := fs.String("file", "", `Read the text from a file ("-" for stdin) instead of the clipboard`)
	output := fs.String("o", "", "Write the PackFile here instead of over the input")
	tf := addTableFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 3 {
		usage("paste [-file text.tsv] [-o out.pack] <file.pack> <table> <selection>")
	}

	sel, err := parseSelection(fs.Arg(2))
	if err != nil {
		fatal(err)
	}
	text, err := readPasteText(*file)
	if err != nil {
		fatal(err)
	}

	s := openSession(loadContext(), fs.Arg(0))
	defer s.close()

	resp := s.openTable(fs.Arg(1), tf)
	report, err := resp.Table.Paste(text, sel)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Strategy: %s\n", report.Strategy)
	fmt.Printf("Changed:  %d cells\n", report.Changed)
	if report.Skipped > 0 {
		fmt.Printf("Skipped:  %d cells that did not fit their column\n", report.Skipped)
	}
	if len(report.Added) > 0 {
		fmt.Printf("Added:    %d rows\n", len(report.Added))
	}
	if report.Changed > 0 || len(report.Added) > 0 {
		s.save(resp, *output)
	}
}

func readPasteText(file string) (string, error) {
	switch file {
	case "":
		return clipboard.ReadAll()
	case "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(file)
	return string(data), err
}

func cmdCopy(args []string) {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	lua := fs.Bool("lua", false, "Copy as a Lua table")
	printText := fs.Bool("print", false, "Print the copied text")
	tf := addTableFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 3 {
		usage("copy [-lua] [-print] <file.pack> <table> <selection>")
	}

	sel, err := parseSelection(fs.Arg(2))
	if err != nil {
		fatal(err)
	}

	s := openSession(loadContext(), fs.Arg(0))
	defer s.close()

	tb := s.openTable(fs.Arg(1), tf).Table
	var text string
	if *lua {
		text = tb.CopySelectionLua(sel)
	} else {
		text = tb.CopySelection(sel)
	}

	if err := clipboard.WriteAll(text); err != nil {
		logger.Warn("clipboard unavailable, printing instead", zap.Error(err))
		*printText = true
	}
	if *printText {
		fmt.Println(text)
	}
	fmt.Fprintf(os.Stderr, "Copied %d cells\n", len(sel))
}
