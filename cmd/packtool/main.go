// packtool is a CLI utility for inspecting and editing the tables stored in PackFiles.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/packedit/internal/app"
	"github.com/Faultbox/packedit/internal/config"
	"github.com/Faultbox/packedit/internal/logger"
	"github.com/Faultbox/packedit/internal/worker"
	"github.com/Faultbox/packedit/pkg/packfile"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "show", "cat":
		cmdShow(args)
	case "decode":
		cmdDecode(args)
	case "schema":
		cmdSchema(args)
	case "export-tsv":
		cmdExportTSV(args)
	case "import-tsv":
		cmdImportTSV(args)
	case "search", "find":
		cmdSearch(args)
	case "replace":
		cmdReplace(args)
	case "paste":
		cmdPaste(args)
	case "copy":
		cmdCopy(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`packtool - PackFile table utility

Usage:
  packtool [global options] <command> [options]

Global options:
  -config <file>    Config file (default: $PACKEDIT_CONFIG, ./packedit.yaml, user config dir)
  -schema <file>    Schema file
  -debug            Enable debug logging
  -log-file <file>  Also write logs to a rotated file
  -packs <a,b,...>  PackFiles searched when search is given no PackFile
  -parallel <n>     Files decoded concurrently by search

Commands:
  info <file.pack>                          Show PackFile information
  list <file.pack> [pattern]                List packed files (optional glob pattern)
  extract <file.pack> <path> [output]       Extract packed file(s) to a directory
  show <file.pack> <table>                  Print a decoded table
  decode <file.pack> <table>                Inspect raw bytes and build a definition
  schema [kind] [table]                     List known definitions
  export-tsv <file.pack> <table> <out.tsv>  Export a table to TSV
  import-tsv <file.pack> <table> <in.tsv>   Replace a table with a TSV file
  search [file.pack] <pattern>              Search every decodable table
  replace <file.pack> <table> <find> <with> Replace matching cells
  paste <file.pack> <table> <selection>     Paste clipboard text into a selection
  copy <file.pack> <table> <selection>      Copy a selection to the clipboard

Selections are "row:col" or "row:col-row:col" in view coordinates.

Examples:
  packtool info data.pack
  packtool list data.pack "db/units_tables/*"
  packtool show -filter "key=spear" data.pack db/units_tables/data__
  packtool decode -use StringU16,I32 -save mod.pack db/units_tables/mod
  packtool search -regex data.pack "^wh_main_"
  packtool paste -o out.pack mod.pack db/units_tables/mod 0:2-3:2`)
}

// fatal reports err and exits.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.Sync()
	os.Exit(1)
}

func usage(text string) {
	fmt.Fprintln(os.Stderr, "Usage: packtool "+text)
	os.Exit(1)
}

// loadContext loads the config, starts logging and builds the application context.
func loadContext() *app.Context {
	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	lc := cfg.Logging
	opts := logger.Options{Level: lc.Level, Console: os.Stderr}
	if lc.LogFile != "" {
		opts.File = logger.FileConfig{
			Path:       lc.LogFile,
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		}
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fatal(err)
	}

	ctx, err := app.New(cfg, logger.Named("app"))
	if err != nil {
		fatal(err)
	}
	if len(cfg.Data.DependencyPaths) > 0 {
		loadDependencies(ctx, cfg.Data.DependencyPaths)
	}
	return ctx
}

func loadDependencies(ctx *app.Context, paths []string) {
	var archives []*packfile.Archive
	for _, p := range paths {
		a, err := packfile.Open(p)
		if err != nil {
			logger.Warn("dependency PackFile not loaded", zap.String("path", p), zap.Error(err))
			continue
		}
		defer a.Close()
		archives = append(archives, a)
	}
	ctx.LoadDependencies(archives...)
}

// session is one opened PackFile served by a running worker.
type session struct {
	app    *app.Context
	path   string
	worker *worker.Worker
	close  func()
}

func openSession(ctx *app.Context, path string) *session {
	archive, err := packfile.Open(path)
	if err != nil {
		fatal(err)
	}

	w := worker.New(ctx, archive)
	runCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(runCtx)
		close(stopped)
	}()

	return &session{
		app:    ctx,
		path:   path,
		worker: w,
		close: func() {
			cancel()
			<-stopped
			archive.Close()
			logger.Sync()
		},
	}
}

// call sends req to the session's worker and exits on any error.
func call[T worker.Response](s *session, req worker.Request) T {
	resp, err := s.worker.Call(context.Background(), req)
	if err != nil {
		fatal(err)
	}
	out, err := worker.Expect[T](resp)
	if err != nil {
		fatal(err)
	}
	return out
}

// save writes the table back into the PackFile and saves it to output, or over
// the opened file when output is empty.
func (s *session) save(t worker.TableResp, output string) {
	if output == "" {
		output = s.path
	}
	call[worker.SuccessResp](s, worker.SaveTable{Path: t.Path, Header: t.Header, Table: t.Table})
	call[worker.SuccessResp](s, worker.SavePackFile{Output: output})
	fmt.Printf("Saved %s\n", output)
}
