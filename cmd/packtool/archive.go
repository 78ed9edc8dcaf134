package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Faultbox/packedit/pkg/formats"
	"github.com/Faultbox/packedit/pkg/packfile"
	"github.com/Faultbox/packedit/pkg/schema"
)

func cmdInfo(args []string) {
	if len(args) < 1 {
		usage("info <file.pack>")
	}

	archive, err := packfile.Open(args[0])
	if err != nil {
		fatal(err)
	}
	defer archive.Close()

	files := archive.List()

	// Count by table kind, then by extension for everything else
	kindCount := make(map[string]int)
	var totalSize uint64
	for _, f := range files {
		if e, ok := archive.Stat(f); ok {
			totalSize += uint64(e.Size)
		}
		kind, _ := formats.KindFromPath(f)
		label := kind.String()
		if kind == schema.KindUnknown {
			label = strings.ToLower(path.Ext(f))
			if label == "" {
				label = "(no ext)"
			}
		}
		kindCount[label]++
	}

	h := archive.Header()
	fmt.Printf("PackFile: %s\n", args[0])
	fmt.Printf("Type:     %d\n", h.Type)
	fmt.Printf("Created:  %s\n", time.Unix(int64(h.Timestamp), 0).UTC().Format(time.RFC3339))
	fmt.Printf("Files:    %d\n", len(files))
	fmt.Printf("Size:     %.2f MB\n", float64(totalSize)/(1024*1024))
	if deps := archive.Dependencies(); len(deps) > 0 {
		fmt.Printf("Depends:  %s\n", strings.Join(deps, ", "))
	}
	fmt.Println()
	fmt.Println("Files by type:")

	type kindStat struct {
		kind  string
		count int
	}
	var stats []kindStat
	for kind, count := range kindCount {
		stats = append(stats, kindStat{kind, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].kind < stats[j].kind
	})

	for _, s := range stats {
		fmt.Printf("  %-16s %d\n", s.kind, s.count)
	}
}

// matchPath reports whether a packed path matches a lowercase glob pattern,
// either as a whole or by its base name. A pattern without wildcards matches
// as a substring.
func matchPath(pattern, packed string) bool {
	p := strings.ToLower(packed)
	if !strings.ContainsAny(pattern, "*?[") {
		return strings.Contains(p, pattern)
	}
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(p))
	return ok
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		usage("list <file.pack> [pattern]")
	}

	archive, err := packfile.Open(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.List() {
		if pattern != "" && !matchPath(pattern, f) {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		usage("extract <file.pack> <path> [output_dir]")
	}

	packPath := fs.Arg(0)
	filePath := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := packfile.Open(packPath)
	if err != nil {
		fatal(err)
	}
	defer archive.Close()

	if strings.ContainsAny(filePath, "*?[") {
		extractPattern(archive, filePath, outputDir)
		return
	}

	data, err := archive.Read(filePath)
	if err != nil {
		fatal(err)
	}

	outputPath := filepath.Join(outputDir, path.Base(filePath))
	if err := writeFile(outputPath, data); err != nil {
		fatal(err)
	}
	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
}

func extractPattern(archive *packfile.Archive, pattern, outputDir string) {
	pattern = strings.ToLower(pattern)

	extracted := 0
	for _, f := range archive.List() {
		if !matchPath(pattern, f) {
			continue
		}

		data, err := archive.Read(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", f, err)
			continue
		}

		// Preserve directory structure
		outputPath := filepath.Join(outputDir, filepath.FromSlash(f))
		if err := writeFile(outputPath, data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}

		fmt.Printf("Extracted: %s\n", outputPath)
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
}

func writeFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0644)
}
